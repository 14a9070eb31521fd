package debugrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	debugGroup := apiBase.Group("/debug")
	{
		// GET /v1.0/debug/test-raise-error
		// Always fails, to exercise error reporting
		debugGroup.GET("/test-raise-error", testRaiseError)

		// GET /v1.0/debug/version-info
		// Build and image metadata
		debugGroup.GET("/version-info", versionInfo)

		// GET /v1.0/debug/url-info
		// URL and protocol as perceived by the server
		debugGroup.GET("/url-info", urlInfo)

		// GET /v1.0/debug/celery-backend-results/:process_instance_id
		// Celery task results for a process instance
		debugGroup.GET("/celery-backend-results/:process_instance_id", celeryBackendResults)
	}
}

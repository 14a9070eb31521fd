package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/engine/infra/server/routes"
	"github.com/spiffworkflow/backend/engine/taskresult"
	"github.com/spiffworkflow/backend/pkg/logger"
	"github.com/spiffworkflow/backend/pkg/version"
)

const (
	statusReady    = "ready"
	statusNotReady = "not_ready"
	readyzTimeout  = 3 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ Pinger = (*taskresult.Service)(nil)

func setupDiagnosticEndpoints(r *gin.Engine, backend Pinger) {
	r.GET(routes.Healthz, func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, gin.H{
			"data":    gin.H{"status": "ok", "version": version.GetVersion()},
			"message": "Success",
		})
	})
	r.GET(routes.Readyz, createReadyHandler(backend))
}

func createReadyHandler(backend Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyzTimeout)
		defer cancel()
		backendStatus := gin.H{"ready": true}
		status := statusReady
		code := http.StatusOK
		if err := backend.Ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("Readiness probe failed", "error", err)
			backendStatus = gin.H{"ready": false, "error": core.RedactError(err)}
			status = statusNotReady
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"data": gin.H{
				"status":         status,
				"ready":          code == http.StatusOK,
				"version":        version.GetVersion(),
				"result_backend": backendStatus,
			},
			"message": "Success",
		})
	}
}

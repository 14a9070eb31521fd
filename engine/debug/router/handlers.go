package debugrouter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/engine/infra/server/router"
	"github.com/spiffworkflow/backend/engine/taskresult"
	"github.com/spiffworkflow/backend/pkg/logger"
	"github.com/spiffworkflow/backend/pkg/version"
)

const (
	ErrTestRaiseErrorCode           = "test_raise_error"
	ErrInvalidProcessInstanceIDCode = "invalid_process_instance_id"
	ErrInvalidIncludeFailuresCode   = "invalid_include_all_failures"

	TestRaiseErrorMessage = "This exception was generated by /debug/test-raise-error for testing purposes. Please ignore."
)

// testRaiseError handles GET /debug/test-raise-error.
//
//	@Summary	Raise a test error
//	@Tags		debug
//	@Produce	json
//	@Failure	500	{object}	core.ProblemDocument
//	@Router		/debug/test-raise-error [get]
func testRaiseError(c *gin.Context) {
	_ = c.Error(core.NewAPIError(http.StatusInternalServerError, ErrTestRaiseErrorCode, TestRaiseErrorMessage))
}

// versionInfo handles GET /debug/version-info.
//
//	@Summary	Get version information
//	@Tags		debug
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/debug/version-info [get]
func versionInfo(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	data, err := version.LoadData(state.Config.Version.InfoFile)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("Ignoring unreadable version info file", "error", err)
	}
	c.JSON(http.StatusOK, data)
}

// urlInfo handles GET /debug/url-info.
//
//	@Summary	Get the URL as seen by the server
//	@Tags		debug
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/debug/url-info [get]
func urlInfo(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	perceived := router.ResolvePerceivedURL(c.Request, router.URLOptions{
		RootPath:       state.Config.Server.RootPath,
		TrustForwarded: state.Config.Server.TrustForwardedHeaders,
	})
	c.JSON(http.StatusOK, gin.H{
		"request.root_path": perceived.RootPath,
		"request.host_url":  perceived.HostURL,
		"request.url":       perceived.URL,
		"cache":             state.Endpoints.Snapshot(),
	})
}

// celeryBackendResults handles GET /debug/celery-backend-results/:process_instance_id.
//
//	@Summary	List Celery task results for a process instance
//	@Tags		debug
//	@Produce	json
//	@Param		process_instance_id		path	int		true	"Process instance ID"
//	@Param		include_all_failures	query	bool	false	"Also return every failed task"	default(true)
//	@Success	200	{array}		object
//	@Failure	400	{object}	core.ProblemDocument
//	@Failure	500	{object}	core.ProblemDocument
//	@Router		/debug/celery-backend-results/{process_instance_id} [get]
func celeryBackendResults(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	processInstanceID, err := strconv.ParseInt(c.Param("process_instance_id"), 10, 64)
	if err != nil {
		router.RespondProblemWithCode(c, http.StatusBadRequest, ErrInvalidProcessInstanceIDCode,
			"process_instance_id must be an integer")
		return
	}
	includeAllFailures, err := strconv.ParseBool(c.DefaultQuery("include_all_failures", "true"))
	if err != nil {
		router.RespondProblemWithCode(c, http.StatusBadRequest, ErrInvalidIncludeFailuresCode,
			"include_all_failures must be a boolean")
		return
	}
	results, err := state.Results.Results(c.Request.Context(), taskresult.Query{
		ProcessInstanceID:  processInstanceID,
		IncludeAllFailures: includeAllFailures,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, results)
}

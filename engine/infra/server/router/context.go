package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/infra/server/appstate"
	"github.com/spiffworkflow/backend/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// GetAppState returns the application state or writes a 500 and returns nil.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("App state lookup failed", "error", err)
		RespondProblemWithCode(c, http.StatusInternalServerError, ErrInternalCode, ErrMsgAppStateNotInitialized)
		return nil
	}
	return state
}

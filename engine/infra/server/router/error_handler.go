package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/pkg/logger"
)

// ErrorHandler turns errors attached with c.Error into problem responses.
// Only the last error is reported; handlers that already wrote a body are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondWithError(c, c.Errors.Last().Err)
	}
}

// RecoveryHandler reports panics as a problem response instead of an empty 500.
func RecoveryHandler() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		if c.Writer.Written() {
			c.Abort()
			return
		}
		logger.FromContext(c.Request.Context()).Error("Recovered from panic",
			"path", c.Request.URL.Path,
			"panic", core.RedactString(fmt.Sprint(recovered)),
		)
		RespondProblemWithCode(c, http.StatusInternalServerError, ErrInternalCode, ErrMsgInternal)
	}
}

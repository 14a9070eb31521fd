package server

import (
	"github.com/gin-gonic/gin"

	debugrouter "github.com/spiffworkflow/backend/engine/debug/router"
	"github.com/spiffworkflow/backend/engine/infra/monitoring"
	"github.com/spiffworkflow/backend/engine/infra/server/appstate"
	"github.com/spiffworkflow/backend/engine/infra/server/routes"
)

// RegisterRoutes mounts diagnostics, metrics and the versioned API.
func RegisterRoutes(r *gin.Engine, state *appstate.State, monitoringService *monitoring.Service) {
	setupDiagnosticEndpoints(r, state.Results)
	if monitoringService != nil && monitoringService.IsInitialized() {
		r.GET(monitoringService.Path(), gin.WrapH(monitoringService.ExporterHandler()))
	}
	apiBase := r.Group(routes.Base(state.Config.Server.APIPrefix))
	debugrouter.Register(apiBase)
}

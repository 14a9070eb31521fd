package start

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/spiffworkflow/backend/cli/helpers"
	"github.com/spiffworkflow/backend/engine/infra/server"
	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

const productionEnvironment = "production"

// NewStartCommand creates the start command for the HTTP server
func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"server"},
		Short:   "Start the diagnostic HTTP server",
		RunE:    executeStartCommand,
	}
	cmd.Flags().String("host", "", "Host interface to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("result-backend", "", "Celery result backend URL (redis://, rediss:// or s3://)")
	return cmd
}

func executeStartCommand(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	log := logger.FromContext(ctx)
	if cfg.Runtime.Environment == productionEnvironment {
		gin.SetMode(gin.ReleaseMode)
	}
	logStartupWarnings(log, cfg)
	if err := helpers.EnsurePortAvailable(ctx, cfg.Server.Host, cfg.Server.Port); err != nil {
		return err
	}
	log.Info("Starting server",
		"environment", cfg.Runtime.Environment,
		"result_backend", cfg.Celery.ResultBackend,
	)
	srv, err := server.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run()
}

func logStartupWarnings(log logger.Logger, cfg *config.Config) {
	if cfg.Celery.ResultBackend.Value() == "" {
		log.Warn("No Celery result backend configured; celery-backend-results will fail")
	}
	if cfg.Server.TrustForwardedHeaders {
		log.Debug("Trusting X-Forwarded-* headers for url-info")
	}
	if cfg.Runtime.Environment == productionEnvironment && cfg.Server.CORSEnabled {
		for _, origin := range cfg.Server.CORS.AllowedOrigins {
			if origin == "*" {
				log.Warn("CORS allows any origin in production")
			}
		}
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

// SetupGlobalConfig loads the env file and configuration, then attaches the
// configuration manager and logger to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mergeFlags(cmd)
	envFile, err := loadEnvFile(cmd)
	if err != nil {
		return err
	}
	sources := []config.Source{}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	flags := map[string]any{}
	extractCLIFlags(cmd, flags)
	if envFile != "" {
		flags["env-file"] = envFile
	}
	sources = append(sources, config.NewCLIProvider(flags))

	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return err
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithManager(ctx, manager)
	cmd.SetContext(ctx)
	log.Debug("Configuration loaded", "config_file", configFile, "env_file", envFile)
	return nil
}

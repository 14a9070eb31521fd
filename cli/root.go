package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/spiffworkflow/backend/cli/cmd/config"
	"github.com/spiffworkflow/backend/cli/cmd/start"
	versioncmd "github.com/spiffworkflow/backend/cli/cmd/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spiffworkflow-backend",
		Short:         "SpiffWorkflow backend diagnostic service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to an environment file loaded before configuration")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source file and line in logs")

	root.AddCommand(
		start.NewStartCommand(),
		versioncmd.NewVersionCommand(),
		configcmd.NewConfigCommand(),
	)
	return root
}

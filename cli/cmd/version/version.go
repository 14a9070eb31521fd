package versioncmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
	"github.com/spiffworkflow/backend/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and image version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := version.DefaultInfoFile
			if cfg := config.FromContext(cmd.Context()); cfg != nil {
				path = cfg.Version.InfoFile
			}
			data, err := version.LoadData(path)
			if err != nil {
				logger.FromContext(cmd.Context()).Warn("Ignoring unreadable version info file", "error", err)
			}
			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding version info: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	return cmd
}

package configcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spiffworkflow/backend/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	cmd.AddCommand(newShowCommand())
	return cmd
}

type entry struct {
	Key    string `json:"key"    yaml:"key"`
	Value  string `json:"value"  yaml:"value"`
	Source string `json:"source" yaml:"source"`
	EnvVar string `json:"env,omitempty" yaml:"env,omitempty"`
}

func newShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with the source of each value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := config.ManagerFromContext(cmd.Context())
			cfg := manager.Get()
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}
			entries := collect(cfg, manager.Service)
			return render(cmd.OutOrStdout(), format, entries)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	return cmd
}

func collect(cfg *config.Config, svc config.Service) []entry {
	lines := config.Summary(cfg)
	entries := make([]entry, 0, len(lines))
	for _, line := range lines {
		key, value, _ := strings.Cut(line, "=")
		entries = append(entries, entry{
			Key:    key,
			Value:  value,
			Source: string(svc.GetSource(key)),
			EnvVar: config.GetEnvVarForConfigPath(key),
		})
	}
	return entries
}

func render(w io.Writer, format string, entries []entry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(entries)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Value, e.Source)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format %q: must be one of [table json yaml]", format)
	}
}

// Command autoif runs the AutoIF instruction-following data pipeline.
//
// Configuration is read from a YAML or TOML file (--config, AUTOIF_CONFIG,
// ./autoif.yaml or /etc/autoif/config.yaml) and AUTOIF_* environment
// variables. Flags override both.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "autoif",
	Short:         "Generate verified instruction-following training data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file")
	rootCmd.AddCommand(runCmd, modelsCmd, cacheCmd, versionCmd, sandboxExecCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("autoif failed", "error", err)
		os.Exit(1)
	}
}

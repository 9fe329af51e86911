// Package cli implements the draftgate command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "draftgate",
	Short: "Guardrail-validated collection email engine",
	Long: "Classifies inbound debtor email, evaluates send gates, and generates\n" +
		"collection drafts that pass a deterministic guardrail pipeline before\n" +
		"any human sees them. Drafts that fail validation are blocked, not sent.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.draftgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the active configuration and its content hash.
func loadConfig() (*config.Config, string, error) {
	return config.LoadWithHash(configPath)
}

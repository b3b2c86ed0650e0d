// Package cmd defines the CLI commands for the recapd executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrecap/recapd/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recapd",
		Short: "Court-record page processing service for the public archive.",
		Long: `recapd classifies PACER court pages, extracts case and document
identifiers, synchronizes page content with the public archive exactly once
per page view, and returns the rewritten page with its affordances.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: built-in defaults plus RECAPD_* environment)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInspectCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "recapd: %v\n", err)
		os.Exit(1)
	}
}

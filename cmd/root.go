package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"issaudit/internal/config"
	"issaudit/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute; nil when the environment failed validation.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "issaudit",
	Short: "ISS audit - classify service invoices and reconcile owed tax",
	Long: `issaudit audits the municipal service tax (ISS) declared on a taxpayer's
invoices. It labels each invoice with the infractions it shows, groups the
labelled invoices into assessments, and works out per month how much tax is
still owed after earlier payments are credited.

Statute cutoffs are evaluated against AUDIT_TODAY (YYYY-MM-DD) or the current
date.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with the loaded configuration.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func requireConfig() (*config.Config, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration is invalid, check the environment")
	}
	return appConfig, nil
}

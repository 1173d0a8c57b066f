package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"issaudit/internal/config"
	"issaudit/internal/dataset"
	"issaudit/internal/logger"
	"issaudit/internal/rules"
	"issaudit/internal/session"
	"issaudit/internal/statute"
	"issaudit/pkg/models"
)

// addAuditFlags registers the classification flags shared by classify and reconcile.
func addAuditFlags(cmd *cobra.Command) {
	cmd.Flags().String("today", "", "Statute clock date (format: YYYY-MM-DD, default: AUDIT_TODAY or today)")
	cmd.Flags().Bool("simplified", false, "Only assess unpaid tax, skipping every other rule")
	cmd.Flags().StringSlice("disable", nil, "Rule keys to skip, e.g. withholding.verify")
	cmd.Flags().String("session", "", "Session file with reviewer groups and manual statuses to restore")
	cmd.Flags().Bool("resolve-duplicates", false, "Keep one record per repeated invoice number instead of failing")
	cmd.Flags().StringP("output", "o", "", "Write the JSON report to this file instead of stdout")
}

// auditRun is a classified dataset with its assessment groups.
type auditRun struct {
	data     *dataset.Dataset
	invoices []*models.InvoiceRecord
	groups   []*models.AssessmentGroup
	report   rules.Report
	restored bool
}

// classifyDataset loads the dataset, restores the session when one exists,
// classifies every invoice and builds groups unless the session supplied them.
func classifyDataset(cmd *cobra.Command, path string, cfg *config.Config) (*auditRun, error) {
	const op = "classifyDataset"
	log := logger.WithComponent("audit")

	todayStr, _ := cmd.Flags().GetString("today")
	simplified, _ := cmd.Flags().GetBool("simplified")
	disabled, _ := cmd.Flags().GetStringSlice("disable")
	sessionPath, _ := cmd.Flags().GetString("session")
	resolve, _ := cmd.Flags().GetBool("resolve-duplicates")

	today := cfg.Today
	if todayStr != "" {
		parsed, err := time.Parse(config.DateLayout, todayStr)
		if err != nil {
			return nil, fmt.Errorf("invalid today date format. Use YYYY-MM-DD: %w", err)
		}
		today = parsed
	}

	ds, err := dataset.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoices := ds.Invoices
	if resolve {
		invoices = rules.ResolveDuplicates(invoices)
	}
	invoices, err = rules.CheckDuplicates(invoices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	run := &auditRun{data: ds, invoices: invoices}

	if sessionPath != "" {
		groups, err := restoreSession(sessionPath, invoices)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Info().Str("session", sessionPath).Msg("No session file yet, building groups from labels")
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			run.groups = groups
			run.restored = true
		}
	}

	classifier, err := rules.NewClassifier(rules.Options{
		Clock:      statute.NewClock(today),
		Activities: ds.Activities,
		Taxpayer:   ds.Taxpayer,
		Simplified: simplified || cfg.SimplifiedMode,
		Disabled:   append(append([]string(nil), cfg.DisabledRules...), disabled...),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	run.report = classifier.Classify(invoices)

	if !run.restored {
		run.groups = rules.BuildGroups(invoices)
	}

	log.Info().
		Int("invoices", len(invoices)).
		Int("groups", len(run.groups)).
		Bool("restored", run.restored).
		Msg("Dataset classified")

	return run, nil
}

func restoreSession(path string, invoices []*models.InvoiceRecord) ([]*models.AssessmentGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := session.Load(f)
	if err != nil {
		return nil, err
	}
	return session.Restore(snap, invoices)
}

func saveSession(path string, groups []*models.AssessmentGroup, invoices []*models.InvoiceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	if err := session.Save(f, session.Capture(groups, invoices)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeJSON writes v indented to the output flag's file, or to stdout.
func writeJSON(cmd *cobra.Command, v interface{}) error {
	outputPath, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(jsonData)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

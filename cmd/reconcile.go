package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"issaudit/internal/config"
	"issaudit/internal/ledger"
	"issaudit/internal/logger"
	"issaudit/internal/reconciliation"
	"issaudit/internal/report"
	"issaudit/internal/sheets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <dataset.json>",
	Short: "Compute tax owed per assessment group after crediting payments",
	Long: `Classify the dataset, then reconcile every assessment group month by month:
bucket invoices by period and applied rate, credit ad-hoc payment receipts of
the same month first and periodic declarations second, and report what is
still owed.

Credits come from the dataset unless --credits-sheet or --credits-xlsx is
given. With --credits-sheet the "Receipts" and "Declarations" worksheets of
GOOGLE_SHEET_URL are read.

Environment variables for Google Sheets:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Spreadsheet holding credits and receiving the ledger`,
	Example: `  # Reconcile with credits from the dataset
  issaudit reconcile audit.json

  # Resume reviewer work and export the ledger workbook
  issaudit reconcile audit.json --session review.json --xlsx ledger.xlsx

  # Read credits from Google Sheets and publish the ledger back
  issaudit reconcile audit.json --credits-sheet --publish`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	addAuditFlags(reconcileCmd)

	reconcileCmd.Flags().Bool("credits-sheet", false, "Read receipts and declarations from GOOGLE_SHEET_URL")
	reconcileCmd.Flags().String("credits-xlsx", "", "Read receipts and declarations from a local XLSX file")
	reconcileCmd.Flags().String("xlsx", "", "Write the ledger and summary to this XLSX file")
	reconcileCmd.Flags().Bool("publish", false, "Replace the Ledger and Summary worksheets of GOOGLE_SHEET_URL")
	reconcileCmd.Flags().String("save-session", "", "Write groups and manual statuses to this session file")
}

// ReconcileOutput is the JSON document printed by reconcile.
type ReconcileOutput struct {
	Result  *reconciliation.Result `json:"result"`
	Summary reconciliation.Summary `json:"summary"`
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	creditsSheet, _ := cmd.Flags().GetBool("credits-sheet")
	creditsXLSX, _ := cmd.Flags().GetString("credits-xlsx")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	publish, _ := cmd.Flags().GetBool("publish")
	sessionOut, _ := cmd.Flags().GetString("save-session")

	if creditsSheet && creditsXLSX != "" {
		return fmt.Errorf("--credits-sheet and --credits-xlsx are mutually exclusive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var sheetsService *sheets.Service
	if creditsSheet || publish {
		if sheetsService, err = newSheetsService(ctx, cfg); err != nil {
			return err
		}
	}

	run, err := classifyDataset(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	receipts, declarations := run.data.Receipts, run.data.Declarations
	switch {
	case creditsSheet:
		receipts, declarations, err = readCredits(ctx, sheetsService)
	case creditsXLSX != "":
		receipts, declarations, err = readCreditsXLSX(ctx, creditsXLSX)
	}
	if err != nil {
		return fmt.Errorf("failed to import credits: %w", err)
	}

	credits := ledger.New(ledger.BuildSnapshot(receipts, declarations))
	result, err := reconciliation.NewEngine().Run(run.groups, run.invoices, credits)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	summary := reconciliation.BuildSummary(result, run.data.Fines)

	log.Info().
		Str("run_id", result.RunID).
		Int("groups", len(result.Groups)).
		Int("omitted", len(summary.Omitted)).
		Str("total", summary.Total.StringFixed(2)).
		Msg("Reconciliation finished")

	if xlsxPath != "" {
		if err := writeWorkbookFile(xlsxPath, result, summary); err != nil {
			return err
		}
		log.Info().Str("path", xlsxPath).Msg("Workbook written")
	}

	if publish {
		if err := sheetsService.ReplaceSheet(ctx, report.LedgerSheet, report.LedgerRows(result)); err != nil {
			return fmt.Errorf("failed to publish ledger: %w", err)
		}
		if err := sheetsService.ReplaceSheet(ctx, report.SummarySheet, report.SummaryRows(summary)); err != nil {
			return fmt.Errorf("failed to publish summary: %w", err)
		}
	}

	if sessionOut != "" {
		if err := saveSession(sessionOut, run.groups, run.invoices); err != nil {
			return err
		}
		log.Info().Str("session", sessionOut).Msg("Session saved")
	}

	return writeJSON(cmd, ReconcileOutput{Result: result, Summary: summary})
}

func newSheetsService(ctx context.Context, cfg *config.Config) (*sheets.Service, error) {
	if cfg.GoogleSheetURL == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}
	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}
	return svc, nil
}

func readCredits(ctx context.Context, src reconciliation.RangeReader) ([]ledger.Receipt, []ledger.Declaration, error) {
	reader := reconciliation.NewCreditReader(src)
	receipts, err := reader.ReadReceipts(ctx)
	if err != nil {
		return nil, nil, err
	}
	declarations, err := reader.ReadDeclarations(ctx)
	if err != nil {
		return nil, nil, err
	}
	return receipts, declarations, nil
}

func readCreditsXLSX(ctx context.Context, path string) ([]ledger.Receipt, []ledger.Declaration, error) {
	wb, err := report.OpenWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()
	return readCredits(ctx, wb)
}

func writeWorkbookFile(path string, result *reconciliation.Result, summary reconciliation.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := report.WriteWorkbook(f, result, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

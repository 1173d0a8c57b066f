package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"issaudit/internal/ledger"
	"issaudit/internal/logger"
	"issaudit/pkg/models"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Import payment receipts and declarations into dataset JSON",
	Long: `Read the "Receipts" (period, value, code, tax type, linked invoice) and
"Declarations" (period, amount, number) worksheets from Google Sheets or a
local XLSX file and print them in the dataset's JSON shape, together with the
usable credit balance per month.

Only ISS_NORMAL receipts not linked to an invoice count as credit.`,
	Example: `  # Import from GOOGLE_SHEET_URL
  issaudit credits -o credits.json

  # Import from a spreadsheet export
  issaudit credits --xlsx pagamentos.xlsx`,
	Args: cobra.NoArgs,
	RunE: runCredits,
}

func init() {
	rootCmd.AddCommand(creditsCmd)

	creditsCmd.Flags().String("xlsx", "", "Read from this XLSX file instead of GOOGLE_SHEET_URL")
	creditsCmd.Flags().StringP("output", "o", "", "Write the JSON to this file instead of stdout")
}

// CreditsOutput mirrors the credit sections of the dataset file.
type CreditsOutput struct {
	Receipts     []ReceiptOutput     `json:"receipts"`
	Declarations []DeclarationOutput `json:"declarations"`
	Balances     []BalanceOutput     `json:"balances"`
}

type ReceiptOutput struct {
	Period        models.Period   `json:"period"`
	Value         decimal.Decimal `json:"value"`
	Code          string          `json:"code"`
	TaxType       string          `json:"tax_type"`
	LinkedInvoice string          `json:"linked_invoice,omitempty"`
}

type DeclarationOutput struct {
	Period models.Period   `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Number string          `json:"number"`
}

// BalanceOutput is the usable credit of one month.
type BalanceOutput struct {
	Period   models.Period   `json:"period"`
	AdHoc    decimal.Decimal `json:"adhoc"`
	Periodic decimal.Decimal `json:"periodic"`
}

func runCredits(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("credits")

	xlsxPath, _ := cmd.Flags().GetString("xlsx")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		receipts     []ledger.Receipt
		declarations []ledger.Declaration
		err          error
	)
	if xlsxPath != "" {
		receipts, declarations, err = readCreditsXLSX(ctx, xlsxPath)
	} else {
		cfg, cfgErr := requireConfig()
		if cfgErr != nil {
			return cfgErr
		}
		svc, svcErr := newSheetsService(ctx, cfg)
		if svcErr != nil {
			return svcErr
		}
		receipts, declarations, err = readCredits(ctx, svc)
	}
	if err != nil {
		return fmt.Errorf("failed to import credits: %w", err)
	}

	credits := ledger.New(ledger.BuildSnapshot(receipts, declarations))
	out := CreditsOutput{
		Receipts: lo.Map(receipts, func(r ledger.Receipt, _ int) ReceiptOutput {
			return ReceiptOutput{Period: r.Period, Value: r.Value, Code: r.Code, TaxType: r.TaxType, LinkedInvoice: r.LinkedInvoice}
		}),
		Declarations: lo.Map(declarations, func(d ledger.Declaration, _ int) DeclarationOutput {
			return DeclarationOutput{Period: d.Period, Amount: d.Amount, Number: d.Number}
		}),
		Balances: lo.Map(credits.Periods(), func(p models.Period, _ int) BalanceOutput {
			return BalanceOutput{
				Period:   p,
				AdHoc:    credits.Balance(ledger.PoolAdHoc, p),
				Periodic: credits.Balance(ledger.PoolPeriodic, p),
			}
		}),
	}

	usable := lo.CountBy(receipts, func(r ledger.Receipt) bool { return r.Usable() })
	log.Info().
		Int("receipts", len(receipts)).
		Int("usable_receipts", usable).
		Int("declarations", len(declarations)).
		Int("periods", len(out.Balances)).
		Msg("Credits imported")

	return writeJSON(cmd, out)
}

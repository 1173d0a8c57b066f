package reconciliation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"issaudit/internal/ledger"
	"issaudit/internal/logger"
	"issaudit/pkg/models"
)

// Worksheet names read by CreditReader.
const (
	ReceiptsSheet     = "Receipts"
	DeclarationsSheet = "Declarations"
)

// RangeReader reads A1-notation ranges from a spreadsheet.
type RangeReader interface {
	ReadRange(ctx context.Context, readRange string) ([][]interface{}, error)
}

// CreditReader reads payment receipts and periodic declarations from a spreadsheet
type CreditReader struct {
	source RangeReader
	log    zerolog.Logger
}

// NewCreditReader creates a new credit reader
func NewCreditReader(source RangeReader) *CreditReader {
	return &CreditReader{
		source: source,
		log:    logger.WithComponent("credit-reader"),
	}
}

// ReadReceipts reads ad-hoc payment receipts from the "Receipts" sheet.
// Columns: A=period, B=value, C=receipt code, D=tax type, E=linked invoice.
// Filtering by tax type and linked invoice happens in ledger.BuildSnapshot.
func (cr *CreditReader) ReadReceipts(ctx context.Context) ([]ledger.Receipt, error) {
	const op = "ReadReceipts"

	values, err := cr.source.ReadRange(ctx, ReceiptsSheet+"!A:E")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, ReceiptsSheet, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrEmptySheet, ReceiptsSheet)
	}

	var receipts []ledger.Receipt
	for i, row := range values[1:] {
		rowNum := i + 2 // header and 1-based rows

		if len(row) < 3 {
			cr.log.Warn().
				Int("row", rowNum).
				Int("columns", len(row)).
				Msg("Skipping receipt row with insufficient columns")
			continue
		}

		period, err := parsePeriodCell(getString(row, 0))
		if err != nil {
			cr.log.Warn().Err(err).Int("row", rowNum).Msg("Invalid receipt period, skipping")
			continue
		}
		value, err := parseBrazilianAmount(getString(row, 1))
		if err != nil {
			cr.log.Warn().Err(err).Int("row", rowNum).Msg("Invalid receipt value, using 0")
			value = decimal.Zero
		}

		receipts = append(receipts, ledger.Receipt{
			Period:        period,
			Value:         value,
			Code:          getString(row, 2),
			TaxType:       getString(row, 3),
			LinkedInvoice: getString(row, 4),
		})
	}

	cr.log.Info().
		Int("total_rows", len(values)-1).
		Int("parsed_receipts", len(receipts)).
		Msg("Receipts read successfully")

	return receipts, nil
}

// ReadDeclarations reads periodic declaration payments from the "Declarations" sheet.
// Columns: A=period, B=amount, C=declaration number.
func (cr *CreditReader) ReadDeclarations(ctx context.Context) ([]ledger.Declaration, error) {
	const op = "ReadDeclarations"

	values, err := cr.source.ReadRange(ctx, DeclarationsSheet+"!A:C")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, DeclarationsSheet, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrEmptySheet, DeclarationsSheet)
	}

	var declarations []ledger.Declaration
	for i, row := range values[1:] {
		rowNum := i + 2

		if len(row) < 2 {
			cr.log.Warn().Int("row", rowNum).Msg("Skipping declaration row with insufficient columns")
			continue
		}

		period, err := parsePeriodCell(getString(row, 0))
		if err != nil {
			cr.log.Warn().Err(err).Int("row", rowNum).Msg("Invalid declaration period, skipping")
			continue
		}
		amount, err := parseBrazilianAmount(getString(row, 1))
		if err != nil {
			cr.log.Warn().Err(err).Int("row", rowNum).Msg("Invalid declaration amount, using 0")
			amount = decimal.Zero
		}

		declarations = append(declarations, ledger.Declaration{
			Period: period,
			Amount: amount,
			Number: getString(row, 2),
		})
	}

	cr.log.Info().
		Int("total_rows", len(values)-1).
		Int("parsed_declarations", len(declarations)).
		Msg("Declarations read successfully")

	return declarations, nil
}

// parsePeriodCell accepts MM/YYYY, YYYY-MM, or a full DD/MM/YYYY date
func parsePeriodCell(s string) (models.Period, error) {
	if s == "" {
		return models.Period{}, fmt.Errorf("empty period")
	}
	for _, format := range []string{"02/01/2006", "2/1/2006", "2006-01-02"} {
		if t, err := time.Parse(format, s); err == nil {
			return models.PeriodOf(t), nil
		}
	}
	return models.ParsePeriod(s)
}

// dotThousands matches comma-less amounts grouped with dots, like "1.234".
var dotThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// parseBrazilianAmount parses "1.234,56", "1234,56", "R$ 1.234,56", "1.234" and plain "1234.56"
func parseBrazilianAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountStr)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	// Thousands separator is a dot, decimal separator a comma
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if dotThousands.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", amountStr, cleaned)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}

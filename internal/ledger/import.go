package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

// TaxTypeNormalISS is the only receipt tax type usable as ad-hoc credit.
const TaxTypeNormalISS = "ISS_NORMAL"

// Receipt is an ad-hoc payment as delivered by the credit import.
type Receipt struct {
	Period        models.Period
	Value         decimal.Decimal
	Code          string
	TaxType       string
	LinkedInvoice string // set when the payment already settles a specific invoice
}

// Usable reports whether the receipt can be credited against assessed tax.
func (r Receipt) Usable() bool {
	return strings.EqualFold(strings.TrimSpace(r.TaxType), TaxTypeNormalISS) &&
		strings.TrimSpace(r.LinkedInvoice) == "" &&
		r.Value.IsPositive()
}

// Declaration is a simplified-regime periodic declaration payment.
type Declaration struct {
	Period models.Period
	Amount decimal.Decimal
	Number string
}

// BuildSnapshot applies the import filter and returns the start-of-run state.
// Receipts keep their input order within a period.
func BuildSnapshot(receipts []Receipt, declarations []Declaration) *Snapshot {
	entries := make([]CreditEntry, 0, len(receipts)+len(declarations))
	for _, r := range receipts {
		if !r.Usable() {
			continue
		}
		entries = append(entries, CreditEntry{
			Pool:      PoolAdHoc,
			Period:    r.Period,
			Remaining: r.Value,
			Source:    r.Code,
		})
	}
	for _, d := range declarations {
		entries = append(entries, CreditEntry{
			Pool:      PoolPeriodic,
			Period:    d.Period,
			Remaining: d.Amount,
			Source:    d.Number,
		})
	}
	return NewSnapshot(entries)
}

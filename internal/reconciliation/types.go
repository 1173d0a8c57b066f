package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

// MonthlyLedgerLine is the reconciliation of one (group, month, rate) bucket
type MonthlyLedgerLine struct {
	GroupID          string          `json:"group_id"`
	Period           models.Period   `json:"period"`
	Rate             decimal.Decimal `json:"rate"`
	Base             decimal.Decimal `json:"base"`
	GrossTax         decimal.Decimal `json:"gross_tax"`
	PaidTax          decimal.Decimal `json:"paid_tax"`
	NetDue           decimal.Decimal `json:"net_due"`
	AdHocConsumed    decimal.Decimal `json:"adhoc_consumed"`
	AdHocSources     []string        `json:"adhoc_sources,omitempty"`
	PeriodicConsumed decimal.Decimal `json:"periodic_consumed"`
	PeriodicSource   string          `json:"periodic_source,omitempty"`
	Owed             decimal.Decimal `json:"owed"`
	Invoices         []string        `json:"invoices"`
}

// GroupResult holds the ledger lines and totals of one assessment group
type GroupResult struct {
	GroupID    string              `json:"group_id"`
	MotiveKind models.Kind         `json:"motive_kind"`
	Motive     string              `json:"motive"`
	Lines      []MonthlyLedgerLine `json:"lines"`
	NetDue     decimal.Decimal     `json:"net_due"`
	Owed       decimal.Decimal     `json:"owed"`  // computed
	Final      decimal.Decimal     `json:"final"` // reviewer override when present, else Owed
	Overridden bool                `json:"overridden"`
	Missing    []string            `json:"missing,omitempty"` // invoice numbers not found in the dataset
}

// Result is the output of one reconciliation run
type Result struct {
	RunID            string          `json:"run_id"`
	ComputedAt       time.Time       `json:"computed_at"`
	Groups           []GroupResult   `json:"groups"`
	AdHocConsumed    decimal.Decimal `json:"adhoc_consumed"`
	PeriodicConsumed decimal.Decimal `json:"periodic_consumed"`
}

// Group returns the result for id, or nil
func (r *Result) Group(id string) *GroupResult {
	for i := range r.Groups {
		if r.Groups[i].GroupID == id {
			return &r.Groups[i]
		}
	}
	return nil
}

package reconciliation

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// summaryThreshold is the amount at or below which a group is left out of the summary.
var summaryThreshold = decimal.New(1, -2)

// Fine is a penalty line independent of the assessment groups.
type Fine struct {
	Description string          `json:"description"`
	FiscalYear  int             `json:"fiscal_year"`
	Amount      decimal.Decimal `json:"amount"`
}

// SummaryItem is one group's contribution to the summary.
type SummaryItem struct {
	GroupID string          `json:"group_id"`
	Motive  string          `json:"motive"`
	Amount  decimal.Decimal `json:"amount"`
}

// Summary is the report-ready total of a run.
type Summary struct {
	Items       []SummaryItem   `json:"items"`
	Omitted     []string        `json:"omitted,omitempty"` // group IDs at or below one cent
	Fines       []Fine          `json:"fines,omitempty"`
	GroupsTotal decimal.Decimal `json:"groups_total"`
	FinesTotal  decimal.Decimal `json:"fines_total"`
	Total       decimal.Decimal `json:"total"`
}

// BuildSummary sums each group's final amount and the fines. Groups whose final
// amount does not exceed one cent are omitted here but stay in result.
func BuildSummary(result *Result, fines []Fine) Summary {
	s := Summary{Fines: fines}

	for _, g := range result.Groups {
		if g.Final.LessThanOrEqual(summaryThreshold) {
			s.Omitted = append(s.Omitted, g.GroupID)
			continue
		}
		s.Items = append(s.Items, SummaryItem{GroupID: g.GroupID, Motive: g.Motive, Amount: g.Final})
	}

	s.GroupsTotal = lo.Reduce(s.Items, func(acc decimal.Decimal, it SummaryItem, _ int) decimal.Decimal {
		return acc.Add(it.Amount)
	}, decimal.Zero)
	s.FinesTotal = lo.Reduce(fines, func(acc decimal.Decimal, f Fine, _ int) decimal.Decimal {
		return acc.Add(f.Amount)
	}, decimal.Zero)
	s.Total = s.GroupsTotal.Add(s.FinesTotal)
	return s
}

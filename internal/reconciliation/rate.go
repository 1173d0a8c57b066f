package reconciliation

import (
	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

// ResolveRate returns the rate applied to inv in period for group. Precedence:
// the group's override for the month; the declared rate when the motive is an
// unpaid assessment; the activity reference rate; the declared rate; the
// group's correct rate.
func ResolveRate(inv *models.InvoiceRecord, period models.Period, group *models.AssessmentGroup) decimal.Decimal {
	if rate, ok := group.MonthRate(period); ok {
		return rate
	}
	if _, ok := group.Motive.(models.UnpaidAssessment); ok {
		return inv.DeclaredRate
	}
	if inv.ReferenceRate.IsPositive() {
		return inv.ReferenceRate
	}
	if inv.DeclaredRate.IsPositive() {
		return inv.DeclaredRate
	}
	return group.DefaultCorrectRate()
}

package models

import "github.com/shopspring/decimal"

// AssessmentGroup is the invoice bucket of one assessment document ("auto").
type AssessmentGroup struct {
	ID     string
	Motive Label

	// InvoiceNumbers are stable across re-ingestion, unlike slice positions.
	InvoiceNumbers []string

	// Reviewer overrides
	CorrectRate *decimal.Decimal           // Replaces the motive's default correct rate
	FinalAmount *decimal.Decimal           // Replaces the computed owed total in the summary
	MonthRates  map[Period]decimal.Decimal // Forces one rate for every invoice of the month
	FiscalYear  int                        // Inferred when all invoices share one year; 0 means every year

	// Text is the generated legal wording, opaque to the engine.
	Text string
}

// DefaultCorrectRate returns the override, else the rate the motive carries.
func (g *AssessmentGroup) DefaultCorrectRate() decimal.Decimal {
	if g.CorrectRate != nil {
		return *g.CorrectRate
	}
	if r, ok := g.Motive.(IncorrectRate); ok {
		return r.Correct
	}
	return decimal.Zero
}

// MonthRate returns the per-month override for p, if any.
func (g *AssessmentGroup) MonthRate(p Period) (decimal.Decimal, bool) {
	if g.MonthRates == nil {
		return decimal.Zero, false
	}
	r, ok := g.MonthRates[p]
	return r, ok
}

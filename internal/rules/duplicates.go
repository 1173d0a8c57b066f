package rules

import (
	"sort"

	"github.com/samber/lo"

	"issaudit/pkg/models"
)

// CheckDuplicates collapses repeated invoice numbers whose business facts are
// identical and fails with a *DuplicateInvoicesError listing every number whose
// copies differ. Input order of first occurrences is kept.
func CheckDuplicates(invoices []*models.InvoiceRecord) ([]*models.InvoiceRecord, error) {
	byNumber := lo.GroupBy(invoices, func(inv *models.InvoiceRecord) string { return inv.Number })

	var conflicts []string
	for number, copies := range byNumber {
		for _, other := range copies[1:] {
			if !sameFacts(copies[0], other) {
				conflicts = append(conflicts, number)
				break
			}
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, &DuplicateInvoicesError{Numbers: conflicts}
	}

	return lo.UniqBy(invoices, func(inv *models.InvoiceRecord) string { return inv.Number }), nil
}

// ResolveDuplicates keeps one record per invoice number. Ties are broken by:
// not issued from the first RPS, non-simplified regime, higher declared rate,
// higher gross value, longer description. This is a data-cleaning step that
// runs before classification.
func ResolveDuplicates(invoices []*models.InvoiceRecord) []*models.InvoiceRecord {
	winners := make(map[string]*models.InvoiceRecord, len(invoices))
	for _, inv := range invoices {
		if cur, ok := winners[inv.Number]; !ok || preferred(inv, cur) {
			winners[inv.Number] = inv
		}
	}

	out := make([]*models.InvoiceRecord, 0, len(winners))
	for _, inv := range lo.UniqBy(invoices, func(inv *models.InvoiceRecord) string { return inv.Number }) {
		out = append(out, winners[inv.Number])
	}
	return out
}

// preferred reports whether a beats b.
func preferred(a, b *models.InvoiceRecord) bool {
	if a.FirstRPS != b.FirstRPS {
		return !a.FirstRPS
	}
	aSimple, bSimple := a.Regime != models.RegimeNormal, b.Regime != models.RegimeNormal
	if aSimple != bSimple {
		return !aSimple
	}
	if c := a.DeclaredRate.Cmp(b.DeclaredRate); c != 0 {
		return c > 0
	}
	if c := a.GrossValue.Cmp(b.GrossValue); c != 0 {
		return c > 0
	}
	return len(a.Description) > len(b.Description)
}

func sameFacts(a, b *models.InvoiceRecord) bool {
	return a.IssueDate.Equal(b.IssueDate) &&
		a.FirstRPS == b.FirstRPS &&
		a.GrossValue.Equal(b.GrossValue) &&
		a.UnconditionalDiscount.Equal(b.UnconditionalDiscount) &&
		a.Deduction.Equal(b.Deduction) &&
		a.DeclaredRate.Equal(b.DeclaredRate) &&
		a.ActivityCode == b.ActivityCode &&
		a.PaymentStatus == b.PaymentStatus &&
		a.Regime == b.Regime &&
		a.Nature == b.Nature &&
		a.Withheld == b.Withheld &&
		a.Description == b.Description
}

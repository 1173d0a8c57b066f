package rules

import (
	"sort"

	"github.com/google/uuid"

	"issaudit/pkg/models"
)

// BuildGroups creates one assessment group per distinct primary label key and
// assigns each labelled invoice to its group. Ignored and decadent invoices are
// left ungrouped. A group whose invoices all fall in one calendar year targets
// that year. Groups are ordered by label kind, then key.
func BuildGroups(invoices []*models.InvoiceRecord) []*models.AssessmentGroup {
	byKey := make(map[string]*models.AssessmentGroup)
	years := make(map[string]map[int]bool)
	var groups []*models.AssessmentGroup

	for _, inv := range invoices {
		inv.GroupID = ""
		primary := inv.Primary()
		if primary == nil || inv.Excluded() {
			continue
		}
		g, ok := byKey[primary.Key()]
		if !ok {
			g = &models.AssessmentGroup{
				ID:     uuid.NewString(),
				Motive: primary,
			}
			byKey[primary.Key()] = g
			years[g.ID] = make(map[int]bool)
			groups = append(groups, g)
		}
		g.InvoiceNumbers = append(g.InvoiceNumbers, inv.Number)
		inv.GroupID = g.ID
		years[g.ID][inv.IssueDate.Year()] = true
	}

	for _, g := range groups {
		if len(years[g.ID]) != 1 {
			continue
		}
		for year := range years[g.ID] {
			g.FiscalYear = year
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := models.KindRank(groups[i].Motive.Kind()), models.KindRank(groups[j].Motive.Kind())
		if ri != rj {
			return ri < rj
		}
		return groups[i].Motive.Key() < groups[j].Motive.Key()
	})
	return groups
}

// Reassign moves an invoice into target, removing it from whichever group held
// it. Invoices belong to at most one group. A target restricted to another year
// loses the restriction so the moved invoice is still assessed.
func Reassign(groups []*models.AssessmentGroup, inv *models.InvoiceRecord, target *models.AssessmentGroup) {
	for _, g := range groups {
		g.InvoiceNumbers = removeNumber(g.InvoiceNumbers, inv.Number)
	}
	inv.GroupID = ""
	if target == nil {
		return
	}
	if target.FiscalYear != 0 && target.FiscalYear != inv.IssueDate.Year() {
		target.FiscalYear = 0
	}
	target.InvoiceNumbers = append(target.InvoiceNumbers, inv.Number)
	inv.GroupID = target.ID
}

func removeNumber(numbers []string, number string) []string {
	out := numbers[:0]
	for _, n := range numbers {
		if n != number {
			out = append(out, n)
		}
	}
	return out
}

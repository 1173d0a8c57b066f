package reconciliation

import (
	"sort"

	"github.com/shopspring/decimal"

	"issaudit/pkg/models"
)

const centDecimals = 2

var hundred = decimal.NewFromInt(100)

// Bucket is the tax of one group for one (month, rate) pair.
type Bucket struct {
	Period   models.Period
	Rate     decimal.Decimal
	Base     decimal.Decimal
	GrossTax decimal.Decimal // rate × base
	PaidTax  decimal.Decimal // declared rate × base of paid invoices
	NetDue   decimal.Decimal
	Invoices []string
}

type bucketKey struct {
	period models.Period
	rate   string
}

// Aggregate buckets the group's invoices by month and resolved rate. Excluded
// invoices and invoices outside the group's fiscal year are skipped. For a paid
// invoice only the positive gap over the declared rate is due; for an unpaid
// invoice the whole tax is due. A zero-base bucket is kept only when it is the
// only bucket of its month.
func Aggregate(group *models.AssessmentGroup, members []*models.InvoiceRecord) []Bucket {
	byKey := make(map[bucketKey]*Bucket)
	var order []bucketKey

	for _, inv := range members {
		if inv.Excluded() {
			continue
		}
		if group.FiscalYear != 0 && inv.IssueDate.Year() != group.FiscalYear {
			continue
		}

		period := inv.Period()
		rate := ResolveRate(inv, period, group).Round(4)
		key := bucketKey{period: period, rate: rate.StringFixed(4)}
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{
				Period:   period,
				Rate:     rate,
				Base:     decimal.Zero,
				GrossTax: decimal.Zero,
				PaidTax:  decimal.Zero,
				NetDue:   decimal.Zero,
			}
			byKey[key] = b
			order = append(order, key)
		}

		base := inv.TaxableBase()
		tax := percentOf(base, rate)
		b.Base = b.Base.Add(base)
		b.GrossTax = b.GrossTax.Add(tax)
		b.Invoices = append(b.Invoices, inv.Number)

		if inv.Paid() {
			b.PaidTax = b.PaidTax.Add(percentOf(base, inv.DeclaredRate))
			gap := percentOf(base, rate.Sub(inv.DeclaredRate))
			b.NetDue = b.NetDue.Add(decimal.Max(gap, decimal.Zero))
			continue
		}
		b.NetDue = b.NetDue.Add(tax)
	}

	perMonth := make(map[models.Period]int)
	for _, key := range order {
		perMonth[key.period]++
	}

	buckets := make([]Bucket, 0, len(order))
	for _, key := range order {
		b := byKey[key]
		if b.Base.IsZero() && perMonth[key.period] > 1 {
			continue
		}
		b.Base = b.Base.Round(centDecimals)
		b.GrossTax = b.GrossTax.Round(centDecimals)
		b.PaidTax = b.PaidTax.Round(centDecimals)
		b.NetDue = b.NetDue.Round(centDecimals)
		buckets = append(buckets, *b)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Period != buckets[j].Period {
			return buckets[i].Period.Before(buckets[j].Period)
		}
		return buckets[i].Rate.LessThan(buckets[j].Rate)
	})
	return buckets
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

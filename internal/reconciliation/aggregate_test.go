package reconciliation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issaudit/internal/reconciliation"
	"issaudit/pkg/models"
)

func TestAggregate_UnpaidAndPaid(t *testing.T) {
	unpaid := unpaidInvoice("1")

	paid := unpaidInvoice("2")
	paid.PaymentStatus = models.PaymentDirect
	paid.GrossValue = dec("500")

	buckets := reconciliation.Aggregate(rateGroup("g", "1", "2"), []*models.InvoiceRecord{unpaid, paid})

	require.Len(t, buckets, 1)
	b := buckets[0]
	assert.Equal(t, march, b.Period)
	assertDec(t, "5", b.Rate)
	assertDec(t, "1500", b.Base)
	assertDec(t, "75", b.GrossTax)
	assertDec(t, "10", b.PaidTax) // 2% of 500
	assertDec(t, "65", b.NetDue)  // 50 unpaid + 15 gap
	assert.Equal(t, []string{"1", "2"}, b.Invoices)
}

func TestAggregate_OverpaidInvoiceNotRefunded(t *testing.T) {
	over := unpaidInvoice("1")
	over.PaymentStatus = models.PaymentDirect
	over.DeclaredRate = dec("5")
	g := rateGroup("g", "1")
	g.MonthRates = map[models.Period]decimal.Decimal{march: dec("3")}

	under := unpaidInvoice("2")
	under.PaymentStatus = models.PaymentDirect
	under.DeclaredRate = dec("2")

	buckets := reconciliation.Aggregate(g, []*models.InvoiceRecord{over, under})
	require.Len(t, buckets, 1)
	// over contributes max(0, 3-5) = 0, under contributes 1% of 1000
	assertDec(t, "10", buckets[0].NetDue)
}

func TestAggregate_BucketsByMonthAndRate(t *testing.T) {
	a := unpaidInvoice("1")

	b := unpaidInvoice("2")
	b.ReferenceRate = dec("3")

	c := unpaidInvoice("3")
	c.IssueDate = time.Date(2023, time.April, 2, 0, 0, 0, 0, time.UTC)

	buckets := reconciliation.Aggregate(rateGroup("g"), []*models.InvoiceRecord{c, a, b})

	require.Len(t, buckets, 3)
	assert.Equal(t, march, buckets[0].Period)
	assertDec(t, "3", buckets[0].Rate)
	assert.Equal(t, march, buckets[1].Period)
	assertDec(t, "5", buckets[1].Rate)
	assert.Equal(t, april, buckets[2].Period)
}

func TestAggregate_RateRoundedBeforeBucketing(t *testing.T) {
	a := unpaidInvoice("1")
	a.ReferenceRate = dec("5.00001")
	b := unpaidInvoice("2")
	b.ReferenceRate = dec("5.00004")

	buckets := reconciliation.Aggregate(rateGroup("g", "1", "2"), []*models.InvoiceRecord{a, b})

	require.Len(t, buckets, 1)
	assertDec(t, "5", buckets[0].Rate)
	assertDec(t, "2000", buckets[0].Base)
	assertDec(t, "100", buckets[0].GrossTax)
}

func TestAggregate_ZeroBaseBucket(t *testing.T) {
	zero := unpaidInvoice("1")
	zero.GrossValue = decimal.Zero
	zero.ReferenceRate = dec("3")

	t.Run("dropped_when_month_has_other_buckets", func(t *testing.T) {
		buckets := reconciliation.Aggregate(rateGroup("g"), []*models.InvoiceRecord{zero, unpaidInvoice("2")})
		require.Len(t, buckets, 1)
		assertDec(t, "5", buckets[0].Rate)
	})

	t.Run("kept_when_only_bucket", func(t *testing.T) {
		buckets := reconciliation.Aggregate(rateGroup("g"), []*models.InvoiceRecord{zero})
		require.Len(t, buckets, 1)
		assertDec(t, "0", buckets[0].Base)
	})
}

func TestAggregate_Exclusions(t *testing.T) {
	decadent := unpaidInvoice("1")
	decadent.LegalStatus = models.LegalDecadent

	ignored := unpaidInvoice("2")
	ignored.ManualStatus = models.ManualIgnored

	otherYear := unpaidInvoice("3")
	otherYear.IssueDate = time.Date(2022, time.March, 10, 0, 0, 0, 0, time.UTC)

	kept := unpaidInvoice("4")

	g := rateGroup("g")
	g.FiscalYear = 2023
	buckets := reconciliation.Aggregate(g, []*models.InvoiceRecord{decadent, ignored, otherYear, kept})

	require.Len(t, buckets, 1)
	assert.Equal(t, []string{"4"}, buckets[0].Invoices)
}

func TestAggregate_RoundsToCents(t *testing.T) {
	inv := unpaidInvoice("1")
	inv.GrossValue = dec("333.33")
	inv.ReferenceRate = dec("2.5")

	buckets := reconciliation.Aggregate(rateGroup("g"), []*models.InvoiceRecord{inv})
	require.Len(t, buckets, 1)
	assertDec(t, "8.33", buckets[0].NetDue) // 8.33325
}

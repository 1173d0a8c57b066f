package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issaudit/internal/ledger"
	"issaudit/pkg/models"
)

var (
	march = models.Period{Year: 2023, Month: time.March}
	april = models.Period{Year: 2023, Month: time.April}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleLedger() *ledger.Ledger {
	return ledger.New(ledger.BuildSnapshot(
		[]ledger.Receipt{
			{Period: march, Value: dec("60"), Code: "R1", TaxType: ledger.TaxTypeNormalISS},
			{Period: march, Value: dec("40"), Code: "R2", TaxType: ledger.TaxTypeNormalISS},
			{Period: march, Value: dec("500"), Code: "R3", TaxType: "ISS_RETIDO"},
			{Period: march, Value: dec("500"), Code: "R4", TaxType: ledger.TaxTypeNormalISS, LinkedInvoice: "1001"},
		},
		[]ledger.Declaration{
			{Period: march, Amount: dec("25"), Number: "PGDAS-03"},
			{Period: april, Amount: dec("10"), Number: "PGDAS-04"},
		},
	))
}

func TestBuildSnapshot_Filter(t *testing.T) {
	l := sampleLedger()
	assert.True(t, l.Balance(ledger.PoolAdHoc, march).Equal(dec("100")))
	assert.True(t, l.Balance(ledger.PoolPeriodic, march).Equal(dec("25")))
	assert.True(t, l.Balance(ledger.PoolAdHoc, april).IsZero())
	assert.Equal(t, []models.Period{march, april}, l.Periods())
}

func TestConsumeAdHoc_Waterfall(t *testing.T) {
	l := sampleLedger()

	first := l.ConsumeAdHoc(march, dec("50"))
	assert.True(t, first.Amount.Equal(dec("50")))
	assert.Equal(t, []string{"R1"}, first.Sources)

	second := l.ConsumeAdHoc(march, dec("30"))
	assert.True(t, second.Amount.Equal(dec("30")))
	assert.Equal(t, []string{"R1", "R2"}, second.Sources)

	assert.True(t, l.Balance(ledger.PoolAdHoc, march).Equal(dec("20")))
}

func TestConsumeAdHoc_Shortfall(t *testing.T) {
	l := sampleLedger()

	got := l.ConsumeAdHoc(march, dec("130"))
	assert.True(t, got.Amount.Equal(dec("100")))
	assert.True(t, l.Balance(ledger.PoolAdHoc, march).IsZero())

	// no borrowing from another period
	none := l.ConsumeAdHoc(april, dec("10"))
	assert.True(t, none.Amount.IsZero())
	assert.Empty(t, none.Sources)
}

func TestConsumePeriodic(t *testing.T) {
	l := sampleLedger()

	got := l.ConsumePeriodic(march, dec("40"))
	assert.True(t, got.Amount.Equal(dec("25")))
	assert.Equal(t, []string{"PGDAS-03"}, got.Sources)

	again := l.ConsumePeriodic(march, dec("1"))
	assert.True(t, again.Amount.IsZero())
}

func TestReset_RestoresSnapshot(t *testing.T) {
	l := sampleLedger()
	l.ConsumeAdHoc(march, dec("100"))
	l.ConsumePeriodic(april, dec("10"))

	l.Reset()

	assert.True(t, l.Balance(ledger.PoolAdHoc, march).Equal(dec("100")))
	assert.True(t, l.Balance(ledger.PoolPeriodic, april).Equal(dec("10")))
}

func TestNewSnapshot_PeriodicSummed(t *testing.T) {
	snap := ledger.NewSnapshot([]ledger.CreditEntry{
		{Pool: ledger.PoolPeriodic, Period: march, Remaining: dec("5"), Source: "D1"},
		{Pool: ledger.PoolPeriodic, Period: march, Remaining: dec("7"), Source: "D2"},
		{Pool: ledger.PoolAdHoc, Period: march, Remaining: dec("0"), Source: "R0"},
	})
	entries := snap.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "D1", entries[0].Source)
	assert.True(t, entries[0].Remaining.Equal(dec("12")))
}

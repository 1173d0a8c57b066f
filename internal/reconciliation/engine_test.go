package reconciliation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issaudit/internal/ledger"
	"issaudit/internal/reconciliation"
	"issaudit/internal/rules"
	"issaudit/internal/statute"
	"issaudit/pkg/models"
)

func adhocLedger(period models.Period, values ...string) *ledger.Ledger {
	receipts := make([]ledger.Receipt, 0, len(values))
	for i, v := range values {
		receipts = append(receipts, ledger.Receipt{
			Period:  period,
			Value:   dec(v),
			Code:    "R" + string(rune('1'+i)),
			TaxType: ledger.TaxTypeNormalISS,
		})
	}
	return ledger.New(ledger.BuildSnapshot(receipts, nil))
}

func TestRun_SingleInvoiceScenario(t *testing.T) {
	inv := &models.InvoiceRecord{
		Number:        "1",
		IssueDate:     time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC),
		GrossValue:    dec("1000"),
		DeclaredRate:  dec("2"),
		ActivityCode:  "0101",
		PaymentStatus: models.PaymentUnpaid,
		Regime:        models.RegimeNormal,
		Nature:        models.NatureLocal,
		ManualStatus:  models.ManualNone,
	}
	invoices := []*models.InvoiceRecord{inv}

	classifier, err := rules.NewClassifier(rules.Options{
		Clock: statute.NewClock(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Activities: models.NewActivityTable([]models.ActivityCode{
			{Code: "0101", Rate: dec("5"), LocationRule: models.LocationProvider},
		}),
	})
	require.NoError(t, err)
	classifier.Classify(invoices)

	require.Len(t, inv.Labels, 1)
	assert.Equal(t, models.KindIncorrectRate, inv.Primary().Kind())

	groups := rules.BuildGroups(invoices)
	require.Len(t, groups, 1)

	result, err := reconciliation.NewEngine().Run(groups, invoices, adhocLedger(march, "30"))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	require.Len(t, result.Groups[0].Lines, 1)
	line := result.Groups[0].Lines[0]
	assertDec(t, "50", line.NetDue)
	assertDec(t, "30", line.AdHocConsumed)
	assertDec(t, "0", line.PeriodicConsumed)
	assertDec(t, "20", line.Owed)
	assert.Equal(t, []string{"R1"}, line.AdHocSources)
	assertDec(t, "20", result.Groups[0].Final)
}

func TestRun_GroupsCompeteForCredit(t *testing.T) {
	a := unpaidInvoice("A1")
	a.GrossValue = dec("1600") // 80 due at 5%
	b := unpaidInvoice("B1")   // 50 due at 5%

	groupA := rateGroup("A", "A1")
	groupB := &models.AssessmentGroup{ID: "B", Motive: models.WithholdingToVerify{}, InvoiceNumbers: []string{"B1"}}

	credits := adhocLedger(march, "100")
	result, err := reconciliation.NewEngine().Run(
		[]*models.AssessmentGroup{groupA, groupB},
		[]*models.InvoiceRecord{a, b},
		credits,
	)
	require.NoError(t, err)

	lineA := result.Group("A").Lines[0]
	assertDec(t, "80", lineA.AdHocConsumed)
	assertDec(t, "0", lineA.Owed)

	lineB := result.Group("B").Lines[0]
	assertDec(t, "20", lineB.AdHocConsumed)
	assertDec(t, "30", lineB.Owed)

	assertDec(t, "100", result.AdHocConsumed)
	assert.True(t, credits.Balance(ledger.PoolAdHoc, march).IsZero())
}

func TestRun_PeriodicAfterAdHoc(t *testing.T) {
	inv := unpaidInvoice("1") // 50 due
	credits := ledger.New(ledger.BuildSnapshot(
		[]ledger.Receipt{{Period: march, Value: dec("10"), Code: "R1", TaxType: ledger.TaxTypeNormalISS}},
		[]ledger.Declaration{
			{Period: march, Amount: dec("25"), Number: "D-03"},
			{Period: april, Amount: dec("500"), Number: "D-04"},
		},
	))

	result, err := reconciliation.NewEngine().Run(
		[]*models.AssessmentGroup{rateGroup("g", "1")},
		[]*models.InvoiceRecord{inv},
		credits,
	)
	require.NoError(t, err)

	line := result.Groups[0].Lines[0]
	assertDec(t, "10", line.AdHocConsumed)
	assertDec(t, "25", line.PeriodicConsumed)
	assert.Equal(t, "D-03", line.PeriodicSource)
	assertDec(t, "15", line.Owed)
}

func TestRun_IdempotentFromSnapshot(t *testing.T) {
	invoices := []*models.InvoiceRecord{unpaidInvoice("1"), unpaidInvoice("2")}
	groups := []*models.AssessmentGroup{rateGroup("a", "1"), rateGroup("b", "2")}
	credits := adhocLedger(march, "30", "40")
	engine := reconciliation.NewEngine()

	first, err := engine.Run(groups, invoices, credits)
	require.NoError(t, err)
	second, err := engine.Run(groups, invoices, credits)
	require.NoError(t, err)

	assert.Equal(t, first.Groups, second.Groups)
	assertDec(t, "70", second.AdHocConsumed)
}

func TestRun_Conservation(t *testing.T) {
	var invoices []*models.InvoiceRecord
	var groups []*models.AssessmentGroup
	for _, n := range []string{"1", "2", "3", "4"} {
		invoices = append(invoices, unpaidInvoice(n))
		groups = append(groups, rateGroup("g"+n, n))
	}
	credits := adhocLedger(march, "60", "45.5")

	result, err := reconciliation.NewEngine().Run(groups, invoices, credits)
	require.NoError(t, err)

	consumed := dec("0")
	for _, g := range result.Groups {
		for _, line := range g.Lines {
			assert.True(t, line.AdHocConsumed.LessThanOrEqual(line.NetDue))
			assert.True(t, line.Owed.Equal(line.NetDue.Sub(line.AdHocConsumed).Sub(line.PeriodicConsumed)))
			consumed = consumed.Add(line.AdHocConsumed)
		}
	}
	assertDec(t, "105.5", consumed)
}

func TestRun_FinalOverrideAndMissingInvoices(t *testing.T) {
	g := rateGroup("g", "1", "404")
	g.FinalAmount = decPtr("12.34")

	result, err := reconciliation.NewEngine().Run(
		[]*models.AssessmentGroup{g},
		[]*models.InvoiceRecord{unpaidInvoice("1")},
		ledger.New(nil),
	)
	require.NoError(t, err)

	gr := result.Groups[0]
	assertDec(t, "50", gr.Owed)
	assertDec(t, "12.34", gr.Final)
	assert.True(t, gr.Overridden)
	assert.Equal(t, []string{"404"}, gr.Missing)
}

func TestRun_DecadentInvoiceContributesNothing(t *testing.T) {
	inv := unpaidInvoice("1")
	inv.LegalStatus = models.LegalDecadent

	result, err := reconciliation.NewEngine().Run(
		[]*models.AssessmentGroup{rateGroup("g", "1")},
		[]*models.InvoiceRecord{inv},
		ledger.New(nil),
	)
	require.NoError(t, err)
	assert.Empty(t, result.Groups[0].Lines)
	assertDec(t, "0", result.Groups[0].Owed)
}

func TestRun_Errors(t *testing.T) {
	t.Run("no_ledger", func(t *testing.T) {
		_, err := reconciliation.NewEngine().Run(nil, nil, nil)
		assert.True(t, errors.Is(err, reconciliation.ErrNoLedger))
	})

	t.Run("unresolved_duplicates", func(t *testing.T) {
		a, b := unpaidInvoice("1"), unpaidInvoice("1")
		b.GrossValue = dec("1")
		_, err := reconciliation.NewEngine().Run(nil, []*models.InvoiceRecord{a, b}, ledger.New(nil))
		assert.True(t, errors.Is(err, rules.ErrDuplicateInvoices))
	})

	t.Run("invoice_in_two_groups", func(t *testing.T) {
		_, err := reconciliation.NewEngine().Run(
			[]*models.AssessmentGroup{rateGroup("a", "1"), rateGroup("b", "1")},
			[]*models.InvoiceRecord{unpaidInvoice("1")},
			ledger.New(nil),
		)
		assert.True(t, errors.Is(err, reconciliation.ErrSharedInvoice))
	})
}

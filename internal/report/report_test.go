package report_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"issaudit/internal/logger"
	"issaudit/internal/reconciliation"
	"issaudit/internal/report"
	"issaudit/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleResult() *reconciliation.Result {
	return &reconciliation.Result{
		RunID: "run-1",
		Groups: []reconciliation.GroupResult{{
			GroupID: "g1",
			Motive:  "rate declared 2.00% below statutory 5.00%",
			Lines: []reconciliation.MonthlyLedgerLine{{
				GroupID:       "g1",
				Period:        models.Period{Year: 2023, Month: time.March},
				Rate:          dec("5"),
				Base:          dec("1000"),
				GrossTax:      dec("50"),
				PaidTax:       dec("0"),
				NetDue:        dec("50"),
				AdHocConsumed: dec("30"),
				AdHocSources:  []string{"R1", "R2"},
				Owed:          dec("20"),
				Invoices:      []string{"1001"},
			}},
			Owed:  dec("20"),
			Final: dec("20"),
		}},
	}
}

func TestLedgerRows(t *testing.T) {
	rows := report.LedgerRows(sampleResult())

	require.Len(t, rows, 2)
	assert.Equal(t, "Group", rows[0][0])
	line := rows[1]
	assert.Equal(t, "g1", line[0])
	assert.Equal(t, "2023-03", line[2])
	assert.Equal(t, 50.0, line[7])
	assert.Equal(t, "R1, R2", line[9])
	assert.Equal(t, 20.0, line[12])
	assert.Equal(t, "1001", line[13])
}

func TestSummaryRows(t *testing.T) {
	result := sampleResult()
	fines := []reconciliation.Fine{{Description: "late filing", FiscalYear: 2023, Amount: dec("100")}}

	rows := report.SummaryRows(reconciliation.BuildSummary(result, fines))

	require.Len(t, rows, 6)
	assert.Equal(t, []interface{}{"g1", result.Groups[0].Motive, 20.0}, rows[1])
	assert.Equal(t, []interface{}{"Fine", "late filing (2023)", 100.0}, rows[3])
	assert.Equal(t, []interface{}{"Total", "", 120.0}, rows[5])
}

func TestWriteWorkbook(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, report.WriteWorkbook(&buf, result, reconciliation.BuildSummary(result, nil)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{report.LedgerSheet, report.SummarySheet}, f.GetSheetList())

	period, err := f.GetCellValue(report.LedgerSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "2023-03", period)

	owed, err := f.GetCellValue(report.LedgerSheet, "M2")
	require.NoError(t, err)
	assert.Equal(t, "20", owed)

	total, err := f.GetCellValue(report.SummarySheet, "C5")
	require.NoError(t, err)
	assert.Equal(t, "20", total)
}

func TestWorkbook_FeedsCreditReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credits.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", reconciliation.ReceiptsSheet))
	for i, row := range [][]interface{}{
		{"Period", "Value", "Code", "Tax type", "Invoice", "Notes"},
		{"03/2023", "1.234,56", "R1", "ISS_NORMAL", "", "ignored column"},
		{"2023-04", "15", "R2", "ISS_NORMAL"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(reconciliation.ReceiptsSheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := report.OpenWorkbook(path)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	values, err := wb.ReadRange(context.Background(), "Receipts!A:E")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Len(t, values[0], 5)

	receipts, err := reconciliation.NewCreditReader(wb).ReadReceipts(context.Background())
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].Value.Equal(dec("1234.56")))
	assert.Equal(t, models.Period{Year: 2023, Month: time.April}, receipts[1].Period)
}

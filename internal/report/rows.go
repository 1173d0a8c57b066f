// Package report renders reconciliation results as spreadsheet rows, either
// into a local XLSX workbook or into Google Sheets through internal/sheets.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"issaudit/internal/reconciliation"
)

// Sheet names written by WriteWorkbook and published by the reconcile command.
const (
	LedgerSheet  = "Ledger"
	SummarySheet = "Summary"
)

var ledgerHeader = []interface{}{
	"Group", "Motive", "Period", "Rate (%)", "Base", "Gross tax", "Paid tax",
	"Net due", "Ad-hoc credit", "Receipts", "Periodic credit", "Declaration",
	"Owed", "Invoices",
}

// LedgerRows returns one header row and one row per monthly ledger line, in
// group order.
func LedgerRows(result *reconciliation.Result) [][]interface{} {
	rows := [][]interface{}{ledgerHeader}
	for _, g := range result.Groups {
		for _, line := range g.Lines {
			rows = append(rows, []interface{}{
				g.GroupID,
				g.Motive,
				line.Period.String(),
				amount(line.Rate),
				amount(line.Base),
				amount(line.GrossTax),
				amount(line.PaidTax),
				amount(line.NetDue),
				amount(line.AdHocConsumed),
				strings.Join(line.AdHocSources, ", "),
				amount(line.PeriodicConsumed),
				line.PeriodicSource,
				amount(line.Owed),
				strings.Join(line.Invoices, ", "),
			})
		}
	}
	return rows
}

// SummaryRows lists group totals, fines and the grand total.
func SummaryRows(s reconciliation.Summary) [][]interface{} {
	rows := [][]interface{}{{"Item", "Description", "Amount"}}
	for _, it := range s.Items {
		rows = append(rows, []interface{}{it.GroupID, it.Motive, amount(it.Amount)})
	}
	rows = append(rows, []interface{}{"Groups total", "", amount(s.GroupsTotal)})

	for _, f := range s.Fines {
		rows = append(rows, []interface{}{"Fine", fmt.Sprintf("%s (%d)", f.Description, f.FiscalYear), amount(f.Amount)})
	}
	rows = append(rows,
		[]interface{}{"Fines total", "", amount(s.FinesTotal)},
		[]interface{}{"Total", "", amount(s.Total)},
	)
	return rows
}

// amount keeps cents exact for the sheet while staying numeric.
func amount(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}

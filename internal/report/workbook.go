package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"issaudit/internal/logger"
	"issaudit/internal/reconciliation"
)

// WriteWorkbook writes the ledger and summary sheets as an XLSX document.
func WriteWorkbook(w io.Writer, result *reconciliation.Result, summary reconciliation.Summary) error {
	const op = "WriteWorkbook"

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), LedgerSheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := writeRows(f, LedgerSheet, LedgerRows(result)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeRows(f, SummarySheet, SummaryRows(summary)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.SetPanes(LedgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("%s: failed to freeze header: %w", op, err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%s: failed to write workbook: %w", op, err)
	}

	log := logger.WithComponent("report")
	log.Debug().
		Str("run_id", result.RunID).
		Int("groups", len(result.Groups)).
		Msg("Workbook written")

	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// Workbook reads ranges from a local XLSX file. It satisfies
// reconciliation.RangeReader so credits can be imported offline.
type Workbook struct {
	file *excelize.File
}

// OpenWorkbook opens an XLSX file for reading.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("OpenWorkbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// ReadRange returns the rows of the sheet named in readRange ("Sheet!A:E"),
// truncated to the column span when one is given.
func (wb *Workbook) ReadRange(_ context.Context, readRange string) ([][]interface{}, error) {
	sheet, span, _ := strings.Cut(readRange, "!")

	rows, err := wb.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadRange: %s: %w", sheet, err)
	}

	first, last := 1, 0
	if from, to, ok := strings.Cut(span, ":"); ok {
		if first, err = excelize.ColumnNameToNumber(from); err != nil {
			return nil, fmt.Errorf("ReadRange: %w", err)
		}
		if last, err = excelize.ColumnNameToNumber(to); err != nil {
			return nil, fmt.Errorf("ReadRange: %w", err)
		}
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := row
		if first-1 < len(cells) {
			cells = cells[first-1:]
		} else {
			cells = nil
		}
		if last > 0 && len(cells) > last-first+1 {
			cells = cells[:last-first+1]
		}
		out := make([]interface{}, len(cells))
		for i, c := range cells {
			out[i] = c
		}
		values = append(values, out)
	}
	return values, nil
}

// Close releases the underlying file.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

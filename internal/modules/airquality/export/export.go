// Package export writes the aggregates and correlation matrix of one filter
// selection as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	SheetAggregates  = "Aggregates"
	SheetCorrelation = "Correlation"
	SheetCriteria    = "Criteria"

	dateLayout = "2006-01-02"
)

var aggregateHeader = []string{"Station", "Label", "Mean PM2.5", "Max PM2.5", "Min PM2.5"}

// Workbook holds what goes into one export. Matrix is ignored when Empty is set.
type Workbook struct {
	Criteria   types.Criteria
	Aggregates dashboard.Aggregates
	Matrix     analysis.Matrix
	Empty      bool
}

// Write renders wb as XLSX into w. Missing statistics are left as blank cells.
func Write(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAggregates); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeAggregates(f, wb.Aggregates); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetCorrelation); err != nil {
		return fmt.Errorf("new sheet %s: %w", SheetCorrelation, err)
	}
	if !wb.Empty {
		if err := writeMatrix(f, wb.Matrix); err != nil {
			return err
		}
	}
	if _, err := f.NewSheet(SheetCriteria); err != nil {
		return fmt.Errorf("new sheet %s: %w", SheetCriteria, err)
	}
	if err := writeCriteria(f, wb); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeAggregates(f *excelize.File, agg dashboard.Aggregates) error {
	for i, name := range aggregateHeader {
		if err := setCell(f, SheetAggregates, i+1, 1, name); err != nil {
			return err
		}
	}
	for r, row := range agg.Rows {
		values := []any{row.Station, row.Label, cellFloat(row.Mean), cellFloat(row.Max), cellFloat(row.Min)}
		for c, v := range values {
			if err := setCell(f, SheetAggregates, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeMatrix(f *excelize.File, m analysis.Matrix) error {
	for i, name := range m.Columns {
		if err := setCell(f, SheetCorrelation, i+2, 1, name); err != nil {
			return err
		}
		if err := setCell(f, SheetCorrelation, 1, i+2, name); err != nil {
			return err
		}
	}
	for i := range m.Columns {
		for j := range m.Columns {
			if err := setCell(f, SheetCorrelation, j+2, i+2, cellFloat(m.At(i, j))); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCriteria(f *excelize.File, wb Workbook) error {
	rows := [][2]any{
		{"Start", wb.Criteria.Start.Format(dateLayout)},
		{"End", wb.Criteria.End.Format(dateLayout)},
		{"Station", wb.Criteria.Station},
		{"Policy", wb.Aggregates.Policy},
	}
	for i, p := range wb.Aggregates.Periods {
		label := ""
		if i == 0 {
			label = "Periods"
		}
		rows = append(rows, [2]any{label, p})
	}
	for r, kv := range rows {
		for c, v := range kv {
			if err := setCell(f, SheetCriteria, c+1, r+1, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	return nil
}

// cellFloat returns nil for values a spreadsheet cannot hold.
func cellFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

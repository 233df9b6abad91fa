package export

import (
	"bytes"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/types"
)

func open(t *testing.T, wb Workbook) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, wb); err != nil {
		t.Fatalf("Write() err = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() err = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) err = %v", sheet, err)
	}
	return got
}

func TestWrite(t *testing.T) {
	wb := Workbook{
		Criteria: types.Criteria{
			Start:   time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC),
			End:     time.Date(2013, 6, 30, 0, 0, 0, 0, time.UTC),
			Station: types.AllStations,
		},
		Aggregates: dashboard.Aggregates{
			Policy: analysis.PolicyQuarterly,
			Rows: []types.AggregateRow{
				{Station: "Dongsi", Label: "Q1", Mean: 15, Max: 20, Min: 10},
				{Station: "Dongsi", Label: "Q2", Mean: math.NaN(), Max: math.NaN(), Min: math.NaN()},
			},
		},
		Matrix: analysis.Matrix{
			Columns: []string{"PM2.5", "NO2"},
			Values:  [][]float64{{1, 0.5}, {0.5, 1}},
		},
	}
	f := open(t, wb)

	if got, want := f.GetSheetList(), []string{SheetAggregates, SheetCorrelation, SheetCriteria}; !slices.Equal(got, want) {
		t.Errorf("sheets = %v; want %v", got, want)
	}

	agg := rows(t, f, SheetAggregates)
	if len(agg) != 3 {
		t.Fatalf("aggregate rows = %d; want header + 2", len(agg))
	}
	if !slices.Equal(agg[0], aggregateHeader) {
		t.Errorf("header = %v", agg[0])
	}
	if !slices.Equal(agg[1], []string{"Dongsi", "Q1", "15", "20", "10"}) {
		t.Errorf("row 1 = %v", agg[1])
	}
	if !slices.Equal(agg[2], []string{"Dongsi", "Q2"}) {
		t.Errorf("row 2 = %v; want blank statistics", agg[2])
	}

	corr := rows(t, f, SheetCorrelation)
	want := [][]string{{"", "PM2.5", "NO2"}, {"PM2.5", "1", "0.5"}, {"NO2", "0.5", "1"}}
	if len(corr) != len(want) {
		t.Fatalf("correlation rows = %v", corr)
	}
	for i := range want {
		if !slices.Equal(corr[i], want[i]) {
			t.Errorf("correlation row %d = %v; want %v", i, corr[i], want[i])
		}
	}

	crit := rows(t, f, SheetCriteria)
	if len(crit) != 4 || crit[0][1] != "2013-03-01" || crit[2][1] != types.AllStations || crit[3][1] != "quarterly" {
		t.Errorf("criteria = %v", crit)
	}
}

func TestWrite_emptyAndPeriodic(t *testing.T) {
	wb := Workbook{
		Criteria: types.Criteria{Station: "Changping"},
		Aggregates: dashboard.Aggregates{
			Policy:  analysis.PolicyPeriodic,
			Periods: []string{"2013Q1", "2013Q2"},
		},
		Empty: true,
	}
	f := open(t, wb)

	if got := rows(t, f, SheetAggregates); len(got) != 1 {
		t.Errorf("aggregate rows = %v; want header only", got)
	}
	if got := rows(t, f, SheetCorrelation); len(got) != 0 {
		t.Errorf("correlation rows = %v; want none", got)
	}
	crit := rows(t, f, SheetCriteria)
	if len(crit) != 6 || crit[4][0] != "Periods" || crit[4][1] != "2013Q1" || crit[5][1] != "2013Q2" {
		t.Errorf("criteria = %v", crit)
	}
}

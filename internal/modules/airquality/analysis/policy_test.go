package analysis

import (
	"math"
	"slices"
	"testing"
	"time"

	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(station string, t time.Time, pm25 float64) types.Record {
	return types.Record{
		Station:  station,
		Datetime: t,
		Month:    int(t.Month()),
		PM25:     pm25,
		NO2:      pm25 / 2,
		TEMP:     10,
		PRES:     1010,
		WSPM:     2,
	}
}

func mustDataset(t *testing.T, recs ...types.Record) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(recs)
	if err != nil {
		t.Fatalf("dataset.New() err = %v", err)
	}
	return ds
}

func TestSpanDays(t *testing.T) {
	tests := []struct {
		start, end time.Time
		want       int
	}{
		{start: date(2013, 3, 1), end: date(2014, 2, 28), want: 364},
		{start: date(2013, 3, 1), end: date(2014, 3, 1), want: 365},
		{start: date(2013, 3, 1), end: date(2013, 3, 1), want: 0},
		{start: date(2013, 3, 2), end: date(2013, 3, 1), want: -1},
	}
	for _, tt := range tests {
		if got := SpanDays(tt.start, tt.end); got != tt.want {
			t.Errorf("SpanDays(%v, %v) = %d; want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestSelectPolicy(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{name: "364 days", start: date(2013, 3, 1), end: date(2014, 2, 28), want: PolicyQuarterly},
		{name: "365 days", start: date(2013, 3, 1), end: date(2014, 3, 1), want: PolicyPeriodic},
		{name: "full range", start: date(2013, 3, 1), end: date(2017, 2, 28), want: PolicyPeriodic},
		{name: "inverted", start: date(2015, 1, 1), end: date(2014, 1, 1), want: PolicyQuarterly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SelectPolicy(tt.start, tt.end)
			if p.Name() != tt.want {
				t.Errorf("SelectPolicy() = %s; want %s", p.Name(), tt.want)
			}
			if tt.want == PolicyQuarterly && p.Periods() != nil {
				t.Errorf("quarterly Periods() = %v; want nil", p.Periods())
			}
		})
	}
}

func TestSpannedPeriods(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       []string
	}{
		{
			name:  "quarter ends inside range",
			start: date(2013, 3, 1), end: date(2014, 3, 1),
			want: []string{"2013Q1", "2013Q2", "2013Q3", "2013Q4"},
		},
		{
			name:  "range ending on a quarter end",
			start: date(2013, 3, 1), end: date(2014, 3, 31),
			want: []string{"2013Q1", "2013Q2", "2013Q3", "2013Q4", "2014Q1"},
		},
		{
			name:  "start on a quarter end",
			start: date(2013, 3, 31), end: date(2013, 4, 1),
			want: []string{"2013Q1"},
		},
		{
			name:  "no quarter end",
			start: date(2013, 4, 1), end: date(2013, 6, 29),
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpannedPeriods(tt.start, tt.end)
			if !slices.Equal(got, tt.want) {
				t.Errorf("SpannedPeriods() = %v; want %v", got, tt.want)
			}
		})
	}

	full := SpannedPeriods(date(2013, 3, 1), date(2017, 2, 28))
	if len(full) != 16 || full[0] != "2013Q1" || full[len(full)-1] != "2016Q4" {
		t.Errorf("full range periods = %v", full)
	}
}

func TestQuarterlyAggregate(t *testing.T) {
	ds := mustDataset(t,
		rec("A", time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), 10),
		rec("A", time.Date(2013, 3, 1, 1, 0, 0, 0, time.UTC), 20),
		rec("A", time.Date(2013, 3, 2, 0, 0, 0, 0, time.UTC), 15),
		rec("B", time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), 40),
		rec("B", time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC), math.NaN()),
		rec("B", time.Date(2013, 5, 1, 0, 0, 0, 0, time.UTC), 8),
	)

	p := SelectPolicy(date(2013, 3, 1), date(2013, 6, 30))
	rows, err := p.Aggregate(p.Prepare(ds.Frame()))
	if err != nil {
		t.Fatalf("Aggregate() err = %v", err)
	}

	want := []types.AggregateRow{
		{Station: "A", Label: "Q1", Mean: 15, Max: 20, Min: 10},
		{Station: "B", Label: "Q1", Mean: 40, Max: 40, Min: 40},
		{Station: "B", Label: "Q2", Mean: 8, Max: 8, Min: 8},
	}
	if len(rows) != len(want) {
		t.Fatalf("Aggregate() = %+v; want %d rows", rows, len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v; want %+v", i, rows[i], want[i])
		}
	}
}

func TestAggregate_allMissing(t *testing.T) {
	ds := mustDataset(t,
		rec("A", date(2013, 7, 1), math.NaN()),
		rec("A", date(2013, 7, 2), math.NaN()),
	)
	p := SelectPolicy(date(2013, 7, 1), date(2013, 7, 31))
	rows, err := p.Aggregate(p.Prepare(ds.Frame()))
	if err != nil {
		t.Fatalf("Aggregate() err = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Aggregate() = %+v; want one row", rows)
	}
	if !math.IsNaN(rows[0].Mean) || !math.IsNaN(rows[0].Max) || !math.IsNaN(rows[0].Min) {
		t.Errorf("row = %+v; want NaN statistics", rows[0])
	}
}

func TestPeriodicAggregate(t *testing.T) {
	ds := mustDataset(t,
		rec("A", date(2013, 3, 5), 10),
		rec("A", date(2013, 11, 5), 30),
		rec("B", date(2013, 11, 6), 50),
		// 2014Q1 ends after the range end and is dropped
		rec("A", date(2014, 2, 1), 99),
	)

	start, end := date(2013, 3, 1), date(2014, 3, 1)
	p := SelectPolicy(start, end)
	if p.Name() != PolicyPeriodic {
		t.Fatalf("policy = %s; want periodic", p.Name())
	}

	prepared := p.Prepare(dataset.FilterByDate(ds.Frame(), start, end))
	if prepared.Nrow() != 3 {
		t.Errorf("prepared rows = %d; want 3", prepared.Nrow())
	}
	rows, err := p.Aggregate(prepared)
	if err != nil {
		t.Fatalf("Aggregate() err = %v", err)
	}
	want := []types.AggregateRow{
		{Station: "A", Label: "2013Q1", Mean: 10, Max: 10, Min: 10},
		{Station: "A", Label: "2013Q4", Mean: 30, Max: 30, Min: 30},
		{Station: "B", Label: "2013Q4", Mean: 50, Max: 50, Min: 50},
	}
	if len(rows) != len(want) {
		t.Fatalf("Aggregate() = %+v; want %d rows", rows, len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v; want %+v", i, rows[i], want[i])
		}
	}
}

func TestAggregate_empty(t *testing.T) {
	ds := mustDataset(t, rec("A", date(2013, 3, 5), 10))
	empty := dataset.FilterByDate(ds.Frame(), date(2015, 1, 1), date(2015, 2, 1))

	for _, p := range []Policy{SelectPolicy(date(2015, 1, 1), date(2015, 2, 1)), SelectPolicy(date(2013, 1, 1), date(2015, 2, 1))} {
		t.Run(p.Name(), func(t *testing.T) {
			rows, err := p.Aggregate(p.Prepare(empty))
			if err != nil {
				t.Fatalf("Aggregate() err = %v", err)
			}
			if len(rows) != 0 {
				t.Errorf("Aggregate() = %+v; want none", rows)
			}
		})
	}
}

func TestAllStationsMatchesUnfiltered(t *testing.T) {
	ds := mustDataset(t,
		rec("A", date(2013, 3, 5), 10),
		rec("B", date(2013, 4, 5), 20),
	)
	p := SelectPolicy(date(2013, 3, 1), date(2013, 12, 31))

	all, err := p.Aggregate(p.Prepare(dataset.FilterByStation(ds.Frame(), types.AllStations)))
	if err != nil {
		t.Fatalf("Aggregate() err = %v", err)
	}
	raw, err := p.Aggregate(p.Prepare(ds.Frame()))
	if err != nil {
		t.Fatalf("Aggregate() err = %v", err)
	}
	if !slices.Equal(all, raw) {
		t.Errorf("All Stations = %+v; unfiltered = %+v", all, raw)
	}
}

// Package analysis computes the PM2.5 aggregates and the pollutant/weather
// relationship view over a filtered measurement frame.
package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	PolicyQuarterly = "quarterly"
	PolicyPeriodic  = "periodic"

	// LongRangeDays is the span at which aggregation switches to year-qualified quarters.
	LongRangeDays = 365
)

// Policy decides how a filtered frame is labelled and grouped.
type Policy interface {
	Name() string
	// Prepare adds the label column and drops rows the policy does not report on.
	Prepare(df dataframe.DataFrame) dataframe.DataFrame
	// Aggregate groups a prepared frame by (station, label).
	Aggregate(df dataframe.DataFrame) ([]types.AggregateRow, error)
	// Periods lists the quarter periods covered by the range; nil for the quarterly policy.
	Periods() []string
}

// SpanDays returns the number of whole days from start to end.
func SpanDays(start, end time.Time) int {
	return int(math.Floor(end.Sub(start).Hours() / 24))
}

// SelectPolicy picks the policy for the criteria's date range.
func SelectPolicy(start, end time.Time) Policy {
	if SpanDays(start, end) < LongRangeDays {
		return quarterly{}
	}
	return periodic{periods: SpannedPeriods(start, end)}
}

// SpannedPeriods returns, in order, the quarter periods whose last day falls within [start, end].
func SpannedPeriods(start, end time.Time) []string {
	start, end = truncateDay(start), truncateDay(end)
	first := time.Month((int(start.Month())-1)/3*3 + 1)
	// day 0 of the month after the quarter is the quarter's last day
	qe := time.Date(start.Year(), first+3, 0, 0, 0, 0, 0, time.UTC)

	var out []string
	for !qe.After(end) {
		out = append(out, dataset.QuarterPeriodOf(qe))
		qe = time.Date(qe.Year(), qe.Month()+4, 0, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type quarterly struct{}

func (quarterly) Name() string { return PolicyQuarterly }

func (quarterly) Prepare(df dataframe.DataFrame) dataframe.DataFrame {
	return dataset.WithQuarter(df)
}

func (quarterly) Aggregate(df dataframe.DataFrame) ([]types.AggregateRow, error) {
	return aggregate(df, dataset.ColQuarter)
}

func (quarterly) Periods() []string { return nil }

type periodic struct {
	periods []string
}

func (periodic) Name() string { return PolicyPeriodic }

func (p periodic) Prepare(df dataframe.DataFrame) dataframe.DataFrame {
	return dataset.FilterByPeriods(dataset.WithQuarterPeriod(df), p.periods)
}

func (periodic) Aggregate(df dataframe.DataFrame) ([]types.AggregateRow, error) {
	return aggregate(df, dataset.ColQuarterPeriod)
}

func (p periodic) Periods() []string { return slices.Clone(p.periods) }

// aggregate computes PM2.5 mean, max and min per (station, label) group,
// ignoring missing readings. Rows come back ordered by label, then station.
func aggregate(df dataframe.DataFrame, labelCol string) ([]types.AggregateRow, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	if df.Nrow() == 0 {
		return []types.AggregateRow{}, nil
	}

	groups := df.
		Select([]string{dataset.ColStation, labelCol, dataset.ColPM25}).
		GroupBy(dataset.ColStation, labelCol)
	if groups.Err != nil {
		return nil, fmt.Errorf("group by station and %s: %w", labelCol, groups.Err)
	}

	var rows []types.AggregateRow
	for _, g := range groups.GetGroups() {
		if g.Nrow() == 0 {
			continue
		}
		row := types.AggregateRow{
			Station: g.Col(dataset.ColStation).Elem(0).String(),
			Label:   g.Col(labelCol).Elem(0).String(),
			Mean:    math.NaN(),
			Max:     math.NaN(),
			Min:     math.NaN(),
		}
		if values := present(g.Col(dataset.ColPM25).Float()); len(values) > 0 {
			row.Mean = stat.Mean(values, nil)
			row.Max = floats.Max(values)
			row.Min = floats.Min(values)
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b types.AggregateRow) int {
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.Station, b.Station)
	})
	return rows, nil
}

// present drops NaN values.
func present(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

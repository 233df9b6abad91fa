package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	ColQuarter       = "quartal"
	ColQuarterPeriod = "quartal_period"

	QuarterUnknown = "unknown"
)

// FilterByDate keeps rows with start <= datetime <= end. The bounds are
// compared as instants, so an end date at midnight excludes later hours of that day.
func FilterByDate(df dataframe.DataFrame, start, end time.Time) dataframe.DataFrame {
	if df.Err != nil || df.Nrow() == 0 {
		return df
	}
	lo, hi := int(start.Unix()), int(end.Unix())
	return df.Filter(dataframe.F{
		Colname:    ColTimestamp,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			v, err := el.Int()
			if err != nil {
				return false
			}
			return v >= lo && v <= hi
		},
	})
}

// FilterByStation keeps rows of one station (exact, case-sensitive match).
// The AllStations sentinel and the empty string return df unchanged.
func FilterByStation(df dataframe.DataFrame, station string) dataframe.DataFrame {
	if df.Err != nil || df.Nrow() == 0 {
		return df
	}
	if station == "" || station == types.AllStations {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    ColStation,
		Comparator: series.Eq,
		Comparando: station,
	})
}

// QuarterOf maps a calendar month to its quarter label.
func QuarterOf(month int) string {
	switch month {
	case 1, 2, 3:
		return "Q1"
	case 4, 5, 6:
		return "Q2"
	case 7, 8, 9:
		return "Q3"
	case 10, 11, 12:
		return "Q4"
	default:
		return QuarterUnknown
	}
}

// QuarterPeriodOf returns the year-qualified quarter of t, e.g. "2013Q1".
func QuarterPeriodOf(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
}

// WithQuarter adds the quartal column derived from month.
func WithQuarter(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Err != nil || df.Nrow() == 0 {
		return df
	}
	months, err := df.Col(ColMonth).Int()
	if err != nil {
		return dataframe.DataFrame{Err: fmt.Errorf("derive %s: %w", ColQuarter, err)}
	}
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = QuarterOf(m)
	}
	return df.Mutate(series.New(labels, series.String, ColQuarter))
}

// WithQuarterPeriod adds the quartal_period column derived from the timestamp.
func WithQuarterPeriod(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Err != nil || df.Nrow() == 0 {
		return df
	}
	ts, err := df.Col(ColTimestamp).Int()
	if err != nil {
		return dataframe.DataFrame{Err: fmt.Errorf("derive %s: %w", ColQuarterPeriod, err)}
	}
	labels := make([]string, len(ts))
	for i, v := range ts {
		labels[i] = QuarterPeriodOf(time.Unix(int64(v), 0))
	}
	return df.Mutate(series.New(labels, series.String, ColQuarterPeriod))
}

// FilterByPeriods keeps rows whose quartal_period is one of periods.
func FilterByPeriods(df dataframe.DataFrame, periods []string) dataframe.DataFrame {
	if df.Err != nil || df.Nrow() == 0 {
		return df
	}
	allowed := make(map[string]bool, len(periods))
	for _, p := range periods {
		allowed[p] = true
	}
	return df.Filter(dataframe.F{
		Colname:    ColQuarterPeriod,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return allowed[el.String()]
		},
	})
}

// Package dataset loads the air-quality measurements into a read-only dataframe
// and provides the row filters and derived columns the dashboard views are built from.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	ColStation  = "station"
	ColDatetime = "datetime"
	ColMonth    = "month"
	ColPM25     = "PM25"
	ColNO2      = "NO2"
	ColTEMP     = "TEMP"
	ColPRES     = "PRES"
	ColWSPM     = "WSPM"

	// ColTimestamp holds the parsed datetime as unix seconds; added at load time.
	ColTimestamp = "ts"
)

// NumericColumns are the measurement columns compared in the relationship view.
var NumericColumns = []string{ColPM25, ColNO2, ColTEMP, ColPRES, ColWSPM}

var requiredColumns = []string{ColDatetime, ColMonth, ColStation, ColPM25, ColNO2, ColTEMP, ColPRES, ColWSPM}

var columnTypes = map[string]series.Type{
	ColStation:  series.String,
	ColDatetime: series.String,
	ColMonth:    series.Int,
	ColPM25:     series.Float,
	ColNO2:      series.Float,
	ColTEMP:     series.Float,
	ColPRES:     series.Float,
	ColWSPM:     series.Float,
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformed     = errors.New("malformed dataset")
)

// Dataset is the immutable measurement table. It is built once at startup and
// shared by every request; all operations on it return new frames.
type Dataset struct {
	frame    dataframe.DataFrame
	stations []string
	min      time.Time
	max      time.Time
}

// LoadCSV reads the dataset file at path.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses CSV content with a header row into a Dataset.
func ReadCSV(r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues([]string{"NA", "NaN", "<nil>", ""}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, df.Err)
	}
	return fromFrame(df)
}

// New builds a Dataset from in-memory records, preserving their order.
func New(records []types.Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrMalformed)
	}
	n := len(records)
	stations := make([]string, n)
	datetimes := make([]string, n)
	months := make([]int, n)
	values := make(map[string][]float64, len(NumericColumns))
	for _, c := range NumericColumns {
		values[c] = make([]float64, n)
	}
	for i, rec := range records {
		stations[i] = rec.Station
		datetimes[i] = rec.Datetime.UTC().Format(datetimeLayouts[0])
		months[i] = rec.Month
		values[ColPM25][i] = rec.PM25
		values[ColNO2][i] = rec.NO2
		values[ColTEMP][i] = rec.TEMP
		values[ColPRES][i] = rec.PRES
		values[ColWSPM][i] = rec.WSPM
	}

	cols := []series.Series{
		series.New(datetimes, series.String, ColDatetime),
		series.New(months, series.Int, ColMonth),
		series.New(stations, series.String, ColStation),
	}
	for _, c := range NumericColumns {
		cols = append(cols, series.New(values[c], series.Float, c))
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, df.Err)
	}
	return fromFrame(df)
}

func fromFrame(df dataframe.DataFrame) (*Dataset, error) {
	names := df.Names()
	for _, c := range requiredColumns {
		if !slices.Contains(names, c) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	if _, err := df.Col(ColMonth).Int(); err != nil {
		return nil, fmt.Errorf("%w: column %s: %v", ErrMalformed, ColMonth, err)
	}

	stationCol := df.Col(ColStation)
	seen := make(map[string]bool)
	var stations []string
	for i := 0; i < stationCol.Len(); i++ {
		el := stationCol.Elem(i)
		if el.IsNA() || strings.TrimSpace(el.String()) == "" {
			return nil, fmt.Errorf("%w: row %d: empty station", ErrMalformed, i+1)
		}
		name := el.String()
		if !seen[name] {
			seen[name] = true
			stations = append(stations, name)
		}
	}

	raw := df.Col(ColDatetime).Records()
	ts := make([]int, len(raw))
	var lo, hi int64 = math.MaxInt64, math.MinInt64
	for i, s := range raw {
		t, err := parseDatetime(s)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, i+1, err)
		}
		u := t.Unix()
		ts[i] = int(u)
		lo = min(lo, u)
		hi = max(hi, u)
	}

	df = df.Mutate(series.New(ts, series.Int, ColTimestamp))
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, df.Err)
	}

	ds := &Dataset{frame: df, stations: stations}
	if len(ts) > 0 {
		ds.min = time.Unix(lo, 0).UTC()
		ds.max = time.Unix(hi, 0).UTC()
	}
	return ds, nil
}

func parseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime %q: unsupported format", s)
}

// Frame returns the full table. Callers derive new frames from it and never modify it.
func (d *Dataset) Frame() dataframe.DataFrame {
	return d.frame
}

// Len returns the number of measurements.
func (d *Dataset) Len() int {
	return d.frame.Nrow()
}

// Stations returns station names in order of first appearance.
func (d *Dataset) Stations() []string {
	return slices.Clone(d.stations)
}

// DateRange returns the earliest and latest measurement timestamps.
func (d *Dataset) DateRange() (time.Time, time.Time) {
	return d.min, d.max
}

// Records materialises the rows of frame, which must carry the dataset columns.
func Records(frame dataframe.DataFrame) ([]types.Record, error) {
	if frame.Err != nil {
		return nil, frame.Err
	}
	n := frame.Nrow()
	if n == 0 {
		return nil, nil
	}
	ts, err := frame.Col(ColTimestamp).Int()
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", ColTimestamp, err)
	}
	months, err := frame.Col(ColMonth).Int()
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", ColMonth, err)
	}
	stations := frame.Col(ColStation).Records()
	pm25 := frame.Col(ColPM25).Float()
	no2 := frame.Col(ColNO2).Float()
	temp := frame.Col(ColTEMP).Float()
	pres := frame.Col(ColPRES).Float()
	wspm := frame.Col(ColWSPM).Float()

	out := make([]types.Record, n)
	for i := range out {
		out[i] = types.Record{
			Station:  stations[i],
			Datetime: time.Unix(int64(ts[i]), 0).UTC(),
			Month:    months[i],
			PM25:     pm25[i],
			NO2:      no2[i],
			TEMP:     temp[i],
			PRES:     pres[i],
			WSPM:     wspm[i],
		}
	}
	return out, nil
}

package types

import "time"

// AllStations is the station selector sentinel that disables station filtering.
const AllStations = "All Stations"

// Record is one measurement row: a station's pollutant and weather readings at one hour.
// Missing numeric readings are NaN.
type Record struct {
	Station  string    `json:"station"`
	Datetime time.Time `json:"datetime"`
	Month    int       `json:"month"`
	PM25     float64   `json:"pm25"`
	NO2      float64   `json:"no2"`
	TEMP     float64   `json:"temp"`
	PRES     float64   `json:"pres"`
	WSPM     float64   `json:"wspm"`
}

type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Criteria is the filter built from the dashboard widgets on every interaction.
// Start and End are dates at 00:00 UTC, both inclusive.
type Criteria struct {
	Start   time.Time
	End     time.Time
	Station string
}

// AllStations reports whether the criteria keep every station.
func (c Criteria) AllStations() bool {
	return c.Station == "" || c.Station == AllStations
}

// AggregateRow holds PM2.5 statistics for one (station, quarter label or quarter period) group.
type AggregateRow struct {
	Station string
	Label   string
	Mean    float64
	Max     float64
	Min     float64
}

// ImportRun describes one load of a CSV file into the SQLite store.
type ImportRun struct {
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

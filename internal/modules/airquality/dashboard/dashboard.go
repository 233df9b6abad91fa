// Package dashboard turns a dataset and the user's filter criteria into the
// view model shown by the two dashboard tabs. Every call recomputes the
// pipeline from the shared read-only dataset.
package dashboard

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	Title = "Air Quality Data Analyze by Made Vidyatma Adhi Krisna"

	TabQuarterly    = "Pertanyaan 1"
	TabRelationship = "Pertanyaan 2"

	quarterlyTitle     = "Mean PM2.5 Concentration by Station and Quartal"
	periodicTitle      = "Mean PM2.5 Concentration by Station and Quartal Period"
	pairplotTitle      = "Pairplot of PM2.5, NO2, TEMP, PRES, WSPM"
	heatmapTitle       = "Correlation Heatmap between PM2.5, NO2, TEMP, PRES, WSPM"
	dynamicPrefix      = "Dynamic "
	staticCaption      = "Static Pairplot and Correlation Heatmap"
	dynamicCaption     = "Dynamic Pairplot and Correlation Heatmap"
	emptyStationRange  = "No data available for the selected station and date range."
	emptyDateRange     = "No data available for the selected date range."
	quarterlySubheader = "Bagaimana Rata-rata Konsentrasi PM2.5 per Quartal%s?"
	relationSubheader  = "Hubungan PM2.5 dan NO2 dengan Faktor Cuaca (Suhu, Tekanan Udara, dan Kecepatan Angin)%s"
)

// Options tunes rendering cost.
type Options struct {
	// PairplotMaxPoints caps the scatter points drawn per pairplot panel.
	PairplotMaxPoints int
}

// QuarterlyView is the content of the PM2.5 aggregates tab.
type QuarterlyView struct {
	Title     string
	Subheader string
	XLabel    string
	Periodic  bool
	Rows      []types.AggregateRow
	// Periods lists the quarter periods in range; set for the periodic policy only.
	Periods []string
	Empty   bool
}

// RelationshipView is the content of the pairplot and heatmap tab.
type RelationshipView struct {
	Subheader     string
	Caption       string
	PairplotTitle string
	HeatmapTitle  string
	EmptyMessage  string
	analysis.Relationship
}

// ViewModel is everything the page shows for one set of criteria.
type ViewModel struct {
	Title        string
	Criteria     types.Criteria
	SpanDays     int
	Policy       string
	Rows         int
	Stations     []string
	Quarterly    QuarterlyView
	Relationship RelationshipView
}

// Aggregates is the quarterly view without presentation text.
type Aggregates struct {
	Policy  string
	Periods []string
	Rows    []types.AggregateRow
}

// Stations returns the station selector options, the AllStations sentinel first.
func Stations(ds *dataset.Dataset) []string {
	return append([]string{types.AllStations}, ds.Stations()...)
}

// prepare runs the filters and the policy chosen from the criteria's span.
func prepare(ds *dataset.Dataset, c types.Criteria) (analysis.Policy, dataframe.DataFrame, error) {
	frame := dataset.FilterByDate(ds.Frame(), c.Start, c.End)
	frame = dataset.FilterByStation(frame, c.Station)
	policy := analysis.SelectPolicy(c.Start, c.End)
	prepared := policy.Prepare(frame)
	if prepared.Err != nil {
		return nil, dataframe.DataFrame{}, fmt.Errorf("prepare %s view: %w", policy.Name(), prepared.Err)
	}
	return policy, prepared, nil
}

// Render computes the full dashboard for c.
func Render(ds *dataset.Dataset, c types.Criteria, opts Options) (ViewModel, error) {
	policy, frame, err := prepare(ds, c)
	if err != nil {
		return ViewModel{}, err
	}
	rows, err := policy.Aggregate(frame)
	if err != nil {
		return ViewModel{}, fmt.Errorf("aggregate: %w", err)
	}
	rel, err := analysis.Relate(frame, opts.PairplotMaxPoints)
	if err != nil {
		return ViewModel{}, fmt.Errorf("relationship view: %w", err)
	}

	periodic := policy.Name() == analysis.PolicyPeriodic
	suffix := ""
	if !c.AllStations() {
		suffix = " untuk " + c.Station
	}

	vm := ViewModel{
		Title:    Title,
		Criteria: c,
		SpanDays: analysis.SpanDays(c.Start, c.End),
		Policy:   policy.Name(),
		Rows:     frame.Nrow(),
		Stations: Stations(ds),
		Quarterly: QuarterlyView{
			Title:     quarterlyTitle,
			Subheader: fmt.Sprintf(quarterlySubheader, suffix),
			XLabel:    "Quartal",
			Periodic:  periodic,
			Rows:      rows,
			Periods:   policy.Periods(),
			Empty:     len(rows) == 0,
		},
		Relationship: RelationshipView{
			Subheader:     fmt.Sprintf(relationSubheader, suffix),
			Caption:       staticCaption,
			PairplotTitle: pairplotTitle,
			HeatmapTitle:  heatmapTitle,
			EmptyMessage:  emptyStationRange,
			Relationship:  rel,
		},
	}
	if periodic {
		vm.Quarterly.Title = periodicTitle
		vm.Quarterly.XLabel = "Quartal Period"
		vm.Relationship.Caption = dynamicCaption
		vm.Relationship.PairplotTitle = dynamicPrefix + pairplotTitle
		vm.Relationship.HeatmapTitle = dynamicPrefix + heatmapTitle
		vm.Relationship.EmptyMessage = emptyDateRange
	}
	return vm, nil
}

// AggregatesFor computes only the PM2.5 aggregates for c.
func AggregatesFor(ds *dataset.Dataset, c types.Criteria) (Aggregates, error) {
	policy, frame, err := prepare(ds, c)
	if err != nil {
		return Aggregates{}, err
	}
	rows, err := policy.Aggregate(frame)
	if err != nil {
		return Aggregates{}, fmt.Errorf("aggregate: %w", err)
	}
	return Aggregates{Policy: policy.Name(), Periods: policy.Periods(), Rows: rows}, nil
}

// CorrelationFor computes only the correlation matrix for c. The matrix is
// zero-valued and empty is true when no rows match.
func CorrelationFor(ds *dataset.Dataset, c types.Criteria) (m analysis.Matrix, empty bool, err error) {
	_, frame, err := prepare(ds, c)
	if err != nil {
		return analysis.Matrix{}, false, err
	}
	if frame.Nrow() == 0 {
		return analysis.Matrix{}, true, nil
	}
	m, err = analysis.Correlate(frame)
	if err != nil {
		return analysis.Matrix{}, false, fmt.Errorf("correlate: %w", err)
	}
	return m, false, nil
}

package analysis

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"airquality-dashboard/internal/modules/airquality/dataset"
)

const (
	kdeGridSize   = 200
	kdeCut        = 3
	kdeMaxSamples = 5000
)

// Matrix is a square correlation matrix over Columns. Undefined entries are NaN.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// At returns the correlation of column i with column j.
func (m Matrix) At(i, j int) float64 {
	return m.Values[i][j]
}

// Point is one scatter point or one sample of a density curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PairCell is one panel of the pairplot grid. Off-diagonal panels carry
// scatter points of Y against X; diagonal panels carry a density curve.
type PairCell struct {
	X, Y     string
	Diagonal bool
	Points   []Point
	Density  []Point
}

// PairGrid holds the pairplot panels, row-major over Columns.
type PairGrid struct {
	Columns []string
	Cells   [][]PairCell
}

// Relationship is the correlation and pairplot view over the numeric columns.
type Relationship struct {
	Empty    bool
	Rows     int
	Matrix   Matrix
	Pairplot PairGrid
}

// Relate builds the relationship view. An empty frame yields Empty with nothing computed.
func Relate(df dataframe.DataFrame, maxPoints int) (Relationship, error) {
	if df.Err != nil {
		return Relationship{}, df.Err
	}
	if df.Nrow() == 0 {
		return Relationship{Empty: true}, nil
	}
	m, err := Correlate(df)
	if err != nil {
		return Relationship{}, err
	}
	grid, err := Pairplot(df, maxPoints)
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{Rows: df.Nrow(), Matrix: m, Pairplot: grid}, nil
}

func numericColumns(df dataframe.DataFrame) ([][]float64, error) {
	cols := make([][]float64, len(dataset.NumericColumns))
	for i, name := range dataset.NumericColumns {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %s: %w", name, s.Err)
		}
		cols[i] = s.Float()
	}
	return cols, nil
}

// Correlate returns pairwise-complete Pearson correlations between the numeric columns.
func Correlate(df dataframe.DataFrame) (Matrix, error) {
	cols, err := numericColumns(df)
	if err != nil {
		return Matrix{}, err
	}
	n := len(cols)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		values[i][i] = 1
		for j := i + 1; j < n; j++ {
			r := pearson(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
		}
	}
	return Matrix{Columns: append([]string(nil), dataset.NumericColumns...), Values: values}, nil
}

func pearson(x, y []float64) float64 {
	xs, ys := complete(x, y)
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.StdDev(xs, nil) == 0 || stat.StdDev(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// complete keeps the index positions where both x and y are present.
func complete(x, y []float64) ([]float64, []float64) {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// Pairplot builds the scatter/density grid. Scatter panels are down-sampled
// by a fixed stride to at most maxPoints points.
func Pairplot(df dataframe.DataFrame, maxPoints int) (PairGrid, error) {
	cols, err := numericColumns(df)
	if err != nil {
		return PairGrid{}, err
	}
	names := dataset.NumericColumns
	grid := PairGrid{
		Columns: append([]string(nil), names...),
		Cells:   make([][]PairCell, len(names)),
	}
	for i := range names {
		grid.Cells[i] = make([]PairCell, len(names))
		for j := range names {
			cell := PairCell{X: names[j], Y: names[i], Diagonal: i == j}
			if i == j {
				cell.Density = KDE(present(cols[i]))
			} else {
				xs, ys := complete(cols[j], cols[i])
				cell.Points = samplePoints(xs, ys, maxPoints)
			}
			grid.Cells[i][j] = cell
		}
	}
	return grid, nil
}

func stride(n, limit int) int {
	if limit <= 0 || n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

func samplePoints(xs, ys []float64, maxPoints int) []Point {
	step := stride(len(xs), maxPoints)
	out := make([]Point, 0, len(xs)/step+1)
	for i := 0; i < len(xs); i += step {
		out = append(out, Point{X: xs[i], Y: ys[i]})
	}
	return out
}

// KDE estimates the density of values with a Gaussian kernel and Scott's
// bandwidth, evaluated on an evenly spaced grid extending kdeCut bandwidths
// past the data. It returns nil for fewer than two values or zero spread.
func KDE(values []float64) []Point {
	if step := stride(len(values), kdeMaxSamples); step > 1 {
		sampled := make([]float64, 0, kdeMaxSamples)
		for i := 0; i < len(values); i += step {
			sampled = append(sampled, values[i])
		}
		values = sampled
	}
	n := len(values)
	if n < 2 {
		return nil
	}
	sd := stat.StdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	bw := sd * math.Pow(float64(n), -0.2)

	xs := floats.Span(make([]float64, kdeGridSize),
		floats.Min(values)-kdeCut*bw,
		floats.Max(values)+kdeCut*bw)

	out := make([]Point, kdeGridSize)
	for i, x := range xs {
		var sum float64
		for _, v := range values {
			sum += distuv.UnitNormal.Prob((x - v) / bw)
		}
		out[i] = Point{X: x, Y: sum / (float64(n) * bw)}
	}
	return out
}

package analysis

import (
	"math"
	"testing"
	"time"

	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/types"
)

func hourly(n int) []types.Record {
	recs := make([]types.Record, n)
	base := date(2013, 3, 1)
	for i := range recs {
		x := float64(i)
		recs[i] = types.Record{
			Station:  "A",
			Datetime: base.Add(time.Duration(i) * time.Hour),
			Month:    3,
			PM25:     x,
			NO2:      2*x + 1,
			TEMP:     -x,
			PRES:     1000 + math.Mod(x*7, 13),
			WSPM:     3,
		}
	}
	return recs
}

func TestCorrelate(t *testing.T) {
	ds := mustDataset(t, hourly(50)...)

	m, err := Correlate(ds.Frame())
	if err != nil {
		t.Fatalf("Correlate() err = %v", err)
	}
	n := len(dataset.NumericColumns)
	if len(m.Columns) != n || len(m.Values) != n {
		t.Fatalf("matrix size = %d/%d; want %d", len(m.Columns), len(m.Values), n)
	}

	for i := 0; i < n; i++ {
		if m.At(i, i) != 1 {
			t.Errorf("diagonal %s = %v; want 1", m.Columns[i], m.At(i, i))
		}
		for j := 0; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Errorf("matrix not symmetric at (%d,%d): %v vs %v", i, j, a, b)
			}
			if !math.IsNaN(a) && (a < -1-1e-9 || a > 1+1e-9) {
				t.Errorf("entry (%d,%d) = %v out of range", i, j, a)
			}
		}
	}

	// PM25, NO2, TEMP are exact linear functions of each other.
	if got := m.At(0, 1); math.Abs(got-1) > 1e-9 {
		t.Errorf("corr(PM25, NO2) = %v; want 1", got)
	}
	if got := m.At(0, 2); math.Abs(got+1) > 1e-9 {
		t.Errorf("corr(PM25, TEMP) = %v; want -1", got)
	}
	// WSPM is constant.
	if got := m.At(0, 4); !math.IsNaN(got) {
		t.Errorf("corr(PM25, WSPM) = %v; want NaN", got)
	}
}

func TestCorrelate_pairwiseComplete(t *testing.T) {
	recs := hourly(6)
	recs[0].NO2 = math.NaN()
	recs[1].NO2 = math.NaN()
	ds := mustDataset(t, recs...)

	m, err := Correlate(ds.Frame())
	if err != nil {
		t.Fatalf("Correlate() err = %v", err)
	}
	if got := m.At(0, 1); math.Abs(got-1) > 1e-9 {
		t.Errorf("corr(PM25, NO2) = %v; want 1 over complete rows", got)
	}
	if got := m.At(0, 2); math.Abs(got+1) > 1e-9 {
		t.Errorf("corr(PM25, TEMP) = %v; want -1 over all rows", got)
	}
}

func TestCorrelate_singleRow(t *testing.T) {
	ds := mustDataset(t, hourly(1)...)
	m, err := Correlate(ds.Frame())
	if err != nil {
		t.Fatalf("Correlate() err = %v", err)
	}
	if m.At(1, 1) != 1 {
		t.Errorf("diagonal = %v; want 1", m.At(1, 1))
	}
	if !math.IsNaN(m.At(0, 1)) {
		t.Errorf("off-diagonal = %v; want NaN", m.At(0, 1))
	}
}

func TestPairplot(t *testing.T) {
	ds := mustDataset(t, hourly(120)...)

	grid, err := Pairplot(ds.Frame(), 25)
	if err != nil {
		t.Fatalf("Pairplot() err = %v", err)
	}
	n := len(dataset.NumericColumns)
	if len(grid.Cells) != n {
		t.Fatalf("rows = %d; want %d", len(grid.Cells), n)
	}
	for i, row := range grid.Cells {
		for j, cell := range row {
			if cell.Diagonal != (i == j) {
				t.Errorf("cell (%d,%d) Diagonal = %v", i, j, cell.Diagonal)
			}
			if cell.Y != dataset.NumericColumns[i] || cell.X != dataset.NumericColumns[j] {
				t.Errorf("cell (%d,%d) axes = %s/%s", i, j, cell.X, cell.Y)
			}
			if i != j && (len(cell.Points) == 0 || len(cell.Points) > 25) {
				t.Errorf("cell (%d,%d) points = %d; want 1..25", i, j, len(cell.Points))
			}
		}
	}

	if got := len(grid.Cells[0][0].Density); got != kdeGridSize {
		t.Errorf("PM25 density points = %d; want %d", got, kdeGridSize)
	}
	if grid.Cells[4][4].Density != nil {
		t.Errorf("constant WSPM density = %v; want nil", grid.Cells[4][4].Density)
	}
}

func TestKDE(t *testing.T) {
	values := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5}
	pts := KDE(values)
	if len(pts) != kdeGridSize {
		t.Fatalf("KDE() points = %d; want %d", len(pts), kdeGridSize)
	}
	if pts[0].X >= 1 || pts[len(pts)-1].X <= 5 {
		t.Errorf("grid [%v, %v] does not extend past the data", pts[0].X, pts[len(pts)-1].X)
	}

	// trapezoid integral should be close to 1
	var area float64
	for i := 1; i < len(pts); i++ {
		area += (pts[i].X - pts[i-1].X) * (pts[i].Y + pts[i-1].Y) / 2
	}
	if math.Abs(area-1) > 0.01 {
		t.Errorf("density integrates to %v; want ~1", area)
	}

	if KDE([]float64{7}) != nil {
		t.Error("KDE(single value) != nil")
	}
	if KDE([]float64{2, 2, 2}) != nil {
		t.Error("KDE(constant) != nil")
	}
}

func TestRelate(t *testing.T) {
	ds := mustDataset(t, hourly(10)...)

	t.Run("empty", func(t *testing.T) {
		empty := dataset.FilterByDate(ds.Frame(), date(2016, 1, 1), date(2016, 2, 1))
		rel, err := Relate(empty, 100)
		if err != nil {
			t.Fatalf("Relate() err = %v", err)
		}
		if !rel.Empty || rel.Matrix.Values != nil || rel.Pairplot.Cells != nil {
			t.Errorf("Relate(empty) = %+v; want Empty with nothing computed", rel)
		}
	})

	t.Run("populated", func(t *testing.T) {
		rel, err := Relate(ds.Frame(), 100)
		if err != nil {
			t.Fatalf("Relate() err = %v", err)
		}
		if rel.Empty || rel.Rows != 10 {
			t.Errorf("Relate() Empty=%v Rows=%d; want false and 10", rel.Empty, rel.Rows)
		}
		if len(rel.Matrix.Values) != len(dataset.NumericColumns) {
			t.Errorf("matrix rows = %d", len(rel.Matrix.Values))
		}
	})
}

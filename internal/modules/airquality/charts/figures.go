package charts

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"slices"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	figureWidth  = 960
	figureHeight = 480
	panelSize    = 160
)

// quarterBars lays out one group of station bars per label, separated by a
// transparent spacer. The label sits under the middle bar of its group.
func quarterBars(rows []types.AggregateRow, stations, labels []string) (bars []chart.Value, top float64, drawn int) {
	for li, label := range labels {
		if li > 0 {
			bars = append(bars, chart.Value{
				Value: 0,
				Style: chart.Style{FillColor: drawing.ColorTransparent, StrokeColor: drawing.ColorTransparent},
			})
		}
		start := len(bars)
		for si, station := range stations {
			i := slices.IndexFunc(rows, func(r types.AggregateRow) bool {
				return r.Label == label && r.Station == station
			})
			if i < 0 || math.IsNaN(rows[i].Mean) {
				continue
			}
			c := colorFor(si)
			bars = append(bars, chart.Value{
				Value: rows[i].Mean,
				Style: chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1},
			})
			top = math.Max(top, rows[i].Mean)
			drawn++
		}
		if n := len(bars) - start; n > 0 {
			bars[start+(n-1)/2].Label = label
		}
	}
	return bars, top, drawn
}

// QuarterlyBars draws mean PM2.5 as grouped bars: one group per label, one
// bar per station. It returns an empty string when no row has a mean.
func QuarterlyBars(title string, rows []types.AggregateRow) (template.HTML, error) {
	stations := stationsOf(rows)
	var labels []string
	for _, r := range rows {
		if !slices.Contains(labels, r.Label) {
			labels = append(labels, r.Label)
		}
	}

	bars, top, drawn := quarterBars(rows, stations, labels)
	if drawn == 0 {
		return "", nil
	}
	if top <= 0 {
		top = 1
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      figureWidth,
		Height:     figureHeight,
		BarWidth:   24,
		BarSpacing: 2,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "Mean PM2.5",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return "", fmt.Errorf("render bar chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// PeriodLines draws mean PM2.5 per station across the ordered periods, one
// marked line per station. It returns an empty string when there is nothing to plot.
func PeriodLines(title string, rows []types.AggregateRow, periods []string) (template.HTML, error) {
	if len(periods) == 0 {
		return "", nil
	}
	ticks := make([]chart.Tick, len(periods))
	for i, p := range periods {
		ticks[i] = chart.Tick{Value: float64(i), Label: p}
	}

	var series []chart.Series
	var ys []float64
	for si, station := range stationsOf(rows) {
		var sx, sy []float64
		for i, p := range periods {
			j := slices.IndexFunc(rows, func(r types.AggregateRow) bool {
				return r.Label == p && r.Station == station
			})
			if j < 0 || math.IsNaN(rows[j].Mean) {
				continue
			}
			sx = append(sx, float64(i))
			sy = append(sy, rows[j].Mean)
		}
		if len(sx) == 0 {
			continue
		}
		c := colorFor(si)
		series = append(series, chart.ContinuousSeries{
			Name:    station,
			XValues: sx,
			YValues: sy,
			Style:   chart.Style{StrokeColor: c, StrokeWidth: 2, DotColor: c, DotWidth: 3},
		})
		ys = append(ys, sy...)
	}
	if len(series) == 0 {
		return "", nil
	}

	lo, hi := paddedRange(ys)
	ch := chart.Chart{
		Title:      title,
		Width:      figureWidth,
		Height:     figureHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		XAxis: chart.XAxis{
			Name:      "Quartal Period",
			Ticks:     ticks,
			Range:     &chart.ContinuousRange{Min: -0.5, Max: float64(len(periods)) - 0.5},
			TickStyle: chart.Style{TextRotationDegrees: 45},
		},
		YAxis: chart.YAxis{
			Name:  "Mean PM2.5",
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return "", fmt.Errorf("render line chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// paddedRange returns bounds around values with a margin, never of zero width.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

// PairplotPanels renders every cell of grid as a small SVG. Cells without
// data are left empty.
func PairplotPanels(grid analysis.PairGrid) ([][]template.HTML, error) {
	out := make([][]template.HTML, len(grid.Cells))
	for i, row := range grid.Cells {
		out[i] = make([]template.HTML, len(row))
		for j, cell := range row {
			svg, err := panel(cell, colorFor(0))
			if err != nil {
				return nil, fmt.Errorf("pairplot %s/%s: %w", cell.Y, cell.X, err)
			}
			out[i][j] = svg
		}
	}
	return out, nil
}

func panel(cell analysis.PairCell, c drawing.Color) (template.HTML, error) {
	pts := cell.Points
	style := chart.Style{StrokeWidth: chart.Disabled, DotWidth: 1.5, DotColor: c.WithAlpha(128)}
	if cell.Diagonal {
		pts = cell.Density
		style = chart.Style{StrokeColor: c, StrokeWidth: 1.5, FillColor: c.WithAlpha(64)}
	}
	if len(pts) == 0 {
		return "", nil
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	xlo, xhi := paddedRange(xs)
	ylo, yhi := paddedRange(ys)
	if cell.Diagonal {
		ylo = 0
	}

	ch := chart.Chart{
		Width:      panelSize,
		Height:     panelSize,
		Background: chart.Style{Padding: chart.Box{Top: 4, Left: 4, Right: 4, Bottom: 4}},
		XAxis:      chart.XAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: xlo, Max: xhi}},
		YAxis:      chart.YAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: ylo, Max: yhi}},
		Series: []chart.Series{chart.ContinuousSeries{
			Name:    cell.Y + " vs " + cell.X,
			XValues: xs,
			YValues: ys,
			Style:   style,
		}},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Package charts renders the dashboard figures as inline SVG with go-chart.
package charts

import (
	"fmt"
	"math"
	"slices"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/types"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

var (
	coolwarmLow  = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	coolwarmMid  = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	coolwarmHigh = drawing.Color{R: 180, G: 4, B: 38, A: 255}
)

// Swatch is one legend entry.
type Swatch struct {
	Name  string
	Color string
}

// stationsOf returns the distinct stations of rows in sorted order.
func stationsOf(rows []types.AggregateRow) []string {
	var out []string
	for _, r := range rows {
		if !slices.Contains(out, r.Station) {
			out = append(out, r.Station)
		}
	}
	slices.Sort(out)
	return out
}

func colorFor(i int) drawing.Color {
	return palette[i%len(palette)]
}

func hex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Legend maps the stations present in rows to their chart colours.
func Legend(rows []types.AggregateRow) []Swatch {
	stations := stationsOf(rows)
	out := make([]Swatch, len(stations))
	for i, s := range stations {
		out[i] = Swatch{Name: s, Color: hex(colorFor(i))}
	}
	return out
}

// HeatCell is one annotated cell of the correlation heatmap.
type HeatCell struct {
	Label      string
	Background string
	Foreground string
}

// Heatmap colours each matrix entry on a blue-grey-red scale from -1 to +1.
// Undefined entries get an empty label and a white background.
func Heatmap(m analysis.Matrix) [][]HeatCell {
	out := make([][]HeatCell, len(m.Values))
	for i, row := range m.Values {
		out[i] = make([]HeatCell, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				out[i][j] = HeatCell{Background: "#ffffff", Foreground: "#000000"}
				continue
			}
			fg := "#000000"
			if math.Abs(v) > 0.6 {
				fg = "#ffffff"
			}
			out[i][j] = HeatCell{
				Label:      fmt.Sprintf("%.2f", v),
				Background: hex(coolwarm(v)),
				Foreground: fg,
			}
		}
	}
	return out
}

func coolwarm(v float64) drawing.Color {
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return lerp(coolwarmMid, coolwarmLow, -v)
	}
	return lerp(coolwarmMid, coolwarmHigh, v)
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

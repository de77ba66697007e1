package charts

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/categories"
)

// pointStyle renders points only (no connecting line).
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func barStyle(col drawing.Color) chart.Style {
	return chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1}
}

func renderHistogram(title, name string, bins []analysis.Bin) ([]byte, error) {
	if len(bins) == 0 {
		return nil, ErrNoData
	}
	every := (len(bins) + 9) / 10
	bars := make([]chart.Value, len(bins))
	top := 0
	for i, b := range bins {
		label := ""
		if i%every == 0 {
			label = formatTick(b.Lo)
		}
		bars[i] = chart.Value{Label: label, Value: float64(b.Count), Style: barStyle(colorFill)}
		top = max(top, b.Count)
	}
	return renderBars(title, bars, top)
}

func renderBar(title string, tags []categories.Tag) ([]byte, error) {
	if len(tags) == 0 {
		return nil, ErrNoData
	}
	bars := make([]chart.Value, len(tags))
	top := 0
	for i, tg := range tags {
		bars[i] = chart.Value{Label: truncate(tg.Name, 10), Value: float64(tg.Count), Style: barStyle(colorFill)}
		top = max(top, tg.Count)
	}
	return renderBars(title, bars, top)
}

func renderBars(title string, bars []chart.Value, top int) ([]byte, error) {
	const spacing = 2
	barWidth := max(2, (Width-100)/len(bars)-spacing)
	bc := chart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		BarWidth:   barWidth,
		BarSpacing: spacing,
		XAxis:      chart.Style{FontSize: 7},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 8},
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(1, float64(top)*1.1)},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func renderScatter(title, xName, yName string, xs, ys []float64) ([]byte, error) {
	if len(xs) == 0 {
		return nil, ErrNoData
	}
	xlo, xhi := padRange(floats.Min(xs), floats.Max(xs))
	ylo, yhi := padRange(floats.Min(ys), floats.Max(ys))
	ch := chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: xName, Range: &chart.ContinuousRange{Min: xlo, Max: xhi}},
		YAxis:      chart.YAxis{Name: yName, Range: &chart.ContinuousRange{Min: ylo, Max: yhi}},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: yName, XValues: xs, YValues: ys, Style: pointStyle(colorFill)},
		},
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// padRange widens [lo, hi] by 5% on each side, or by 0.5 when the range is empty.
func padRange(lo, hi float64) (float64, float64) {
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

package charts

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/categories"
	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/metrics"
)

// Canvas sizes in pixels.
const (
	Width         = 800
	Height        = 480
	HeatmapWidth  = 960
	HeatmapHeight = 640
	PairplotSize  = 720
)

// CategoryWarning is shown when the category column cannot be parsed.
const CategoryWarning = "Could not parse 'Cleaned_Categories' column. Skipping category barplot."

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("no data to plot")

// Chart is one rendered entry of the sequence. Err is set instead of SVG when the
// chart could not be drawn.
type Chart struct {
	Spec Spec
	SVG  []byte
	Err  error
}

// Output is the rendered chart sequence for one dataset.
type Output struct {
	Charts   []Chart
	Warnings []string
}

// RenderAll renders every chart in Plan(t). A failing chart is kept with its error and
// does not stop the rest. An unparsable category column skips the bar chart with
// CategoryWarning.
func RenderAll(t *analysis.Table) *Output {
	out := &Output{}
	for _, spec := range Plan(t) {
		svg, err := Render(t, spec)
		if spec.Kind == KindBar && errors.As(err, new(*categories.CellError)) {
			logging.Warn().Err(err).Str("column", ColCategories).Msg("category chart skipped")
			metrics.ChartRenders.WithLabelValues(string(spec.Kind), "skipped").Inc()
			out.Warnings = append(out.Warnings, CategoryWarning)
			continue
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			logging.Warn().Err(err).Str("chart", spec.Title).Msg("chart render failed")
		}
		metrics.ChartRenders.WithLabelValues(string(spec.Kind), outcome).Inc()
		out.Charts = append(out.Charts, Chart{Spec: spec, SVG: svg, Err: err})
	}
	return out
}

// Render draws a single chart as SVG.
func Render(t *analysis.Table, spec Spec) ([]byte, error) {
	switch spec.Kind {
	case KindHistogram:
		vals, err := column(t, spec, 0)
		if err != nil {
			return nil, err
		}
		return renderHistogram(spec.Title, spec.Columns[0], analysis.Histogram(vals, spec.Bins))
	case KindScatter:
		xs, ys, err := pairs(t, spec)
		if err != nil {
			return nil, err
		}
		return renderScatter(spec.Title, spec.Columns[0], spec.Columns[1], xs, ys)
	case KindBox:
		vals, err := column(t, spec, 0)
		if err != nil {
			return nil, err
		}
		st, ok := analysis.Box(vals)
		if !ok {
			return nil, ErrNoData
		}
		return drawBoxes(spec.Title, spec.Columns[0], []boxGroup{{Stats: st}})
	case KindGroupedBox:
		groups, err := brandGroups(t, spec)
		if err != nil {
			return nil, err
		}
		return drawBoxes(spec.Title, spec.Columns[0], groups)
	case KindHeatmap:
		if len(spec.Columns) == 0 {
			return nil, ErrNoData
		}
		m, err := analysis.Correlation(t, spec.Columns)
		if err != nil {
			return nil, err
		}
		return drawHeatmap(spec.Title, m)
	case KindPairplot:
		cols := make([][]float64, len(spec.Columns))
		for i := range spec.Columns {
			v, err := column(t, spec, i)
			if err != nil {
				return nil, err
			}
			cols[i] = v
		}
		return drawPairplot(spec.Title, spec.Columns, cols)
	case KindBar:
		cells, err := t.Strings(spec.Columns[0])
		if err != nil {
			return nil, err
		}
		tags, err := categories.Count(cells)
		if err != nil {
			return nil, err
		}
		return renderBar(spec.Title, categories.Top(tags, spec.Limit))
	default:
		return nil, fmt.Errorf("unknown chart kind %q", spec.Kind)
	}
}

func column(t *analysis.Table, spec Spec, i int) ([]float64, error) {
	if i >= len(spec.Columns) {
		return nil, ErrNoData
	}
	return t.Numeric(spec.Columns[i])
}

// pairs returns the rows where both columns hold a finite value.
func pairs(t *analysis.Table, spec Spec) (xs, ys []float64, err error) {
	x, err := column(t, spec, 0)
	if err != nil {
		return nil, nil, err
	}
	y, err := column(t, spec, 1)
	if err != nil {
		return nil, nil, err
	}
	for i := range x {
		if finite(x[i]) && finite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return xs, ys, nil
}

// brandGroups collects the value column for the spec.Limit most frequent groups.
// Ties keep first-seen order and blank group keys are ignored.
func brandGroups(t *analysis.Table, spec Spec) ([]boxGroup, error) {
	vals, err := column(t, spec, 0)
	if err != nil {
		return nil, err
	}
	keys, err := t.Strings(spec.GroupBy)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	var order []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	top := analysis.TopValues(counts, order, spec.Limit)
	var groups []boxGroup
	for _, cc := range top {
		var sample []float64
		for i, k := range keys {
			if k == cc.Value {
				sample = append(sample, vals[i])
			}
		}
		if st, ok := analysis.Box(sample); ok {
			groups = append(groups, boxGroup{Label: cc.Value, Stats: st})
		}
	}
	return groups, nil
}

package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Base    string
	Unit    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// Summarize computes per-column statistics, optional group-by metrics and
// correlations for t.
func Summarize(t *Table, opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: t.Total, Processed: t.Len()}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}
	rep.Samples = t.Head(sampleRows)

	for j, c := range t.Columns() {
		s := ColumnSummary{Name: c.Name, Base: c.Base, Unit: c.Unit, Kind: c.Kind}
		cells := make(map[string]int)
		var order []string
		for _, row := range t.Rows {
			v := strings.TrimSpace(row[j])
			if IsMissing(v) {
				s.Missing++
				continue
			}
			s.NonNull++
			if _, seen := cells[v]; !seen {
				order = append(order, v)
			}
			cells[v]++
		}
		s.Unique = len(cells)
		switch c.Kind {
		case KindNumeric:
			fillNumeric(&s, c.Values, opt)
		case KindCategorical:
			s.TopValues = TopValues(cells, order, 8)
		case KindText:
			for _, v := range order {
				if len(s.ExampleTexts) == 3 {
					break
				}
				s.ExampleTexts = append(s.ExampleTexts, v)
			}
		}
		rep.Cols = append(rep.Cols, s)
	}

	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	if len(opt.GroupBy) > 0 {
		groups, missing := groupBy(t, opt.GroupBy)
		rep.Groups = groups
		for _, m := range missing {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q not found", m))
		}
	}
	if opt.Correlations {
		if nums := t.NumericColumns(); len(nums) >= 2 {
			if m, err := Correlation(t, nums); err == nil {
				rep.Corr = m
			}
		}
	}
	return rep
}

// TopValues ranks counts descending, breaking ties by first appearance, and keeps n.
func TopValues(counts map[string]int, order []string, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(order))
	for _, k := range order {
		tops = append(tops, CategoryCount{Value: k, Count: counts[k]})
	}
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].Count > tops[j].Count })
	if n > 0 && len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

func fillNumeric(s *ColumnSummary, vals []float64, opt Options) {
	xs := Finite(vals)
	if len(xs) == 0 {
		return
	}
	s.Min, s.Max = floats.Min(xs), floats.Max(xs)
	if len(xs) == 1 {
		s.Mean = xs[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(xs, nil)
	}
	if !opt.Outliers || len(xs) < 8 {
		return
	}
	median, mad := medianMAD(xs)
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	s.OutlierThreshold = thr
	if mad == 0 {
		return
	}
	for _, v := range xs {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		if az > s.OutliersMaxAbsZ {
			s.OutliersMaxAbsZ = az
		}
	}
}

func groupBy(t *Table, names []string) ([]GroupResult, []string) {
	var idx []int
	var missing []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := -1
		for j, h := range t.Header {
			if strings.EqualFold(h, name) {
				found = j
				break
			}
		}
		if found < 0 {
			missing = append(missing, name)
			continue
		}
		idx = append(idx, found)
	}
	if len(idx) == 0 {
		return nil, missing
	}
	type gAcc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	cols := t.Columns()
	groups := map[string]*gAcc{}
	for i, row := range t.Rows {
		parts := make([]string, 0, len(idx))
		for _, j := range idx {
			parts = append(parts, fmt.Sprintf("%s=%s", t.Header[j], safeVal(strings.TrimSpace(row[j]))))
		}
		key := strings.Join(parts, " | ")
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = ga
		}
		ga.size++
		for j, c := range cols {
			if c.Kind != KindNumeric || math.IsNaN(c.Values[i]) {
				continue
			}
			x := c.Values[i]
			ga.sum[j] += x
			ga.cnt[j]++
			if v, ok := ga.min[j]; !ok || x < v {
				ga.min[j] = x
			}
			if v, ok := ga.max[j]; !ok || x > v {
				ga.max[j] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for j, n := range ga.cnt {
			gr.Metrics[cols[j].Name] = NumSummary{Count: n, Min: ga.min[j], Max: ga.max[j], Mean: ga.sum[j] / float64(n)}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, missing
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.Rows, r.Processed))
		} else {
			b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
		}
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", safeName(c.Base), c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" — e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if pairs := r.topPairs(10); len(pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

func (r *Report) topPairs(limit int) []PairCorr {
	if r.Corr == nil || len(r.Corr.Columns) < 2 {
		return nil
	}
	var pairs []PairCorr
	n := len(r.Corr.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := r.Corr.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			pairs = append(pairs, PairCorr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
// Cells are NaN when fewer than two complete pairs exist or a column is constant.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Bin is one histogram bucket [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// BoxStats summarizes a distribution the way a Tukey boxplot draws it.
type BoxStats struct {
	N                 int
	Q1, Median, Q3    float64
	LowWhisker        float64
	HighWhisker       float64
	Outliers          []float64
	Min, Max, IQRSpan float64
}

// Finite drops NaN and Inf values.
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Correlation computes pairwise-complete Pearson correlations for the named numeric
// columns of t.
func Correlation(t *Table, names []string) (*CorrMatrix, error) {
	vecs := make([][]float64, len(names))
	for i, n := range names {
		v, err := t.Numeric(n)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pairCorr(vecs[a], vecs[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: append([]string(nil), names...), Values: mat}, nil
}

func pairCorr(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if i >= len(y) || math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if floats.Min(xs) == floats.Max(xs) || floats.Min(ys) == floats.Max(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Histogram buckets the finite values into bins equal-width buckets spanning
// [min, max]; the last bucket includes max. A constant sample spans value±0.5.
func Histogram(vals []float64, bins int) []Bin {
	xs := Finite(vals)
	if len(xs) == 0 || bins <= 0 {
		return nil
	}
	sort.Float64s(xs)
	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram needs the last divider strictly above the maximum.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, xs, nil)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Hi = hi
	return out
}

// Box computes quartiles (linear interpolation), 1.5·IQR whiskers clamped to the data,
// and the points beyond them. ok is false when there are no finite values.
func Box(vals []float64) (BoxStats, bool) {
	xs := Finite(vals)
	if len(xs) == 0 {
		return BoxStats{}, false
	}
	sort.Float64s(xs)
	b := BoxStats{
		N:      len(xs),
		Q1:     quantile(xs, 0.25),
		Median: quantile(xs, 0.5),
		Q3:     quantile(xs, 0.75),
		Min:    xs[0],
		Max:    xs[len(xs)-1],
	}
	b.IQRSpan = b.Q3 - b.Q1
	loFence := b.Q1 - 1.5*b.IQRSpan
	hiFence := b.Q3 + 1.5*b.IQRSpan
	b.LowWhisker, b.HighWhisker = b.Q1, b.Q3
	for _, v := range xs {
		if v >= loFence {
			b.LowWhisker = v
			break
		}
	}
	for i := len(xs) - 1; i >= 0; i-- {
		if xs[i] <= hiFence {
			b.HighWhisker = xs[i]
			break
		}
	}
	for _, v := range xs {
		if v < loFence || v > hiFence {
			b.Outliers = append(b.Outliers, v)
		}
	}
	return b, true
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

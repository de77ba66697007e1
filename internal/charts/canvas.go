package charts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
)

// go-chart has no box, heatmap or matrix plots; those are drawn directly on its SVG
// renderer.

var (
	colorAxis    = drawing.ColorFromHex("333333")
	colorGrid    = drawing.ColorFromHex("e5e5e5")
	colorFill    = drawing.ColorFromHex("4c72b0")
	colorBox     = drawing.ColorFromHex("8fb0d9")
	colorMissing = drawing.ColorFromHex("d0d0d0")

	coolLow  = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	coolMid  = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	coolHigh = drawing.Color{R: 180, G: 4, B: 38, A: 255}
)

type rect struct{ left, top, right, bottom int }

// axis maps data values in [lo, hi] onto pixels [p0, p1].
type axis struct {
	lo, hi float64
	p0, p1 int
}

func (a axis) at(v float64) int {
	if a.hi == a.lo {
		return (a.p0 + a.p1) / 2
	}
	return a.p0 + int(math.Round((v-a.lo)/(a.hi-a.lo)*float64(a.p1-a.p0)))
}

type canvas struct {
	r    chart.Renderer
	w, h int
}

func newCanvas(w, h int) (*canvas, error) {
	r, err := chart.SVG(w, h)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	r.SetFont(font)
	c := &canvas{r: r, w: w, h: h}
	c.rect(rect{0, 0, w, h}, drawing.ColorWhite, drawing.ColorWhite)
	return c, nil
}

func (c *canvas) rect(b rect, fill, stroke drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(b.left, b.top)
	c.r.LineTo(b.right, b.top)
	c.r.LineTo(b.right, b.bottom)
	c.r.LineTo(b.left, b.bottom)
	c.r.LineTo(b.left, b.top)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) frame(b rect) {
	c.r.SetStrokeColor(colorAxis)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(b.left, b.top)
	c.r.LineTo(b.right, b.top)
	c.r.LineTo(b.right, b.bottom)
	c.r.LineTo(b.left, b.bottom)
	c.r.LineTo(b.left, b.top)
	c.r.Stroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, col drawing.Color, width float64) {
	c.r.SetStrokeColor(col)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) dot(x, y int, radius float64, fill, stroke drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.Circle(radius, x, y)
}

func (c *canvas) text(s string, x, y int, size float64, col drawing.Color) {
	c.r.SetFontColor(col)
	c.r.SetFontSize(size)
	c.r.Text(s, x, y)
}

func (c *canvas) textWidth(s string, size float64) int {
	c.r.SetFontSize(size)
	return c.r.MeasureText(s).Width()
}

func (c *canvas) centered(s string, cx, y int, size float64, col drawing.Color) {
	c.text(s, cx-c.textWidth(s, size)/2, y, size, col)
}

func (c *canvas) rightAligned(s string, x, y int, size float64, col drawing.Color) {
	c.text(s, x-c.textWidth(s, size), y, size, col)
}

func (c *canvas) title(s string) {
	c.centered(s, c.w/2, 28, 14, colorAxis)
}

// yAxis draws horizontal grid lines with tick labels left of plot.
func (c *canvas) yAxis(plot rect, a axis, name string) {
	for _, v := range niceTicks(a.lo, a.hi, 5) {
		y := a.at(v)
		c.line(plot.left, y, plot.right, y, colorGrid, 1)
		c.rightAligned(formatTick(v), plot.left-6, y+3, 8, colorAxis)
	}
	if name != "" {
		c.r.SetTextRotation(-math.Pi / 2)
		c.text(name, plot.left-48, (plot.top+plot.bottom)/2+c.textWidth(name, 9)/2, 9, colorAxis)
		c.r.ClearTextRotation()
	}
}

func (c *canvas) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// niceTicks returns roughly n round values covering [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	if !(hi > lo) || n < 1 {
		return []float64{lo}
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		step = m * mag
		if step >= raw {
			break
		}
	}
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, math.Round(v/step)*step)
	}
	return out
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// coolwarm maps a correlation in [-1, 1] onto a diverging blue-grey-red scale.
func coolwarm(v float64) drawing.Color {
	if math.IsNaN(v) {
		return colorMissing
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return lerp(coolMid, coolLow, -v)
	}
	return lerp(coolMid, coolHigh, v)
}

type boxGroup struct {
	Label string
	Stats analysis.BoxStats
}

func drawBoxes(title, name string, groups []boxGroup) ([]byte, error) {
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	c, err := newCanvas(Width, Height)
	if err != nil {
		return nil, err
	}
	c.title(title)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		lo = math.Min(lo, g.Stats.Min)
		hi = math.Max(hi, g.Stats.Max)
	}
	lo, hi = padRange(lo, hi)
	plot := rect{left: 80, top: 50, right: Width - 20, bottom: Height - 60}
	ya := axis{lo: lo, hi: hi, p0: plot.bottom, p1: plot.top}
	c.yAxis(plot, ya, name)

	slot := float64(plot.right-plot.left) / float64(len(groups))
	half := int(math.Max(4, math.Min(slot*0.3, 60)))
	for i, g := range groups {
		s := g.Stats
		cx := plot.left + int(slot*(float64(i)+0.5))
		c.line(cx, ya.at(s.LowWhisker), cx, ya.at(s.Q1), colorAxis, 1)
		c.line(cx, ya.at(s.Q3), cx, ya.at(s.HighWhisker), colorAxis, 1)
		c.line(cx-half/2, ya.at(s.LowWhisker), cx+half/2, ya.at(s.LowWhisker), colorAxis, 1)
		c.line(cx-half/2, ya.at(s.HighWhisker), cx+half/2, ya.at(s.HighWhisker), colorAxis, 1)
		c.rect(rect{cx - half, ya.at(s.Q3), cx + half, ya.at(s.Q1)}, colorBox, colorAxis)
		c.line(cx-half, ya.at(s.Median), cx+half, ya.at(s.Median), colorAxis, 2)
		for _, o := range s.Outliers {
			c.dot(cx, ya.at(o), 2.5, drawing.ColorWhite, colorAxis)
		}
		if g.Label != "" {
			c.centered(truncate(g.Label, 14), cx, plot.bottom+16, 9, colorAxis)
		}
	}
	c.frame(plot)
	return c.bytes()
}

func drawHeatmap(title string, m *analysis.CorrMatrix) ([]byte, error) {
	n := len(m.Columns)
	if n == 0 {
		return nil, ErrNoData
	}
	c, err := newCanvas(HeatmapWidth, HeatmapHeight)
	if err != nil {
		return nil, err
	}
	c.title(title)
	plot := rect{left: 150, top: 50, right: HeatmapWidth - 110, bottom: HeatmapHeight - 60}
	cw := float64(plot.right-plot.left) / float64(n)
	ch := float64(plot.bottom-plot.top) / float64(n)
	maxLabel := max(3, int(cw/7))
	for i := 0; i < n; i++ {
		y0 := plot.top + int(ch*float64(i))
		y1 := plot.top + int(ch*float64(i+1))
		c.rightAligned(truncate(m.Columns[i], 20), plot.left-6, (y0+y1)/2+4, 9, colorAxis)
		for j := 0; j < n; j++ {
			x0 := plot.left + int(cw*float64(j))
			x1 := plot.left + int(cw*float64(j+1))
			v := m.Values[i][j]
			c.rect(rect{x0, y0, x1, y1}, coolwarm(v), drawing.ColorWhite)
			if n <= 12 {
				label := "nan"
				if !math.IsNaN(v) {
					label = fmt.Sprintf("%.2f", v)
				}
				fg := colorAxis
				if math.Abs(v) > 0.6 {
					fg = drawing.ColorWhite
				}
				c.centered(label, (x0+x1)/2, (y0+y1)/2+4, 9, fg)
			}
		}
	}
	for j := 0; j < n; j++ {
		cx := plot.left + int(cw*(float64(j)+0.5))
		c.centered(truncate(m.Columns[j], maxLabel), cx, plot.bottom+16, 9, colorAxis)
	}

	// colour bar
	bar := rect{left: plot.right + 30, top: plot.top, right: plot.right + 50, bottom: plot.bottom}
	const steps = 40
	step := float64(bar.bottom-bar.top) / steps
	for k := 0; k < steps; k++ {
		v := 1 - 2*(float64(k)+0.5)/steps
		y0 := bar.top + int(step*float64(k))
		y1 := bar.top + int(step*float64(k+1))
		c.rect(rect{bar.left, y0, bar.right, y1}, coolwarm(v), coolwarm(v))
	}
	c.frame(bar)
	ya := axis{lo: -1, hi: 1, p0: bar.bottom, p1: bar.top}
	for _, v := range []float64{-1, -0.5, 0, 0.5, 1} {
		c.text(fmt.Sprintf("%.1f", v), bar.right+6, ya.at(v)+3, 8, colorAxis)
	}
	return c.bytes()
}

func drawPairplot(title string, names []string, cols [][]float64) ([]byte, error) {
	n := len(names)
	if n == 0 {
		return nil, ErrNoData
	}
	c, err := newCanvas(PairplotSize, PairplotSize)
	if err != nil {
		return nil, err
	}
	c.title(title)
	area := rect{left: 90, top: 50, right: PairplotSize - 20, bottom: PairplotSize - 50}
	cw := float64(area.right-area.left) / float64(n)
	ch := float64(area.bottom-area.top) / float64(n)
	const gap = 6

	ranges := make([][2]float64, n)
	for i, v := range cols {
		xs := analysis.Finite(v)
		if len(xs) == 0 {
			ranges[i] = [2]float64{0, 1}
			continue
		}
		lo, hi := xs[0], xs[0]
		for _, x := range xs {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		ranges[i][0], ranges[i][1] = padRange(lo, hi)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cell := rect{
				left:   area.left + int(cw*float64(j)) + gap,
				top:    area.top + int(ch*float64(i)) + gap,
				right:  area.left + int(cw*float64(j+1)) - gap,
				bottom: area.top + int(ch*float64(i+1)) - gap,
			}
			xa := axis{lo: ranges[j][0], hi: ranges[j][1], p0: cell.left, p1: cell.right}
			if i == j {
				bins := analysis.Histogram(cols[i], 10)
				top := 0
				for _, b := range bins {
					top = max(top, b.Count)
				}
				ya := axis{lo: 0, hi: float64(top) * 1.1, p0: cell.bottom, p1: cell.top}
				for _, b := range bins {
					if b.Count == 0 {
						continue
					}
					c.rect(rect{xa.at(b.Lo), ya.at(float64(b.Count)), xa.at(b.Hi), cell.bottom}, colorFill, drawing.ColorWhite)
				}
			} else {
				ya := axis{lo: ranges[i][0], hi: ranges[i][1], p0: cell.bottom, p1: cell.top}
				x, y := cols[j], cols[i]
				for k := range x {
					if finite(x[k]) && finite(y[k]) {
						c.dot(xa.at(x[k]), ya.at(y[k]), 1.5, colorFill, colorFill)
					}
				}
			}
			c.frame(cell)
			if i == n-1 {
				c.centered(truncate(names[j], 18), (cell.left+cell.right)/2, area.bottom+20, 9, colorAxis)
			}
			if j == 0 {
				c.rightAligned(truncate(names[i], 12), cell.left-6, (cell.top+cell.bottom)/2+3, 9, colorAxis)
			}
		}
	}
	return c.bytes()
}

package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ImageSurface renders an attached chart to PNG on the server, for clients
// without JavaScript and for exports.
type ImageSurface struct {
	id     string
	width  vg.Length
	height vg.Length

	mu  sync.Mutex
	png []byte
}

func NewImage(id string, width, height vg.Length) *ImageSurface {
	return &ImageSurface{id: id, width: width, height: height}
}

func (s *ImageSurface) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *ImageSurface) Ready() error {
	if s == nil {
		return ErrMissingSurface
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.png != nil {
		return ErrSurfaceOccupied
	}
	return nil
}

func (s *ImageSurface) Attach(c *Chart) error {
	if s == nil {
		return ErrMissingSurface
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.png != nil {
		return ErrSurfaceOccupied
	}

	p, err := newPlot(c)
	if err != nil {
		return err
	}
	w, err := p.WriterTo(s.width, s.height, "png")
	if err != nil {
		return fmt.Errorf("create %s plot writer: %w", c.Type, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return fmt.Errorf("write %s plot: %w", c.Type, err)
	}
	s.png = buf.Bytes()
	return nil
}

// PNG returns the encoded image, or nil when nothing is attached.
func (s *ImageSurface) PNG() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.png
}

func newPlot(c *Chart) (*plot.Plot, error) {
	if c == nil {
		return nil, fmt.Errorf("chart: nothing to plot")
	}
	switch c.Type {
	case Line:
		return linePlot(c)
	case Doughnut:
		return doughnutPlot(c), nil
	default:
		return nil, fmt.Errorf("chart: unsupported type %q", c.Type)
	}
}

func linePlot(c *Chart) (*plot.Plot, error) {
	p := plot.New()
	if len(c.Data.Labels) > 0 {
		p.NominalX(c.Data.Labels...)
	}

	for _, ds := range c.Data.Datasets {
		if len(ds.Data) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(ds.Data))
		for i, v := range ds.Data {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("line for %q: %w", ds.Label, err)
		}
		l.LineStyle.Color = parseRGB(ds.BorderColor)
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
		if ds.Label != "" {
			p.Legend.Add(ds.Label, l)
		}
	}

	if y, ok := c.Options.Scales["y"]; ok && y.BeginAtZero {
		p.Y.Min = math.Min(0, p.Y.Min)
		if p.Y.Max <= p.Y.Min {
			p.Y.Max = p.Y.Min + 1
		}
	}
	if ticks, ok := c.ValueTicks(); ok {
		p.Y.Tick.Marker = currencyTicker{format: ticks}
	}
	return p, nil
}

func doughnutPlot(c *Chart) *plot.Plot {
	p := plot.New()
	p.HideAxes()

	d := &doughnut{}
	if len(c.Data.Datasets) > 0 {
		ds := c.Data.Datasets[0]
		colors := ds.BackgroundColor
		if len(colors) == 0 {
			colors = SliceColors(len(ds.Data))
		}
		for i, v := range ds.Data {
			d.values = append(d.values, v)
			d.colors = append(d.colors, parseRGB(colors[i%len(colors)]))
		}
	}
	p.Add(d)

	for i, label := range c.Data.Labels {
		if i >= len(d.colors) {
			break
		}
		p.Legend.Add(label, swatch{color: d.colors[i]})
	}
	if c.Options.Plugins != nil && c.Options.Plugins.Legend != nil {
		p.Legend.Top = c.Options.Plugins.Legend.Position == "top"
	}
	return p
}

// currencyTicker labels the default ticks with a CurrencyTicks formatter.
type currencyTicker struct {
	format CurrencyTicks
}

func (t currencyTicker) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = t.format.Format(ticks[i].Value)
		}
	}
	return ticks
}

// doughnut draws ring slices clockwise from twelve o'clock.
type doughnut struct {
	values []float64
	colors []color.Color
}

const (
	doughnutCutout = 0.5
	arcStep        = math.Pi / 90
)

func (d *doughnut) Plot(c draw.Canvas, _ *plot.Plot) {
	var total float64
	for _, v := range d.values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return
	}

	cx := (c.Min.X + c.Max.X) / 2
	cy := (c.Min.Y + c.Max.Y) / 2
	outer := min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y) / 2 * 0.9
	inner := outer * doughnutCutout

	start := math.Pi / 2
	for i, v := range d.values {
		if v <= 0 {
			continue
		}
		end := start - 2*math.Pi*v/total
		var pts []vg.Point
		for a := start; a > end; a -= arcStep {
			pts = append(pts, polar(cx, cy, outer, a))
		}
		pts = append(pts, polar(cx, cy, outer, end))
		for a := end; a < start; a += arcStep {
			pts = append(pts, polar(cx, cy, inner, a))
		}
		pts = append(pts, polar(cx, cy, inner, start))
		c.FillPolygon(d.colors[i], pts)
		start = end
	}
}

func polar(cx, cy, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: cx + r*vg.Length(math.Cos(angle)),
		Y: cy + r*vg.Length(math.Sin(angle)),
	}
}

type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}

func parseRGB(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "rgb(%d, %d, %d)", &r, &g, &b); err != nil {
		return color.Black
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

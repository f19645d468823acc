package chart

import (
	"fmt"
	"slices"
)

const (
	MonthlyChartID  = "monthlyChart"
	CategoryChartID = "categoryChart"

	MonthlySeriesLabel = "月別支出"
	MonthlyBorderColor = "rgb(75, 192, 192)"
	MonthlyTension     = 0.1
	LegendBottom       = "bottom"
)

// Palette colors doughnut slices; slice i uses Palette[i%len(Palette)].
var Palette = [...]string{
	"rgb(255, 99, 132)",
	"rgb(54, 162, 235)",
	"rgb(255, 206, 86)",
	"rgb(75, 192, 192)",
	"rgb(153, 102, 255)",
	"rgb(255, 159, 64)",
}

// Data holds the series of both charts. Labels and values are paired by index.
type Data struct {
	MonthlyLabels  []string  `json:"monthlyLabels"`
	MonthlyValues  []float64 `json:"monthlyValues"`
	CategoryLabels []string  `json:"categoryLabels"`
	CategoryValues []float64 `json:"categoryValues"`
}

// Validate checks that every label slice matches its value slice.
func (d Data) Validate() error {
	if err := checkLengths("monthly", d.MonthlyLabels, d.MonthlyValues); err != nil {
		return err
	}
	return checkLengths("category", d.CategoryLabels, d.CategoryValues)
}

// Renderer builds chart configurations and attaches them to surfaces.
type Renderer struct {
	ticks CurrencyTicks
}

// NewRenderer returns a renderer whose value axis uses ticks.
func NewRenderer(ticks CurrencyTicks) *Renderer {
	return &Renderer{ticks: ticks}
}

// Ticks returns the renderer's value axis formatter.
func (r *Renderer) Ticks() CurrencyTicks {
	return r.ticks
}

// MonthlyTrend builds the line chart of spending per period.
func (r *Renderer) MonthlyTrend(labels []string, values []float64) (*Chart, error) {
	if err := checkLengths("monthly", labels, values); err != nil {
		return nil, err
	}
	ticks := r.ticks
	return &Chart{
		Type: Line,
		Data: Payload{
			Labels: slices.Clone(labels),
			Datasets: []Dataset{{
				Label:       MonthlySeriesLabel,
				Data:        slices.Clone(values),
				BorderColor: MonthlyBorderColor,
				Tension:     MonthlyTension,
			}},
		},
		Options: Options{
			Responsive: true,
			Scales: map[string]Scale{
				"y": {BeginAtZero: true, Ticks: &Ticks{Currency: &ticks}},
			},
		},
	}, nil
}

// CategoryBreakdown builds the doughnut chart of spending per category.
func (r *Renderer) CategoryBreakdown(labels []string, values []float64) (*Chart, error) {
	if err := checkLengths("category", labels, values); err != nil {
		return nil, err
	}
	return &Chart{
		Type: Doughnut,
		Data: Payload{
			Labels: slices.Clone(labels),
			Datasets: []Dataset{{
				Data:            slices.Clone(values),
				BackgroundColor: SliceColors(len(values)),
			}},
		},
		Options: Options{
			Responsive: true,
			Plugins:    &Plugins{Legend: &Legend{Position: LegendBottom}},
		},
	}, nil
}

// SliceColors returns the palette cycled over n slices.
func SliceColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = Palette[i%len(Palette)]
	}
	return colors
}

// Render attaches the monthly chart to monthly and the category chart to
// category. Inputs and surfaces are all checked before anything is attached.
func (r *Renderer) Render(d Data, monthly, category Surface) error {
	if monthly == nil || category == nil {
		return ErrMissingSurface
	}
	trend, err := r.MonthlyTrend(d.MonthlyLabels, d.MonthlyValues)
	if err != nil {
		return err
	}
	breakdown, err := r.CategoryBreakdown(d.CategoryLabels, d.CategoryValues)
	if err != nil {
		return err
	}
	for _, s := range []Surface{monthly, category} {
		if err := s.Ready(); err != nil {
			return fmt.Errorf("surface %q: %w", s.ID(), err)
		}
	}
	if err := monthly.Attach(trend); err != nil {
		return fmt.Errorf("attach %s to %q: %w", trend.Type, monthly.ID(), err)
	}
	if err := category.Attach(breakdown); err != nil {
		return fmt.Errorf("attach %s to %q: %w", breakdown.Type, category.ID(), err)
	}
	return nil
}

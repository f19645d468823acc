// Package chart builds the two analytics charts (monthly spending trend and
// spending by category) and attaches them to drawing surfaces.
//
// A Chart is a Chart.js compatible configuration: marshalled to JSON it can be
// handed to `new Chart(ctx, config)` in the browser unchanged, except for the
// currency tick contract which the page script turns into a tick callback.
package chart

// Type is a chart kind understood by the charting library.
type Type string

const (
	Line     Type = "line"
	Doughnut Type = "doughnut"
)

// Chart is a complete chart configuration.
type Chart struct {
	Type    Type    `json:"type"`
	Data    Payload `json:"data"`
	Options Options `json:"options"`
}

// Payload holds the labels shared by every dataset and the datasets themselves.
type Payload struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one series of values with its styling.
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor []string  `json:"backgroundColor,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
}

type Options struct {
	Responsive bool             `json:"responsive"`
	Scales     map[string]Scale `json:"scales,omitempty"`
	Plugins    *Plugins         `json:"plugins,omitempty"`
}

type Scale struct {
	BeginAtZero bool   `json:"beginAtZero"`
	Ticks       *Ticks `json:"ticks,omitempty"`
}

// Ticks carries the currency formatting contract for an axis. The browser
// script replaces it with a callback producing the same strings as
// CurrencyTicks.Format.
type Ticks struct {
	Currency *CurrencyTicks `json:"currency,omitempty"`
}

type Plugins struct {
	Legend *Legend `json:"legend,omitempty"`
}

type Legend struct {
	Position string `json:"position"`
}

// Points returns the number of values in the first dataset.
func (c *Chart) Points() int {
	if c == nil || len(c.Data.Datasets) == 0 {
		return 0
	}
	return len(c.Data.Datasets[0].Data)
}

// ValueTicks returns the tick formatter of the value (y) axis, if any.
func (c *Chart) ValueTicks() (CurrencyTicks, bool) {
	if c == nil {
		return CurrencyTicks{}, false
	}
	s, ok := c.Options.Scales["y"]
	if !ok || s.Ticks == nil || s.Ticks.Currency == nil {
		return CurrencyTicks{}, false
	}
	return *s.Ticks.Currency, true
}

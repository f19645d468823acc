package chart

import (
	"encoding/json"
	"fmt"
	"html/template"
	"sync"
)

// Surface is a resolved drawing target a chart can be attached to once.
type Surface interface {
	ID() string
	// Ready reports whether Attach would accept a chart: ErrMissingSurface
	// for a nil handle, ErrSurfaceOccupied once a chart is attached.
	Ready() error
	Attach(c *Chart) error
}

// CanvasSurface is an HTML canvas element. It keeps the attached chart so the
// page can emit the canvas together with its configuration.
type CanvasSurface struct {
	id string

	mu    sync.Mutex
	chart *Chart
}

func NewCanvas(id string) *CanvasSurface {
	return &CanvasSurface{id: id}
}

func (s *CanvasSurface) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *CanvasSurface) Ready() error {
	if s == nil {
		return ErrMissingSurface
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chart != nil {
		return ErrSurfaceOccupied
	}
	return nil
}

func (s *CanvasSurface) Attach(c *Chart) error {
	if s == nil {
		return ErrMissingSurface
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chart != nil {
		return ErrSurfaceOccupied
	}
	s.chart = c
	return nil
}

// Chart returns the attached chart or nil.
func (s *CanvasSurface) Chart() *Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chart
}

// ConfigJSON returns the attached chart as JSON for the page script.
func (s *CanvasSurface) ConfigJSON() (string, error) {
	c := s.Chart()
	if c == nil {
		return "", fmt.Errorf("canvas %q: no chart attached", s.id)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal %s chart: %w", c.Type, err)
	}
	return string(b), nil
}

// HTML returns the canvas element carrying its configuration in a
// data-chart attribute, ready for the page script to pick up.
func (s *CanvasSurface) HTML() (template.HTML, error) {
	cfg, err := s.ConfigJSON()
	if err != nil {
		return "", err
	}
	return template.HTML(fmt.Sprintf(`<canvas id="%s" data-chart="%s"></canvas>`,
		template.HTMLEscapeString(s.id), template.HTMLEscapeString(cfg))), nil
}

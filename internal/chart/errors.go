package chart

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSurface is returned when a chart has no surface to draw on.
	ErrMissingSurface = errors.New("chart: missing drawing surface")
	// ErrSurfaceOccupied is returned when a surface already holds a chart.
	ErrSurfaceOccupied = errors.New("chart: surface already holds a chart")
)

// LengthMismatchError reports a series whose labels and values differ in length.
type LengthMismatchError struct {
	Series string
	Labels int
	Values int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("chart: %s series has %d labels but %d values", e.Series, e.Labels, e.Values)
}

func checkLengths(series string, labels []string, values []float64) error {
	if len(labels) != len(values) {
		return &LengthMismatchError{Series: series, Labels: len(labels), Values: len(values)}
	}
	return nil
}

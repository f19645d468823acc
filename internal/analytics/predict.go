package analytics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"kakeibo/internal/core"
)

// ErrNotEnoughData is returned when there is no month to learn from.
var ErrNotEnoughData = errors.New("analytics: not enough data for a prediction")

// Prediction is next month's expected spending with a 95% band.
type Prediction struct {
	Prediction int64 `json:"prediction"`
	Min        int64 `json:"min_prediction"`
	Max        int64 `json:"max_prediction"`
}

const (
	confidenceZ  = 1.96
	recentMonths = 3
)

// Predict fits a least squares line through the monthly totals (ordered by
// month, indexed from 0) and extrapolates it one month ahead. The band is
// 1.96 standard deviations of the last three months.
func Predict(monthly []core.MonthTotal) (Prediction, error) {
	if len(monthly) == 0 {
		return Prediction{}, ErrNotEnoughData
	}
	xs := make([]float64, len(monthly))
	ys := make([]float64, len(monthly))
	for i, m := range monthly {
		xs[i] = float64(i)
		ys[i] = m.Total.Float()
	}

	var next float64
	if len(monthly) == 1 {
		next = ys[0]
	} else {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		next = alpha + beta*float64(len(monthly))
	}
	next = math.Max(0, next)

	band := 0.0
	if std := sampleStdDev(ys[max(0, len(ys)-recentMonths):]); !math.IsNaN(std) {
		band = std * confidenceZ
	}
	return Prediction{
		Prediction: int64(next),
		Min:        int64(math.Max(0, next-band)),
		Max:        int64(next + band),
	}, nil
}

package analytics

import (
	"errors"

	"kakeibo/internal/core"
)

// Report gathers every analysis shown on the analytics page.
type Report struct {
	Basic      Basic          `json:"basic_stats"`
	Categories []CategoryStat `json:"category_analysis"`
	Monthly    []Bucket       `json:"monthly_stats"`
	Weekdays   []Bucket       `json:"weekday_stats"`
	Growth     []Growth       `json:"growth_rates"`
	Outliers   []Outlier      `json:"outliers"`
	Prediction *Prediction    `json:"prediction,omitempty"`
}

// Empty reports whether the report was built from no expenses.
func (r Report) Empty() bool {
	return r.Basic.Count == 0
}

// Analyze builds a report from the expenses and the month totals ordered by
// month. The prediction is left nil when there is no month to fit.
func Analyze(expenses []core.Expense, monthly []core.MonthTotal) (Report, error) {
	r := Report{
		Basic:      BasicStats(expenses),
		Categories: CategoryStats(expenses),
		Monthly:    MonthlyBuckets(expenses),
		Weekdays:   WeekdayBuckets(expenses),
		Growth:     GrowthRates(monthly),
		Outliers:   Outliers(expenses),
	}
	p, err := Predict(monthly)
	switch {
	case errors.Is(err, ErrNotEnoughData):
	case err != nil:
		return Report{}, err
	default:
		r.Prediction = &p
	}
	return r, nil
}

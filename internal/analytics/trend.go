package analytics

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"kakeibo/internal/core"
)

// Growth is the change of a month's total against the previous month, in
// percent. Rate is nil for the first month and after a zero month.
type Growth struct {
	Month string           `json:"month"`
	Rate  *decimal.Decimal `json:"rate"`
}

// Outlier is an expense more than two standard deviations from the mean.
type Outlier struct {
	ID          int64         `json:"id"`
	Date        string        `json:"date"`
	Category    core.Category `json:"category"`
	Amount      core.Yen      `json:"amount"`
	Description string        `json:"description"`
}

const outlierSigmas = 2

var hundred = decimal.NewFromInt(100)

// GrowthRates returns month-over-month growth for totals ordered by month.
func GrowthRates(monthly []core.MonthTotal) []Growth {
	out := make([]Growth, len(monthly))
	for i, m := range monthly {
		out[i].Month = m.Month
		if i == 0 || monthly[i-1].Total == 0 {
			continue
		}
		prev := decimal.NewFromInt(int64(monthly[i-1].Total))
		rate := decimal.NewFromInt(int64(m.Total)).Sub(prev).Div(prev).Mul(hundred).Round(2)
		out[i].Rate = &rate
	}
	return out
}

// Outliers returns the expenses whose amount lies more than two sample
// standard deviations from the mean, in input order.
func Outliers(expenses []core.Expense) []Outlier {
	xs := amounts(expenses)
	if len(xs) < 2 {
		return nil
	}
	mean, std := stat.MeanStdDev(xs, nil)
	var out []Outlier
	for i, e := range expenses {
		if math.Abs(xs[i]-mean) > outlierSigmas*std {
			out = append(out, Outlier{
				ID:          e.ID,
				Date:        e.Date.String(),
				Category:    e.Category,
				Amount:      e.Amount,
				Description: e.Description,
			})
		}
	}
	return out
}

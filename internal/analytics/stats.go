package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"kakeibo/internal/core"
)

// Basic summarizes every expense.
type Basic struct {
	Total   core.Yen `json:"total_expense"`
	Count   int      `json:"transaction_count"`
	Average float64  `json:"average_expense"`
	StdDev  float64  `json:"std_dev"`
}

// CategoryStat summarizes the expenses of one category. StdDev is nil for a
// single expense.
type CategoryStat struct {
	Category core.Category `json:"category"`
	Count    int           `json:"transaction_count"`
	Total    core.Yen      `json:"total_amount"`
	Average  int64         `json:"average_amount"`
	StdDev   *int64        `json:"std_dev"`
}

// Bucket aggregates the expenses sharing a key (a month or a weekday).
type Bucket struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
	Mean  decimal.Decimal `json:"mean"`
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "月曜日",
	time.Tuesday:   "火曜日",
	time.Wednesday: "水曜日",
	time.Thursday:  "木曜日",
	time.Friday:    "金曜日",
	time.Saturday:  "土曜日",
	time.Sunday:    "日曜日",
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WeekdayName returns the Japanese name of d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

func amounts(expenses []core.Expense) []float64 {
	xs := make([]float64, len(expenses))
	for i, e := range expenses {
		xs[i] = e.Amount.Float()
	}
	return xs
}

// sampleStdDev is the n-1 standard deviation, or NaN below two samples.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	_, std := stat.MeanStdDev(xs, nil)
	return std
}

// BasicStats returns totals over every expense.
func BasicStats(expenses []core.Expense) Basic {
	b := Basic{Count: len(expenses)}
	if b.Count == 0 {
		return b
	}
	for _, e := range expenses {
		b.Total += e.Amount
	}
	b.Average = b.Total.Float() / float64(b.Count)
	if std := sampleStdDev(amounts(expenses)); !math.IsNaN(std) {
		b.StdDev = std
	}
	return b
}

// CategoryStats groups expenses by category, in order of first appearance.
func CategoryStats(expenses []core.Expense) []CategoryStat {
	groups := make(map[core.Category][]core.Expense)
	var order []core.Category
	for _, e := range expenses {
		if _, seen := groups[e.Category]; !seen {
			order = append(order, e.Category)
		}
		groups[e.Category] = append(groups[e.Category], e)
	}

	out := make([]CategoryStat, 0, len(order))
	for _, c := range order {
		group := groups[c]
		s := CategoryStat{Category: c, Count: len(group)}
		for _, e := range group {
			s.Total += e.Amount
		}
		s.Average = int64(s.Total) / int64(s.Count)
		if std := sampleStdDev(amounts(group)); !math.IsNaN(std) {
			v := int64(std)
			s.StdDev = &v
		}
		out = append(out, s)
	}
	return out
}

// MonthlyBuckets aggregates expenses per YYYY-MM, ascending.
func MonthlyBuckets(expenses []core.Expense) []Bucket {
	acc := newBuckets()
	for _, e := range expenses {
		acc.add(e.Date.Period(), e.Amount)
	}
	return acc.sorted()
}

// WeekdayBuckets aggregates expenses per weekday, Monday first. Weekdays
// without expenses are omitted.
func WeekdayBuckets(expenses []core.Expense) []Bucket {
	acc := newBuckets()
	for _, e := range expenses {
		acc.add(WeekdayName(e.Date.Weekday()), e.Amount)
	}
	out := make([]Bucket, 0, len(acc.sums))
	for _, d := range weekdayOrder {
		if b, ok := acc.bucket(weekdayNames[d]); ok {
			out = append(out, b)
		}
	}
	return out
}

// Package analytics derives statistics, trends and a next-month prediction
// from recorded expenses, and shapes storage totals into chart series.
package analytics

import (
	"kakeibo/internal/chart"
	"kakeibo/internal/core"
)

// ChartData pairs month and category totals with their labels, keeping the
// order the totals arrive in.
func ChartData(monthly []core.MonthTotal, categories []core.CategoryTotal) chart.Data {
	d := chart.Data{
		MonthlyLabels:  make([]string, len(monthly)),
		MonthlyValues:  make([]float64, len(monthly)),
		CategoryLabels: make([]string, len(categories)),
		CategoryValues: make([]float64, len(categories)),
	}
	for i, m := range monthly {
		d.MonthlyLabels[i] = m.Month
		d.MonthlyValues[i] = m.Total.Float()
	}
	for i, c := range categories {
		d.CategoryLabels[i] = c.Category.String()
		d.CategoryValues[i] = c.Total.Float()
	}
	return d
}

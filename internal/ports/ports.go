// Package ports declares the storage contracts shared by the backends and the
// services.
package ports

import (
	"context"

	"kakeibo/internal/core"
)

type (
	ExpenseWriter interface {
		// Create stores e and returns its new ID.
		Create(ctx context.Context, e core.Expense) (int64, error)
		// Update replaces the expense with e.ID. Unknown IDs yield core.ErrNotFound.
		Update(ctx context.Context, e core.Expense) error
		Delete(ctx context.Context, id int64) error
	}

	ExpenseReader interface {
		Get(ctx context.Context, id int64) (core.Expense, error)
		// List returns every expense, newest date first.
		List(ctx context.Context) ([]core.Expense, error)
	}

	// SummaryReader provides the aggregates plotted on the analytics page.
	SummaryReader interface {
		// MonthlyTotals returns one total per month with expenses, oldest first.
		MonthlyTotals(ctx context.Context) ([]core.MonthTotal, error)
		// CategoryTotals returns one total per category, largest first.
		CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error)
		// Summary returns List, MonthlyTotals and CategoryTotals read from
		// one consistent state of the store.
		Summary(ctx context.Context) (core.Summary, error)
	}

	Store interface {
		ExpenseWriter
		ExpenseReader
		SummaryReader
		Close() error
	}
)

// Package worker mirrors stored expenses into the spreadsheet export as
// change events arrive.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/metrics"
	"kakeibo/internal/ports"
)

// Exporter is the outbound side of the sync.
type Exporter interface {
	Upsert(ctx context.Context, e core.Expense) error
	Remove(ctx context.Context, id int64) error
	// IDs lists the expenses currently exported.
	IDs(ctx context.Context) ([]int64, error)
}

// SyncWorker applies expense events to the exporter.
type SyncWorker struct {
	reader   ports.ExpenseReader
	exporter Exporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSyncWorker(reader ports.ExpenseReader, exporter Exporter, m *metrics.Metrics, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{reader: reader, exporter: exporter, metrics: m, logger: logger}
}

// HandleEvent exports the current state of the expense named by e. An expense
// that no longer exists is removed from the export whatever the action says,
// so replayed or reordered events converge.
func (w *SyncWorker) HandleEvent(ctx context.Context, e amqp.ExpenseEvent) error {
	err := w.apply(ctx, e)
	w.metrics.EventProcessed(string(e.Action), err)
	return err
}

func (w *SyncWorker) apply(ctx context.Context, e amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		"expense_id", e.ID,
		"action", e.Action)

	if e.Action == amqp.ActionDeleted {
		return w.remove(ctx, e.ID)
	}

	expense, err := w.reader.Get(ctx, e.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Expense gone before export, removing row", "expense_id", e.ID)
		return w.remove(ctx, e.ID)
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", e.ID, err)
	}
	if err := w.exporter.Upsert(ctx, expense); err != nil {
		return fmt.Errorf("export expense %d: %w", e.ID, err)
	}
	return nil
}

func (w *SyncWorker) remove(ctx context.Context, id int64) error {
	if err := w.exporter.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove expense %d from export: %w", id, err)
	}
	return nil
}

// Resync exports every stored expense and removes exported rows whose
// expense no longer exists. It recovers from lost events of any kind and
// returns the number of expenses exported.
func (w *SyncWorker) Resync(ctx context.Context) (int, error) {
	expenses, err := w.reader.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	stored := make(map[int64]struct{}, len(expenses))
	// Oldest first keeps appended rows in chronological order.
	for i := len(expenses) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return len(expenses) - 1 - i, err
		}
		if err := w.exporter.Upsert(ctx, expenses[i]); err != nil {
			return len(expenses) - 1 - i, fmt.Errorf("export expense %d: %w", expenses[i].ID, err)
		}
		stored[expenses[i].ID] = struct{}{}
	}

	exported, err := w.exporter.IDs(ctx)
	if err != nil {
		return len(expenses), fmt.Errorf("list exported expenses: %w", err)
	}
	removed := 0
	for _, id := range exported {
		if _, ok := stored[id]; ok {
			continue
		}
		if err := w.remove(ctx, id); err != nil {
			return len(expenses), err
		}
		removed++
	}
	w.logger.InfoContext(ctx, "Resync completed", "count", len(expenses), "removed", removed)
	return len(expenses), nil
}

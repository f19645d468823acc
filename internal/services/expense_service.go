// Package services coordinates storage, change events and the analytics
// cache behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/ports"
)

// Publisher announces expense changes. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, e amqp.ExpenseEvent) error
	Close() error
}

// Invalidator drops cached views derived from the stored expenses.
type Invalidator interface {
	Invalidate()
}

// ExpenseService stores expenses and announces every change. Publishing is
// best effort: a change is never rolled back because the broker is down.
type ExpenseService struct {
	store     ports.Store
	publisher Publisher
	analytics Invalidator
	metrics   *metrics.Metrics
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewExpenseService wires the service. publisher, analytics and m may be nil.
func NewExpenseService(store ports.Store, publisher Publisher, analytics Invalidator, m *metrics.Metrics, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentExpense)
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		analytics: analytics,
		metrics:   m,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.Create(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ctx, amqp.ActionCreated, id, e)
	return id, nil
}

func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, e); err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	s.changed(ctx, amqp.ActionUpdated, e.ID, e)
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.changed(ctx, amqp.ActionDeleted, id, e)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.Get(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.store.List(ctx)
}

func (s *ExpenseService) changed(ctx context.Context, action amqp.Action, id int64, e core.Expense) {
	s.events.LogExpenseChanged(ctx, operation(action), id, e.Date.String(), e.Category.String(), int64(e.Amount))
	if s.analytics != nil {
		s.analytics.Invalidate()
	}
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping event", "expense_id", id)
		return
	}
	err := s.publisher.Publish(ctx, amqp.NewExpenseEvent(id, action))
	s.metrics.EventPublished(string(action), err)
	if err != nil {
		// The expense is stored; the worker's resync repairs the export.
		s.events.LogError(ctx, "Failed to publish expense event", err, log.OpPublish,
			log.NewFields().WithExpense(id, e.Date.String(), e.Category.String(), int64(e.Amount)))
	}
}

func operation(a amqp.Action) string {
	switch a {
	case amqp.ActionCreated:
		return log.OpCreate
	case amqp.ActionUpdated:
		return log.OpUpdate
	default:
		return log.OpDelete
	}
}

// Close releases the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}

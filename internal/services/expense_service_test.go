package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/ports/portstest"
	"kakeibo/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.ExpenseEvent
	err    error
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, e amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) actions() []amqp.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.Action
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestExpenseService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	inv := &countingInvalidator{}
	svc := NewExpenseService(memory.New(), pub, inv, nil, quietLogger())

	id, err := svc.Create(ctx, portstest.Expense(2024, 3, 1, core.Food, 800, "朝食"))
	require.NoError(t, err)

	e, err := svc.Get(ctx, id)
	require.NoError(t, err)
	e.Amount = 950
	require.NoError(t, svc.Update(ctx, e))

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.Yen(950), got.Amount)

	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted}, pub.actions())
	for _, ev := range pub.events {
		assert.Equal(t, id, ev.ID)
	}
	assert.Equal(t, 3, inv.calls)
}

func TestExpenseService_RejectsInvalidExpense(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(memory.New(), pub, nil, nil, quietLogger())

	_, err := svc.Create(context.Background(), portstest.Expense(2024, 3, 1, core.Food, 0, "無料"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	err = svc.Update(context.Background(), portstest.Expense(2024, 3, 1, "旅行", 100, "x"))
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	assert.Empty(t, pub.actions())
}

func TestExpenseService_UnknownIDs(t *testing.T) {
	svc := NewExpenseService(memory.New(), nil, nil, nil, quietLogger())

	e := portstest.Expense(2024, 3, 1, core.Food, 100, "x")
	e.ID = 42
	assert.ErrorIs(t, svc.Update(context.Background(), e), core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 42), core.ErrNotFound)
}

func TestExpenseService_PublishFailureKeepsExpense(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	store := memory.New()
	svc := NewExpenseService(store, pub, nil, m, quietLogger())

	id, err := svc.Create(ctx, portstest.Expense(2024, 3, 1, core.Transport, 220, "バス"))
	require.NoError(t, err)

	_, err = store.Get(ctx, id)
	assert.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "kakeibo_events_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		svc := NewExpenseService(memory.New(), nil, nil, nil, nil)
		assert.NoError(t, svc.Close())
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewExpenseService(memory.New(), pub, nil, nil, nil)
		require.NoError(t, svc.Close())
		assert.True(t, pub.closed)
	})
}

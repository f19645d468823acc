// Package portstest holds the behaviour every ports.Store backend must share.
package portstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
	"kakeibo/internal/ports"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) ports.Store) {
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, open(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, open(t)) })
	t.Run("UpdateDelete", func(t *testing.T) { testUpdateDelete(t, open(t)) })
	t.Run("Totals", func(t *testing.T) { testTotals(t, open(t)) })
	t.Run("RejectsInvalid", func(t *testing.T) { testRejectsInvalid(t, open(t)) })
}

func Expense(y, m, d int, c core.Category, amount core.Yen, desc string) core.Expense {
	return core.Expense{Date: core.NewDate(y, m, d), Category: c, Amount: amount, Description: desc}
}

func testCreateGet(t *testing.T, s ports.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, Expense(2024, 1, 15, core.Food, 1200, "ランチ"))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "2024-01-15", got.Date.String())
	assert.Equal(t, core.Food, got.Category)
	assert.Equal(t, core.Yen(1200), got.Amount)
	assert.Equal(t, "ランチ", got.Description)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.Get(ctx, id+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testListOrder(t *testing.T, s ports.Store) {
	ctx := context.Background()
	first, _ := s.Create(ctx, Expense(2024, 1, 10, core.Food, 100, "a"))
	_, _ = s.Create(ctx, Expense(2024, 3, 1, core.Food, 100, "b"))
	second, _ := s.Create(ctx, Expense(2024, 1, 10, core.Food, 100, "c"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].Description)
	assert.Equal(t, second, list[1].ID)
	assert.Equal(t, first, list[2].ID)
}

func testUpdateDelete(t *testing.T, s ports.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, Expense(2024, 2, 1, core.Transport, 300, "電車"))
	require.NoError(t, err)

	e := Expense(2024, 2, 2, core.Entertainment, 1800, "映画")
	e.ID = id
	require.NoError(t, s.Update(ctx, e))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.Entertainment, got.Category)
	assert.Equal(t, core.Yen(1800), got.Amount)
	assert.Equal(t, "2024-02-02", got.Date.String())

	missing := e
	missing.ID = id + 100
	assert.ErrorIs(t, s.Update(ctx, missing), core.ErrNotFound)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), core.ErrNotFound)
}

func testTotals(t *testing.T, s ports.Store) {
	ctx := context.Background()
	for _, e := range []core.Expense{
		Expense(2024, 2, 3, core.Food, 1000, "a"),
		Expense(2024, 1, 5, core.Transport, 500, "b"),
		Expense(2024, 1, 20, core.Food, 1500, "c"),
		Expense(2023, 12, 31, core.Housing, 80000, "d"),
		Expense(2024, 2, 9, core.Utilities, 500, "e"),
	} {
		_, err := s.Create(ctx, e)
		require.NoError(t, err)
	}

	monthly, err := s.MonthlyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.MonthTotal{
		{Month: "2023-12", Total: 80000},
		{Month: "2024-01", Total: 2000},
		{Month: "2024-02", Total: 1500},
	}, monthly)

	categories, err := s.CategoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{
		{Category: core.Housing, Total: 80000},
		{Category: core.Food, Total: 2500},
		{Category: core.Transport, Total: 500},
		{Category: core.Utilities, Total: 500},
	}, categories)

	list, err := s.List(ctx)
	require.NoError(t, err)
	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, sum.Expenses)
	assert.Equal(t, monthly, sum.Monthly)
	assert.Equal(t, categories, sum.Categories)
}

func testRejectsInvalid(t *testing.T, s ports.Store) {
	ctx := context.Background()
	_, err := s.Create(ctx, Expense(2024, 1, 1, "雑費", 100, "x"))
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
	_, err = s.Create(ctx, Expense(2024, 1, 1, core.Food, 0, "x"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

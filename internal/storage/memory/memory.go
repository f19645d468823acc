// Package memory is an in-process expense store for tests and local runs.
package memory

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"kakeibo/internal/core"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
	now    func() time.Time
}

func New() *Store {
	return &Store{nextID: 1, items: map[int64]core.Expense{}, now: time.Now}
}

// NewFromFile seeds a store from a file of "date,category,amount,description"
// lines, amounts written without digit grouping. Blank lines and lines starting with '#' are skipped. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		e, err := parseSeed(line)
		if err == nil {
			_, err = s.Create(context.Background(), e)
		}
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", line, err)
		}
	}
	return s, nil
}

func (s *Store) Create(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	e.CreatedAt = s.now()
	s.items[e.ID] = e
	s.nextID++
	return e.ID, nil
}

func (s *Store) Update(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[e.ID]
	if !ok {
		return core.ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	s.items[e.ID] = e
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	s.mu.Unlock()
	return sortExpenses(out), nil
}

func (s *Store) MonthlyTotals(ctx context.Context) ([]core.MonthTotal, error) {
	items, _ := s.List(ctx)
	return monthlyTotals(items), nil
}

func (s *Store) CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error) {
	items, _ := s.List(ctx)
	return categoryTotals(items), nil
}

// Summary derives both totals from a single copy of the expenses.
func (s *Store) Summary(ctx context.Context) (core.Summary, error) {
	items, _ := s.List(ctx)
	return core.Summary{
		Expenses:   items,
		Monthly:    monthlyTotals(items),
		Categories: categoryTotals(items),
	}, nil
}

func sortExpenses(out []core.Expense) []core.Expense {
	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func monthlyTotals(items []core.Expense) []core.MonthTotal {
	sums := map[string]core.Yen{}
	for _, e := range items {
		sums[e.Date.Period()] += e.Amount
	}
	out := make([]core.MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, core.MonthTotal{Month: m, Total: total})
	}
	slices.SortFunc(out, func(a, b core.MonthTotal) int { return strings.Compare(a.Month, b.Month) })
	return out
}

func categoryTotals(items []core.Expense) []core.CategoryTotal {
	sums := map[core.Category]core.Yen{}
	for _, e := range items {
		sums[e.Category] += e.Amount
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for c, total := range sums {
		out = append(out, core.CategoryTotal{Category: c, Total: total})
	}
	slices.SortFunc(out, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return out
}

func (s *Store) Close() error { return nil }

func parseSeed(line string) (core.Expense, error) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return core.Expense{}, fmt.Errorf("want 4 fields, got %d", len(parts))
	}
	date, err := core.ParseDate(parts[0])
	if err != nil {
		return core.Expense{}, err
	}
	category, err := core.ParseCategory(parts[1])
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseYen(parts[2])
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: strings.TrimSpace(parts[3]),
	}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// Package storage persists expenses in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kakeibo/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const expenseColumns = `id, date, category, amount, description, created_at`

func (r *SQLiteRepository) Create(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, category, amount, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Date.String(), string(e.Category), int64(e.Amount), e.Description,
		r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read expense id: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		"date", e.Date.String(),
		"category", e.Category,
		"amount", int64(e.Amount))
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, category = ?, amount = ?, description = ? WHERE id = ?`,
		e.Date.String(), string(e.Category), int64(e.Amount), e.Description, e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	return listExpenses(ctx, r.db)
}

func (r *SQLiteRepository) MonthlyTotals(ctx context.Context) ([]core.MonthTotal, error) {
	return monthlyTotals(ctx, r.db)
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error) {
	return categoryTotals(ctx, r.db)
}

// Summary runs the three reads inside one transaction, so a write committed
// in between cannot make them disagree.
func (r *SQLiteRepository) Summary(ctx context.Context) (core.Summary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Summary{}, fmt.Errorf("begin summary: %w", err)
	}
	defer tx.Rollback()

	var sum core.Summary
	if sum.Expenses, err = listExpenses(ctx, tx); err != nil {
		return core.Summary{}, err
	}
	if sum.Monthly, err = monthlyTotals(ctx, tx); err != nil {
		return core.Summary{}, err
	}
	if sum.Categories, err = categoryTotals(ctx, tx); err != nil {
		return core.Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Summary{}, fmt.Errorf("commit summary: %w", err)
	}
	return sum, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listExpenses(ctx context.Context, q querier) ([]core.Expense, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func monthlyTotals(ctx context.Context, q querier) ([]core.MonthTotal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month, SUM(amount)
		FROM expenses
		GROUP BY month
		ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var m core.MonthTotal
		var total int64
		if err := rows.Scan(&m.Month, &total); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		m.Total = core.Yen(total)
		out = append(out, m)
	}
	return out, rows.Err()
}

func categoryTotals(ctx context.Context, q querier) ([]core.CategoryTotal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		GROUP BY category
		ORDER BY total DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var c core.CategoryTotal
		var category string
		var total int64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		c.Category = core.Category(category)
		c.Total = core.Yen(total)
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                         core.Expense
		date, category, createdAt string
		amount                    int64
	)
	if err := s.Scan(&e.ID, &date, &category, &amount, &e.Description, &createdAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: stored date %q: %w", e.ID, date, err)
	}
	e.Date = d
	e.Category = core.Category(category)
	e.Amount = core.Yen(amount)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

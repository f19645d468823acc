// Package google mirrors expenses into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/core"
)

// Header is the first row written to an empty sheet.
var Header = []any{"ID", "日付", "カテゴリ", "金額", "説明"}

// Exporter keeps one sheet row per expense, keyed by the expense ID in
// column A.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheet string) (*Exporter, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = "Expenses"
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// NewFromCredentialsFile authenticates with a service account key file.
func NewFromCredentialsFile(ctx context.Context, spreadsheetID, sheet, credentialsFile string, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("missing service account credentials file")
	}
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with service account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheet)
}

// Upsert writes e to its row, appending a row when the ID is not present.
func (x *Exporter) Upsert(ctx context.Context, e core.Expense) error {
	ids, err := x.readIDs(ctx)
	if err != nil {
		return err
	}

	values := [][]any{expenseRow(e)}
	if len(ids) == 0 {
		values = [][]any{Header, expenseRow(e)}
	}

	if row := findRow(ids, e.ID); row > 0 {
		rng := fmt.Sprintf("%s!A%d:E%d", x.sheet, row, row)
		_, err := x.svc.Spreadsheets.Values.Update(x.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Expense row updated", "expense_id", e.ID, "range", rng)
		return nil
	}

	rng := fmt.Sprintf("%s!A:E", x.sheet)
	_, err = x.svc.Spreadsheets.Values.Append(x.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Expense row appended", "expense_id", e.ID, "sheet", x.sheet)
	return nil
}

// Remove clears the row of the expense with id. Missing rows are ignored.
func (x *Exporter) Remove(ctx context.Context, id int64) error {
	ids, err := x.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:E%d", x.sheet, row, row)
	if _, err := x.svc.Spreadsheets.Values.Clear(x.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Expense row cleared", "expense_id", id, "range", rng)
	return nil
}

// IDs returns the IDs of every exported expense in sheet order.
func (x *Exporter) IDs(ctx context.Context) ([]int64, error) {
	ids, err := x.readIDs(ctx)
	if err != nil {
		return nil, err
	}
	return parseIDs(ids), nil
}

func (x *Exporter) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", x.sheet)
	resp, err := x.svc.Spreadsheets.Values.Get(x.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return firstColumn(resp.Values), nil
}

package google

import (
	"fmt"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

func expenseRow(e core.Expense) []any {
	return []any{
		strconv.FormatInt(e.ID, 10),
		e.Date.String(),
		e.Category.String(),
		int64(e.Amount),
		e.Description,
	}
}

func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if v == want {
			return i + 1
		}
	}
	return 0
}

// parseIDs returns the expense IDs in the first column, skipping the header
// and cleared rows.
func parseIDs(ids []string) []int64 {
	var out []int64
	for _, v := range ids {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

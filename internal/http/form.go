package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// expenseForm is the submitted expense form, kept as typed strings so an
// invalid submission can be shown back unchanged.
type expenseForm struct {
	Date        string
	Category    string
	Amount      string
	Description string

	Errors map[string]string
}

var fieldMessages = map[error]struct{ field, message string }{
	core.ErrInvalidDate:        {"date", "日付を正しく入力してください"},
	core.ErrInvalidCategory:    {"category", "カテゴリを選択してください"},
	core.ErrInvalidAmount:      {"amount", "金額は1円以上の整数で入力してください"},
	core.ErrEmptyDescription:   {"description", "説明を入力してください"},
	core.ErrDescriptionTooLong: {"description", "説明は200文字以内で入力してください"},
}

func newExpenseForm(now time.Time) expenseForm {
	return expenseForm{Date: now.Format(time.DateOnly), Category: string(core.Food)}
}

func formFromExpense(e core.Expense) expenseForm {
	return expenseForm{
		Date:        e.Date.String(),
		Category:    e.Category.String(),
		Amount:      strconv.FormatInt(int64(e.Amount), 10),
		Description: e.Description,
	}
}

func parseExpenseForm(values url.Values) expenseForm {
	return expenseForm{
		Date:        sanitizeInput(values.Get("date")),
		Category:    sanitizeInput(values.Get("category")),
		Amount:      sanitizeInput(values.Get("amount")),
		Description: sanitizeInput(values.Get("description")),
	}
}

// Expense converts the form, recording a message per invalid field. The
// returned expense is only meaningful when the form has no errors.
func (f *expenseForm) Expense() core.Expense {
	f.Errors = map[string]string{}
	var e core.Expense

	date, err := core.ParseDate(f.Date)
	f.addError(err)
	e.Date = date

	category, err := core.ParseCategory(f.Category)
	f.addError(err)
	e.Category = category

	amount, err := core.ParseYen(f.Amount)
	f.addError(err)
	e.Amount = amount

	e.Description = f.Description
	if f.Description == "" {
		f.addError(core.ErrEmptyDescription)
	} else if len([]rune(f.Description)) > 200 {
		f.addError(core.ErrDescriptionTooLong)
	}
	return e
}

func (f *expenseForm) Valid() bool {
	return len(f.Errors) == 0
}

// addError records err against its field. Unknown errors are kept under
// the empty field name.
func (f *expenseForm) addError(err error) {
	if err == nil {
		return
	}
	for known, m := range fieldMessages {
		if errors.Is(err, known) {
			if _, dup := f.Errors[m.field]; !dup {
				f.Errors[m.field] = m.message
			}
			return
		}
	}
	f.Errors[""] = err.Error()
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

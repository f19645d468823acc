package http

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kakeibo/internal/core"
)

func TestParseExpenseForm(t *testing.T) {
	tests := []struct {
		name       string
		values     url.Values
		wantErrors []string
	}{
		{
			name:   "valid",
			values: url.Values{"date": {"2024-02-10"}, "category": {"食費"}, "amount": {"1,200円"}, "description": {" 弁当 "}},
		},
		{
			name:       "every field invalid",
			values:     url.Values{"date": {"10/02/2024"}, "category": {"旅行"}, "amount": {"-5"}, "description": {""}},
			wantErrors: []string{"date", "category", "amount", "description"},
		},
		{
			name:       "fractional yen",
			values:     url.Values{"date": {"2024-02-10"}, "category": {"食費"}, "amount": {"12.5"}, "description": {"x"}},
			wantErrors: []string{"amount"},
		},
		{
			name: "description too long",
			values: url.Values{"date": {"2024-02-10"}, "category": {"食費"}, "amount": {"1"},
				"description": {strings.Repeat("あ", 201)}},
			wantErrors: []string{"description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := parseExpenseForm(tt.values)
			e := form.Expense()

			if len(tt.wantErrors) == 0 {
				assert.True(t, form.Valid(), "errors: %v", form.Errors)
				assert.NoError(t, e.Validate())
				return
			}
			assert.False(t, form.Valid())
			for _, field := range tt.wantErrors {
				assert.Contains(t, form.Errors, field)
			}
			assert.Len(t, form.Errors, len(tt.wantErrors))
		})
	}
}

func TestParseExpenseFormValues(t *testing.T) {
	form := parseExpenseForm(url.Values{
		"date": {"2024-02-10"}, "category": {" 交通費 "}, "amount": {"¥980"}, "description": {"バス\x00代"},
	})
	e := form.Expense()

	assert.True(t, form.Valid())
	assert.Equal(t, "2024-02-10", e.Date.String())
	assert.Equal(t, core.Transport, e.Category)
	assert.Equal(t, core.Yen(980), e.Amount)
	assert.Equal(t, "バス代", e.Description)
}

func TestFormFromExpenseRoundTrips(t *testing.T) {
	original := core.Expense{Date: core.NewDate(2024, 3, 1), Category: core.Housing, Amount: 85000, Description: "家賃"}
	form := formFromExpense(original)
	assert.Equal(t, "85000", form.Amount)

	e := form.Expense()
	assert.True(t, form.Valid())
	assert.Equal(t, original, e)
}

func TestNewExpenseFormDefaults(t *testing.T) {
	form := newExpenseForm(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-05-06", form.Date)
	assert.Equal(t, "食費", form.Category)
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"  hello  ", "hello"},
		{"a\x01b\x1fc", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeInput(tt.input), "input %q", tt.input)
	}
}

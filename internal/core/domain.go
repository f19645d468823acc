package core

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	Food          Category = "食費"
	Transport     Category = "交通費"
	Housing       Category = "住居費"
	Utilities     Category = "光熱費"
	Entertainment Category = "娯楽費"
	Other         Category = "その他"
)

// Categories lists the selectable expense categories in display order.
var Categories = []Category{Food, Transport, Housing, Utilities, Entertainment, Other}

type (
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		ID          int64
		Date        Date
		Category    Category `validate:"category"`
		Amount      Yen      `validate:"gt=0"`
		Description string   `validate:"max=200"`
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("expense not found")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	return v
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory returns the category matching s after trimming spaces.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// Period returns the calendar month key (YYYY-MM) the date belongs to.
func (d Date) Period() string {
	return d.Format("2006-01")
}

// Validate checks every field of the expense and reports the first failing rule.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		switch verrs[0].Field() {
		case "Category":
			return ErrInvalidCategory
		case "Amount":
			return ErrInvalidAmount
		case "Description":
			return ErrDescriptionTooLong
		}
		return err
	}
	return nil
}

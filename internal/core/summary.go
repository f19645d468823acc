package core

// MonthTotal is the spending total for one calendar month (YYYY-MM).
type MonthTotal struct {
	Month string
	Total Yen
}

// CategoryTotal is the spending total for one category.
type CategoryTotal struct {
	Category Category
	Total    Yen
}

// Summary is every expense together with both totals, read at one point in
// time so the figures agree with each other.
type Summary struct {
	Expenses   []Expense
	Monthly    []MonthTotal
	Categories []CategoryTotal
}

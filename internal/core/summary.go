package core

// CategoryAmount is one row of a per-category breakdown.
type CategoryAmount struct {
	Category string
	Amount   Money
}

// MonthSummary aggregates one owner's transactions for a calendar month.
type MonthSummary struct {
	Year       int
	Month      int
	Income     Money
	Expenses   Money
	Net        int64 // signed cents: income minus expenses
	ByCategory []CategoryAmount
}

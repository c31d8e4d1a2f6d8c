package services

import (
	"context"
	"fmt"
	"sort"

	"fintrack/internal/core"
)

// MonthSummary folds one owner's transactions for a calendar month into
// income/expense totals and a per-category expense breakdown, largest first.
func (l *Ledger) MonthSummary(ctx context.Context, ownerID string, year, month int) (core.MonthSummary, error) {
	if month < 1 || month > 12 {
		return core.MonthSummary{}, core.Invalidf("invalid month %d", month)
	}

	rows, err := l.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list transactions: %w", err)
	}

	summary := core.MonthSummary{Year: year, Month: month}
	byCategory := make(map[string]int64)
	for _, tx := range rows {
		if tx.Date.Year() != year || int(tx.Date.Month()) != month {
			continue
		}
		switch tx.Type {
		case core.Income:
			summary.Income.Cents += tx.Amount.Cents
		case core.Expense:
			summary.Expenses.Cents += tx.Amount.Cents
			byCategory[tx.Category] += tx.Amount.Cents
		}
	}
	summary.Net = summary.Income.Cents - summary.Expenses.Cents

	for cat, cents := range byCategory {
		summary.ByCategory = append(summary.ByCategory, core.CategoryAmount{
			Category: cat,
			Amount:   core.Money{Cents: cents},
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Category < b.Category
	})

	return summary, nil
}

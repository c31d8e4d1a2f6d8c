package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage/memstore"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*services.Ledger, services.Store) {
	t.Helper()
	store := memstore.New()
	ledger := services.NewLedger(store, nil).WithClock(func() time.Time { return testNow })
	return ledger, store
}

func mustCreateAccount(t *testing.T, l *services.Ledger, ownerID string) core.Account {
	t.Helper()
	acct, err := l.CreateAccount(context.Background(), ownerID, services.CreateAccountParams{
		Name: "Checking",
		Kind: core.Checking,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return acct
}

func expenseParams(accountID, desc string, cents int64, date core.Date) services.CreateTransactionParams {
	return services.CreateTransactionParams{
		AccountID:   accountID,
		Type:        core.Expense,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    "misc",
	}
}

func accountBalance(t *testing.T, l *services.Ledger, ownerID, accountID string) int64 {
	t.Helper()
	acct, err := l.GetAccount(context.Background(), ownerID, accountID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	return acct.Balance.Cents
}

func TestCreateTransaction_Single(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, "owner-1", services.CreateTransactionParams{
		AccountID:   acct.ID,
		Type:        core.Income,
		Description: "Salary",
		Amount:      core.Money{Cents: 250000},
		Date:        core.NewDate(2026, 3, 1),
		Category:    "salary",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("len(created) = %d, want 1", len(created))
	}
	tx := created[0]
	if tx.ID == "" {
		t.Error("transaction id not assigned")
	}
	if tx.InstallmentGroupID != "" || tx.RecurrenceGroupID != "" {
		t.Errorf("single transaction carries group ids: %+v", tx)
	}

	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != 250000 {
		t.Errorf("balance = %d, want 250000", got)
	}

	// Round trip preserves every field.
	fetched, err := ledger.GetTransaction(ctx, "owner-1", tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if fetched.Description != "Salary" || fetched.Amount.Cents != 250000 ||
		fetched.Category != "salary" || fetched.Date.String() != "2026-03-01" {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestCreateTransaction_InstallmentFanOut(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	p := expenseParams(acct.ID, "Laptop", 10000, core.NewDate(2026, 1, 31))
	p.IsInstallment = true
	p.Installments = 3

	created, err := ledger.CreateTransaction(ctx, "owner-1", p)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("len(created) = %d, want 3", len(created))
	}

	groupID := created[0].InstallmentGroupID
	if groupID == "" {
		t.Fatal("installment group id not assigned")
	}
	wantDates := []string{"2026-01-31", "2026-02-28", "2026-03-31"}
	for i, tx := range created {
		if tx.InstallmentGroupID != groupID {
			t.Errorf("created[%d] group = %q, want %q", i, tx.InstallmentGroupID, groupID)
		}
		if tx.Amount.Cents != 10000 {
			t.Errorf("created[%d] amount = %d, want 10000", i, tx.Amount.Cents)
		}
		if want := fmt.Sprintf("Laptop (%d/3)", i+1); tx.Description != want {
			t.Errorf("created[%d] description = %q, want %q", i, tx.Description, want)
		}
		if tx.Date.String() != wantDates[i] {
			t.Errorf("created[%d] date = %s, want %s", i, tx.Date, wantDates[i])
		}
	}

	// The whole series hits the balance at once.
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -30000 {
		t.Errorf("balance = %d, want -30000", got)
	}
}

func TestCreateTransaction_RecurringFanOut(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	p := expenseParams(acct.ID, "Gym", 4500, core.NewDate(2026, 3, 10))
	p.IsRecurring = true

	created, err := ledger.CreateTransaction(ctx, "owner-1", p)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if len(created) != core.RecurrenceHorizon {
		t.Fatalf("len(created) = %d, want %d", len(created), core.RecurrenceHorizon)
	}
	for i, tx := range created {
		if tx.RecurrenceGroupID == "" {
			t.Errorf("created[%d] missing recurrence group id", i)
		}
		if tx.Amount.Cents != 4500 {
			t.Errorf("created[%d] amount = %d, want full 4500", i, tx.Amount.Cents)
		}
		if tx.Description != "Gym" {
			t.Errorf("created[%d] description = %q, want unannotated", i, tx.Description)
		}
	}

	// Only the first occurrence has arrived; the future five don't count yet.
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -4500 {
		t.Errorf("balance = %d, want -4500", got)
	}
}

func TestCreateTransaction_RecurringCountsFirstOccurrenceEarlyInDay(t *testing.T) {
	// The clock sits before noon UTC on the series' own start date; the first
	// occurrence is due that day and must count regardless of time of day.
	store := memstore.New()
	ledger := services.NewLedger(store, nil).WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	})
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	p := expenseParams(acct.ID, "Gym", 4500, core.NewDate(2026, 3, 10))
	p.IsRecurring = true
	if _, err := ledger.CreateTransaction(ctx, "owner-1", p); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -4500 {
		t.Errorf("balance = %d, want -4500 (first occurrence counts on its own day)", got)
	}
}

func TestCreateTransaction_RejectsOverlongAnnotatedDescription(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	// 198 characters passes on its own but overflows the cap once the
	// widest "(10/10)" suffix is appended.
	base := strings.Repeat("x", 198)
	p := expenseParams(acct.ID, base, 10000, core.NewDate(2026, 3, 10))
	p.IsInstallment = true
	p.Installments = 10

	if _, err := ledger.CreateTransaction(ctx, "owner-1", p); !core.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}

	// The same description is fine as a single transaction.
	if _, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, base, 10000, core.NewDate(2026, 3, 10))); err != nil {
		t.Errorf("single transaction error = %v, want nil", err)
	}
}

func TestCreateTransaction_Rejections(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*services.CreateTransactionParams)
	}{
		{"both series flags", func(p *services.CreateTransactionParams) {
			p.IsInstallment = true
			p.Installments = 3
			p.IsRecurring = true
		}},
		{"installments below two", func(p *services.CreateTransactionParams) {
			p.IsInstallment = true
			p.Installments = 1
		}},
		{"zero amount", func(p *services.CreateTransactionParams) {
			p.Amount = core.Money{}
		}},
		{"negative amount", func(p *services.CreateTransactionParams) {
			p.Amount = core.Money{Cents: -100}
		}},
		{"empty description", func(p *services.CreateTransactionParams) {
			p.Description = "   "
		}},
		{"empty category", func(p *services.CreateTransactionParams) {
			p.Category = ""
		}},
		{"zero date", func(p *services.CreateTransactionParams) {
			p.Date = core.Date{}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := expenseParams(acct.ID, "x", 500, core.NewDate(2026, 3, 10))
			tt.mutate(&p)
			_, err := ledger.CreateTransaction(ctx, "owner-1", p)
			if !core.IsValidation(err) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}

	// Nothing leaked into the account from the rejected creates.
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestUpdateTransaction_MoveBetweenAccounts(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	src := mustCreateAccount(t, ledger, "owner-1")
	dst, err := ledger.CreateAccount(ctx, "owner-1", services.CreateAccountParams{
		Name: "Savings",
		Kind: core.Savings,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	created, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(src.ID, "Dinner", 6000, core.NewDate(2026, 3, 5)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	_, err = ledger.UpdateTransaction(ctx, "owner-1", created[0].ID, services.UpdateTransactionParams{
		AccountID:   dst.ID,
		Type:        core.Expense,
		Description: "Dinner out",
		Amount:      core.Money{Cents: 6500},
		Date:        core.NewDate(2026, 3, 6),
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	// Both sides are rebalanced in the same transaction.
	if got := accountBalance(t, ledger, "owner-1", src.ID); got != 0 {
		t.Errorf("source balance = %d, want 0", got)
	}
	if got := accountBalance(t, ledger, "owner-1", dst.ID); got != -6500 {
		t.Errorf("destination balance = %d, want -6500", got)
	}
}

func TestUpdateTransaction_PreservesGroupMembership(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	p := expenseParams(acct.ID, "Laptop", 10000, core.NewDate(2026, 3, 1))
	p.IsInstallment = true
	p.Installments = 3
	created, err := ledger.CreateTransaction(ctx, "owner-1", p)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	updated, err := ledger.UpdateTransaction(ctx, "owner-1", created[1].ID, services.UpdateTransactionParams{
		AccountID:   acct.ID,
		Type:        core.Expense,
		Description: "Laptop (edited)",
		Amount:      core.Money{Cents: 9000},
		Date:        created[1].Date,
		Category:    "electronics",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.InstallmentGroupID != created[1].InstallmentGroupID {
		t.Errorf("group id changed: %q -> %q", created[1].InstallmentGroupID, updated.InstallmentGroupID)
	}

	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -29000 {
		t.Errorf("balance = %d, want -29000", got)
	}
}

func TestDeleteTransaction_SingleAndGroup(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	single, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, "Coffee", 450, core.NewDate(2026, 3, 1)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	p := expenseParams(acct.ID, "Laptop", 10000, core.NewDate(2026, 3, 1))
	p.IsInstallment = true
	p.Installments = 3
	series, err := ledger.CreateTransaction(ctx, "owner-1", p)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	deleted, err := ledger.DeleteTransaction(ctx, "owner-1", single[0].ID)
	if err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// Deleting any member takes out the whole series.
	deleted, err = ledger.DeleteTransaction(ctx, "owner-1", series[2].ID)
	if err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}

	remaining, err := ledger.ListTransactions(ctx, "owner-1", 0, 0)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("len(remaining) = %d, want 0", len(remaining))
	}
}

// The worked sequence: empty account, 3x100 installment purchase, delete the
// second installment, end where we started.
func TestInstallmentLifecycleRestoresBalance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != 0 {
		t.Fatalf("initial balance = %d, want 0", got)
	}

	p := expenseParams(acct.ID, "Phone", 10000, core.NewDate(2026, 3, 15))
	p.IsInstallment = true
	p.Installments = 3
	series, err := ledger.CreateTransaction(ctx, "owner-1", p)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -30000 {
		t.Fatalf("balance after purchase = %d, want -30000", got)
	}

	if _, err := ledger.DeleteTransaction(ctx, "owner-1", series[1].ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != 0 {
		t.Errorf("balance after delete = %d, want 0", got)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, "Dinner", 6000, core.NewDate(2026, 3, 5)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if _, err := ledger.GetTransaction(ctx, "owner-2", created[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner GetTransaction error = %v, want ErrNotFound", err)
	}
	if _, err := ledger.GetAccount(ctx, "owner-2", acct.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner GetAccount error = %v, want ErrNotFound", err)
	}
	if _, err := ledger.DeleteTransaction(ctx, "owner-2", created[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner DeleteTransaction error = %v, want ErrNotFound", err)
	}
	if _, err := ledger.CreateTransaction(ctx, "owner-2", expenseParams(acct.ID, "Sneaky", 100, core.NewDate(2026, 3, 5))); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner CreateTransaction error = %v, want ErrNotFound", err)
	}

	rows, err := ledger.ListTransactions(ctx, "owner-2", 0, 0)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("owner-2 sees %d transactions, want 0", len(rows))
	}
}

func TestRecalculateBalance_Idempotent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	if _, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, "Dinner", 6000, core.NewDate(2026, 3, 5))); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	first, err := ledger.RecalculateBalance(ctx, "owner-1", acct.ID)
	if err != nil {
		t.Fatalf("RecalculateBalance() error = %v", err)
	}
	second, err := ledger.RecalculateBalance(ctx, "owner-1", acct.ID)
	if err != nil {
		t.Fatalf("RecalculateBalance() error = %v", err)
	}
	if first.Cents != second.Cents || first.Cents != -6000 {
		t.Errorf("recalculations = %d, %d, want both -6000", first.Cents, second.Cents)
	}
}

func TestRecalculateBalance_RepairsDrift(t *testing.T) {
	ledger, store := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	if _, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, "Dinner", 6000, core.NewDate(2026, 3, 5))); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	// Corrupt the stored balance behind the service's back.
	if err := store.SetAccountBalance(ctx, acct.ID, 999999); err != nil {
		t.Fatalf("SetAccountBalance() error = %v", err)
	}

	balance, err := ledger.RecalculateBalance(ctx, "owner-1", acct.ID)
	if err != nil {
		t.Fatalf("RecalculateBalance() error = %v", err)
	}
	if balance.Cents != -6000 {
		t.Errorf("balance = %d, want -6000", balance.Cents)
	}
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -6000 {
		t.Errorf("stored balance = %d, want -6000", got)
	}
}

// Summaries are calendar views: a month shows every occurrence scheduled in
// it, including recurring ones not yet due, even though the balance excludes
// those until their date arrives.
func TestMonthSummary_IncludesScheduledRecurringOccurrences(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	p := expenseParams(acct.ID, "Gym", 4500, core.NewDate(2026, 3, 10))
	p.Category = "fitness"
	p.IsRecurring = true
	if _, err := ledger.CreateTransaction(ctx, "owner-1", p); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	// April's occurrence is in the future relative to the clock (2026-03-15)
	// and excluded from the balance, but April's summary still shows it.
	sum, err := ledger.MonthSummary(ctx, "owner-1", 2026, 4)
	if err != nil {
		t.Fatalf("MonthSummary() error = %v", err)
	}
	if sum.Expenses.Cents != 4500 {
		t.Errorf("April expenses = %d, want 4500", sum.Expenses.Cents)
	}
	if got := accountBalance(t, ledger, "owner-1", acct.ID); got != -4500 {
		t.Errorf("balance = %d, want -4500 (only March is due)", got)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	ledger, _ := newTestLedger(t)
	acct := mustCreateAccount(t, ledger, "owner-1")
	ctx := context.Background()

	created, err := ledger.CreateTransaction(ctx, "owner-1", expenseParams(acct.ID, "Dinner", 6000, core.NewDate(2026, 3, 5)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if err := ledger.DeleteAccount(ctx, "owner-1", acct.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if _, err := ledger.GetTransaction(ctx, "owner-1", created[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction survived account delete: error = %v", err)
	}
}

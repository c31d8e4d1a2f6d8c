package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestDateNormalizesToNoonUTC(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	// 2025-03-01 01:00 UTC+13 is still Feb 28 in UTC.
	d := DateOf(time.Date(2025, 3, 1, 1, 0, 0, 0, loc))
	if d.String() != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", d)
	}
	if d.Hour() != 12 || d.Location() != time.UTC {
		t.Fatalf("expected noon UTC, got %v", d.Time)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		AccountID:   "acc",
		Type:        Expense,
		Description: "groceries",
		Amount:      Money{Cents: 1250},
		Date:        NewDate(2025, 6, 15),
		Category:    "food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"both groups", func(tx *Transaction) {
			tx.InstallmentGroupID = "a"
			tx.RecurrenceGroupID = "b"
		}, ErrGroupExclusive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mut(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Main", Kind: Checking}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "", Kind: Checking}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name error")
	}
	if err := (Account{Name: "x", Kind: "offshore"}).Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected invalid kind error")
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{Name: "Vacation", Target: Money{Cents: 100000}, Current: Money{Cents: 500}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	over := good
	over.Current = Money{Cents: 100001}
	if err := over.Validate(); err == nil {
		t.Fatalf("expected error for current > target")
	}
}

func TestSignedAmount(t *testing.T) {
	if got := Income.Signed(Money{Cents: 500}); got != 500 {
		t.Fatalf("income: expected 500, got %d", got)
	}
	if got := Expense.Signed(Money{Cents: 500}); got != -500 {
		t.Fatalf("expense: expected -500, got %d", got)
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(Invalid(ErrInvalidAmount)) {
		t.Fatalf("expected validation error")
	}
	if IsValidation(ErrNotFound) {
		t.Fatalf("plain sentinel should not be a validation error")
	}
}

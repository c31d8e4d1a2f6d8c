package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Checking   AccountKind = "checking"
	Savings    AccountKind = "savings"
	Credit     AccountKind = "credit"
	Investment AccountKind = "investment"
)

// RecurrenceHorizon is the number of monthly occurrences materialized for a
// recurring series. Extending a series past the horizon requires a separate
// re-materialization step.
const RecurrenceHorizon = 6

type (
	TransactionType string
	AccountKind     string

	Account struct {
		ID          string
		OwnerID     string
		Name        string
		Institution string
		Kind        AccountKind
		// Balance is derived from the account's transactions and is only
		// ever written by the balance recalculator.
		Balance   Money
		CreatedAt time.Time
	}

	Transaction struct {
		ID          string
		OwnerID     string
		AccountID   string
		Type        TransactionType
		Description string
		Amount      Money // positive; sign is implied by Type
		Date        Date
		Category    string
		// At most one of the two group ids is set.
		InstallmentGroupID string
		RecurrenceGroupID  string
		CreatedAt          time.Time
	}

	Goal struct {
		ID          string
		OwnerID     string
		Name        string
		Description string
		Target      Money
		Current     Money
		Deadline    Date
		CreatedAt   time.Time
	}
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidKind      = errors.New("invalid account kind")
	ErrGroupExclusive   = errors.New("installment and recurrence groups are mutually exclusive")
)

// ValidationError marks an error as caller input the request should reject.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError.
func Invalid(err error) error {
	return &ValidationError{Err: err}
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// Signed returns amount with the sign implied by the type.
func (t TransactionType) Signed(amount Money) int64 {
	if t == Expense {
		return -amount.Cents
	}
	return amount.Cents
}

func (k AccountKind) Validate() error {
	switch k {
	case Checking, Savings, Credit, Investment:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	if err := a.Kind.Validate(); err != nil {
		return err
	}
	return nil
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if tx.InstallmentGroupID != "" && tx.RecurrenceGroupID != "" {
		return ErrGroupExclusive
	}
	if tx.AccountID == "" {
		return errors.New("missing account id")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 || g.Current.Cents > g.Target.Cents {
		return errors.New("current amount out of range")
	}
	if !g.Deadline.IsZero() {
		if err := g.Deadline.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Date is a calendar date pinned to noon UTC so the day never shifts when the
// value crosses timezones.
type Date struct {
	time.Time
}

// NewDate builds a Date at the canonical time-of-day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

// DateOf normalizes an arbitrary instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

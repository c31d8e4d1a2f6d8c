// Package services orchestrates ledger mutations over a Store. Every write
// path finishes by recomputing the affected account's balance from its full
// transaction set, so the balance is always consistent with the rows that
// actually committed.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type Ledger struct {
	store Store
	bus   ReconcilePublisher // optional; nil disables async reconciliation
	now   func() time.Time
}

func NewLedger(store Store, bus ReconcilePublisher) *Ledger {
	return &Ledger{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "today".
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// CreateTransactionParams carries the payload for transaction creation.
// For installment series Amount is the caller-supplied per-installment
// amount, already divided.
type CreateTransactionParams struct {
	AccountID   string
	Type        core.TransactionType
	Description string
	Amount      core.Money
	Date        core.Date
	Category    string

	IsInstallment      bool
	Installments       int
	InstallmentGroupID string

	IsRecurring       bool
	RecurrenceGroupID string
}

// CreateTransaction persists one transaction, or the full member set for an
// installment or recurring series, then recalculates the account balance
// inside the same store transaction. Returns every created row.
func (l *Ledger) CreateTransaction(ctx context.Context, ownerID string, p CreateTransactionParams) ([]core.Transaction, error) {
	if p.IsInstallment && p.IsRecurring {
		return nil, core.Invalid(core.ErrGroupExclusive)
	}
	if p.IsInstallment && p.Installments < 2 {
		return nil, core.Invalidf("installments must be at least 2, got %d", p.Installments)
	}
	if p.IsInstallment {
		// The stored description carries the "(i/n)" suffix, so the cap
		// applies to the widest annotated form, not the base text.
		widest := core.InstallmentDescription(p.Description, p.Installments, p.Installments)
		if len(widest) > 200 {
			return nil, core.Invalidf("description too long once annotated (max 200 characters)")
		}
	}

	proto := core.Transaction{
		OwnerID:     ownerID,
		AccountID:   p.AccountID,
		Type:        p.Type,
		Description: p.Description,
		Amount:      p.Amount,
		Date:        p.Date,
		Category:    p.Category,
	}
	if err := proto.Validate(); err != nil {
		return nil, core.Invalid(err)
	}

	var created []core.Transaction
	err := l.store.InTx(ctx, func(s Store) error {
		acct, err := s.GetAccount(ctx, ownerID, p.AccountID)
		if err != nil {
			return fmt.Errorf("resolve account %s: %w", p.AccountID, err)
		}

		rows := l.expandSeries(proto, p)
		for _, tx := range rows {
			if err := s.InsertTransaction(ctx, tx); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
		created = rows

		if _, err := l.recalculate(ctx, s, acct.ID, l.now()); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transactions created",
		"owner_id", ownerID,
		"account_id", p.AccountID,
		"count", len(created),
		"installment", p.IsInstallment,
		"recurring", p.IsRecurring)

	l.publishReconcile(ctx, ownerID, p.AccountID)
	return created, nil
}

// expandSeries materializes the rows a create produces: one for a plain
// transaction, n for an installment purchase, RecurrenceHorizon for a
// recurring series.
func (l *Ledger) expandSeries(proto core.Transaction, p CreateTransactionParams) []core.Transaction {
	createdAt := l.now().UTC()

	switch {
	case p.IsInstallment:
		groupID := p.InstallmentGroupID
		if groupID == "" {
			groupID = uuid.NewString()
		}
		rows := make([]core.Transaction, 0, p.Installments)
		for i := 0; i < p.Installments; i++ {
			tx := proto
			tx.ID = uuid.NewString()
			tx.InstallmentGroupID = groupID
			tx.Date = core.AddMonths(proto.Date, i)
			tx.Description = core.InstallmentDescription(proto.Description, i+1, p.Installments)
			tx.CreatedAt = createdAt
			rows = append(rows, tx)
		}
		return rows

	case p.IsRecurring:
		groupID := p.RecurrenceGroupID
		if groupID == "" {
			groupID = uuid.NewString()
		}
		dates := core.MonthlySchedule(proto.Date, core.RecurrenceHorizon)
		rows := make([]core.Transaction, 0, len(dates))
		for _, d := range dates {
			tx := proto
			tx.ID = uuid.NewString()
			tx.RecurrenceGroupID = groupID
			tx.Date = d
			tx.CreatedAt = createdAt
			rows = append(rows, tx)
		}
		return rows

	default:
		tx := proto
		tx.ID = uuid.NewString()
		tx.CreatedAt = createdAt
		return []core.Transaction{tx}
	}
}

// UpdateTransactionParams carries the full replacement field set for an edit.
type UpdateTransactionParams struct {
	AccountID   string
	Type        core.TransactionType
	Description string
	Amount      core.Money
	Date        core.Date
	Category    string
}

// UpdateTransaction replaces the editable fields of one transaction. Group
// membership is untouched. The target account's balance is recalculated, and
// the original account's too when the edit moved the transaction. No reversal
// math is needed: recalculation re-derives both balances from scratch.
func (l *Ledger) UpdateTransaction(ctx context.Context, ownerID, id string, p UpdateTransactionParams) (core.Transaction, error) {
	var updated core.Transaction
	var prevAccountID string

	err := l.store.InTx(ctx, func(s Store) error {
		orig, err := s.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("resolve transaction %s: %w", id, err)
		}

		target, err := s.GetAccount(ctx, ownerID, p.AccountID)
		if err != nil {
			return fmt.Errorf("resolve target account %s: %w", p.AccountID, err)
		}

		next := orig
		next.AccountID = target.ID
		next.Type = p.Type
		next.Description = p.Description
		next.Amount = p.Amount
		next.Date = p.Date
		next.Category = p.Category
		if err := next.Validate(); err != nil {
			return core.Invalid(err)
		}

		if err := s.UpdateTransaction(ctx, next); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = next

		asOf := l.now()
		if _, err := l.recalculate(ctx, s, target.ID, asOf); err != nil {
			return err
		}
		if orig.AccountID != target.ID {
			prevAccountID = orig.AccountID
			if _, err := l.recalculate(ctx, s, orig.AccountID, asOf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"owner_id", ownerID,
		"transaction_id", id,
		"account_id", updated.AccountID,
		"moved_from", prevAccountID)

	l.publishReconcile(ctx, ownerID, updated.AccountID)
	if prevAccountID != "" {
		l.publishReconcile(ctx, ownerID, prevAccountID)
	}
	return updated, nil
}

// DeleteTransaction removes a transaction. If it belongs to an installment or
// recurring group the whole group is deleted in one batch. Returns the number
// of rows removed.
func (l *Ledger) DeleteTransaction(ctx context.Context, ownerID, id string) (int, error) {
	var deleted int
	var accountID string

	err := l.store.InTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("resolve transaction %s: %w", id, err)
		}
		if _, err := s.GetAccount(ctx, ownerID, tx.AccountID); err != nil {
			return fmt.Errorf("resolve account %s: %w", tx.AccountID, err)
		}
		accountID = tx.AccountID

		targets := []core.Transaction{tx}
		groupID := tx.InstallmentGroupID
		if groupID == "" {
			groupID = tx.RecurrenceGroupID
		}
		if groupID != "" {
			targets, err = s.ListGroupMembers(ctx, ownerID, groupID)
			if err != nil {
				return fmt.Errorf("list group %s: %w", groupID, err)
			}
		}

		ids := make([]string, len(targets))
		for i, t := range targets {
			ids[i] = t.ID
		}
		deleted, err = s.DeleteTransactions(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}

		if _, err := l.recalculate(ctx, s, accountID, l.now()); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Transactions deleted",
		"owner_id", ownerID,
		"transaction_id", id,
		"deleted", deleted,
		"account_id", accountID)

	l.publishReconcile(ctx, ownerID, accountID)
	return deleted, nil
}

// ListTransactions returns the owner's transactions, optionally restricted to
// one calendar month (year/month both zero means no filter).
func (l *Ledger) ListTransactions(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error) {
	rows, err := l.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if year == 0 && month == 0 {
		return rows, nil
	}
	filtered := rows[:0]
	for _, tx := range rows {
		if tx.Date.Year() == year && int(tx.Date.Month()) == month {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// GetTransaction returns one transaction under the owner's scope.
func (l *Ledger) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return l.store.GetTransaction(ctx, ownerID, id)
}

func (l *Ledger) publishReconcile(ctx context.Context, ownerID, accountID string) {
	if l.bus == nil {
		return
	}
	if err := l.bus.PublishReconcile(ctx, ownerID, accountID); err != nil {
		// The mutation already committed with a fresh balance; the message is
		// a belt-and-braces re-check, so a publish failure is not fatal.
		slog.ErrorContext(ctx, "Failed to publish reconcile message",
			"owner_id", ownerID,
			"account_id", accountID,
			"error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// recalculate derives an account's balance from its full transaction set and
// writes it. It is the only code path allowed to set balance.
//
// Recurring-series rows dated after asOf are excluded: a recurring series
// materializes its whole horizon up front, but an occurrence only hits the
// balance once its date arrives. Installment rows count immediately
// regardless of date.
func (l *Ledger) recalculate(ctx context.Context, s Store, accountID string, asOf time.Time) (int64, error) {
	rows, err := s.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("list account transactions: %w", err)
	}

	// Compare calendar dates, not instants: an occurrence counts for the
	// whole of its day, no matter the time of day the recalculation runs.
	cutoff := core.DateOf(asOf)

	var total int64
	for _, tx := range rows {
		if tx.RecurrenceGroupID != "" && tx.Date.After(cutoff.Time) {
			continue
		}
		total += tx.Type.Signed(tx.Amount)
	}

	if err := s.SetAccountBalance(ctx, accountID, total); err != nil {
		return 0, fmt.Errorf("set account balance: %w", err)
	}
	return total, nil
}

// RecalculateBalance re-derives and persists the balance for one account.
// It is idempotent and safe to retry; the reconcile worker calls it both for
// queued messages and during periodic sweeps.
func (l *Ledger) RecalculateBalance(ctx context.Context, ownerID, accountID string) (core.Money, error) {
	var balance int64
	err := l.store.InTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, ownerID, accountID); err != nil {
			return fmt.Errorf("resolve account %s: %w", accountID, err)
		}
		var err error
		balance, err = l.recalculate(ctx, s, accountID, l.now())
		return err
	})
	if err != nil {
		return core.Money{}, err
	}

	slog.DebugContext(ctx, "Balance recalculated",
		"owner_id", ownerID,
		"account_id", accountID,
		"balance_cents", balance)
	return core.Money{Cents: balance}, nil
}

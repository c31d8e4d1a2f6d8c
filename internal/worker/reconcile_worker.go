// Package worker re-verifies derived account balances in the background,
// both for queued reconcile messages and as a periodic sweep.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

type ReconcileWorker struct {
	ledger *services.Ledger
	store  services.Store
}

func NewReconcileWorker(ledger *services.Ledger, store services.Store) *ReconcileWorker {
	return &ReconcileWorker{
		ledger: ledger,
		store:  store,
	}
}

// HandleMessage re-runs the balance recalculation for one account. Accounts
// deleted since the message was queued are dropped, not retried.
func (w *ReconcileWorker) HandleMessage(ctx context.Context, msg *amqp.ReconcileMessage) error {
	balance, err := w.ledger.RecalculateBalance(ctx, msg.OwnerID, msg.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Reconcile target no longer exists, dropping message",
				"owner_id", msg.OwnerID,
				"account_id", msg.AccountID)
			return nil
		}
		return fmt.Errorf("reconcile account %s: %w", msg.AccountID, err)
	}

	slog.DebugContext(ctx, "Account reconciled",
		"owner_id", msg.OwnerID,
		"account_id", msg.AccountID,
		"balance_cents", balance.Cents)
	return nil
}

// SweepAll recomputes every account's balance and reports how many were
// drifted (stored balance differed from the derived one). Per-account
// failures are logged and skipped so one bad account doesn't stall the sweep.
func (w *ReconcileWorker) SweepAll(ctx context.Context) (checked, repaired int, err error) {
	accounts, err := w.store.ListAllAccounts(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list accounts: %w", err)
	}

	for _, acct := range accounts {
		balance, err := w.ledger.RecalculateBalance(ctx, acct.OwnerID, acct.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile account during sweep",
				"owner_id", acct.OwnerID,
				"account_id", acct.ID,
				"error", err)
			continue
		}
		checked++
		if balance.Cents != acct.Balance.Cents {
			repaired++
			slog.WarnContext(ctx, "Repaired drifted account balance",
				"owner_id", acct.OwnerID,
				"account_id", acct.ID,
				"stored_cents", acct.Balance.Cents,
				"derived_cents", balance.Cents)
		}
	}

	slog.InfoContext(ctx, "Balance sweep complete",
		"accounts_checked", checked,
		"balances_repaired", repaired)
	return checked, repaired, nil
}

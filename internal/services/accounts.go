package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// CreateAccountParams carries the payload for account creation.
type CreateAccountParams struct {
	Name        string
	Institution string
	Kind        core.AccountKind
}

func (l *Ledger) CreateAccount(ctx context.Context, ownerID string, p CreateAccountParams) (core.Account, error) {
	acct := core.Account{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        p.Name,
		Institution: p.Institution,
		Kind:        p.Kind,
		CreatedAt:   l.now().UTC(),
	}
	if err := acct.Validate(); err != nil {
		return core.Account{}, core.Invalid(err)
	}
	if err := l.store.InsertAccount(ctx, acct); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	slog.InfoContext(ctx, "Account created",
		"owner_id", ownerID,
		"account_id", acct.ID,
		"kind", acct.Kind)
	return acct, nil
}

func (l *Ledger) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	return l.store.GetAccount(ctx, ownerID, id)
}

func (l *Ledger) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return l.store.ListAccounts(ctx, ownerID)
}

// UpdateAccount edits name, institution and kind. Balance is not editable;
// it only ever comes out of the recalculator.
func (l *Ledger) UpdateAccount(ctx context.Context, ownerID, id string, p CreateAccountParams) (core.Account, error) {
	var updated core.Account
	err := l.store.InTx(ctx, func(s Store) error {
		acct, err := s.GetAccount(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("resolve account %s: %w", id, err)
		}
		acct.Name = p.Name
		acct.Institution = p.Institution
		acct.Kind = p.Kind
		if err := acct.Validate(); err != nil {
			return core.Invalid(err)
		}
		if err := s.UpdateAccount(ctx, acct); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		updated = acct
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes the account and, at the store level, every
// transaction referencing it.
func (l *Ledger) DeleteAccount(ctx context.Context, ownerID, id string) error {
	err := l.store.InTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, ownerID, id); err != nil {
			return fmt.Errorf("resolve account %s: %w", id, err)
		}
		return s.DeleteAccount(ctx, ownerID, id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted", "owner_id", ownerID, "account_id", id)
	return nil
}

package services

import (
	"context"

	"fintrack/internal/core"
)

// Store is the persistence surface the ledger service runs against. All
// lookups are scoped by owner id; a row that exists under a different owner
// is reported as core.ErrNotFound, never returned.
type Store interface {
	// InTx runs fn against a transactional view of the store. Writes made by
	// fn become visible only if it returns nil; any error aborts the whole
	// batch. Implementations must serialize concurrent InTx calls touching
	// the same account so balance recalculations never overwrite each other
	// with stale sums.
	InTx(ctx context.Context, fn func(Store) error) error

	InsertAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, ownerID, id string) (core.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
	ListAllAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	// DeleteAccount removes the account and cascades to its transactions.
	DeleteAccount(ctx context.Context, ownerID, id string) error
	// SetAccountBalance is reserved for the balance recalculator.
	SetAccountBalance(ctx context.Context, accountID string, cents int64) error

	InsertTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	ListAccountTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
	ListGroupMembers(ctx context.Context, ownerID, groupID string) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransactions(ctx context.Context, ids []string) (int, error)

	InsertGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, ownerID, id string) (core.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, ownerID, id string) error
}

// ReconcilePublisher emits an async request to re-verify an account balance.
type ReconcilePublisher interface {
	PublishReconcile(ctx context.Context, ownerID, accountID string) error
}

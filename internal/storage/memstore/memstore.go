// Package memstore is an in-memory implementation of the service store. It
// backs the memory data backend and the service/API tests. A single mutex
// serializes transactions, and writes inside InTx are staged on a copy of the
// state, so a failed batch leaves nothing behind.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	accounts     map[string]core.Account
	transactions map[string]core.Transaction
	goals        map[string]core.Goal
}

func newState() *state {
	return &state{
		accounts:     make(map[string]core.Account),
		transactions: make(map[string]core.Transaction),
		goals:        make(map[string]core.Goal),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.goals {
		c.goals[k] = v
	}
	return c
}

func New() *Store {
	return &Store{st: newState()}
}

// InTx clones the state, runs fn against the clone, and swaps it in only if
// fn succeeds. Nested InTx calls inside fn run against the same clone.
func (s *Store) InTx(ctx context.Context, fn func(services.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.st.clone()
	if err := fn(&view{st: staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

// Single-call operations outside InTx lock and commit immediately.

func (s *Store) run(fn func(*view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.st.clone()
	if err := fn(&view{st: staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) InsertAccount(ctx context.Context, a core.Account) error {
	return s.run(func(v *view) error { return v.InsertAccount(ctx, a) })
}

func (s *Store) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).GetAccount(ctx, ownerID, id)
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListAccounts(ctx, ownerID)
}

func (s *Store) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListAllAccounts(ctx)
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	return s.run(func(v *view) error { return v.UpdateAccount(ctx, a) })
}

func (s *Store) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return s.run(func(v *view) error { return v.DeleteAccount(ctx, ownerID, id) })
}

func (s *Store) SetAccountBalance(ctx context.Context, accountID string, cents int64) error {
	return s.run(func(v *view) error { return v.SetAccountBalance(ctx, accountID, cents) })
}

func (s *Store) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	return s.run(func(v *view) error { return v.InsertTransaction(ctx, tx) })
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).GetTransaction(ctx, ownerID, id)
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListTransactions(ctx, ownerID)
}

func (s *Store) ListAccountTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListAccountTransactions(ctx, accountID)
}

func (s *Store) ListGroupMembers(ctx context.Context, ownerID, groupID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListGroupMembers(ctx, ownerID, groupID)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	return s.run(func(v *view) error { return v.UpdateTransaction(ctx, tx) })
}

func (s *Store) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	var n int
	err := s.run(func(v *view) error {
		var err error
		n, err = v.DeleteTransactions(ctx, ids)
		return err
	})
	return n, err
}

func (s *Store) InsertGoal(ctx context.Context, g core.Goal) error {
	return s.run(func(v *view) error { return v.InsertGoal(ctx, g) })
}

func (s *Store) GetGoal(ctx context.Context, ownerID, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).GetGoal(ctx, ownerID, id)
}

func (s *Store) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).ListGoals(ctx, ownerID)
}

func (s *Store) UpdateGoal(ctx context.Context, g core.Goal) error {
	return s.run(func(v *view) error { return v.UpdateGoal(ctx, g) })
}

func (s *Store) DeleteGoal(ctx context.Context, ownerID, id string) error {
	return s.run(func(v *view) error { return v.DeleteGoal(ctx, ownerID, id) })
}

// view is the transactional face of the store. It assumes the caller holds
// the store mutex (or owns a private clone).
type view struct {
	st *state
}

func (v *view) InTx(ctx context.Context, fn func(services.Store) error) error {
	return fn(v)
}

func (v *view) InsertAccount(ctx context.Context, a core.Account) error {
	if _, ok := v.st.accounts[a.ID]; ok {
		return fmt.Errorf("account %s: %w", a.ID, core.ErrConflict)
	}
	v.st.accounts[a.ID] = a
	return nil
}

func (v *view) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	a, ok := v.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (v *view) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range v.st.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (v *view) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(v.st.accounts))
	for _, a := range v.st.accounts {
		out = append(out, a)
	}
	sortAccounts(out)
	return out, nil
}

func (v *view) UpdateAccount(ctx context.Context, a core.Account) error {
	if _, ok := v.st.accounts[a.ID]; !ok {
		return fmt.Errorf("account %s: %w", a.ID, core.ErrNotFound)
	}
	v.st.accounts[a.ID] = a
	return nil
}

func (v *view) DeleteAccount(ctx context.Context, ownerID, id string) error {
	a, ok := v.st.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	delete(v.st.accounts, id)
	for txID, tx := range v.st.transactions {
		if tx.AccountID == id {
			delete(v.st.transactions, txID)
		}
	}
	return nil
}

func (v *view) SetAccountBalance(ctx context.Context, accountID string, cents int64) error {
	a, ok := v.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
	}
	a.Balance = core.Money{Cents: cents}
	v.st.accounts[accountID] = a
	return nil
}

func (v *view) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	if _, ok := v.st.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrConflict)
	}
	v.st.transactions[tx.ID] = tx
	return nil
}

func (v *view) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	tx, ok := v.st.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (v *view) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range v.st.transactions {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (v *view) ListAccountTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range v.st.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (v *view) ListGroupMembers(ctx context.Context, ownerID, groupID string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range v.st.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if tx.InstallmentGroupID == groupID || tx.RecurrenceGroupID == groupID {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (v *view) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if _, ok := v.st.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	v.st.transactions[tx.ID] = tx
	return nil
}

func (v *view) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := v.st.transactions[id]; ok {
			delete(v.st.transactions, id)
			n++
		}
	}
	return n, nil
}

func (v *view) InsertGoal(ctx context.Context, g core.Goal) error {
	if _, ok := v.st.goals[g.ID]; ok {
		return fmt.Errorf("goal %s: %w", g.ID, core.ErrConflict)
	}
	v.st.goals[g.ID] = g
	return nil
}

func (v *view) GetGoal(ctx context.Context, ownerID, id string) (core.Goal, error) {
	g, ok := v.st.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (v *view) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range v.st.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) UpdateGoal(ctx context.Context, g core.Goal) error {
	if _, ok := v.st.goals[g.ID]; !ok {
		return fmt.Errorf("goal %s: %w", g.ID, core.ErrNotFound)
	}
	v.st.goals[g.ID] = g
	return nil
}

func (v *view) DeleteGoal(ctx context.Context, ownerID, id string) error {
	g, ok := v.st.goals[id]
	if !ok || g.OwnerID != ownerID {
		return fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	delete(v.st.goals, id)
	return nil
}

func sortAccounts(accts []core.Account) {
	sort.Slice(accts, func(i, j int) bool {
		if !accts[i].CreatedAt.Equal(accts[j].CreatedAt) {
			return accts[i].CreatedAt.Before(accts[j].CreatedAt)
		}
		return accts[i].ID < accts[j].ID
	})
}

func sortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date.Time)
		}
		return txs[i].ID < txs[j].ID
	})
}

var _ services.Store = (*Store)(nil)
var _ services.Store = (*view)(nil)

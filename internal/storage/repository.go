// Package storage is the SQLite persistence layer. Transactions opened via
// InTx use immediate locking so concurrent mutations against the same
// account serialize at the store instead of racing on the derived balance.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// _txlock=immediate makes every write transaction take the writer lock
	// up front instead of failing with SQLITE_BUSY at upgrade time.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn inside one database transaction. Nested calls join the open
// transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(services.Store) error) error {
	if _, nested := r.q.(*sql.Tx); nested {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Accounts

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, institution, kind, balance_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Institution, string(a.Kind), a.Balance.Cents,
		a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, institution, kind, balance_cents, created_at
		FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
		}
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return r.queryAccounts(ctx, `
		SELECT id, owner_id, name, institution, kind, balance_cents, created_at
		FROM accounts WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
}

func (r *SQLiteRepository) ListAllAccounts(ctx context.Context) ([]core.Account, error) {
	return r.queryAccounts(ctx, `
		SELECT id, owner_id, name, institution, kind, balance_cents, created_at
		FROM accounts ORDER BY created_at, id`)
}

func (r *SQLiteRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET name = ?, institution = ?, kind = ?
		WHERE id = ?`,
		a.Name, a.Institution, string(a.Kind), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res, "account "+a.ID)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, ownerID, id string) error {
	// Transactions cascade via the foreign key.
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res, "account "+id)
}

func (r *SQLiteRepository) SetAccountBalance(ctx context.Context, accountID string, cents int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ? WHERE id = ?`, cents, accountID)
	if err != nil {
		return fmt.Errorf("set account balance: %w", err)
	}
	return requireRow(res, "account "+accountID)
}

// Transactions

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions
			(id, owner_id, account_id, type, description, amount_cents, tx_date,
			 category, installment_group_id, recurrence_group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, tx.AccountID, string(tx.Type), tx.Description,
		tx.Amount.Cents, tx.Date.Format(dateLayout), tx.Category,
		nullable(tx.InstallmentGroupID), nullable(tx.RecurrenceGroupID),
		tx.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND owner_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

const selectTransaction = `
	SELECT id, owner_id, account_id, type, description, amount_cents, tx_date,
	       category, installment_group_id, recurrence_group_id, created_at
	FROM transactions`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		selectTransaction+` WHERE owner_id = ? ORDER BY tx_date, id`, ownerID)
}

func (r *SQLiteRepository) ListAccountTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		selectTransaction+` WHERE account_id = ? ORDER BY tx_date, id`, accountID)
}

func (r *SQLiteRepository) ListGroupMembers(ctx context.Context, ownerID, groupID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		selectTransaction+` WHERE owner_id = ? AND (installment_group_id = ? OR recurrence_group_id = ?)
		ORDER BY tx_date, id`, ownerID, groupID, groupID)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, type = ?, description = ?, amount_cents = ?,
		    tx_date = ?, category = ?
		WHERE id = ?`,
		tx.AccountID, string(tx.Type), tx.Description, tx.Amount.Cents,
		tx.Date.Format(dateLayout), tx.Category, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction "+tx.ID)
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Goals

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.Goal) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO goals (id, owner_id, name, description, target_cents, current_cents, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.Description, g.Target.Cents, g.Current.Cents,
		nullableDate(g.Deadline), g.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, ownerID, id string) (core.Goal, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, target_cents, current_cents, deadline, created_at
		FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
		}
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, name, description, target_cents, current_cents, deadline, created_at
		FROM goals WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, description = ?, target_cents = ?, current_cents = ?, deadline = ?
		WHERE id = ?`,
		g.Name, g.Description, g.Target.Cents, g.Current.Cents,
		nullableDate(g.Deadline), g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res, "goal "+g.ID)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, ownerID, id string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res, "goal "+id)
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var kind, createdAt string
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &kind,
		&a.Balance.Cents, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.Kind = core.AccountKind(kind)
	var err error
	a.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse created_at: %w", err)
	}
	return a, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var typ, txDate, createdAt string
	var instGroup, recGroup sql.NullString
	if err := row.Scan(&tx.ID, &tx.OwnerID, &tx.AccountID, &typ, &tx.Description,
		&tx.Amount.Cents, &txDate, &tx.Category, &instGroup, &recGroup, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.InstallmentGroupID = instGroup.String
	tx.RecurrenceGroupID = recGroup.String

	d, err := time.Parse(dateLayout, txDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse tx_date: %w", err)
	}
	tx.Date = core.NewDate(d.Year(), int(d.Month()), d.Day())

	tx.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	return tx, nil
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var g core.Goal
	var deadline sql.NullString
	var createdAt string
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Description,
		&g.Target.Cents, &g.Current.Cents, &deadline, &createdAt); err != nil {
		return core.Goal{}, err
	}
	if deadline.Valid && deadline.String != "" {
		d, err := time.Parse(dateLayout, deadline.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse deadline: %w", err)
		}
		g.Deadline = core.NewDate(d.Year(), int(d.Month()), d.Day())
	}
	var err error
	g.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse created_at: %w", err)
	}
	return g, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Format(dateLayout)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

var _ services.Store = (*SQLiteRepository)(nil)

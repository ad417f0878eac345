package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver for database/sql

	"github.com/ytvaala/ytvaala/internal/model"
)

// SQLStore is a Postgres-backed Store on database/sql. Debits rely on a
// conditional UPDATE, so concurrent debits for one account serialize on
// the row lock and can never drive the balance negative.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore opens a Postgres connection through lib/pq and verifies it.
func OpenSQLStore(ctx context.Context, databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Balance returns the stored balance.
func (s *SQLStore) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ApplyCredit increments the balance and appends tx in one transaction.
func (s *SQLStore) ApplyCredit(ctx context.Context, tx *model.Transaction) (int64, error) {
	query := `
		UPDATE accounts
		SET credits = credits + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING credits
	`
	return s.apply(ctx, tx, query)
}

// ApplyDebit decrements the balance if it covers tx.Amount and appends tx in
// one transaction. Zero updated rows are resolved to not-found or
// insufficient inside the same transaction before rolling back.
func (s *SQLStore) ApplyDebit(ctx context.Context, tx *model.Transaction) (int64, error) {
	query := `
		UPDATE accounts
		SET credits = credits - $1, updated_at = NOW()
		WHERE id = $2 AND credits >= $1
		RETURNING credits
	`
	return s.apply(ctx, tx, query)
}

func (s *SQLStore) apply(ctx context.Context, t *model.Transaction, update string) (int64, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	var balance int64
	err = dbTx.QueryRowContext(ctx, update, t.Amount, t.AccountID).Scan(&balance)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to update balance: %w", err)
		}

		var exists bool
		if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, t.AccountID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check account: %w", err)
		}
		if !exists {
			return 0, ErrAccountNotFound
		}
		return 0, ErrInsufficientCredits
	}

	insert := `
		INSERT INTO credit_transactions (id, account_id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := dbTx.ExecContext(ctx, insert,
		t.ID,
		t.AccountID,
		string(t.Kind),
		t.Amount,
		t.Description,
		t.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	return balance, nil
}

// ListTransactions returns up to limit transactions, newest first.
func (s *SQLStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]*model.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, description, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*model.Transaction, 0, limit)
	for rows.Next() {
		var t model.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.AccountID, &kind, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Kind = model.TransactionKind(kind)
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// Package ledger is the only component allowed to change an account's credit
// balance. Every change is an append-only transaction applied together with
// the balance update in one atomic unit, so the sum of credits minus debits
// always equals the stored balance.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/metrics"
	"github.com/ytvaala/ytvaala/internal/model"
)

// Ledger errors. They are typed application errors so handlers can return
// them unchanged.
var (
	ErrAccountNotFound     = apperr.NotFound("Account not found")
	ErrInvalidAmount       = apperr.BadRequest("Amount must be a positive integer")
	ErrInsufficientCredits = apperr.InsufficientCredits("Insufficient credits")
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	defaultCreditDescription = "Credits added"
	defaultDebitDescription  = "Credits deducted"
)

// Store persists balances and transactions. ApplyCredit and ApplyDebit must
// update the balance and append the transaction in one atomic unit; ApplyDebit
// must check and decrement in that same unit and return ErrInsufficientCredits
// without mutating anything when the balance does not cover the amount.
type Store interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	ApplyCredit(ctx context.Context, tx *model.Transaction) (int64, error)
	ApplyDebit(ctx context.Context, tx *model.Transaction) (int64, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]*model.Transaction, error)
}

// Receipt is the result of a balance change.
type Receipt struct {
	Balance     int64              `json:"credits"`
	Transaction *model.Transaction `json:"transaction"`
}

// Ledger applies credit and debit operations against a Store.
type Ledger struct {
	store   Store
	metrics metrics.Recorder
	now     func() time.Time
}

// New creates a Ledger.
func New(store Store, recorder metrics.Recorder) *Ledger {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Ledger{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	return l.store.Balance(ctx, accountID)
}

// AddCredits increments the balance by amount and records a credit.
func (l *Ledger) AddCredits(ctx context.Context, accountID string, amount int64, description string) (*Receipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = defaultCreditDescription
	}

	tx := l.newTransaction(accountID, model.TransactionCredit, amount, description)
	balance, err := l.store.ApplyCredit(ctx, tx)
	if err != nil {
		return nil, err
	}

	l.metrics.AddCreditsGranted(amount)
	return &Receipt{Balance: balance, Transaction: tx}, nil
}

// DeductCredits decrements the balance by amount and records a debit. When
// the balance is too low it returns ErrInsufficientCredits and changes nothing.
func (l *Ledger) DeductCredits(ctx context.Context, accountID string, amount int64, description string) (*Receipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = defaultDebitDescription
	}

	tx := l.newTransaction(accountID, model.TransactionDebit, amount, description)
	balance, err := l.store.ApplyDebit(ctx, tx)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			l.metrics.IncInsufficientCredits()
		}
		return nil, err
	}

	l.metrics.AddCreditsSpent(amount)
	return &Receipt{Balance: balance, Transaction: tx}, nil
}

// History returns an account's transactions, newest first. A non-positive
// limit means the default of 50; limits above 100 are capped.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]*model.Transaction, error) {
	txs, err := l.store.ListTransactions(ctx, accountID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	return txs, nil
}

func (l *Ledger) newTransaction(accountID string, kind model.TransactionKind, amount int64, description string) *model.Transaction {
	return &model.Transaction{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   l.now().UTC(),
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

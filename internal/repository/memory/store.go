// Package memory provides an in-process store for development and tests.
// A single mutex guards all state, so every ledger mutation is atomic and
// debits for the same account are serialized.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ytvaala/ytvaala/internal/ledger"
	"github.com/ytvaala/ytvaala/internal/model"
	"github.com/ytvaala/ytvaala/internal/repository"
)

// Store implements the account, operation and ledger stores in memory.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	emails       map[string]string // email -> account ID
	transactions map[string][]*model.Transaction
	operations   map[string]*model.Operation
	now          func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*model.Account),
		emails:       make(map[string]string),
		transactions: make(map[string][]*model.Transaction),
		operations:   make(map[string]*model.Operation),
		now:          time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// CreateAccount stores a new account. Emails are unique.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[account.Email]; ok {
		return repository.ErrEmailExists
	}

	cp := *account
	s.accounts[account.ID] = &cp
	s.emails[account.Email] = account.ID
	return nil
}

// DeleteAccount removes an account together with its email claim and
// ledger history.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}

	delete(s.emails, a.Email)
	delete(s.accounts, id)
	delete(s.transactions, id)
	return nil
}

// GetAccountByID returns a copy of the account.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// GetAccountByEmail returns a copy of the account registered with email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

// Balance implements ledger.Store.
func (s *Store) Balance(ctx context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	return a.Credits, nil
}

// ApplyCredit implements ledger.Store.
func (s *Store) ApplyCredit(ctx context.Context, tx *model.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[tx.AccountID]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}

	a.Credits += tx.Amount
	a.UpdatedAt = s.now().UTC()
	s.appendTransaction(tx)
	return a.Credits, nil
}

// ApplyDebit implements ledger.Store.
func (s *Store) ApplyDebit(ctx context.Context, tx *model.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[tx.AccountID]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	if a.Credits < tx.Amount {
		return 0, ledger.ErrInsufficientCredits
	}

	a.Credits -= tx.Amount
	a.UpdatedAt = s.now().UTC()
	s.appendTransaction(tx)
	return a.Credits, nil
}

func (s *Store) appendTransaction(tx *model.Transaction) {
	cp := *tx
	s.transactions[tx.AccountID] = append(s.transactions[tx.AccountID], &cp)
}

// ListTransactions implements ledger.Store. Entries come back newest first.
func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.transactions[accountID]
	out := make([]*model.Transaction, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

// CreateOperation stores a new operation record.
func (s *Store) CreateOperation(ctx context.Context, op *model.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *op
	s.operations[op.ID] = &cp
	return nil
}

// FinalizeOperation moves a pending operation to its final status. It
// returns repository.ErrOperationFinalized if the operation already left
// the pending state.
func (s *Store) FinalizeOperation(ctx context.Context, id string, status model.OperationStatus, assetURL, reason string) (*model.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[id]
	if !ok {
		return nil, repository.ErrOperationNotFound
	}
	if op.Status != model.OperationPending {
		return nil, repository.ErrOperationFinalized
	}

	op.Status = status
	op.AssetURL = assetURL
	op.Error = reason
	op.UpdatedAt = s.now().UTC()

	cp := *op
	return &cp, nil
}

// GetOperation returns the operation if it belongs to accountID.
func (s *Store) GetOperation(ctx context.Context, accountID, id string) (*model.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[id]
	if !ok || op.AccountID != accountID {
		return nil, repository.ErrOperationNotFound
	}
	cp := *op
	return &cp, nil
}

// ListOperations returns up to limit operations of accountID, newest first.
func (s *Store) ListOperations(ctx context.Context, accountID string, limit int) ([]*model.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Operation, 0)
	for _, op := range s.operations {
		if op.AccountID == accountID {
			cp := *op
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

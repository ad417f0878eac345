package model

import "time"

// TransactionKind is the direction of a ledger entry.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

// IsValid reports whether k is a known kind.
func (k TransactionKind) IsValid() bool {
	return k == TransactionCredit || k == TransactionDebit
}

// Transaction is an immutable, append-only ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Kind        TransactionKind `json:"type"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Signed returns the amount with its ledger sign applied.
func (t *Transaction) Signed() int64 {
	if t.Kind == TransactionDebit {
		return -t.Amount
	}
	return t.Amount
}

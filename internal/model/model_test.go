package model

import "testing"

func TestTransaction_Signed(t *testing.T) {
	testCases := []struct {
		name string
		txn  Transaction
		want int64
	}{
		{name: "credit is positive", txn: Transaction{Kind: TransactionCredit, Amount: 10}, want: 10},
		{name: "debit is negative", txn: Transaction{Kind: TransactionDebit, Amount: 10}, want: -10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.txn.Signed(); got != tc.want {
				t.Errorf("Signed() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTransactionKind_IsValid(t *testing.T) {
	if !TransactionCredit.IsValid() || !TransactionDebit.IsValid() {
		t.Error("expected credit and debit to be valid")
	}
	if TransactionKind("refund").IsValid() {
		t.Error("expected unknown kind to be invalid")
	}
}

func TestOperationStatus_IsFinal(t *testing.T) {
	testCases := []struct {
		status OperationStatus
		want   bool
	}{
		{OperationPending, false},
		{OperationCompleted, true},
		{OperationFailed, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.IsFinal(); got != tc.want {
				t.Errorf("IsFinal(%s) = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

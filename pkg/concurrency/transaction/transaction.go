package transaction

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter int64

// TransactionID uniquely identifies a running transaction. Instances are
// compared by pointer, so every call site of a transaction must share the
// same *TransactionID.
type TransactionID struct {
	id int64
}

// NewTransactionID allocates a fresh transaction ID.
func NewTransactionID() *TransactionID {
	return &TransactionID{
		id: atomic.AddInt64(&transactionCounter, 1),
	}
}

func (tid *TransactionID) ID() int64 {
	return tid.id
}

func (tid *TransactionID) String() string {
	return fmt.Sprintf("TID-%d", tid.id)
}

func (tid *TransactionID) Equals(other *TransactionID) bool {
	if tid == nil || other == nil {
		return tid == other
	}
	return tid.id == other.id
}

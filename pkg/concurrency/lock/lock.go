package lock

import (
	"tupledb/pkg/concurrency/transaction"
)

// Mode is the kind of lock held on a page.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "X"
	}
	return "S"
}

// Lock records one transaction's hold on one page.
type Lock struct {
	TID  *transaction.TransactionID
	Mode Mode
}

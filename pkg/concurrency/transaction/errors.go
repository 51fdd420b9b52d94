package transaction

import "fmt"

// AbortedError signals that a transaction must be rolled back, either
// because a lock wait timed out or because an abort was requested. The
// caller is responsible for completing the transaction with commit=false.
type AbortedError struct {
	TID    *TransactionID
	Reason string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("transaction %s aborted: %s", e.TID, e.Reason)
}

package domain

// TxStatus is the transaction status state machine. CANCELLED and REFUNDED
// are terminal: no transition out of them is ever accepted, which is also
// what makes refund compensation fire at most once per transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusCompleted TxStatus = "COMPLETED"
	TxStatusCancelled TxStatus = "CANCELLED"
	TxStatusRefunded  TxStatus = "REFUNDED"
)

func (s TxStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusCompleted, TxStatusCancelled, TxStatusRefunded:
		return true
	}
	return false
}

func (s TxStatus) Terminal() bool {
	return s == TxStatusCancelled || s == TxStatusRefunded
}

// CanTransitionTo reports whether the generic status-update path accepts a
// change from s to next. Any valid target is reachable from a non-terminal
// state; terminal states have no outgoing transitions.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	if !next.Valid() {
		return false
	}
	return !s.Terminal()
}

// NeedsRefundCompensation reports whether a transition from s to next must
// restore inventory and reverse customer spending. Only COMPLETED→REFUNDED
// carries compensating side effects; every other accepted transition is a
// plain status write.
func NeedsRefundCompensation(from TxStatus, to TxStatus) bool {
	return from == TxStatusCompleted && to == TxStatusRefunded
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WithdrawalState represents the lifecycle state of a withdrawal request.
type WithdrawalState string

const (
	WithdrawalStateRequested  WithdrawalState = "requested"
	WithdrawalStateProcessing WithdrawalState = "processing"
	WithdrawalStatePaid       WithdrawalState = "paid"
	WithdrawalStateRejected   WithdrawalState = "rejected"
)

// withdrawalEdges is the single authority on legal withdrawal transitions.
// requested and processing are reversible to each other; paid and rejected
// are terminal. Rejection is the only cancellation path.
var withdrawalEdges = map[WithdrawalState][]WithdrawalState{
	WithdrawalStateRequested:  {WithdrawalStateProcessing, WithdrawalStatePaid, WithdrawalStateRejected},
	WithdrawalStateProcessing: {WithdrawalStateRequested, WithdrawalStatePaid, WithdrawalStateRejected},
	WithdrawalStatePaid:       {},
	WithdrawalStateRejected:   {},
}

// CanTransitionWithdrawal reports whether from -> to is a legal edge.
func CanTransitionWithdrawal(from, to WithdrawalState) bool {
	for _, next := range withdrawalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseWithdrawalState validates a caller-supplied state string.
func ParseWithdrawalState(s string) (WithdrawalState, error) {
	switch WithdrawalState(s) {
	case WithdrawalStateRequested, WithdrawalStateProcessing, WithdrawalStatePaid, WithdrawalStateRejected:
		return WithdrawalState(s), nil
	}
	return "", fmt.Errorf("unknown withdrawal state %q", s)
}

// WithdrawalRequest is an agent's request to convert credited commission into
// a payout. It snapshots the commission items it intends to consume; those
// items stay credited but held until settlement or rejection.
type WithdrawalRequest struct {
	ID                uuid.UUID       `json:"id"`
	AgentID           uuid.UUID       `json:"agent_id"`
	Amount            int64           `json:"amount"` // requested amount, minor units
	HeldTotal         int64           `json:"held_total"`
	DestinationEnc    string          `json:"-"` // AES-256-GCM encrypted payout destination
	CommissionItemIDs []uuid.UUID     `json:"commission_item_ids"`
	State             WithdrawalState `json:"state"`
	Note              *string         `json:"note,omitempty"` // staff note, e.g. rejection reason
	RequestedAt       time.Time       `json:"requested_at"`
	ProcessingAt      *time.Time      `json:"processing_at,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	RejectedAt        *time.Time      `json:"rejected_at,omitempty"`
}

// TransitionTo advances the request's state along a legal edge, stamping the
// matching timestamp field.
func (w *WithdrawalRequest) TransitionTo(to WithdrawalState, at time.Time) error {
	if !CanTransitionWithdrawal(w.State, to) {
		return fmt.Errorf("withdrawal %s: illegal transition %s -> %s", w.ID, w.State, to)
	}
	w.State = to
	switch to {
	case WithdrawalStateProcessing:
		w.ProcessingAt = &at
	case WithdrawalStatePaid:
		w.PaidAt = &at
	case WithdrawalStateRejected:
		w.RejectedAt = &at
	}
	return nil
}

// IsTerminal reports whether the request's held items have been released.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.State == WithdrawalStatePaid || w.State == WithdrawalStateRejected
}

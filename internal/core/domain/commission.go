package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommissionState represents the lifecycle state of a commission item.
type CommissionState string

const (
	CommissionStatePending   CommissionState = "pending"
	CommissionStateConfirmed CommissionState = "confirmed"
	CommissionStateCredited  CommissionState = "credited"
	CommissionStatePaidOut   CommissionState = "paid_out"
	CommissionStateReversed  CommissionState = "reversed"
)

// commissionEdges is the single authority on legal state changes.
// Forward: pending -> confirmed -> credited -> paid_out.
// Reversal: pending/confirmed/credited -> reversed; a reversed item re-enters
// pending only when its source transaction is re-confirmed.
var commissionEdges = map[CommissionState][]CommissionState{
	CommissionStatePending:   {CommissionStateConfirmed, CommissionStateCredited, CommissionStateReversed},
	CommissionStateConfirmed: {CommissionStateCredited, CommissionStateReversed},
	CommissionStateCredited:  {CommissionStatePaidOut, CommissionStateReversed},
	CommissionStatePaidOut:   {},
	CommissionStateReversed:  {CommissionStatePending},
}

// CanTransitionCommission reports whether from -> to is a legal edge.
func CanTransitionCommission(from, to CommissionState) bool {
	for _, next := range commissionEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CommissionItem is a unit of earned value from exactly one source
// transaction. At most one item exists per (SourceType, SourceID).
type CommissionItem struct {
	ID             uuid.UUID       `json:"id"`
	SourceType     SourceType      `json:"source_type"`
	SourceID       string          `json:"source_id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	Amount         int64           `json:"amount"` // minor units, non-negative
	State          CommissionState `json:"state"`
	HeldBy         *uuid.UUID      `json:"held_by,omitempty"` // non-terminal withdrawal holding this item
	CreatedAt      time.Time       `json:"created_at"`
	StateChangedAt time.Time       `json:"state_changed_at"`
}

// TransitionTo advances the item's state along a legal edge. It is the only
// writer of State outside the storage layer's conditional updates.
func (i *CommissionItem) TransitionTo(to CommissionState, at time.Time) error {
	if !CanTransitionCommission(i.State, to) {
		return fmt.Errorf("commission item %s: illegal transition %s -> %s", i.ID, i.State, to)
	}
	i.State = to
	i.StateChangedAt = at
	return nil
}

// IsHeld reports whether a non-terminal withdrawal request holds this item.
func (i *CommissionItem) IsHeld() bool {
	return i.HeldBy != nil
}

// IsTerminal reports whether the item can no longer move forward.
func (i *CommissionItem) IsTerminal() bool {
	return i.State == CommissionStatePaidOut
}

// SourceKey returns the idempotency key for the originating transaction.
func (i *CommissionItem) SourceKey() string {
	return string(i.SourceType) + ":" + i.SourceID
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletEntryKind classifies a wallet movement.
type WalletEntryKind string

const (
	WalletEntryKindTopup      WalletEntryKind = "topup"
	WalletEntryKindSpend      WalletEntryKind = "spend"
	WalletEntryKindAdjustment WalletEntryKind = "adjustment"
)

// WalletEntry is one signed movement on an agent's spendable wallet,
// unrelated to commissions. Entries are immutable once created; corrections
// are new offsetting entries, never edits.
type WalletEntry struct {
	ID        uuid.UUID       `json:"id"`
	AgentID   uuid.UUID       `json:"agent_id"`
	Amount    int64           `json:"amount"` // signed, minor units
	Kind      WalletEntryKind `json:"kind"`
	Note      *string         `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

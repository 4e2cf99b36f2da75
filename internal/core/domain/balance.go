package domain

import (
	"time"

	"github.com/google/uuid"
)

// BalanceSummary is the derived view of one agent's balances. It is
// recomputed from source records on every read; no stored counter is
// authoritative.
type BalanceSummary struct {
	AgentID           uuid.UUID `json:"agent_id"`
	WalletBalance     int64     `json:"wallet_balance"`     // sum of wallet entries
	CommissionBalance int64     `json:"commission_balance"` // credited, withdrawable
	TotalEarned       int64     `json:"total_earned"`       // credited + paid out
	TotalWithdrawn    int64     `json:"total_withdrawn"`    // paid out
	PendingWithdrawal int64     `json:"pending_withdrawal"` // held by non-terminal requests
	ComputedAt        time.Time `json:"computed_at"`

	// Degraded marks a summary computed with one or more unreachable
	// sources. A degraded summary is never authoritative: callers must
	// display it as partial, and the settlement engine refuses to act on it.
	Degraded       bool     `json:"degraded"`
	FailedSources  []string `json:"failed_sources,omitempty"`
	FromStaleCache bool     `json:"from_stale_cache,omitempty"`
}

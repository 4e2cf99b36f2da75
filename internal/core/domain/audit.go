package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionSourceEvent       AuditAction = "SOURCE_EVENT"
	AuditActionCreateWithdrawal  AuditAction = "CREATE_WITHDRAWAL"
	AuditActionAdvanceWithdrawal AuditAction = "ADVANCE_WITHDRAWAL"
	AuditActionWalletEntry       AuditAction = "WALLET_ENTRY"
	AuditActionCreatePartner     AuditAction = "CREATE_PARTNER"
	AuditActionRotateKeys        AuditAction = "ROTATE_KEYS"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"` // agent, staff user, or partner
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

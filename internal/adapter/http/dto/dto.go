package dto

// SourceStatusEventRequest is the request body partner systems post when a
// source transaction changes status.
type SourceStatusEventRequest struct {
	SourceType     string `json:"source_type" binding:"required"`
	SourceID       string `json:"source_id" binding:"required,safe_id,max=100"`
	AgentID        string `json:"agent_id" binding:"required,uuid"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status" binding:"required,max=50"`
	CommissionRate *int64 `json:"commission_rate,omitempty"`
	UnitCommission *int64 `json:"unit_commission,omitempty"`
	Quantity       *int64 `json:"quantity,omitempty"`
}

// SourceStatusEventResponse reports the lifecycle outcome.
type SourceStatusEventResponse struct {
	Applied bool                    `json:"applied"`
	Reason  string                  `json:"reason,omitempty"` // error code for benign no-ops, e.g. duplicate credit
	Item    *CommissionItemResponse `json:"item,omitempty"`
}

// CommissionItemResponse is the wire form of a commission item.
type CommissionItemResponse struct {
	ID             string  `json:"id"`
	SourceType     string  `json:"source_type"`
	SourceID       string  `json:"source_id"`
	AgentID        string  `json:"agent_id"`
	Amount         int64   `json:"amount"`
	State          string  `json:"state"`
	HeldBy         *string `json:"held_by,omitempty"`
	CreatedAt      string  `json:"created_at"`
	StateChangedAt string  `json:"state_changed_at"`
}

// BalanceSummaryResponse is the wire form of a balance summary.
type BalanceSummaryResponse struct {
	AgentID           string   `json:"agent_id"`
	WalletBalance     int64    `json:"wallet_balance"`
	CommissionBalance int64    `json:"commission_balance"`
	TotalEarned       int64    `json:"total_earned"`
	TotalWithdrawn    int64    `json:"total_withdrawn"`
	PendingWithdrawal int64    `json:"pending_withdrawal"`
	ComputedAt        string   `json:"computed_at"`
	Degraded          bool     `json:"degraded"`
	FailedSources     []string `json:"failed_sources,omitempty"`
	FromStaleCache    bool     `json:"from_stale_cache,omitempty"`

	// LastKnownGood carries the most recent non-degraded summary when the
	// live computation is degraded. Informational only.
	LastKnownGood *BalanceSummaryResponse `json:"last_known_good,omitempty"`
}

// CreateWithdrawalRequest is the request body for withdrawal creation.
type CreateWithdrawalRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Destination string `json:"destination" binding:"required,min=5,max=100"`
}

// AdvanceWithdrawalRequest is the request body for staff advancing a
// withdrawal request.
type AdvanceWithdrawalRequest struct {
	State string  `json:"state" binding:"required,oneof=requested processing paid rejected"`
	Note  *string `json:"note,omitempty" binding:"omitempty,max=500"`
}

// WithdrawalResponse is the wire form of a withdrawal request.
type WithdrawalResponse struct {
	ID                string                   `json:"id"`
	AgentID           string                   `json:"agent_id"`
	Amount            int64                    `json:"amount"`
	HeldTotal         int64                    `json:"held_total"`
	State             string                   `json:"state"`
	Note              *string                  `json:"note,omitempty"`
	Items             []CommissionItemResponse `json:"items,omitempty"`
	Destination       string                   `json:"destination,omitempty"`
	RequestedAt       string                   `json:"requested_at"`
	ProcessingAt      *string                  `json:"processing_at,omitempty"`
	PaidAt            *string                  `json:"paid_at,omitempty"`
	RejectedAt        *string                  `json:"rejected_at,omitempty"`
	CommissionItemIDs []string                 `json:"commission_item_ids,omitempty"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
	Items      []WithdrawalResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// WalletEntryRequest is the request body for recording a wallet movement.
type WalletEntryRequest struct {
	AgentID string  `json:"agent_id" binding:"required,uuid"`
	Amount  int64   `json:"amount" binding:"required"`
	Kind    string  `json:"kind" binding:"required,oneof=topup spend adjustment"`
	Note    *string `json:"note,omitempty" binding:"omitempty,max=500"`
}

// WalletEntryResponse is the wire form of a wallet entry.
type WalletEntryResponse struct {
	ID        string  `json:"id"`
	AgentID   string  `json:"agent_id"`
	Amount    int64   `json:"amount"`
	Kind      string  `json:"kind"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// CreatePartnerRequest is the request body for partner registration.
type CreatePartnerRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// PartnerCredentialsResponse carries the secret shown once at
// registration or rotation.
type PartnerCredentialsResponse struct {
	PartnerID string `json:"partner_id"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

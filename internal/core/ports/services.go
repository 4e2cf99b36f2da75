package ports

import (
	"context"
	"io"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// SourceAdapter classifies one external transaction's status into a
// commission tier and amount. Pure: no side effects, no I/O.
type SourceAdapter interface {
	SourceType() domain.SourceType
	Classify(event domain.SourceEvent) (domain.Classification, error)
}

// LifecycleService reacts to source status changes and keeps exactly one
// commission item consistent with each source transaction.
type LifecycleService interface {
	// OnSourceStatusChanged applies the event. Replays of an already-applied
	// transition return the unchanged item with applied=false.
	OnSourceStatusChanged(ctx context.Context, event domain.SourceEvent) (*LifecycleResult, error)
}

// LifecycleResult reports the outcome of one lifecycle invocation.
type LifecycleResult struct {
	Item    *domain.CommissionItem
	Applied bool // false when the event was a benign duplicate or a no-op tier
	// Reason names why a benign event did not apply (duplicate credit);
	// nil when Applied is true or the status carried no signal.
	Reason *apperror.AppError
}

// BalanceService computes balance summaries on demand.
type BalanceService interface {
	GetBalanceSummary(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error)
	// GetBalanceSummaries computes summaries for many agents with bounded
	// concurrency, for admin list views.
	GetBalanceSummaries(ctx context.Context, agentIDs []uuid.UUID) ([]domain.BalanceSummary, error)
	// LastKnownGood returns the cached last non-degraded summary, if any,
	// for annotating degraded dashboard views. Never authoritative.
	LastKnownGood(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error)
}

// WalletService records wallet movements.
type WalletService interface {
	RecordWalletEntry(ctx context.Context, req WalletEntryRequest) (*domain.WalletEntry, error)
	ListWalletEntries(ctx context.Context, agentID uuid.UUID) ([]domain.WalletEntry, error)
}

// WalletEntryRequest holds validated input for a wallet movement.
type WalletEntryRequest struct {
	AgentID uuid.UUID
	Amount  int64 // signed
	Kind    domain.WalletEntryKind
	Note    *string
}

// WithdrawalService owns the withdrawal request lifecycle and the one-time
// transfer of value out of credited commission items.
type WithdrawalService interface {
	CreateRequest(ctx context.Context, req CreateWithdrawalRequest) (*domain.WithdrawalRequest, error)
	Advance(ctx context.Context, requestID uuid.UUID, newState domain.WithdrawalState, note *string) (*domain.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, params WithdrawalListParams) ([]WithdrawalDetail, int64, error)
}

// CreateWithdrawalRequest holds validated input for withdrawal creation.
type CreateWithdrawalRequest struct {
	AgentID     uuid.UUID
	Amount      int64
	Destination string // payout destination (mobile money number / account)
}

// WithdrawalDetail is the read-only listing projection with embedded items.
type WithdrawalDetail struct {
	Request     domain.WithdrawalRequest `json:"request"`
	Items       []domain.CommissionItem  `json:"items"`
	Destination string                   `json:"destination,omitempty"` // decrypted for staff views only
}

// ExportService writes flattened CSV projections for offline reconciliation.
type ExportService interface {
	ExportCommissions(ctx context.Context, w io.Writer, agentID *uuid.UUID) error
	ExportWithdrawals(ctx context.Context, w io.Writer, params WithdrawalListParams) error
}

// PartnerService manages partner system credentials.
type PartnerService interface {
	Register(ctx context.Context, name string) (*PartnerCredentials, error)
	RotateKeys(ctx context.Context, partnerID uuid.UUID) (*PartnerCredentials, error)
}

// PartnerCredentials holds the secret shown once at registration/rotation.
type PartnerCredentials struct {
	PartnerID uuid.UUID
	AccessKey string
	SecretKey string // plaintext, shown only here
}

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles JWT token operations for agent/staff API access.
type TokenService interface {
	Generate(userID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string // "agent" or "staff"
}

// AuditService records audited actions without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// NonceStore manages nonce uniqueness for replay attack prevention on the
// partner event interface.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, partnerID string, nonce string, ttl time.Duration) (bool, error)
}

// BalanceCache stores the last successfully computed non-degraded summary
// per agent. It is a last-known-good annotation for dashboards, never the
// value the settlement engine validates against.
type BalanceCache interface {
	Get(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error)
	Set(ctx context.Context, summary *domain.BalanceSummary, ttl time.Duration) error
}

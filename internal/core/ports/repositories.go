package ports

import (
	"context"
	"time"

	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommissionSums holds per-source aggregates for one agent, computed by
// scanning the agent's commission items (never a stored counter).
type CommissionSums struct {
	Credited int64 // state = credited
	PaidOut  int64 // state = paid_out
	Held     int64 // credited items held by a non-terminal withdrawal
}

// CommissionRepository defines persistence for commission items.
// Methods accepting pgx.Tx run inside transaction blocks; the conditional
// updates (Hold, SettleHeld, UpdateState) report rows affected so callers can
// detect lost races instead of silently proceeding.
type CommissionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, item *domain.CommissionItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionItem, error)
	GetBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.CommissionItem, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CommissionItem, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error)

	// ListCreditedUnheld returns credited, unheld items oldest-first for
	// withdrawal selection.
	ListCreditedUnheld(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error)

	// UpdateState moves an item from -> to only if it is still in from and,
	// unless allowHeld, not held. Returns rows affected (0 = lost race).
	UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, at time.Time) (int64, error)

	// UpdateStateAndAmount is UpdateState plus an amount rewrite, used when a
	// reversed item re-enters pending with a re-confirmed amount.
	UpdateStateAndAmount(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, amount int64, at time.Time) (int64, error)

	// Hold marks the items as held by requestID only where each is still
	// credited and unheld. Returns rows affected; a count below len(ids)
	// means another request won the race and the caller must roll back.
	Hold(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, requestID uuid.UUID) (int64, error)

	// SettleHeld moves every item held by requestID from credited to
	// paid_out. Returns rows affected for the all-or-nothing check.
	SettleHeld(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, at time.Time) (int64, error)

	// ReleaseHold clears the hold flag for every item held by requestID,
	// leaving state and amount untouched.
	ReleaseHold(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (int64, error)

	// SumForAgent aggregates one source's items for an agent.
	SumForAgent(ctx context.Context, agentID uuid.UUID, source domain.SourceType) (*CommissionSums, error)
}

// WalletEntryRepository defines persistence for wallet entries. Entries are
// append-only; there is deliberately no update or delete.
type WalletEntryRepository interface {
	Create(ctx context.Context, entry *domain.WalletEntry) error
	ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.WalletEntry, error)
	SumForAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
}

// WithdrawalListParams holds filter + pagination for listing withdrawals.
type WithdrawalListParams struct {
	AgentID  *uuid.UUID // nil = all agents (staff view)
	State    *domain.WithdrawalState
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// WithdrawalRepository defines persistence for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)

	// UpdateState moves a request from -> to only if it is still in from.
	// Returns rows affected (0 = concurrent staff action won).
	UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalState, note *string, at time.Time) (int64, error)

	List(ctx context.Context, params WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error)
}

// PartnerRepository defines persistence for partner systems.
type PartnerRepository interface {
	Create(ctx context.Context, partner *domain.Partner) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*domain.Partner, error)
	UpdateKeys(ctx context.Context, id uuid.UUID, accessKey, secretKeyEnc string) error
}

// AuditRepository defines persistence for audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

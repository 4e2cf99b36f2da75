// Package memory provides in-memory implementations of the storage ports
// with the same conditional-write semantics as the postgres adapter. It
// backs the service tests and the integration harness; it is not meant for
// production use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Commission repo ---

// CommissionRepo is an in-memory ports.CommissionRepository. All conditional
// updates run under one mutex, mirroring the row-level atomicity the
// postgres adapter gets from conditional UPDATEs.
type CommissionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.CommissionItem

	// FailSources makes SumForAgent fail for the named sources, to exercise
	// degraded summaries.
	FailSources map[domain.SourceType]bool
}

// NewCommissionRepo creates an empty commission repo.
func NewCommissionRepo() *CommissionRepo {
	return &CommissionRepo{
		items:       make(map[uuid.UUID]*domain.CommissionItem),
		FailSources: make(map[domain.SourceType]bool),
	}
}

func (r *CommissionRepo) Create(ctx context.Context, tx pgx.Tx, item *domain.CommissionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.SourceType == item.SourceType && existing.SourceID == item.SourceID {
			return fmt.Errorf("duplicate key: commission item for %s", item.SourceKey())
		}
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *CommissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (r *CommissionRepo) GetBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.CommissionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.SourceType == sourceType && item.SourceID == sourceID {
			clone := *item
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CommissionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CommissionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CommissionItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *CommissionRepo) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CommissionItem
	for _, item := range r.items {
		if item.AgentID == agentID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CommissionRepo) ListCreditedUnheld(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CommissionItem
	for _, item := range r.items {
		if item.AgentID == agentID && item.State == domain.CommissionStateCredited && item.HeldBy == nil {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CommissionRepo) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.State != from || item.HeldBy != nil {
		return 0, nil
	}
	item.State = to
	item.StateChangedAt = at
	return 1, nil
}

func (r *CommissionRepo) UpdateStateAndAmount(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, amount int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.State != from || item.HeldBy != nil {
		return 0, nil
	}
	item.State = to
	item.Amount = amount
	item.StateChangedAt = at
	return 1, nil
}

func (r *CommissionRepo) Hold(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, requestID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// All-or-nothing under the lock: count first, then claim.
	var claimable []*domain.CommissionItem
	for _, id := range ids {
		item, ok := r.items[id]
		if ok && item.State == domain.CommissionStateCredited && item.HeldBy == nil {
			claimable = append(claimable, item)
		}
	}
	if len(claimable) != len(ids) {
		return int64(len(claimable)), nil
	}
	for _, item := range claimable {
		held := requestID
		item.HeldBy = &held
	}
	return int64(len(claimable)), nil
}

func (r *CommissionRepo) SettleHeld(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var settled int64
	for _, item := range r.items {
		if item.HeldBy != nil && *item.HeldBy == requestID && item.State == domain.CommissionStateCredited {
			item.State = domain.CommissionStatePaidOut
			item.HeldBy = nil
			item.StateChangedAt = at
			settled++
		}
	}
	return settled, nil
}

func (r *CommissionRepo) ReleaseHold(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released int64
	for _, item := range r.items {
		if item.HeldBy != nil && *item.HeldBy == requestID {
			item.HeldBy = nil
			released++
		}
	}
	return released, nil
}

func (r *CommissionRepo) SumForAgent(ctx context.Context, agentID uuid.UUID, source domain.SourceType) (*ports.CommissionSums, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSources[source] {
		return nil, fmt.Errorf("source %s unavailable", source)
	}
	sums := &ports.CommissionSums{}
	for _, item := range r.items {
		if item.AgentID != agentID || item.SourceType != source {
			continue
		}
		switch item.State {
		case domain.CommissionStateCredited:
			sums.Credited += item.Amount
			if item.HeldBy != nil {
				sums.Held += item.Amount
			}
		case domain.CommissionStatePaidOut:
			sums.PaidOut += item.Amount
		}
	}
	return sums, nil
}

// --- Wallet repo ---

// WalletRepo is an in-memory ports.WalletEntryRepository.
type WalletRepo struct {
	mu      sync.Mutex
	entries []domain.WalletEntry

	// FailSum makes SumForAgent fail, to exercise degraded summaries.
	FailSum bool
}

// NewWalletRepo creates an empty wallet repo.
func NewWalletRepo() *WalletRepo {
	return &WalletRepo{}
}

func (r *WalletRepo) Create(ctx context.Context, entry *domain.WalletEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *WalletRepo) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.WalletEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WalletEntry
	for _, e := range r.entries {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *WalletRepo) SumForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSum {
		return 0, fmt.Errorf("wallet store unavailable")
	}
	var sum int64
	for _, e := range r.entries {
		if e.AgentID == agentID {
			sum += e.Amount
		}
	}
	return sum, nil
}

// --- Withdrawal repo ---

// WithdrawalRepo is an in-memory ports.WithdrawalRepository.
type WithdrawalRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.WithdrawalRequest
}

// NewWithdrawalRepo creates an empty withdrawal repo.
func NewWithdrawalRepo() *WithdrawalRepo {
	return &WithdrawalRepo{requests: make(map[uuid.UUID]*domain.WithdrawalRequest)}
}

func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	clone.CommissionItemIDs = append([]uuid.UUID(nil), req.CommissionItemIDs...)
	r.requests[req.ID] = &clone
	return nil
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	clone := *req
	clone.CommissionItemIDs = append([]uuid.UUID(nil), req.CommissionItemIDs...)
	return &clone, nil
}

func (r *WithdrawalRepo) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalState, note *string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.State != from {
		return 0, nil
	}
	if err := req.TransitionTo(to, at); err != nil {
		return 0, nil
	}
	if note != nil {
		req.Note = note
	}
	return 1, nil
}

func (r *WithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.WithdrawalRequest
	for _, req := range r.requests {
		if params.AgentID != nil && req.AgentID != *params.AgentID {
			continue
		}
		if params.State != nil && req.State != *params.State {
			continue
		}
		if params.From != nil && req.RequestedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && req.RequestedAt.Unix() > *params.To {
			continue
		}
		clone := *req
		clone.CommissionItemIDs = append([]uuid.UUID(nil), req.CommissionItemIDs...)
		matched = append(matched, clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RequestedAt.After(matched[j].RequestedAt) })

	total := int64(len(matched))
	if params.PageSize > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * params.PageSize
		if start >= len(matched) {
			return nil, total, nil
		}
		end := start + params.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

// --- Partner repo ---

// PartnerRepo is an in-memory ports.PartnerRepository.
type PartnerRepo struct {
	mu       sync.Mutex
	partners map[uuid.UUID]*domain.Partner
}

// NewPartnerRepo creates an empty partner repo.
func NewPartnerRepo() *PartnerRepo {
	return &PartnerRepo{partners: make(map[uuid.UUID]*domain.Partner)}
}

func (r *PartnerRepo) Create(ctx context.Context, partner *domain.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *partner
	r.partners[partner.ID] = &clone
	return nil
}

func (r *PartnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *PartnerRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.partners {
		if p.AccessKey == accessKey {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *PartnerRepo) UpdateKeys(ctx context.Context, id uuid.UUID, accessKey, secretKeyEnc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[id]
	if !ok {
		return fmt.Errorf("partner not found")
	}
	p.AccessKey = accessKey
	p.SecretKeyEnc = secretKeyEnc
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// --- Audit repo ---

// AuditRepo is an in-memory ports.AuditRepository.
type AuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

// NewAuditRepo creates an empty audit repo.
func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a snapshot of recorded audit entries.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.entries...)
}

// --- Transactor ---

// Transactor is an in-memory ports.DBTransactor whose transactions are
// no-ops; the repos above apply each conditional write atomically.
type Transactor struct{}

// NewTransactor creates a no-op transactor.
func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *noopTx) Conn() *pgx.Conn                                               { return nil }

package service

import (
	"context"
	"fmt"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LifecycleServiceImpl implements ports.LifecycleService. It is the only
// component that advances commission items in response to source status
// changes; the withdrawal engine owns the credited -> paid_out edge.
type LifecycleServiceImpl struct {
	commissionRepo ports.CommissionRepository
	registry       *AdapterRegistry
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewLifecycleService creates a new LifecycleServiceImpl.
func NewLifecycleService(
	commissionRepo ports.CommissionRepository,
	registry *AdapterRegistry,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{
		commissionRepo: commissionRepo,
		registry:       registry,
		transactor:     transactor,
		log:            log,
	}
}

// OnSourceStatusChanged classifies the event and applies the resulting
// transition. Classification failures abort before any write, so the caller
// can retry or alert instead of ending up with a completed source
// transaction and no commission recorded.
func (s *LifecycleServiceImpl) OnSourceStatusChanged(ctx context.Context, event domain.SourceEvent) (*ports.LifecycleResult, error) {
	if event.SourceID == "" {
		return nil, apperror.Validation("source_id is required")
	}
	agentID, err := uuid.Parse(event.AgentID)
	if err != nil {
		return nil, apperror.Validation("invalid agent_id")
	}

	adapter, err := s.registry.For(event.SourceType)
	if err != nil {
		return nil, err
	}
	cls, err := adapter.Classify(event)
	if err != nil {
		return nil, err
	}
	if cls.Tier == domain.TierNone {
		return &ports.LifecycleResult{Applied: false}, nil
	}

	existing, err := s.commissionRepo.GetBySource(ctx, event.SourceType, event.SourceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup commission item: %w", err))
	}

	var result *ports.LifecycleResult
	switch cls.Tier {
	case domain.TierProvisional:
		result, err = s.applyProvisional(ctx, event, agentID, cls, existing)
	case domain.TierFinal:
		result, err = s.applyFinal(ctx, event, agentID, cls, existing)
	case domain.TierReversal:
		result, err = s.applyReversal(ctx, event, existing)
	}
	if err != nil {
		return nil, err
	}

	if result.Applied && result.Item != nil {
		s.log.Info().
			Str("source", result.Item.SourceKey()).
			Str("agent_id", agentID.String()).
			Str("state", string(result.Item.State)).
			Int64("amount", result.Item.Amount).
			Msg("commission item transitioned")
	}
	return result, nil
}

// applyProvisional creates the item at confirmed, or advances a pending one.
// Events re-delivered after confirmation are benign no-ops.
func (s *LifecycleServiceImpl) applyProvisional(ctx context.Context, event domain.SourceEvent, agentID uuid.UUID, cls domain.Classification, existing *domain.CommissionItem) (*ports.LifecycleResult, error) {
	now := time.Now().UTC()

	if existing == nil {
		item := newCommissionItem(event, agentID, cls.Amount, now)
		if err := item.TransitionTo(domain.CommissionStateConfirmed, now); err != nil {
			return nil, apperror.InternalError(err)
		}
		return s.createItem(ctx, item)
	}

	if existing.State != domain.CommissionStatePending {
		return &ports.LifecycleResult{Item: existing, Applied: false}, nil
	}
	return s.advanceExisting(ctx, existing, domain.CommissionStatePending, domain.CommissionStateConfirmed, now)
}

// applyFinal creates or advances the item to credited. This is the only
// transition that increases the agent's commission balance, and it is
// idempotent: a replayed event that finds the item already credited or paid
// out is a no-op.
func (s *LifecycleServiceImpl) applyFinal(ctx context.Context, event domain.SourceEvent, agentID uuid.UUID, cls domain.Classification, existing *domain.CommissionItem) (*ports.LifecycleResult, error) {
	now := time.Now().UTC()

	if existing == nil {
		item := newCommissionItem(event, agentID, cls.Amount, now)
		if err := item.TransitionTo(domain.CommissionStateConfirmed, now); err != nil {
			return nil, apperror.InternalError(err)
		}
		if err := item.TransitionTo(domain.CommissionStateCredited, now); err != nil {
			return nil, apperror.InternalError(err)
		}
		return s.createItem(ctx, item)
	}

	switch existing.State {
	case domain.CommissionStatePending, domain.CommissionStateConfirmed:
		return s.creditExisting(ctx, existing, existing.State, cls.Amount, now)
	case domain.CommissionStateCredited, domain.CommissionStatePaidOut:
		// Replayed status-change event; already credited once.
		return &ports.LifecycleResult{Item: existing, Applied: false, Reason: apperror.ErrDuplicateCredit()}, nil
	case domain.CommissionStateReversed:
		return s.reenterReversed(ctx, existing, cls.Amount, now)
	}
	return nil, apperror.InternalError(fmt.Errorf("unknown commission state %q", existing.State))
}

// applyReversal moves the item to reversed unless it is held by an in-flight
// withdrawal, in which case the reversal is rejected as a conflict requiring
// manual resolution.
func (s *LifecycleServiceImpl) applyReversal(ctx context.Context, event domain.SourceEvent, existing *domain.CommissionItem) (*ports.LifecycleResult, error) {
	if existing == nil {
		// Source canceled before any commission was recorded.
		return &ports.LifecycleResult{Applied: false}, nil
	}
	if existing.State == domain.CommissionStateReversed {
		return &ports.LifecycleResult{Item: existing, Applied: false}, nil
	}
	if existing.State == domain.CommissionStatePaidOut {
		return nil, apperror.ErrInvalidTransition(string(existing.State), string(domain.CommissionStateReversed))
	}
	if existing.IsHeld() {
		return nil, apperror.ErrItemHeld("held by an in-flight withdrawal; reversal requires manual resolution")
	}

	return s.advanceExisting(ctx, existing, existing.State, domain.CommissionStateReversed, time.Now().UTC())
}

// createItem persists a freshly built item. A unique index on
// (source_type, source_id) backstops the existence check: a racing duplicate
// insert surfaces here and is resolved by re-reading.
func (s *LifecycleServiceImpl) createItem(ctx context.Context, item *domain.CommissionItem) (*ports.LifecycleResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.commissionRepo.Create(ctx, dbTx, item); err != nil {
		if current, lookupErr := s.commissionRepo.GetBySource(ctx, item.SourceType, item.SourceID); lookupErr == nil && current != nil {
			return &ports.LifecycleResult{Item: current, Applied: false}, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("create commission item: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return &ports.LifecycleResult{Item: item, Applied: true}, nil
}

// advanceExisting applies one conditional state update. Zero rows affected
// means a concurrent actor got there first; the item is re-read to decide
// between a benign duplicate and a real conflict.
func (s *LifecycleServiceImpl) advanceExisting(ctx context.Context, item *domain.CommissionItem, from, to domain.CommissionState, at time.Time) (*ports.LifecycleResult, error) {
	if !domain.CanTransitionCommission(from, to) {
		return nil, apperror.ErrInvalidTransition(string(from), string(to))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rows, err := s.commissionRepo.UpdateState(ctx, dbTx, item.ID, from, to, at)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update commission state: %w", err))
	}
	if rows == 0 {
		return s.resolveLostRace(ctx, item, to)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	updated := *item
	updated.State = to
	updated.StateChangedAt = at
	return &ports.LifecycleResult{Item: &updated, Applied: true}, nil
}

// creditExisting moves a pending or confirmed item to credited with the
// final event's amount. The provisional snapshot may carry a stale rate;
// the terminal status is authoritative, so the credit rewrites the amount
// in the same conditional update that advances the state.
func (s *LifecycleServiceImpl) creditExisting(ctx context.Context, item *domain.CommissionItem, from domain.CommissionState, amount int64, at time.Time) (*ports.LifecycleResult, error) {
	if !domain.CanTransitionCommission(from, domain.CommissionStateCredited) {
		return nil, apperror.ErrInvalidTransition(string(from), string(domain.CommissionStateCredited))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rows, err := s.commissionRepo.UpdateStateAndAmount(ctx, dbTx, item.ID, from, domain.CommissionStateCredited, amount, at)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit commission item: %w", err))
	}
	if rows == 0 {
		return s.resolveLostRace(ctx, item, domain.CommissionStateCredited)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	updated := *item
	updated.State = domain.CommissionStateCredited
	updated.Amount = amount
	updated.StateChangedAt = at
	return &ports.LifecycleResult{Item: &updated, Applied: true}, nil
}

// reenterReversed handles a re-confirmed source whose item was reversed:
// back to pending with the re-confirmed amount, then forward to credited,
// both conditional within one transaction.
func (s *LifecycleServiceImpl) reenterReversed(ctx context.Context, item *domain.CommissionItem, amount int64, at time.Time) (*ports.LifecycleResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rows, err := s.commissionRepo.UpdateStateAndAmount(ctx, dbTx, item.ID, domain.CommissionStateReversed, domain.CommissionStatePending, amount, at)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("re-enter reversed item: %w", err))
	}
	if rows == 0 {
		return s.resolveLostRace(ctx, item, domain.CommissionStateCredited)
	}

	rows, err = s.commissionRepo.UpdateState(ctx, dbTx, item.ID, domain.CommissionStatePending, domain.CommissionStateCredited, at)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit re-entered item: %w", err))
	}
	if rows == 0 {
		return nil, apperror.ErrItemHeld("commission item changed during re-entry")
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	updated := *item
	updated.State = domain.CommissionStateCredited
	updated.Amount = amount
	updated.StateChangedAt = at
	return &ports.LifecycleResult{Item: &updated, Applied: true}, nil
}

// resolveLostRace re-reads the item after a zero-row conditional update. If
// another replay already reached the target (or beyond), the event is a
// benign duplicate; anything else is a conflict.
func (s *LifecycleServiceImpl) resolveLostRace(ctx context.Context, item *domain.CommissionItem, target domain.CommissionState) (*ports.LifecycleResult, error) {
	current, err := s.commissionRepo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("re-read commission item: %w", err))
	}
	if current == nil {
		return nil, apperror.ErrNotFound("commission item")
	}
	if current.State == target || (target == domain.CommissionStateCredited && current.State == domain.CommissionStatePaidOut) {
		result := &ports.LifecycleResult{Item: current, Applied: false}
		if target == domain.CommissionStateCredited {
			result.Reason = apperror.ErrDuplicateCredit()
		}
		return result, nil
	}
	return nil, apperror.ErrItemHeld(fmt.Sprintf("concurrent change moved item to %s", current.State))
}

func newCommissionItem(event domain.SourceEvent, agentID uuid.UUID, amount int64, at time.Time) *domain.CommissionItem {
	return &domain.CommissionItem{
		ID:             uuid.New(),
		SourceType:     event.SourceType,
		SourceID:       event.SourceID,
		AgentID:        agentID,
		Amount:         amount,
		State:          domain.CommissionStatePending,
		CreatedAt:      at,
		StateChangedAt: at,
	}
}

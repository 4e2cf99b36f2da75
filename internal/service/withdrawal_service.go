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

// WithdrawalServiceImpl implements ports.WithdrawalService. It owns the
// withdrawal request lifecycle and the credited -> paid_out edge of
// commission items. The hold flag on an item is the mutual-exclusion signal
// between this engine and the lifecycle manager: both only mutate items via
// conditional writes checked by rows affected.
type WithdrawalServiceImpl struct {
	commissionRepo ports.CommissionRepository
	withdrawalRepo ports.WithdrawalRepository
	balanceSvc     ports.BalanceService
	encSvc         ports.EncryptionService
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	commissionRepo ports.CommissionRepository,
	withdrawalRepo ports.WithdrawalRepository,
	balanceSvc ports.BalanceService,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		commissionRepo: commissionRepo,
		withdrawalRepo: withdrawalRepo,
		balanceSvc:     balanceSvc,
		encSvc:         encSvc,
		transactor:     transactor,
		log:            log,
	}
}

// CreateRequest validates the amount against the live aggregated balance,
// selects credited items oldest-first until they cover the amount, and
// atomically holds them for this request. Held items stay credited; the hold
// keeps them out of reach of other requests and of reversals.
func (s *WithdrawalServiceImpl) CreateRequest(ctx context.Context, req ports.CreateWithdrawalRequest) (*domain.WithdrawalRequest, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Destination == "" {
		return nil, apperror.Validation("payout destination is required")
	}

	summary, err := s.balanceSvc.GetBalanceSummary(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if summary.Degraded {
		// A partial balance could wrongly reject or over-pay; refuse.
		return nil, apperror.ErrPartialSourceFailure(summary.FailedSources)
	}
	if req.Amount > summary.CommissionBalance {
		return nil, apperror.ErrInsufficientBalance(summary.CommissionBalance)
	}

	candidates, err := s.commissionRepo.ListCreditedUnheld(ctx, req.AgentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list credited items: %w", err))
	}

	var (
		selected  []uuid.UUID
		heldTotal int64
	)
	for _, item := range candidates {
		if heldTotal >= req.Amount {
			break
		}
		selected = append(selected, item.ID)
		heldTotal += item.Amount
	}
	if heldTotal < req.Amount {
		// A concurrent request consumed items between the balance check and
		// the selection scan.
		return nil, apperror.ErrInsufficientBalance(heldTotal)
	}

	destinationEnc, err := s.encSvc.Encrypt(req.Destination)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt destination: %w", err))
	}

	now := time.Now().UTC()
	withdrawal := &domain.WithdrawalRequest{
		ID:                uuid.New(),
		AgentID:           req.AgentID,
		Amount:            req.Amount,
		HeldTotal:         heldTotal,
		DestinationEnc:    destinationEnc,
		CommissionItemIDs: selected,
		State:             domain.WithdrawalStateRequested,
		RequestedAt:       now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Conditional hold: only items still credited and unheld are claimed.
	// Any shortfall means a concurrent request won; the whole creation rolls
	// back rather than holding a partial set.
	rows, err := s.commissionRepo.Hold(ctx, dbTx, selected, withdrawal.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hold commission items: %w", err))
	}
	if rows != int64(len(selected)) {
		return nil, apperror.ErrItemHeld("selected commission items were claimed by a concurrent request")
	}

	if err := s.withdrawalRepo.Create(ctx, dbTx, withdrawal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal request: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID.String()).
		Str("agent_id", req.AgentID.String()).
		Int64("amount", req.Amount).
		Int64("held_total", heldTotal).
		Int("items", len(selected)).
		Msg("withdrawal request created")

	return withdrawal, nil
}

// Advance moves a withdrawal request along its state machine. Transitions to
// paid settle every held item; transitions to rejected release every hold
// with amounts unchanged. Either all held items mutate or none do.
func (s *WithdrawalServiceImpl) Advance(ctx context.Context, requestID uuid.UUID, newState domain.WithdrawalState, note *string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get withdrawal: %w", err))
	}
	if withdrawal == nil {
		return nil, apperror.ErrNotFound("withdrawal request")
	}
	if !domain.CanTransitionWithdrawal(withdrawal.State, newState) {
		return nil, apperror.ErrInvalidTransition(string(withdrawal.State), string(newState))
	}

	now := time.Now().UTC()

	if newState == domain.WithdrawalStatePaid {
		// Defensive re-validation: the hold invariant should make an
		// out-of-band reversal impossible, but pay out nothing unless every
		// snapshot item is still credited and held by this request.
		if err := s.revalidateHeldItems(ctx, withdrawal); err != nil {
			return nil, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	switch newState {
	case domain.WithdrawalStatePaid:
		settled, err := s.commissionRepo.SettleHeld(ctx, dbTx, withdrawal.ID, now)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("settle held items: %w", err))
		}
		if settled != int64(len(withdrawal.CommissionItemIDs)) {
			// Partial settlement must never survive; roll back everything.
			return nil, apperror.ErrItemHeld(fmt.Sprintf("settled %d of %d held items; aborted", settled, len(withdrawal.CommissionItemIDs)))
		}
	case domain.WithdrawalStateRejected:
		if _, err := s.commissionRepo.ReleaseHold(ctx, dbTx, withdrawal.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("release held items: %w", err))
		}
	}

	rows, err := s.withdrawalRepo.UpdateState(ctx, dbTx, withdrawal.ID, withdrawal.State, newState, note, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update withdrawal state: %w", err))
	}
	if rows == 0 {
		// A concurrent staff action already moved the request.
		current, readErr := s.withdrawalRepo.GetByID(ctx, withdrawal.ID)
		if readErr == nil && current != nil {
			return nil, apperror.ErrInvalidTransition(string(current.State), string(newState))
		}
		return nil, apperror.ErrInvalidTransition(string(withdrawal.State), string(newState))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	updated := *withdrawal
	if err := updated.TransitionTo(newState, now); err != nil {
		return nil, apperror.InternalError(err)
	}
	updated.Note = note

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID.String()).
		Str("from", string(withdrawal.State)).
		Str("to", string(newState)).
		Msg("withdrawal advanced")

	return &updated, nil
}

// revalidateHeldItems re-checks every snapshot item before settlement.
func (s *WithdrawalServiceImpl) revalidateHeldItems(ctx context.Context, withdrawal *domain.WithdrawalRequest) error {
	items, err := s.commissionRepo.GetByIDs(ctx, withdrawal.CommissionItemIDs)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load held items: %w", err))
	}
	if len(items) != len(withdrawal.CommissionItemIDs) {
		return apperror.ErrItemHeld("held commission items missing; manual resolution required")
	}

	var total int64
	for _, item := range items {
		if item.State != domain.CommissionStateCredited {
			return apperror.ErrItemHeld(fmt.Sprintf("item %s is %s, not credited", item.ID, item.State))
		}
		if item.HeldBy == nil || *item.HeldBy != withdrawal.ID {
			return apperror.ErrItemHeld(fmt.Sprintf("item %s is not held by this request", item.ID))
		}
		total += item.Amount
	}
	if total < withdrawal.Amount {
		return apperror.ErrInsufficientBalance(total)
	}
	return nil
}

// ListWithdrawals returns the read-only projection with embedded items.
func (s *WithdrawalServiceImpl) ListWithdrawals(ctx context.Context, params ports.WithdrawalListParams) ([]ports.WithdrawalDetail, int64, error) {
	requests, total, err := s.withdrawalRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list withdrawals: %w", err))
	}

	details := make([]ports.WithdrawalDetail, 0, len(requests))
	for _, req := range requests {
		items, err := s.commissionRepo.GetByIDs(ctx, req.CommissionItemIDs)
		if err != nil {
			return nil, 0, apperror.InternalError(fmt.Errorf("load items for withdrawal %s: %w", req.ID, err))
		}

		detail := ports.WithdrawalDetail{Request: req, Items: items}
		if destination, err := s.encSvc.Decrypt(req.DestinationEnc); err == nil {
			detail.Destination = destination
		} else {
			s.log.Warn().Err(err).Str("withdrawal_id", req.ID.String()).Msg("failed to decrypt payout destination")
		}
		details = append(details, detail)
	}
	return details, total, nil
}

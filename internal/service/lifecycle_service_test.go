package service

import (
	"context"
	"testing"
	"time"

	"commission-ledger/internal/adapter/storage/memory"
	"commission-ledger/internal/core/domain"
	"commission-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

type lifecycleHarness struct {
	svc  *LifecycleServiceImpl
	repo *memory.CommissionRepo
}

func newLifecycleHarness() *lifecycleHarness {
	repo := memory.NewCommissionRepo()
	svc := NewLifecycleService(repo, DefaultAdapterRegistry(), memory.NewTransactor(), zerolog.Nop())
	return &lifecycleHarness{svc: svc, repo: repo}
}

func referralEvent(agentID uuid.UUID, sourceID, status string, rate int64) domain.SourceEvent {
	return domain.SourceEvent{
		SourceType:     domain.SourceTypeReferral,
		SourceID:       sourceID,
		AgentID:        agentID.String(),
		NewStatus:      status,
		CommissionRate: int64Ptr(rate),
	}
}

func TestLifecycle_FinalEventCreatesCreditedItem(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()

	result, err := h.svc.OnSourceStatusChanged(context.Background(), referralEvent(agentID, "ref-1", "confirmed", 500))
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.NotNil(t, result.Item)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
	assert.Equal(t, int64(500), result.Item.Amount)
	assert.Equal(t, agentID, result.Item.AgentID)

	stored, err := h.repo.GetBySource(context.Background(), domain.SourceTypeReferral, "ref-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.CommissionStateCredited, stored.State)
}

func TestLifecycle_ProvisionalCreatesConfirmedItem(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()

	result, err := h.svc.OnSourceStatusChanged(context.Background(), referralEvent(agentID, "ref-2", "registered", 300))
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateConfirmed, result.Item.State)
	assert.Equal(t, int64(300), result.Item.Amount)
}

func TestLifecycle_ProvisionalThenFinalCredits(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	event := domain.SourceEvent{
		SourceType:     domain.SourceTypeDataOrder,
		SourceID:       "order-1",
		AgentID:        agentID.String(),
		NewStatus:      "processing",
		UnitCommission: int64Ptr(25),
		Quantity:       int64Ptr(4),
	}
	result, err := h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateConfirmed, result.Item.State)
	assert.Equal(t, int64(100), result.Item.Amount)

	event.NewStatus = "delivered"
	result, err = h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
	assert.Equal(t, int64(100), result.Item.Amount)
}

func TestLifecycle_FinalAmountSupersedesProvisional(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	event := domain.SourceEvent{
		SourceType:     domain.SourceTypeDataOrder,
		SourceID:       "order-2",
		AgentID:        agentID.String(),
		NewStatus:      "processing",
		CommissionRate: int64Ptr(1000),
	}
	result, err := h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, int64(1000), result.Item.Amount)

	// The terminal status arrives with a corrected rate; the credit must
	// carry the final amount, not the provisional snapshot.
	event.NewStatus = "delivered"
	event.CommissionRate = int64Ptr(9999)
	result, err = h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
	assert.Equal(t, int64(9999), result.Item.Amount)

	sums, err := h.repo.SumForAgent(ctx, agentID, domain.SourceTypeDataOrder)
	require.NoError(t, err)
	assert.Equal(t, int64(9999), sums.Credited)
}

func TestLifecycle_ReplayedFinalEventIsNoOp(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()
	event := referralEvent(agentID, "ref-3", "confirmed", 500)

	first, err := h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Item.ID, second.Item.ID)
	assert.Equal(t, int64(500), second.Item.Amount)
	require.NotNil(t, second.Reason)
	assert.Equal(t, "LEDG_002", second.Reason.Code)

	// One item, one credit: the agent's balance never double-counts replays.
	sums, err := h.repo.SumForAgent(ctx, agentID, domain.SourceTypeReferral)
	require.NoError(t, err)
	assert.Equal(t, int64(500), sums.Credited)
}

func TestLifecycle_UnknownStatusIsNoOp(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()

	result, err := h.svc.OnSourceStatusChanged(context.Background(), referralEvent(agentID, "ref-4", "contacted", 500))
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Nil(t, result.Item)
}

func TestLifecycle_MissingRateFieldsRejected(t *testing.T) {
	h := newLifecycleHarness()
	event := domain.SourceEvent{
		SourceType: domain.SourceTypeReferral,
		SourceID:   "ref-5",
		AgentID:    uuid.New().String(),
		NewStatus:  "confirmed",
	}

	_, err := h.svc.OnSourceStatusChanged(context.Background(), event)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "LEDG_001", appErr.Code)

	// The event must leave no trace: failed classification is not a zero credit.
	stored, err := h.repo.GetBySource(context.Background(), domain.SourceTypeReferral, "ref-5")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLifecycle_InvalidInputRejected(t *testing.T) {
	h := newLifecycleHarness()
	ctx := context.Background()

	_, err := h.svc.OnSourceStatusChanged(ctx, domain.SourceEvent{
		SourceType:     domain.SourceTypeReferral,
		AgentID:        uuid.New().String(),
		NewStatus:      "confirmed",
		CommissionRate: int64Ptr(100),
	})
	require.Error(t, err)

	_, err = h.svc.OnSourceStatusChanged(ctx, domain.SourceEvent{
		SourceType:     domain.SourceTypeReferral,
		SourceID:       "ref-6",
		AgentID:        "not-a-uuid",
		NewStatus:      "confirmed",
		CommissionRate: int64Ptr(100),
	})
	require.Error(t, err)
}

func TestLifecycle_ReversalMovesItemToReversed(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	_, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-7", "confirmed", 500))
	require.NoError(t, err)

	result, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-7", "canceled", 500))
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateReversed, result.Item.State)

	sums, err := h.repo.SumForAgent(ctx, agentID, domain.SourceTypeReferral)
	require.NoError(t, err)
	assert.Zero(t, sums.Credited)
}

func TestLifecycle_ReversalWithoutItemIsNoOp(t *testing.T) {
	h := newLifecycleHarness()

	result, err := h.svc.OnSourceStatusChanged(context.Background(), referralEvent(uuid.New(), "ref-8", "canceled", 0))
	require.NoError(t, err)
	assert.False(t, result.Applied)
}

func TestLifecycle_ReversalOfHeldItemConflicts(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	created, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-9", "confirmed", 500))
	require.NoError(t, err)

	requestID := uuid.New()
	rows, err := h.repo.Hold(ctx, nil, []uuid.UUID{created.Item.ID}, requestID)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-9", "canceled", 500))
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "LEDG_004", appErr.Code)

	// The held item is untouched.
	stored, err := h.repo.GetByID(ctx, created.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStateCredited, stored.State)
	require.NotNil(t, stored.HeldBy)
	assert.Equal(t, requestID, *stored.HeldBy)
}

func TestLifecycle_ReversalOfPaidOutItemRejected(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	created, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-10", "confirmed", 500))
	require.NoError(t, err)

	requestID := uuid.New()
	_, err = h.repo.Hold(ctx, nil, []uuid.UUID{created.Item.ID}, requestID)
	require.NoError(t, err)
	_, err = h.repo.SettleHeld(ctx, nil, requestID, time.Now().UTC())
	require.NoError(t, err)

	_, err = h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-10", "canceled", 500))
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "LEDG_005", appErr.Code)
}

func TestLifecycle_ReversedItemReentersOnReconfirmation(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	_, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-11", "confirmed", 500))
	require.NoError(t, err)
	_, err = h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-11", "canceled", 500))
	require.NoError(t, err)

	// Re-confirmed at a different rate: the item carries the new amount.
	result, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-11", "confirmed", 750))
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
	assert.Equal(t, int64(750), result.Item.Amount)

	sums, err := h.repo.SumForAgent(ctx, agentID, domain.SourceTypeReferral)
	require.NoError(t, err)
	assert.Equal(t, int64(750), sums.Credited)
}

func TestLifecycle_ProvisionalAfterCreditIsNoOp(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	_, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-12", "confirmed", 500))
	require.NoError(t, err)

	// Out-of-order delivery: the provisional event arrives after crediting.
	result, err := h.svc.OnSourceStatusChanged(ctx, referralEvent(agentID, "ref-12", "registered", 500))
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
}

func TestLifecycle_ManualAdjustment(t *testing.T) {
	h := newLifecycleHarness()
	agentID := uuid.New()
	ctx := context.Background()

	event := domain.SourceEvent{
		SourceType:     domain.SourceTypeManual,
		SourceID:       "adj-1",
		AgentID:        agentID.String(),
		NewStatus:      "applied",
		CommissionRate: int64Ptr(1200),
	}
	result, err := h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateCredited, result.Item.State)
	assert.Equal(t, int64(1200), result.Item.Amount)

	event.NewStatus = "voided"
	result, err = h.svc.OnSourceStatusChanged(ctx, event)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, domain.CommissionStateReversed, result.Item.State)
}

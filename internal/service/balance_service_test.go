package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"commission-ledger/internal/adapter/storage/memory"
	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalanceCache struct {
	mu        sync.Mutex
	summaries map[uuid.UUID]domain.BalanceSummary
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{summaries: make(map[uuid.UUID]domain.BalanceSummary)}
}

func (c *fakeBalanceCache) Get(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary, ok := c.summaries[agentID]
	if !ok {
		return nil, nil
	}
	clone := summary
	return &clone, nil
}

func (c *fakeBalanceCache) Set(ctx context.Context, summary *domain.BalanceSummary, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[summary.AgentID] = *summary
	return nil
}

type balanceHarness struct {
	svc            *BalanceServiceImpl
	commissionRepo *memory.CommissionRepo
	walletRepo     *memory.WalletRepo
	cache          *fakeBalanceCache
}

func newBalanceHarness() *balanceHarness {
	commissionRepo := memory.NewCommissionRepo()
	walletRepo := memory.NewWalletRepo()
	cache := newFakeBalanceCache()
	svc := NewBalanceService(commissionRepo, walletRepo, cache, zerolog.Nop())
	return &balanceHarness{svc: svc, commissionRepo: commissionRepo, walletRepo: walletRepo, cache: cache}
}

func seedItem(t *testing.T, repo *memory.CommissionRepo, agentID uuid.UUID, source domain.SourceType, sourceID string, amount int64, state domain.CommissionState) *domain.CommissionItem {
	t.Helper()
	now := time.Now().UTC()
	item := &domain.CommissionItem{
		ID:             uuid.New(),
		SourceType:     source,
		SourceID:       sourceID,
		AgentID:        agentID,
		Amount:         amount,
		State:          state,
		CreatedAt:      now,
		StateChangedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), nil, item))
	return item
}

func seedWallet(t *testing.T, repo *memory.WalletRepo, agentID uuid.UUID, amount int64, kind domain.WalletEntryKind) {
	t.Helper()
	entry := &domain.WalletEntry{
		ID:        uuid.New(),
		AgentID:   agentID,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
}

func TestBalance_SummaryAggregatesAllSources(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()
	other := uuid.New()

	seedWallet(t, h.walletRepo, agentID, 1000, domain.WalletEntryKindTopup)
	seedWallet(t, h.walletRepo, agentID, -300, domain.WalletEntryKindSpend)
	seedWallet(t, h.walletRepo, other, 9999, domain.WalletEntryKindTopup)

	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-1", 500, domain.CommissionStateCredited)
	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeDataOrder, "order-1", 200, domain.CommissionStateCredited)
	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeWholesaleOrder, "ws-1", 700, domain.CommissionStatePaidOut)
	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-2", 100, domain.CommissionStatePending)
	seedItem(t, h.commissionRepo, other, domain.SourceTypeReferral, "ref-3", 4000, domain.CommissionStateCredited)

	summary, err := h.svc.GetBalanceSummary(context.Background(), agentID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), summary.WalletBalance)
	assert.Equal(t, int64(700), summary.CommissionBalance)
	assert.Equal(t, int64(1400), summary.TotalEarned)
	assert.Equal(t, int64(700), summary.TotalWithdrawn)
	assert.Zero(t, summary.PendingWithdrawal)
	assert.False(t, summary.Degraded)
	assert.False(t, summary.ComputedAt.IsZero())
}

func TestBalance_HeldItemsCountAsPendingWithdrawal(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()
	ctx := context.Background()

	item := seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-1", 500, domain.CommissionStateCredited)
	rows, err := h.commissionRepo.Hold(ctx, nil, []uuid.UUID{item.ID}, uuid.New())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	summary, err := h.svc.GetBalanceSummary(ctx, agentID)
	require.NoError(t, err)
	// Held items are still credited, so they remain in the balance, and the
	// pending figure shows what an in-flight withdrawal would consume.
	assert.Equal(t, int64(500), summary.CommissionBalance)
	assert.Equal(t, int64(500), summary.PendingWithdrawal)
}

func TestBalance_UnreachableSourceMarksDegraded(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()

	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-1", 500, domain.CommissionStateCredited)
	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeDataOrder, "order-1", 200, domain.CommissionStateCredited)
	h.commissionRepo.FailSources[domain.SourceTypeDataOrder] = true

	summary, err := h.svc.GetBalanceSummary(context.Background(), agentID)
	require.NoError(t, err)
	assert.True(t, summary.Degraded)
	assert.Equal(t, []string{"data_order"}, summary.FailedSources)
	// Reachable sources still report; the failed one is named, not zeroed.
	assert.Equal(t, int64(500), summary.CommissionBalance)
}

func TestBalance_WalletFailureMarksDegraded(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()
	h.walletRepo.FailSum = true

	summary, err := h.svc.GetBalanceSummary(context.Background(), agentID)
	require.NoError(t, err)
	assert.True(t, summary.Degraded)
	assert.Contains(t, summary.FailedSources, "wallet")
}

func TestBalance_DegradedSummaryNotCached(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()
	ctx := context.Background()

	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-1", 500, domain.CommissionStateCredited)

	_, err := h.svc.GetBalanceSummary(ctx, agentID)
	require.NoError(t, err)
	cached, err := h.cache.Get(ctx, agentID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(500), cached.CommissionBalance)

	// A later degraded computation must not overwrite the last good copy.
	h.commissionRepo.FailSources[domain.SourceTypeReferral] = true
	_, err = h.svc.GetBalanceSummary(ctx, agentID)
	require.NoError(t, err)

	cached, err = h.cache.Get(ctx, agentID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(500), cached.CommissionBalance)
	assert.False(t, cached.Degraded)
}

func TestBalance_LastKnownGood(t *testing.T) {
	h := newBalanceHarness()
	agentID := uuid.New()
	ctx := context.Background()

	lkg, err := h.svc.LastKnownGood(ctx, agentID)
	require.NoError(t, err)
	assert.Nil(t, lkg)

	seedItem(t, h.commissionRepo, agentID, domain.SourceTypeReferral, "ref-1", 500, domain.CommissionStateCredited)
	_, err = h.svc.GetBalanceSummary(ctx, agentID)
	require.NoError(t, err)

	lkg, err = h.svc.LastKnownGood(ctx, agentID)
	require.NoError(t, err)
	require.NotNil(t, lkg)
	assert.True(t, lkg.FromStaleCache)
	assert.Equal(t, int64(500), lkg.CommissionBalance)
}

func TestBalance_NilCacheDisablesCaching(t *testing.T) {
	commissionRepo := memory.NewCommissionRepo()
	svc := NewBalanceService(commissionRepo, memory.NewWalletRepo(), nil, zerolog.Nop())
	agentID := uuid.New()

	_, err := svc.GetBalanceSummary(context.Background(), agentID)
	require.NoError(t, err)

	lkg, err := svc.LastKnownGood(context.Background(), agentID)
	require.NoError(t, err)
	assert.Nil(t, lkg)
}

func TestBalance_BatchSummariesPreserveOrder(t *testing.T) {
	h := newBalanceHarness()
	ctx := context.Background()

	agentIDs := make([]uuid.UUID, 20)
	for i := range agentIDs {
		agentIDs[i] = uuid.New()
		seedItem(t, h.commissionRepo, agentIDs[i], domain.SourceTypeReferral, uuid.NewString(), int64((i+1)*100), domain.CommissionStateCredited)
	}

	summaries, err := h.svc.GetBalanceSummaries(ctx, agentIDs)
	require.NoError(t, err)
	require.Len(t, summaries, len(agentIDs))
	for i, summary := range summaries {
		assert.Equal(t, agentIDs[i], summary.AgentID)
		assert.Equal(t, int64((i+1)*100), summary.CommissionBalance)
	}
}

func TestBalance_BatchSummariesEmptyInput(t *testing.T) {
	h := newBalanceHarness()
	summaries, err := h.svc.GetBalanceSummaries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

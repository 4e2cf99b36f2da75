package service

import (
	"context"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	lastKnownGoodTTL = 24 * time.Hour

	// Batch summaries scan the store per agent; bound the fan-out so an
	// admin list of a hundred agents cannot saturate the backing store.
	batchConcurrency = 8
	batchRetries     = 2
	batchBackoffBase = 100 * time.Millisecond
)

// BalanceServiceImpl implements ports.BalanceService. Summaries are derived
// by scanning the agent's records on every read; the Redis cache only keeps
// a last-known-good copy for degraded dashboard views.
type BalanceServiceImpl struct {
	commissionRepo ports.CommissionRepository
	walletRepo     ports.WalletEntryRepository
	cache          ports.BalanceCache // nil = caching disabled
	log            zerolog.Logger
}

// NewBalanceService creates a new BalanceServiceImpl.
func NewBalanceService(
	commissionRepo ports.CommissionRepository,
	walletRepo ports.WalletEntryRepository,
	cache ports.BalanceCache,
	log zerolog.Logger,
) *BalanceServiceImpl {
	return &BalanceServiceImpl{
		commissionRepo: commissionRepo,
		walletRepo:     walletRepo,
		cache:          cache,
		log:            log,
	}
}

// GetBalanceSummary recomputes the agent's balances from current records.
// An unreachable source marks the summary degraded and names the source;
// it is never silently treated as zero, because understating an agent's
// earnings is the most damaging failure here.
func (s *BalanceServiceImpl) GetBalanceSummary(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error) {
	summary := &domain.BalanceSummary{
		AgentID:    agentID,
		ComputedAt: time.Now().UTC(),
	}

	walletSum, err := s.walletRepo.SumForAgent(ctx, agentID)
	if err != nil {
		s.log.Warn().Err(err).Str("agent_id", agentID.String()).Msg("wallet source unreachable")
		summary.Degraded = true
		summary.FailedSources = append(summary.FailedSources, "wallet")
	} else {
		summary.WalletBalance = walletSum
	}

	for _, source := range domain.AllSourceTypes {
		sums, err := s.commissionRepo.SumForAgent(ctx, agentID, source)
		if err != nil {
			s.log.Warn().Err(err).
				Str("agent_id", agentID.String()).
				Str("source", string(source)).
				Msg("commission source unreachable")
			summary.Degraded = true
			summary.FailedSources = append(summary.FailedSources, string(source))
			continue
		}
		summary.CommissionBalance += sums.Credited
		summary.TotalEarned += sums.Credited + sums.PaidOut
		summary.TotalWithdrawn += sums.PaidOut
		summary.PendingWithdrawal += sums.Held
	}

	if !summary.Degraded && s.cache != nil {
		if err := s.cache.Set(ctx, summary, lastKnownGoodTTL); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID.String()).Msg("failed to cache balance summary")
		}
	}

	return summary, nil
}

// LastKnownGood returns the cached last non-degraded summary, if any.
func (s *BalanceServiceImpl) LastKnownGood(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error) {
	if s.cache == nil {
		return nil, nil
	}
	cached, err := s.cache.Get(ctx, agentID)
	if err != nil || cached == nil {
		return nil, err
	}
	cached.FromStaleCache = true
	return cached, nil
}

// GetBalanceSummaries computes summaries for many agents with bounded
// concurrency and per-agent retry backoff. Order follows agentIDs.
func (s *BalanceServiceImpl) GetBalanceSummaries(ctx context.Context, agentIDs []uuid.UUID) ([]domain.BalanceSummary, error) {
	summaries := make([]domain.BalanceSummary, len(agentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, agentID := range agentIDs {
		g.Go(func() error {
			summary, err := s.summaryWithRetry(gctx, agentID)
			if err != nil {
				return err
			}
			summaries[i] = *summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// summaryWithRetry retries transient store errors with linear backoff.
// Degraded summaries are not retried here; they already carry their own
// partial-failure marking.
func (s *BalanceServiceImpl) summaryWithRetry(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error) {
	var lastErr error
	for attempt := 0; attempt <= batchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(batchBackoffBase * time.Duration(attempt)):
			}
		}
		summary, err := s.GetBalanceSummary(ctx, agentID)
		if err == nil {
			return summary, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

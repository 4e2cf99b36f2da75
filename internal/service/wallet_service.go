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

// WalletServiceImpl implements ports.WalletService. Wallet entries are
// append-only: corrections are offsetting entries, never edits.
type WalletServiceImpl struct {
	walletRepo ports.WalletEntryRepository
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletEntryRepository, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{walletRepo: walletRepo, log: log}
}

// RecordWalletEntry appends one signed wallet movement.
func (s *WalletServiceImpl) RecordWalletEntry(ctx context.Context, req ports.WalletEntryRequest) (*domain.WalletEntry, error) {
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	switch req.Kind {
	case domain.WalletEntryKindTopup, domain.WalletEntryKindSpend, domain.WalletEntryKindAdjustment:
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown wallet entry kind %q", req.Kind))
	}
	if req.Kind == domain.WalletEntryKindTopup && req.Amount < 0 {
		return nil, apperror.Validation("topup amount must be positive")
	}
	if req.Kind == domain.WalletEntryKindSpend && req.Amount > 0 {
		return nil, apperror.Validation("spend amount must be negative")
	}

	entry := &domain.WalletEntry{
		ID:        uuid.New(),
		AgentID:   req.AgentID,
		Amount:    req.Amount,
		Kind:      req.Kind,
		Note:      req.Note,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.walletRepo.Create(ctx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet entry: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("agent_id", req.AgentID.String()).
		Str("kind", string(req.Kind)).
		Int64("amount", req.Amount).
		Msg("wallet entry recorded")

	return entry, nil
}

// ListWalletEntries returns the agent's wallet movements.
func (s *WalletServiceImpl) ListWalletEntries(ctx context.Context, agentID uuid.UUID) ([]domain.WalletEntry, error) {
	entries, err := s.walletRepo.ListForAgent(ctx, agentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallet entries: %w", err))
	}
	return entries, nil
}

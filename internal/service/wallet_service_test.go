package service

import (
	"context"
	"testing"

	"commission-ledger/internal/adapter/storage/memory"
	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet_RecordAndList(t *testing.T) {
	repo := memory.NewWalletRepo()
	svc := NewWalletService(repo, zerolog.Nop())
	agentID := uuid.New()
	ctx := context.Background()

	topup, err := svc.RecordWalletEntry(ctx, ports.WalletEntryRequest{
		AgentID: agentID,
		Amount:  1000,
		Kind:    domain.WalletEntryKindTopup,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, topup.ID)

	_, err = svc.RecordWalletEntry(ctx, ports.WalletEntryRequest{
		AgentID: agentID,
		Amount:  -400,
		Kind:    domain.WalletEntryKindSpend,
	})
	require.NoError(t, err)

	entries, err := svc.ListWalletEntries(ctx, agentID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	sum, err := repo.SumForAgent(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), sum)
}

func TestWallet_SignConventions(t *testing.T) {
	svc := NewWalletService(memory.NewWalletRepo(), zerolog.Nop())
	agentID := uuid.New()
	ctx := context.Background()

	cases := []struct {
		name    string
		amount  int64
		kind    domain.WalletEntryKind
		wantErr bool
	}{
		{"topup positive", 500, domain.WalletEntryKindTopup, false},
		{"topup negative", -500, domain.WalletEntryKindTopup, true},
		{"spend negative", -500, domain.WalletEntryKindSpend, false},
		{"spend positive", 500, domain.WalletEntryKindSpend, true},
		{"adjustment either sign", -250, domain.WalletEntryKindAdjustment, false},
		{"zero amount", 0, domain.WalletEntryKindTopup, true},
		{"unknown kind", 100, domain.WalletEntryKind("refund"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordWalletEntry(ctx, ports.WalletEntryRequest{
				AgentID: agentID,
				Amount:  tc.amount,
				Kind:    tc.kind,
			})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

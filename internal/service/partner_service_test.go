package service

import (
	"context"
	"strings"
	"testing"

	"commission-ledger/internal/adapter/storage/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func newPartnerHarness(t *testing.T) (*PartnerServiceImpl, *memory.PartnerRepo) {
	t.Helper()
	encSvc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	repo := memory.NewPartnerRepo()
	return NewPartnerService(repo, encSvc, zerolog.Nop()), repo
}

func TestPartner_Register(t *testing.T) {
	svc, repo := newPartnerHarness(t)
	ctx := context.Background()

	creds, err := svc.Register(ctx, "order-platform")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(creds.AccessKey, "pk_"))
	assert.True(t, strings.HasPrefix(creds.SecretKey, "sk_"))

	stored, err := repo.GetByAccessKey(ctx, creds.AccessKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "order-platform", stored.Name)
	assert.True(t, stored.IsActive())
	// The secret is stored encrypted, never in the clear.
	assert.NotEqual(t, creds.SecretKey, stored.SecretKeyEnc)
	assert.NotContains(t, stored.SecretKeyEnc, creds.SecretKey)
}

func TestPartner_RegisterRequiresName(t *testing.T) {
	svc, _ := newPartnerHarness(t)
	_, err := svc.Register(context.Background(), "")
	require.Error(t, err)
}

func TestPartner_RotateKeys(t *testing.T) {
	svc, repo := newPartnerHarness(t)
	ctx := context.Background()

	creds, err := svc.Register(ctx, "referral-tracker")
	require.NoError(t, err)

	rotated, err := svc.RotateKeys(ctx, creds.PartnerID)
	require.NoError(t, err)
	assert.Equal(t, creds.PartnerID, rotated.PartnerID)
	assert.NotEqual(t, creds.AccessKey, rotated.AccessKey)
	assert.NotEqual(t, creds.SecretKey, rotated.SecretKey)

	// The old access key no longer resolves.
	stale, err := repo.GetByAccessKey(ctx, creds.AccessKey)
	require.NoError(t, err)
	assert.Nil(t, stale)

	current, err := repo.GetByAccessKey(ctx, rotated.AccessKey)
	require.NoError(t, err)
	require.NotNil(t, current)
}

func TestPartner_RotateKeysUnknownPartner(t *testing.T) {
	svc, _ := newPartnerHarness(t)
	_, err := svc.RotateKeys(context.Background(), uuid.New())
	require.Error(t, err)
}

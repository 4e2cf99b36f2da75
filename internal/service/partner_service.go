package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PartnerServiceImpl implements ports.PartnerService: credential management
// for the external systems that post source status-change events.
type PartnerServiceImpl struct {
	partnerRepo ports.PartnerRepository
	encSvc      ports.EncryptionService
	log         zerolog.Logger
}

// NewPartnerService creates a new PartnerServiceImpl.
func NewPartnerService(partnerRepo ports.PartnerRepository, encSvc ports.EncryptionService, log zerolog.Logger) *PartnerServiceImpl {
	return &PartnerServiceImpl{partnerRepo: partnerRepo, encSvc: encSvc, log: log}
}

// Register creates a partner and returns its credentials. The secret key is
// shown only here; at rest it is stored encrypted.
func (s *PartnerServiceImpl) Register(ctx context.Context, name string) (*ports.PartnerCredentials, error) {
	if name == "" {
		return nil, apperror.Validation("partner name is required")
	}

	accessKey, secretKey, err := generateKeyPair()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate keys: %w", err))
	}
	secretKeyEnc, err := s.encSvc.Encrypt(secretKey)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt secret key: %w", err))
	}

	now := time.Now().UTC()
	partner := &domain.Partner{
		ID:           uuid.New(),
		Name:         name,
		AccessKey:    accessKey,
		SecretKeyEnc: secretKeyEnc,
		Status:       domain.PartnerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create partner: %w", err))
	}

	s.log.Info().Str("partner_id", partner.ID.String()).Str("name", name).Msg("partner registered")

	return &ports.PartnerCredentials{
		PartnerID: partner.ID,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

// RotateKeys replaces a partner's access and secret keys.
func (s *PartnerServiceImpl) RotateKeys(ctx context.Context, partnerID uuid.UUID) (*ports.PartnerCredentials, error) {
	partner, err := s.partnerRepo.GetByID(ctx, partnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get partner: %w", err))
	}
	if partner == nil {
		return nil, apperror.ErrNotFound("partner")
	}

	accessKey, secretKey, err := generateKeyPair()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate keys: %w", err))
	}
	secretKeyEnc, err := s.encSvc.Encrypt(secretKey)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt secret key: %w", err))
	}

	if err := s.partnerRepo.UpdateKeys(ctx, partnerID, accessKey, secretKeyEnc); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update partner keys: %w", err))
	}

	s.log.Info().Str("partner_id", partnerID.String()).Msg("partner keys rotated")

	return &ports.PartnerCredentials{
		PartnerID: partnerID,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

func generateKeyPair() (accessKey, secretKey string, err error) {
	buf := make([]byte, 16)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	accessKey = "pk_" + hex.EncodeToString(buf)

	buf = make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	secretKey = "sk_" + hex.EncodeToString(buf)
	return accessKey, secretKey, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartnerRepo implements ports.PartnerRepository.
type PartnerRepo struct {
	pool Pool
}

// NewPartnerRepo creates a new PartnerRepo.
func NewPartnerRepo(pool Pool) *PartnerRepo {
	return &PartnerRepo{pool: pool}
}

const partnerColumns = `id, name, access_key, secret_key_enc, status, created_at, updated_at`

// Create inserts a new partner system.
func (r *PartnerRepo) Create(ctx context.Context, p *domain.Partner) error {
	query := `INSERT INTO partners (id, name, access_key, secret_key_enc, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.AccessKey, p.SecretKeyEnc, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

// GetByID fetches a partner by its UUID.
func (r *PartnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`

	p, err := scanPartnerRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner by id: %w", err)
	}
	return p, nil
}

// GetByAccessKey fetches a partner by its public access key.
func (r *PartnerRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE access_key = $1`

	p, err := scanPartnerRow(r.pool.QueryRow(ctx, query, accessKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner by access_key: %w", err)
	}
	return p, nil
}

// UpdateKeys replaces a partner's credentials.
func (r *PartnerRepo) UpdateKeys(ctx context.Context, id uuid.UUID, accessKey, secretKeyEnc string) error {
	query := `UPDATE partners SET access_key = $1, secret_key_enc = $2, updated_at = NOW() WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, accessKey, secretKeyEnc, id)
	if err != nil {
		return fmt.Errorf("update partner keys: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner not found: %s", id)
	}
	return nil
}

func scanPartnerRow(row pgx.Row) (*domain.Partner, error) {
	p := &domain.Partner{}
	err := row.Scan(
		&p.ID, &p.Name, &p.AccessKey, &p.SecretKeyEnc, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

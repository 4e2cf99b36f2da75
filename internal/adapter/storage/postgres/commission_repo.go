package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommissionRepo implements ports.CommissionRepository. Every state change
// here is a conditional UPDATE guarded by the expected current state and the
// hold flag; callers check rows affected to detect lost races.
type CommissionRepo struct {
	pool Pool
}

// NewCommissionRepo creates a new CommissionRepo.
func NewCommissionRepo(pool Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

const commissionColumns = `id, source_type, source_id, agent_id, amount, state, held_by, created_at, state_changed_at`

// Create inserts a new commission item. The unique index on
// (source_type, source_id) rejects a second item for the same source.
func (r *CommissionRepo) Create(ctx context.Context, tx pgx.Tx, item *domain.CommissionItem) error {
	query := `INSERT INTO commission_items (id, source_type, source_id, agent_id, amount, state, held_by, created_at, state_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		item.ID, item.SourceType, item.SourceID, item.AgentID,
		item.Amount, item.State, item.HeldBy, item.CreatedAt, item.StateChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert commission item: %w", err)
	}
	return nil
}

// GetByID fetches a commission item by its UUID.
func (r *CommissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionItem, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_items WHERE id = $1`

	item, err := scanCommissionRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get commission item by id: %w", err)
	}
	return item, nil
}

// GetBySource fetches the commission item for a source transaction.
func (r *CommissionRepo) GetBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.CommissionItem, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_items WHERE source_type = $1 AND source_id = $2`

	item, err := scanCommissionRow(r.pool.QueryRow(ctx, query, sourceType, sourceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get commission item by source: %w", err)
	}
	return item, nil
}

// GetByIDs fetches a batch of commission items.
func (r *CommissionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CommissionItem, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_items WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get commission items by ids: %w", err)
	}
	defer rows.Close()
	return scanCommissionRows(rows)
}

// ListForAgent fetches the agent's commission items, oldest first.
func (r *CommissionRepo) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_items WHERE agent_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list commission items: %w", err)
	}
	defer rows.Close()
	return scanCommissionRows(rows)
}

// ListCreditedUnheld fetches withdrawable items, oldest first.
func (r *CommissionRepo) ListCreditedUnheld(ctx context.Context, agentID uuid.UUID) ([]domain.CommissionItem, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_items
		WHERE agent_id = $1 AND state = 'credited' AND held_by IS NULL
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list credited unheld items: %w", err)
	}
	defer rows.Close()
	return scanCommissionRows(rows)
}

// UpdateState conditionally advances an unheld item from one state to
// another. Zero rows affected means the item was not in the expected state
// or is held.
func (r *CommissionRepo) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, at time.Time) (int64, error) {
	query := `UPDATE commission_items SET state = $1, state_changed_at = $2
		WHERE id = $3 AND state = $4 AND held_by IS NULL`

	tag, err := tx.Exec(ctx, query, to, at, id, from)
	if err != nil {
		return 0, fmt.Errorf("update commission state: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateStateAndAmount is UpdateState plus an amount rewrite.
func (r *CommissionRepo) UpdateStateAndAmount(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CommissionState, amount int64, at time.Time) (int64, error) {
	query := `UPDATE commission_items SET state = $1, amount = $2, state_changed_at = $3
		WHERE id = $4 AND state = $5 AND held_by IS NULL`

	tag, err := tx.Exec(ctx, query, to, amount, at, id, from)
	if err != nil {
		return 0, fmt.Errorf("update commission state and amount: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Hold claims the items for a withdrawal request where each is still
// credited and unheld. The caller compares rows affected against len(ids).
func (r *CommissionRepo) Hold(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, requestID uuid.UUID) (int64, error) {
	query := `UPDATE commission_items SET held_by = $1
		WHERE id = ANY($2) AND state = 'credited' AND held_by IS NULL`

	tag, err := tx.Exec(ctx, query, requestID, ids)
	if err != nil {
		return 0, fmt.Errorf("hold commission items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SettleHeld moves every item held by the request to paid_out and clears the
// hold in the same statement.
func (r *CommissionRepo) SettleHeld(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE commission_items SET state = 'paid_out', held_by = NULL, state_changed_at = $1
		WHERE held_by = $2 AND state = 'credited'`

	tag, err := tx.Exec(ctx, query, at, requestID)
	if err != nil {
		return 0, fmt.Errorf("settle held items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReleaseHold clears the hold for every item held by the request, leaving
// state and amount untouched.
func (r *CommissionRepo) ReleaseHold(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (int64, error) {
	query := `UPDATE commission_items SET held_by = NULL WHERE held_by = $1`

	tag, err := tx.Exec(ctx, query, requestID)
	if err != nil {
		return 0, fmt.Errorf("release held items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SumForAgent aggregates one source's items for an agent by scanning the
// rows at read time.
func (r *CommissionRepo) SumForAgent(ctx context.Context, agentID uuid.UUID, source domain.SourceType) (*ports.CommissionSums, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE state = 'credited'), 0),
		COALESCE(SUM(amount) FILTER (WHERE state = 'paid_out'), 0),
		COALESCE(SUM(amount) FILTER (WHERE state = 'credited' AND held_by IS NOT NULL), 0)
		FROM commission_items WHERE agent_id = $1 AND source_type = $2`

	sums := &ports.CommissionSums{}
	err := r.pool.QueryRow(ctx, query, agentID, source).Scan(&sums.Credited, &sums.PaidOut, &sums.Held)
	if err != nil {
		return nil, fmt.Errorf("sum commissions for agent: %w", err)
	}
	return sums, nil
}

func scanCommissionRow(row pgx.Row) (*domain.CommissionItem, error) {
	item := &domain.CommissionItem{}
	err := row.Scan(
		&item.ID, &item.SourceType, &item.SourceID, &item.AgentID,
		&item.Amount, &item.State, &item.HeldBy, &item.CreatedAt, &item.StateChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanCommissionRows(rows pgx.Rows) ([]domain.CommissionItem, error) {
	var items []domain.CommissionItem
	for rows.Next() {
		item := domain.CommissionItem{}
		err := rows.Scan(
			&item.ID, &item.SourceType, &item.SourceID, &item.AgentID,
			&item.Amount, &item.State, &item.HeldBy, &item.CreatedAt, &item.StateChangedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan commission item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commission items: %w", err)
	}
	return items, nil
}

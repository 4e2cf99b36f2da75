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

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, agent_id, amount, held_total, destination_enc, commission_item_ids, state, note, requested_at, processing_at, paid_at, rejected_at`

// Create inserts a new withdrawal request with its snapshot of held item IDs.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (id, agent_id, amount, held_total, destination_enc, commission_item_ids, state, note, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		req.ID, req.AgentID, req.Amount, req.HeldTotal, req.DestinationEnc,
		req.CommissionItemIDs, req.State, req.Note, req.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request by its UUID.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	req, err := scanWithdrawalRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal by id: %w", err)
	}
	return req, nil
}

// UpdateState conditionally advances a request, stamping the timestamp column
// matching the target state. Zero rows affected means a concurrent actor
// moved the request first.
func (r *WithdrawalRepo) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalState, note *string, at time.Time) (int64, error) {
	var stampColumn string
	switch to {
	case domain.WithdrawalStateProcessing:
		stampColumn = "processing_at"
	case domain.WithdrawalStatePaid:
		stampColumn = "paid_at"
	case domain.WithdrawalStateRejected:
		stampColumn = "rejected_at"
	}

	query := `UPDATE withdrawal_requests SET state = $1, note = COALESCE($2, note)`
	args := []any{to, note}
	if stampColumn != "" {
		query += `, ` + stampColumn + ` = $3 WHERE id = $4 AND state = $5`
		args = append(args, at, id, from)
	} else {
		query += ` WHERE id = $3 AND state = $4`
		args = append(args, id, from)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update withdrawal state: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List fetches withdrawal requests matching the filter, newest first, with
// the total count for pagination.
func (r *WithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argN := 1

	appendArg := func(clause string, value any) {
		where += fmt.Sprintf(clause, argN)
		args = append(args, value)
		argN++
	}

	if params.AgentID != nil {
		appendArg(` AND agent_id = $%d`, *params.AgentID)
	}
	if params.State != nil {
		appendArg(` AND state = $%d`, *params.State)
	}
	if params.From != nil {
		appendArg(` AND requested_at >= to_timestamp($%d)`, *params.From)
	}
	if params.To != nil {
		appendArg(` AND requested_at <= to_timestamp($%d)`, *params.To)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM withdrawal_requests` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests` + where + ` ORDER BY requested_at DESC`
	if params.PageSize > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argN, argN+1)
		args = append(args, params.PageSize, (page-1)*params.PageSize)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequest
	for rows.Next() {
		req := domain.WithdrawalRequest{}
		err := rows.Scan(
			&req.ID, &req.AgentID, &req.Amount, &req.HeldTotal, &req.DestinationEnc,
			&req.CommissionItemIDs, &req.State, &req.Note,
			&req.RequestedAt, &req.ProcessingAt, &req.PaidAt, &req.RejectedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan withdrawal: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate withdrawals: %w", err)
	}
	return requests, total, nil
}

func scanWithdrawalRow(row pgx.Row) (*domain.WithdrawalRequest, error) {
	req := &domain.WithdrawalRequest{}
	err := row.Scan(
		&req.ID, &req.AgentID, &req.Amount, &req.HeldTotal, &req.DestinationEnc,
		&req.CommissionItemIDs, &req.State, &req.Note,
		&req.RequestedAt, &req.ProcessingAt, &req.PaidAt, &req.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

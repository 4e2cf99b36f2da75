package postgres

import (
	"context"
	"fmt"

	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// WalletRepo implements ports.WalletEntryRepository. The table is
// append-only; there are deliberately no UPDATE or DELETE statements here.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet entry.
func (r *WalletRepo) Create(ctx context.Context, entry *domain.WalletEntry) error {
	query := `INSERT INTO wallet_entries (id, agent_id, amount, kind, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.AgentID, entry.Amount, entry.Kind, entry.Note, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet entry: %w", err)
	}
	return nil
}

// ListForAgent fetches the agent's wallet entries, newest first.
func (r *WalletRepo) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]domain.WalletEntry, error) {
	query := `SELECT id, agent_id, amount, kind, note, created_at
		FROM wallet_entries WHERE agent_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		entry := domain.WalletEntry{}
		err := rows.Scan(&entry.ID, &entry.AgentID, &entry.Amount, &entry.Kind, &entry.Note, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wallet entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet entries: %w", err)
	}
	return entries, nil
}

// SumForAgent computes the agent's wallet balance from its entries.
func (r *WalletRepo) SumForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_entries WHERE agent_id = $1`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, agentID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum wallet entries: %w", err)
	}
	return sum, nil
}

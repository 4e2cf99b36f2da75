package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor over the connection pool. The
// lifecycle and withdrawal services open one transaction per operation so
// their conditional writes (state advance, hold, settle) land together or
// not at all.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the pool.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}

package postgres

import (
	"context"
	"testing"
	"time"

	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(agentID uuid.UUID) *domain.CommissionItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.CommissionItem{
		ID:             uuid.New(),
		SourceType:     domain.SourceTypeReferral,
		SourceID:       "ref-001",
		AgentID:        agentID,
		Amount:         500,
		State:          domain.CommissionStateCredited,
		CreatedAt:      now,
		StateChangedAt: now,
	}
}

func commissionColumnNames() []string {
	return []string{"id", "source_type", "source_id", "agent_id", "amount", "state", "held_by", "created_at", "state_changed_at"}
}

func commissionRow(item *domain.CommissionItem) *pgxmock.Rows {
	return pgxmock.NewRows(commissionColumnNames()).AddRow(
		item.ID, item.SourceType, item.SourceID, item.AgentID,
		item.Amount, item.State, item.HeldBy, item.CreatedAt, item.StateChangedAt,
	)
}

func TestCommissionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	item := newTestItem(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO commission_items").
		WithArgs(
			item.ID, item.SourceType, item.SourceID, item.AgentID,
			item.Amount, item.State, item.HeldBy, item.CreatedAt, item.StateChangedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, item)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_GetBySource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	item := newTestItem(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM commission_items WHERE source_type .+ AND source_id").
		WithArgs(item.SourceType, item.SourceID).
		WillReturnRows(commissionRow(item))

	result, err := repo.GetBySource(context.Background(), item.SourceType, item.SourceID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, item.ID, result.ID)
	assert.Equal(t, item.Amount, result.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_GetBySource_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM commission_items WHERE source_type .+ AND source_id").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(commissionColumnNames()))

	result, err := repo.GetBySource(context.Background(), domain.SourceTypeReferral, "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_UpdateState_ReportsLostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE commission_items SET state").
		WithArgs(domain.CommissionStateCredited, at, id, domain.CommissionStateConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	rows, err := repo.UpdateState(context.Background(), dbTx, id, domain.CommissionStateConfirmed, domain.CommissionStateCredited, at)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_Hold(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	requestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE commission_items SET held_by").
		WithArgs(requestID, ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	rows, err := repo.Hold(context.Background(), dbTx, ids, requestID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_SettleHeld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	requestID := uuid.New()
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE commission_items SET state = 'paid_out'").
		WithArgs(at, requestID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	rows, err := repo.SettleHeld(context.Background(), dbTx, requestID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_SumForAgent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	agentID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM commission_items WHERE agent_id").
		WithArgs(agentID, domain.SourceTypeDataOrder).
		WillReturnRows(pgxmock.NewRows([]string{"credited", "paid_out", "held"}).AddRow(int64(700), int64(300), int64(200)))

	sums, err := repo.SumForAgent(context.Background(), agentID, domain.SourceTypeDataOrder)
	require.NoError(t, err)
	assert.Equal(t, int64(700), sums.Credited)
	assert.Equal(t, int64(300), sums.PaidOut)
	assert.Equal(t, int64(200), sums.Held)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepo_ListCreditedUnheld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCommissionRepo(mock)
	agentID := uuid.New()
	item := newTestItem(agentID)

	mock.ExpectQuery("SELECT .+ FROM commission_items").
		WithArgs(agentID).
		WillReturnRows(commissionRow(item))

	items, err := repo.ListCreditedUnheld(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

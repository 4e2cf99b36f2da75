package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Column order is a compatibility surface for downstream spreadsheet
// tooling; append new columns at the end, never reorder.
var (
	commissionExportHeader = []string{
		"id", "agent_id", "source_type", "source_id", "amount",
		"state", "held_by", "created_at", "state_changed_at",
	}
	withdrawalExportHeader = []string{
		"id", "agent_id", "amount", "held_total", "state", "item_count",
		"requested_at", "processing_at", "paid_at", "rejected_at", "note",
	}
)

const exportPageSize = 500

// ExportServiceImpl implements ports.ExportService: flattened CSV
// projections of commission items and withdrawal requests for offline
// reconciliation.
type ExportServiceImpl struct {
	commissionRepo ports.CommissionRepository
	withdrawalRepo ports.WithdrawalRepository
	log            zerolog.Logger
}

// NewExportService creates a new ExportServiceImpl.
func NewExportService(
	commissionRepo ports.CommissionRepository,
	withdrawalRepo ports.WithdrawalRepository,
	log zerolog.Logger,
) *ExportServiceImpl {
	return &ExportServiceImpl{
		commissionRepo: commissionRepo,
		withdrawalRepo: withdrawalRepo,
		log:            log,
	}
}

// ExportCommissions streams the agent's commission items (all agents when
// agentID is nil) as CSV.
func (s *ExportServiceImpl) ExportCommissions(ctx context.Context, w io.Writer, agentID *uuid.UUID) error {
	if agentID == nil {
		return apperror.Validation("agent_id is required for commission export")
	}

	items, err := s.commissionRepo.ListForAgent(ctx, *agentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list commission items: %w", err))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(commissionExportHeader); err != nil {
		return apperror.InternalError(fmt.Errorf("write csv header: %w", err))
	}
	for _, item := range items {
		heldBy := ""
		if item.HeldBy != nil {
			heldBy = item.HeldBy.String()
		}
		record := []string{
			item.ID.String(),
			item.AgentID.String(),
			string(item.SourceType),
			item.SourceID,
			strconv.FormatInt(item.Amount, 10),
			string(item.State),
			heldBy,
			item.CreatedAt.UTC().Format(time.RFC3339),
			item.StateChangedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return apperror.InternalError(fmt.Errorf("write csv record: %w", err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperror.InternalError(fmt.Errorf("flush csv: %w", err))
	}
	return nil
}

// ExportWithdrawals streams withdrawal requests matching the filter as CSV,
// paging through the store to keep memory bounded.
func (s *ExportServiceImpl) ExportWithdrawals(ctx context.Context, w io.Writer, params ports.WithdrawalListParams) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(withdrawalExportHeader); err != nil {
		return apperror.InternalError(fmt.Errorf("write csv header: %w", err))
	}

	params.PageSize = exportPageSize
	for page := 1; ; page++ {
		params.Page = page
		requests, total, err := s.withdrawalRepo.List(ctx, params)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("list withdrawals page %d: %w", page, err))
		}
		for _, req := range requests {
			if err := cw.Write(withdrawalRecord(&req)); err != nil {
				return apperror.InternalError(fmt.Errorf("write csv record: %w", err))
			}
		}
		if int64(page*exportPageSize) >= total || len(requests) == 0 {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperror.InternalError(fmt.Errorf("flush csv: %w", err))
	}
	return nil
}

func withdrawalRecord(req *domain.WithdrawalRequest) []string {
	note := ""
	if req.Note != nil {
		note = *req.Note
	}
	return []string{
		req.ID.String(),
		req.AgentID.String(),
		strconv.FormatInt(req.Amount, 10),
		strconv.FormatInt(req.HeldTotal, 10),
		string(req.State),
		strconv.Itoa(len(req.CommissionItemIDs)),
		req.RequestedAt.UTC().Format(time.RFC3339),
		formatOptionalTime(req.ProcessingAt),
		formatOptionalTime(req.PaidAt),
		formatOptionalTime(req.RejectedAt),
		note,
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package handler

import (
	"fmt"
	"time"

	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExportHandler streams CSV projections for offline reconciliation.
type ExportHandler struct {
	exportSvc ports.ExportService
	log       zerolog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportSvc ports.ExportService, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, log: log}
}

// ExportCommissions handles GET /api/v1/export/commissions (staff only).
// The agent_id query parameter is required; the commission export is scoped
// to one agent per file.
func (h *ExportHandler) ExportCommissions(c *gin.Context) {
	agentID, err := uuid.Parse(c.Query("agent_id"))
	if err != nil {
		response.Error(c, apperror.Validation("agent_id query parameter is required"))
		return
	}

	setCSVHeaders(c, "commissions")
	if err := h.exportSvc.ExportCommissions(c.Request.Context(), c.Writer, &agentID); err != nil {
		// Headers are already sent; the truncated body is the only signal
		// the client gets.
		h.log.Error().Err(err).Msg("commission export aborted mid-stream")
		c.Abort()
	}
}

// ExportWithdrawals handles GET /api/v1/export/withdrawals (staff only).
func (h *ExportHandler) ExportWithdrawals(c *gin.Context) {
	params := ports.WithdrawalListParams{}
	if v := c.Query("agent_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid agent_id"))
			return
		}
		params.AgentID = &id
	}

	setCSVHeaders(c, "withdrawals")
	if err := h.exportSvc.ExportWithdrawals(c.Request.Context(), c.Writer, params); err != nil {
		h.log.Error().Err(err).Msg("withdrawal export aborted mid-stream")
		c.Abort()
	}
}

func setCSVHeaders(c *gin.Context, name string) {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

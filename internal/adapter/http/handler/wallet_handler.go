package handler

import (
	"commission-ledger/internal/adapter/http/dto"
	"commission-ledger/internal/adapter/http/middleware"
	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet entry endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// RecordEntry handles POST /api/v1/wallet/entries (staff only).
func (h *WalletHandler) RecordEntry(c *gin.Context) {
	var req dto.WalletEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid agent_id"))
		return
	}

	entry, err := h.walletSvc.RecordWalletEntry(c.Request.Context(), ports.WalletEntryRequest{
		AgentID: agentID,
		Amount:  req.Amount,
		Kind:    domain.WalletEntryKind(req.Kind),
		Note:    req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletEntryResponse(entry))
}

// ListEntries handles GET /api/v1/wallet/entries for the authenticated agent.
func (h *WalletHandler) ListEntries(c *gin.Context) {
	agentID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	entries, err := h.walletSvc.ListWalletEntries(c.Request.Context(), agentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]dto.WalletEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, toWalletEntryResponse(&entries[i]))
	}
	response.OK(c, resp)
}

// toWalletEntryResponse converts domain.WalletEntry to DTO.
func toWalletEntryResponse(e *domain.WalletEntry) dto.WalletEntryResponse {
	return dto.WalletEntryResponse{
		ID:        e.ID.String(),
		AgentID:   e.AgentID.String(),
		Amount:    e.Amount,
		Kind:      string(e.Kind),
		Note:      e.Note,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

package handler

import (
	"strings"

	"commission-ledger/internal/adapter/http/dto"
	"commission-ledger/internal/adapter/http/middleware"
	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BalanceHandler serves derived balance views.
type BalanceHandler struct {
	balanceSvc ports.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceSvc ports.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceSvc: balanceSvc}
}

// GetMyBalance handles GET /api/v1/agents/me/balance.
func (h *BalanceHandler) GetMyBalance(c *gin.Context) {
	agentID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	summary, err := h.balanceSvc.GetBalanceSummary(c.Request.Context(), agentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := toBalanceSummaryResponse(summary)

	// A degraded summary is partial; annotate it with the last summary that
	// was computed with every source reachable, when one exists.
	if summary.Degraded {
		if lkg, err := h.balanceSvc.LastKnownGood(c.Request.Context(), agentID); err == nil && lkg != nil {
			stale := toBalanceSummaryResponse(lkg)
			resp.LastKnownGood = &stale
		}
	}

	response.OK(c, resp)
}

// GetBalances handles GET /api/v1/agents/balances?ids=a,b,c (staff view).
func (h *BalanceHandler) GetBalances(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		response.Error(c, apperror.Validation("ids query parameter is required"))
		return
	}

	var agentIDs []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			response.Error(c, apperror.Validation("invalid agent id: "+part))
			return
		}
		agentIDs = append(agentIDs, id)
	}

	summaries, err := h.balanceSvc.GetBalanceSummaries(c.Request.Context(), agentIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]dto.BalanceSummaryResponse, 0, len(summaries))
	for i := range summaries {
		resp = append(resp, toBalanceSummaryResponse(&summaries[i]))
	}
	response.OK(c, resp)
}

// toBalanceSummaryResponse converts domain.BalanceSummary to DTO.
func toBalanceSummaryResponse(s *domain.BalanceSummary) dto.BalanceSummaryResponse {
	return dto.BalanceSummaryResponse{
		AgentID:           s.AgentID.String(),
		WalletBalance:     s.WalletBalance,
		CommissionBalance: s.CommissionBalance,
		TotalEarned:       s.TotalEarned,
		TotalWithdrawn:    s.TotalWithdrawn,
		PendingWithdrawal: s.PendingWithdrawal,
		ComputedAt:        s.ComputedAt.Format("2006-01-02T15:04:05Z07:00"),
		Degraded:          s.Degraded,
		FailedSources:     s.FailedSources,
		FromStaleCache:    s.FromStaleCache,
	}
}

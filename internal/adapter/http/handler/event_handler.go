package handler

import (
	"commission-ledger/internal/adapter/http/dto"
	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventHandler receives source status-change events from partner systems.
type EventHandler struct {
	lifecycleSvc ports.LifecycleService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(lifecycleSvc ports.LifecycleService) *EventHandler {
	return &EventHandler{lifecycleSvc: lifecycleSvc}
}

// SourceStatusChanged handles POST /api/v1/events/source-status.
func (h *EventHandler) SourceStatusChanged(c *gin.Context) {
	var req dto.SourceStatusEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.lifecycleSvc.OnSourceStatusChanged(c.Request.Context(), domain.SourceEvent{
		SourceType:     domain.SourceType(req.SourceType),
		SourceID:       req.SourceID,
		AgentID:        req.AgentID,
		OldStatus:      req.OldStatus,
		NewStatus:      req.NewStatus,
		CommissionRate: req.CommissionRate,
		UnitCommission: req.UnitCommission,
		Quantity:       req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.SourceStatusEventResponse{Applied: result.Applied}
	if result.Reason != nil {
		resp.Reason = result.Reason.Code
	}
	if result.Item != nil {
		item := toCommissionItemResponse(result.Item)
		resp.Item = &item
	}
	response.OK(c, resp)
}

// toCommissionItemResponse converts domain.CommissionItem to DTO.
func toCommissionItemResponse(item *domain.CommissionItem) dto.CommissionItemResponse {
	resp := dto.CommissionItemResponse{
		ID:             item.ID.String(),
		SourceType:     string(item.SourceType),
		SourceID:       item.SourceID,
		AgentID:        item.AgentID.String(),
		Amount:         item.Amount,
		State:          string(item.State),
		CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		StateChangedAt: item.StateChangedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if item.HeldBy != nil {
		s := item.HeldBy.String()
		resp.HeldBy = &s
	}
	return resp
}

package handler

import (
	"strconv"
	"time"

	"commission-ledger/internal/adapter/http/dto"
	"commission-ledger/internal/adapter/http/middleware"
	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WithdrawalHandler handles withdrawal request endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Create handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	agentID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.withdrawalSvc.CreateRequest(c.Request.Context(), ports.CreateWithdrawalRequest{
		AgentID:     agentID,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWithdrawalResponse(result))
}

// Advance handles POST /api/v1/withdrawals/:id/advance (staff only).
func (h *WithdrawalHandler) Advance(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.AdvanceWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	state, err := domain.ParseWithdrawalState(req.State)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.withdrawalSvc.Advance(c.Request.Context(), requestID, state, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWithdrawalResponse(result))
}

// List handles GET /api/v1/withdrawals. Agents see only their own requests;
// staff may filter by agent, state, and time window.
func (h *WithdrawalHandler) List(c *gin.Context) {
	params, appErr := h.listParams(c)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	details, total, err := h.withdrawalSvc.ListWithdrawals(c.Request.Context(), *params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WithdrawalResponse, 0, len(details))
	for i := range details {
		items = append(items, toWithdrawalDetailResponse(&details[i]))
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	response.OK(c, dto.WithdrawalListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

func (h *WithdrawalHandler) listParams(c *gin.Context) (*ports.WithdrawalListParams, *apperror.AppError) {
	params := ports.WithdrawalListParams{Page: 1, PageSize: 20}

	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, apperror.Validation("invalid page")
		}
		params.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 100 {
			return nil, apperror.Validation("invalid page_size (1-100)")
		}
		params.PageSize = size
	}
	if v := c.Query("state"); v != "" {
		state, err := domain.ParseWithdrawalState(v)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		params.State = &state
	}
	if v := c.Query("from"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperror.Validation("invalid from timestamp")
		}
		params.From = &ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperror.Validation("invalid to timestamp")
		}
		params.To = &ts
	}

	role, _ := c.Get(middleware.CtxUserRole)
	if role == "staff" {
		if v := c.Query("agent_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, apperror.Validation("invalid agent_id")
			}
			params.AgentID = &id
		}
		return &params, nil
	}

	// Agents are scoped to their own requests regardless of query params.
	agentID, ok := middleware.UserID(c)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	params.AgentID = &agentID
	return &params, nil
}

// toWithdrawalResponse converts domain.WithdrawalRequest to DTO.
func toWithdrawalResponse(w *domain.WithdrawalRequest) dto.WithdrawalResponse {
	resp := dto.WithdrawalResponse{
		ID:          w.ID.String(),
		AgentID:     w.AgentID.String(),
		Amount:      w.Amount,
		HeldTotal:   w.HeldTotal,
		State:       string(w.State),
		Note:        w.Note,
		RequestedAt: w.RequestedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, id := range w.CommissionItemIDs {
		resp.CommissionItemIDs = append(resp.CommissionItemIDs, id.String())
	}
	resp.ProcessingAt = formatOptionalTimestamp(w.ProcessingAt)
	resp.PaidAt = formatOptionalTimestamp(w.PaidAt)
	resp.RejectedAt = formatOptionalTimestamp(w.RejectedAt)
	return resp
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02T15:04:05Z07:00")
	return &s
}

// toWithdrawalDetailResponse embeds the held items and decrypted destination.
func toWithdrawalDetailResponse(d *ports.WithdrawalDetail) dto.WithdrawalResponse {
	resp := toWithdrawalResponse(&d.Request)
	resp.Destination = d.Destination
	for i := range d.Items {
		resp.Items = append(resp.Items, toCommissionItemResponse(&d.Items[i]))
	}
	return resp
}

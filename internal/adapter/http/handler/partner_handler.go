package handler

import (
	"commission-ledger/internal/adapter/http/dto"
	"commission-ledger/internal/core/ports"
	"commission-ledger/pkg/apperror"
	"commission-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PartnerHandler manages partner system credentials.
type PartnerHandler struct {
	partnerSvc ports.PartnerService
}

// NewPartnerHandler creates a new PartnerHandler.
func NewPartnerHandler(partnerSvc ports.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerSvc: partnerSvc}
}

// Register handles POST /api/v1/partners (staff only).
func (h *PartnerHandler) Register(c *gin.Context) {
	var req dto.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	creds, err := h.partnerSvc.Register(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPartnerCredentialsResponse(creds))
}

// RotateKeys handles POST /api/v1/partners/:id/rotate-keys (staff only).
// The previous key pair stops working immediately.
func (h *PartnerHandler) RotateKeys(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid partner id"))
		return
	}

	creds, err := h.partnerSvc.RotateKeys(c.Request.Context(), partnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPartnerCredentialsResponse(creds))
}

func toPartnerCredentialsResponse(creds *ports.PartnerCredentials) dto.PartnerCredentialsResponse {
	return dto.PartnerCredentialsResponse{
		PartnerID: creds.PartnerID.String(),
		AccessKey: creds.AccessKey,
		SecretKey: creds.SecretKey,
	}
}

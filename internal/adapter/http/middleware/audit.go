package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if uid, exists := c.Get(CtxUserID); exists {
			if id, ok := uid.(uuid.UUID); ok {
				actorID = &id
			}
		} else if pid, exists := c.Get(CtxPartnerID); exists {
			if id, ok := pid.(uuid.UUID); ok {
				actorID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/events/source-status" && method == "POST":
		return domain.AuditActionSourceEvent, "commission_item"
	case path == "/api/v1/withdrawals" && method == "POST":
		return domain.AuditActionCreateWithdrawal, "withdrawal"
	case strings.HasPrefix(path, "/api/v1/withdrawals/") && strings.HasSuffix(path, "/advance") && method == "POST":
		return domain.AuditActionAdvanceWithdrawal, "withdrawal"
	case path == "/api/v1/wallet/entries" && method == "POST":
		return domain.AuditActionWalletEntry, "wallet_entry"
	case path == "/api/v1/partners" && method == "POST":
		return domain.AuditActionCreatePartner, "partner"
	case strings.HasPrefix(path, "/api/v1/partners/") && strings.HasSuffix(path, "/rotate-keys") && method == "POST":
		return domain.AuditActionRotateKeys, "partner"
	}
	return "", ""
}

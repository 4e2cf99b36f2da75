package domain

import (
	"time"

	"github.com/google/uuid"
)

// PartnerStatus represents the state of a partner system account.
type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "ACTIVE"
	PartnerStatusSuspended PartnerStatus = "SUSPENDED"
)

// Partner is an external transaction system (order platform, referral
// tracker) authorized to post source status-change events. Events are
// authenticated by HMAC-SHA256 over the partner's secret key.
type Partner struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	AccessKey    string        `json:"access_key"`
	SecretKeyEnc string        `json:"-"` // Encrypted, never expose
	Status       PartnerStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsActive returns true if the partner may post events.
func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

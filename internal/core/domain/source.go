package domain

// SourceType identifies the transaction source that produced a commission.
type SourceType string

const (
	SourceTypeReferral       SourceType = "referral"
	SourceTypeDataOrder      SourceType = "data_order"
	SourceTypeWholesaleOrder SourceType = "wholesale_order"
	SourceTypeManual         SourceType = "manual"
)

// AllSourceTypes lists every source in aggregation order.
var AllSourceTypes = []SourceType{
	SourceTypeReferral,
	SourceTypeDataOrder,
	SourceTypeWholesaleOrder,
	SourceTypeManual,
}

// Valid reports whether the source type is one of the known sources.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeReferral, SourceTypeDataOrder, SourceTypeWholesaleOrder, SourceTypeManual:
		return true
	}
	return false
}

// SourceEvent is a status-change notification from an external transaction
// system (order platform, referral tracker, back office).
type SourceEvent struct {
	SourceType     SourceType `json:"source_type"`
	SourceID       string     `json:"source_id"`
	AgentID        string     `json:"agent_id"`
	OldStatus      string     `json:"old_status"`
	NewStatus      string     `json:"new_status"`
	CommissionRate *int64     `json:"commission_rate,omitempty"` // flat amount, minor units
	UnitCommission *int64     `json:"unit_commission,omitempty"` // per-unit amount, minor units
	Quantity       *int64     `json:"quantity,omitempty"`
}

// CommissionTier is the classification outcome for one source status.
type CommissionTier string

const (
	// TierNone: the status carries no commission signal.
	TierNone CommissionTier = "none"
	// TierProvisional: the source is likely to complete; tracking only.
	TierProvisional CommissionTier = "provisional"
	// TierFinal: the source reached its terminal success status.
	TierFinal CommissionTier = "final"
	// TierReversal: the source was canceled after commission creation.
	TierReversal CommissionTier = "reversal"
)

// Classification is the pure output of a source adapter: whether the event
// bears commission value, at which tier, and for how much.
type Classification struct {
	Tier   CommissionTier
	Amount int64 // minor units; zero for none/reversal tiers
}

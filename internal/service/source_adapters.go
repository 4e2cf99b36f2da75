package service

import (
	"fmt"
	"math"

	"commission-ledger/internal/core/domain"
	"commission-ledger/internal/core/ports"

	"commission-ledger/pkg/apperror"
)

// Source adapters translate one external transaction's status into a
// commission tier and amount. They are pure classifiers: they never create
// or alter a commission item, and they refuse to emit an amount rather than
// default to zero, since a silent zero would under-credit without visibility.

// statusTiers maps a source's status values to commission tiers. Statuses
// absent from the map carry no commission signal.
type statusTiers map[string]domain.CommissionTier

var referralTiers = statusTiers{
	"registered": domain.TierProvisional,
	"confirmed":  domain.TierFinal,
	"canceled":   domain.TierReversal,
	"expired":    domain.TierReversal,
}

var orderTiers = statusTiers{
	"processing": domain.TierProvisional,
	"shipped":    domain.TierProvisional,
	"delivered":  domain.TierFinal,
	"completed":  domain.TierFinal,
	"canceled":   domain.TierReversal,
	"failed":     domain.TierReversal,
	"refunded":   domain.TierReversal,
}

var manualTiers = statusTiers{
	"applied": domain.TierFinal,
	"voided":  domain.TierReversal,
}

type sourceAdapter struct {
	sourceType domain.SourceType
	tiers      statusTiers
}

// NewReferralAdapter classifies referral confirmations.
func NewReferralAdapter() ports.SourceAdapter {
	return &sourceAdapter{sourceType: domain.SourceTypeReferral, tiers: referralTiers}
}

// NewDataOrderAdapter classifies data bundle order deliveries.
func NewDataOrderAdapter() ports.SourceAdapter {
	return &sourceAdapter{sourceType: domain.SourceTypeDataOrder, tiers: orderTiers}
}

// NewWholesaleOrderAdapter classifies wholesale order deliveries.
func NewWholesaleOrderAdapter() ports.SourceAdapter {
	return &sourceAdapter{sourceType: domain.SourceTypeWholesaleOrder, tiers: orderTiers}
}

// NewManualAdapter classifies back-office manual commission entries.
func NewManualAdapter() ports.SourceAdapter {
	return &sourceAdapter{sourceType: domain.SourceTypeManual, tiers: manualTiers}
}

func (a *sourceAdapter) SourceType() domain.SourceType {
	return a.sourceType
}

// Classify maps the event's new status to a tier and resolves the amount for
// value-bearing tiers. Reversals carry no amount; the item keeps its own.
func (a *sourceAdapter) Classify(event domain.SourceEvent) (domain.Classification, error) {
	if event.SourceType != a.sourceType {
		return domain.Classification{}, apperror.ErrClassification(
			fmt.Sprintf("adapter for %s received %s event", a.sourceType, event.SourceType))
	}

	tier, ok := a.tiers[event.NewStatus]
	if !ok {
		return domain.Classification{Tier: domain.TierNone}, nil
	}
	if tier == domain.TierReversal {
		return domain.Classification{Tier: domain.TierReversal}, nil
	}

	amount, err := resolveAmount(event)
	if err != nil {
		return domain.Classification{}, err
	}
	return domain.Classification{Tier: tier, Amount: amount}, nil
}

// resolveAmount derives the commission amount from the event's rate fields:
// unit_commission x quantity when both are present, else the flat
// commission_rate. Missing or invalid rate data is an error, never zero.
func resolveAmount(event domain.SourceEvent) (int64, error) {
	if event.UnitCommission != nil || event.Quantity != nil {
		if event.UnitCommission == nil || event.Quantity == nil {
			return 0, apperror.ErrClassification("unit_commission and quantity must be provided together")
		}
		if *event.UnitCommission < 0 {
			return 0, apperror.ErrClassification("negative unit_commission")
		}
		if *event.Quantity <= 0 {
			return 0, apperror.ErrClassification("non-positive quantity")
		}
		if *event.UnitCommission > 0 && *event.Quantity > math.MaxInt64 / *event.UnitCommission {
			return 0, apperror.ErrClassification("commission amount overflows")
		}
		return *event.UnitCommission * *event.Quantity, nil
	}
	if event.CommissionRate == nil {
		return 0, apperror.ErrClassification("missing commission rate fields")
	}
	if *event.CommissionRate < 0 {
		return 0, apperror.ErrClassification("negative commission_rate")
	}
	return *event.CommissionRate, nil
}

// AdapterRegistry routes events to the adapter for their source type.
type AdapterRegistry struct {
	adapters map[domain.SourceType]ports.SourceAdapter
}

// NewAdapterRegistry builds a registry over the given adapters.
func NewAdapterRegistry(adapters ...ports.SourceAdapter) *AdapterRegistry {
	m := make(map[domain.SourceType]ports.SourceAdapter, len(adapters))
	for _, a := range adapters {
		m[a.SourceType()] = a
	}
	return &AdapterRegistry{adapters: m}
}

// DefaultAdapterRegistry covers every known source type.
func DefaultAdapterRegistry() *AdapterRegistry {
	return NewAdapterRegistry(
		NewReferralAdapter(),
		NewDataOrderAdapter(),
		NewWholesaleOrderAdapter(),
		NewManualAdapter(),
	)
}

// For returns the adapter for the source type, or an error for unknown types.
func (r *AdapterRegistry) For(sourceType domain.SourceType) (ports.SourceAdapter, error) {
	a, ok := r.adapters[sourceType]
	if !ok {
		return nil, apperror.ErrClassification(fmt.Sprintf("unknown source type %q", sourceType))
	}
	return a, nil
}

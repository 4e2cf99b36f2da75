package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionTransitions_ForwardPath(t *testing.T) {
	item := &CommissionItem{
		ID:         uuid.New(),
		SourceType: SourceTypeDataOrder,
		SourceID:   "ORD-1001",
		AgentID:    uuid.New(),
		Amount:     5000,
		State:      CommissionStatePending,
		CreatedAt:  time.Now().UTC(),
	}

	now := time.Now().UTC()
	require.NoError(t, item.TransitionTo(CommissionStateConfirmed, now))
	require.NoError(t, item.TransitionTo(CommissionStateCredited, now))
	require.NoError(t, item.TransitionTo(CommissionStatePaidOut, now))
	assert.True(t, item.IsTerminal())
}

func TestCommissionTransitions_NoBackwardEdges(t *testing.T) {
	cases := []struct{ from, to CommissionState }{
		{CommissionStateConfirmed, CommissionStatePending},
		{CommissionStateCredited, CommissionStateConfirmed},
		{CommissionStatePaidOut, CommissionStateCredited},
		{CommissionStatePaidOut, CommissionStateReversed},
		{CommissionStateReversed, CommissionStateCredited},
	}
	for _, tc := range cases {
		assert.False(t, CanTransitionCommission(tc.from, tc.to), "%s -> %s must be illegal", tc.from, tc.to)
	}
}

func TestCommissionTransitions_Reversal(t *testing.T) {
	assert.True(t, CanTransitionCommission(CommissionStatePending, CommissionStateReversed))
	assert.True(t, CanTransitionCommission(CommissionStateConfirmed, CommissionStateReversed))
	assert.True(t, CanTransitionCommission(CommissionStateCredited, CommissionStateReversed))
	// A reversed item re-enters pending only on source re-confirmation.
	assert.True(t, CanTransitionCommission(CommissionStateReversed, CommissionStatePending))
}

func TestCommissionItem_IllegalTransitionLeavesStateUnchanged(t *testing.T) {
	item := &CommissionItem{ID: uuid.New(), State: CommissionStatePaidOut}
	err := item.TransitionTo(CommissionStateCredited, time.Now())
	require.Error(t, err)
	assert.Equal(t, CommissionStatePaidOut, item.State)
}

func TestCommissionItem_SourceKey(t *testing.T) {
	item := &CommissionItem{SourceType: SourceTypeReferral, SourceID: "REF-42"}
	assert.Equal(t, "referral:REF-42", item.SourceKey())
}

func TestWithdrawalTransitions_RequestedProcessingReversible(t *testing.T) {
	assert.True(t, CanTransitionWithdrawal(WithdrawalStateRequested, WithdrawalStateProcessing))
	assert.True(t, CanTransitionWithdrawal(WithdrawalStateProcessing, WithdrawalStateRequested))
}

func TestWithdrawalTransitions_TerminalStates(t *testing.T) {
	for _, terminal := range []WithdrawalState{WithdrawalStatePaid, WithdrawalStateRejected} {
		for _, to := range []WithdrawalState{WithdrawalStateRequested, WithdrawalStateProcessing, WithdrawalStatePaid, WithdrawalStateRejected} {
			assert.False(t, CanTransitionWithdrawal(terminal, to), "%s -> %s must be illegal", terminal, to)
		}
	}
}

func TestWithdrawalRequest_TransitionStampsTimestamps(t *testing.T) {
	w := &WithdrawalRequest{
		ID:          uuid.New(),
		AgentID:     uuid.New(),
		Amount:      5000,
		State:       WithdrawalStateRequested,
		RequestedAt: time.Now().UTC(),
	}

	at := time.Now().UTC()
	require.NoError(t, w.TransitionTo(WithdrawalStateProcessing, at))
	require.NotNil(t, w.ProcessingAt)
	assert.Equal(t, at, *w.ProcessingAt)

	require.NoError(t, w.TransitionTo(WithdrawalStatePaid, at))
	require.NotNil(t, w.PaidAt)
	assert.True(t, w.IsTerminal())
}

func TestWithdrawalRequest_RejectFromRequested(t *testing.T) {
	w := &WithdrawalRequest{ID: uuid.New(), State: WithdrawalStateRequested}
	require.NoError(t, w.TransitionTo(WithdrawalStateRejected, time.Now().UTC()))
	assert.NotNil(t, w.RejectedAt)
	assert.True(t, w.IsTerminal())
}

func TestParseWithdrawalState(t *testing.T) {
	s, err := ParseWithdrawalState("processing")
	require.NoError(t, err)
	assert.Equal(t, WithdrawalStateProcessing, s)

	_, err = ParseWithdrawalState("cancelled")
	assert.Error(t, err)
}

func TestSourceType_Valid(t *testing.T) {
	for _, s := range AllSourceTypes {
		assert.True(t, s.Valid())
	}
	assert.False(t, SourceType("airtime_order").Valid())
}

func TestPartner_IsActive(t *testing.T) {
	p := &Partner{Status: PartnerStatusActive}
	assert.True(t, p.IsActive())
	p.Status = PartnerStatusSuspended
	assert.False(t, p.IsActive())
}

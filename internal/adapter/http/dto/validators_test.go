package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateWithdrawalRequest{
		Amount:      5000,
		Destination: "  bank:970436:0123456789  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "bank:970436:0123456789", req.Destination)
	assert.Equal(t, int64(5000), req.Amount)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	note := "duplicate <script>alert('x')</script> request"
	req := AdvanceWithdrawalRequest{
		State: "rejected",
		Note:  &note,
	}
	SanitizeStruct(&req)

	assert.Contains(t, *req.Note, "&lt;script&gt;")
	assert.NotContains(t, *req.Note, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	note := "  manual topup  "
	req := WalletEntryRequest{
		AgentID: "7a6f2b6e-3e9a-4d35-9d11-9f1f8e2c0a01",
		Amount:  1500,
		Kind:    "topup",
		Note:    &note,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "manual topup", *req.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := WalletEntryRequest{
		AgentID: "7a6f2b6e-3e9a-4d35-9d11-9f1f8e2c0a01",
		Amount:  -200,
		Kind:    "spend",
		Note:    nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"ord-001",
		"ORD_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"ord 001",     // space
		"ord<001>",    // angle brackets
		"ord;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"ord\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSanitizeStruct_SourceEvent(t *testing.T) {
	req := SourceStatusEventRequest{
		SourceType: " referral ",
		SourceID:   "  ref-001  ",
		AgentID:    "7a6f2b6e-3e9a-4d35-9d11-9f1f8e2c0a01",
		NewStatus:  " completed ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "referral", req.SourceType)
	assert.Equal(t, "ref-001", req.SourceID)
	assert.Equal(t, "completed", req.NewStatus)
}

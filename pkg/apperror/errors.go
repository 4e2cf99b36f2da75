package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Commission Ledger (LEDG) ----

// ErrClassification indicates a source adapter could not determine a
// commission amount from the event's rate fields. Never defaulted to zero.
func ErrClassification(reason string) *AppError {
	return New("LEDG_001", fmt.Sprintf("Cannot classify commission: %s", reason), http.StatusUnprocessableEntity)
}

// ErrDuplicateCredit indicates a commission item already exists for the
// source transaction. Callers treat this as a benign no-op on retried events.
func ErrDuplicateCredit() *AppError {
	return New("LEDG_002", "Commission already credited for this source", http.StatusConflict)
}

// ErrInsufficientBalance carries the current commission balance so the agent
// sees what is actually available.
func ErrInsufficientBalance(available int64) *AppError {
	return New("LEDG_003", fmt.Sprintf("Withdrawal amount exceeds available commission balance (%d)", available), http.StatusPaymentRequired)
}

// ErrItemHeld indicates the commission item is held by a non-terminal
// withdrawal request and cannot be mutated by anyone else.
func ErrItemHeld(detail string) *AppError {
	return New("LEDG_004", fmt.Sprintf("Commission item conflict: %s", detail), http.StatusConflict)
}

// ErrInvalidTransition reports both the current and the requested state.
func ErrInvalidTransition(from, to string) *AppError {
	return New("LEDG_005", fmt.Sprintf("Invalid state transition: %s -> %s", from, to), http.StatusConflict)
}

// ErrPartialSourceFailure indicates the balance summary could not be computed
// from all sources and must not be treated as authoritative.
func ErrPartialSourceFailure(sources []string) *AppError {
	return New("LEDG_006", fmt.Sprintf("Balance sources unreachable: %v", sources), http.StatusServiceUnavailable)
}

func ErrInvalidAmount() *AppError {
	return New("LEDG_007", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LEDG_008", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Security & Event Authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

func ErrPartnerSuspended() *AppError {
	return New("SEC_005", "Partner system is suspended", http.StatusForbidden)
}

// ---- API Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Insufficient role for this operation", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// Validation returns a request validation error with a custom message.
func Validation(message string) *AppError {
	return New("LEDG_007", message, http.StatusBadRequest)
}

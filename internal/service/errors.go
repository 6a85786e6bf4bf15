// Package service contains the observation pipeline's business logic:
// transactional ingestion of extracted product shells, the check-run
// coordinator, snapshot archival and retention.
package service

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the service layer. Fetch-side codes
// (FETCH_FAILED, FETCH_TIMEOUT, RENDER_FAILED) live in the fetch
// package; check runs persist both families in the same column.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeIngestionFailed = "INGESTION_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Error is a structured service error carrying a taxonomy code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a service error. err may be nil.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the taxonomy code from err, defaulting to
// INTERNAL_ERROR for plain errors.
func ErrorCode(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternalError
}

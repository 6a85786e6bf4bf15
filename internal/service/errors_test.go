package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	inner := errors.New("disk full")
	err := NewError(CodeIngestionFailed, "failed to commit", inner)

	if got := ErrorCode(err); got != CodeIngestionFailed {
		t.Errorf("expected %s, got %s", CodeIngestionFailed, got)
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap")
	}

	// Wrapping preserves the code.
	wrapped := fmt.Errorf("check: %w", err)
	if got := ErrorCode(wrapped); got != CodeIngestionFailed {
		t.Errorf("expected %s through wrapping, got %s", CodeIngestionFailed, got)
	}
}

func TestErrorCodeDefaultsToInternal(t *testing.T) {
	if got := ErrorCode(errors.New("plain")); got != CodeInternalError {
		t.Errorf("expected %s for plain errors, got %s", CodeInternalError, got)
	}
}

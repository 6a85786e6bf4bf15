package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shelfwatch/shelfwatch/internal/service"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", service.NewError(service.CodeInvalidInput, "bad url", nil), http.StatusBadRequest},
		{"ingestion failed", service.NewError(service.CodeIngestionFailed, "commit failed", nil), http.StatusBadGateway},
		{"internal", service.NewError(service.CodeInternalError, "boom", nil), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(t, mapServiceError(tt.err)); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

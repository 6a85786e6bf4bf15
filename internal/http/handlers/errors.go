package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwatch/shelfwatch/internal/service"
)

// mapServiceError converts a service-layer error to an HTTP error.
func mapServiceError(err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Code {
		case service.CodeInvalidInput:
			return huma.Error400BadRequest(svcErr.Message)
		case service.CodeIngestionFailed:
			return huma.Error502BadGateway(svcErr.Message)
		}
	}
	return huma.Error500InternalServerError("internal error", err)
}

// errServiceUnavailable wraps a dependency failure for probes.
func errServiceUnavailable(message string, err error) error {
	return huma.Error503ServiceUnavailable(message, err)
}

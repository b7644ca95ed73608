// Package server provides the HTTP REST API for the outreach personalizer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-personalizer/internal/campaign"
	"github.com/jonathan/outreach-personalizer/internal/leads"
	"github.com/jonathan/outreach-personalizer/internal/store"
)

// ErrJobNotFound indicates the requested job id is unknown
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var formatErr *leads.FormatError
	var contextErr *campaign.ContextError
	switch {
	case errors.As(err, new(*ErrJobNotFound)), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, new(*ErrValidation)), errors.As(err, &formatErr), errors.As(err, &contextErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

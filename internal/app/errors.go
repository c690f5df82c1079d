package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

func notFoundError(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

// upstreamError reports a database or storage failure. The cause's text is
// passed through to the client.
func upstreamError(err error) *DomainError {
	return domainError(http.StatusInternalServerError, "UPSTREAM_ERROR", err.Error(), nil)
}

var errStorageNotConfigured = errors.New("object storage is not configured")

// mapError converts any service error into the status, code and message the
// HTTP layer writes.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, planaccion.ErrItemNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Resource not found", nil
	}
	if errors.Is(err, store.ErrInvalidReference) {
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil
}

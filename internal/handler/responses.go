// Package handler implements the HTTP API of QuillPost.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/service"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// emptyIfNil keeps empty listings serializing as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// writeError writes the standard {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleError maps a service/domain error to its status code and writes the
// error body. Unrecognized errors become 500 and are logged; recognized ones
// carry their sentinel message to the client.
func handleError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, rootMessage(err))
}

// errorStatus maps sentinel errors onto HTTP status codes. Ownership failures
// deliberately share the not-found codes so the response never reveals
// whether the resource exists.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrMissingPassword),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrUnsupportedImageType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrMissingToken),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserBlocked),
		errors.Is(err, domain.ErrSelfBlock),
		errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, domain.ErrPostNotOwned),
		errors.Is(err, domain.ErrNoPostsToExport),
		errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// rootMessage unwraps to the innermost error so clients see the sentinel
// message without internal wrapping detail.
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}

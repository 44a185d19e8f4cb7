package handlers

import (
	"errors"
	"net/http"

	e "github.com/gartstein/empresas/internal/empresas/errors"
)

// mapServiceError translates service errors to HTTP status codes.
func mapServiceError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, e.ErrInvalidInput),
		errors.Is(err, e.ErrEmptySheet),
		errors.Is(err, e.ErrNoValidRows),
		errors.Is(err, e.ErrConfirmationRequired):
		return http.StatusBadRequest
	case errors.Is(err, e.ErrInvalidCredentials), errors.Is(err, e.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, e.ErrBusy), errors.Is(err, e.ErrStaleRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

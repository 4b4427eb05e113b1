package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has one
// response shape:
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, h.logger, err)
//
// Errors always look like:
//
//	{"error": "not_found", "message": "Guestbook Entry not found"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kyyril/portfolio/internal/apperror"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

const internalErrorMessage = "An internal error occurred"

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader; anything after the first body byte is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKinds maps each apperror sentinel to its status and wire name. The
// order matters only in that the first match wins.
var errorKinds = []struct {
	target error
	status int
	kind   string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrUpstream, http.StatusInternalServerError, "upstream_error"},
	{apperror.ErrNotConfigured, http.StatusInternalServerError, "not_configured"},
}

// writeError is the only place domain errors become HTTP statuses.
//
// errors.As walks the wrap chain, so a service error like
//
//	fmt.Errorf("service/entry: updating: %w", apperror.Forbidden(...))
//
// still reaches the AppError and its sentinel. Anything that is not an
// AppError is logged and answered with a generic 500: raw errors may carry
// SQL or file paths and are never sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.target) {
				writeJSON(w, k.status, ErrorResponse{Error: k.kind, Message: appErr.Message})
				return
			}
		}
	}

	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: internalErrorMessage,
	})
}

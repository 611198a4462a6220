package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
)

// errorClass is the client-facing rendering of an error kind.
type errorClass struct {
	err     error
	status  int
	kind    string
	message string
}

// errorClasses maps sentinel errors to responses. The first match wins.
// Messages are generic; error detail only goes to the log.
var errorClasses = []errorClass{
	{apperrors.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", "missing or invalid request parameters"},
	{apperrors.ErrFlowNotFound, http.StatusBadRequest, "invalid_state", "unknown or expired authorization state"},
	{apperrors.ErrTokenDecode, http.StatusBadRequest, "invalid_token", "malformed token"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "token has expired, authorize again"},
	{apperrors.ErrAccessDenied, http.StatusForbidden, "access_denied", "authorization was denied"},
	{apperrors.ErrProviderRequest, http.StatusInternalServerError, "provider_error", "upstream request failed"},
}

var internalError = errorClass{
	status:  http.StatusInternalServerError,
	kind:    "internal_error",
	message: "internal error",
}

// classify returns the response class for err.
func classify(err error) errorClass {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c
		}
	}

	return internalError
}

// StatusFor returns the HTTP status an error is reported with.
func StatusFor(err error) int {
	return classify(err).status
}

// writeError classifies err, logs it and writes the JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	c := classify(err)

	attrs := []any{
		slog.String("request_id", RequestIDFrom(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", c.status),
		slog.String("error", err.Error()),
	}

	if c.status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Debug("request rejected", attrs...)
	}

	writeJSONError(w, c.status, c.kind, c.message)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

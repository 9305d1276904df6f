package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/suggest"
)

// maxBody bounds request bodies, import files included.
const maxBody = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an operation error to an HTTP status.
func statusOf(err error) int {
	var cfgErr *domain.ConfigError
	var setup *domain.AuthSetupError
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrInvalidForm), errors.Is(err, domain.ErrFormat), errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfigRequired), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrNothingImported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotSupported), errors.Is(err, suggest.ErrDisabled):
		return http.StatusNotImplemented
	case errors.As(err, &setup):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the notification of err.
func writeError(w http.ResponseWriter, d deps.Deps, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		d.Logger.Warn("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, domain.Notify(err))
}

// badRequest reports a malformed request as a format error.
func badRequest(w http.ResponseWriter, d deps.Deps, r *http.Request, msg string) {
	writeError(w, d, r, fmt.Errorf("%w: %s", domain.ErrFormat, msg))
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", domain.ErrFormat)
		}
		return fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	return nil
}

// body returns the request body, bounded by maxBody.
func body(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, maxBody)
}

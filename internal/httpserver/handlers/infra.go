package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
)

type componentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Service    domain.Status              `json:"service"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the bookmark service status and its components.
// The mode is "degraded" when a component is down.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := runChecks(r.Context(), d.Checks)

		components := make(map[string]componentStatus, len(d.Checks))
		for _, c := range d.Checks {
			msg, down := failed[c.Name]
			components[c.Name] = componentStatus{OK: !down, Error: msg}
		}

		mode := "optimal"
		if len(failed) > 0 {
			mode = "degraded"
		}
		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       mode,
			Service:    d.Bookmarks.Status(),
			Components: components,
		})
	}
}

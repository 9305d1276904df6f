package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Readyz runs every readiness check and answers 503 when one fails.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := runChecks(r.Context(), d.Checks)
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Failed: failed})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}

func runChecks(ctx context.Context, checks []deps.Check) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var failed map[string]string
	for _, c := range checks {
		if err := c.Run(ctx); err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[c.Name] = err.Error()
		}
	}
	return failed
}

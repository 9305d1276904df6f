package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
)

type healthzResponse struct {
	Status    string           `json:"status"`
	Backend   string           `json:"backend"`
	Partition domain.Partition `json:"partition"`
	Uptime    float64          `json:"uptime_seconds"`
	Build     buildInfo        `json:"build"`
}

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Healthz reports liveness, the active backend and build information.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		BuildDate: d.BuildDate,
		GoVersion: d.GoVersion,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status: "ok",
			Build:  build,
		}
		if !d.StartTime.IsZero() {
			resp.Uptime = d.Now().Sub(d.StartTime).Seconds()
		}
		if d.Bookmarks != nil {
			resp.Backend = d.Bookmarks.Status().Backend
			resp.Partition = d.Bookmarks.Partition()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

type partitionBody struct {
	Partition domain.Partition `json:"partition"`
}

// GetPartition returns the active partition.
func GetPartition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, partitionBody{Partition: d.Bookmarks.Partition()})
	}
}

// PutPartition switches the active partition. A failed pull after the
// switch is reported but the switch holds.
func PutPartition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Partition string `json:"partition"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, d, r, err)
			return
		}
		p, err := domain.ParsePartition(in.Partition)
		if err != nil {
			badRequest(w, d, r, err.Error())
			return
		}
		if err := d.Bookmarks.SwitchPartition(r.Context(), p); err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("partition switched", logger.String("partition", p.String()))
		writeJSON(w, http.StatusOK, partitionBody{Partition: p})
	}
}

// Sync runs ?direction=pull|push|both, both by default.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir, err := domain.ParseDirection(r.URL.Query().Get("direction"))
		if err != nil {
			badRequest(w, d, r, err.Error())
			return
		}
		n, err := d.Bookmarks.Sync(r.Context(), dir)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// GetSyncConfig returns the stored config with the token redacted.
func GetSyncConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Bookmarks.SyncConfig(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if cfg == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, cfg.Redacted())
	}
}

// PutSyncConfig validates and stores a SyncConfig. A redacted token keeps
// the stored one.
func PutSyncConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg domain.SyncConfig
		if err := decodeJSON(w, r, &cfg); err != nil {
			writeError(w, d, r, err)
			return
		}
		if cfg.Token == domain.RedactedToken {
			stored, err := d.Bookmarks.SyncConfig(r.Context())
			if err != nil {
				writeError(w, d, r, err)
				return
			}
			cfg = cfg.KeepToken(stored)
		}
		if err := d.Bookmarks.SaveSyncConfig(r.Context(), cfg); err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("sync config saved", logger.String("provider", string(cfg.Provider)))
		writeJSON(w, http.StatusOK, cfg.WithDefaults().Redacted())
	}
}

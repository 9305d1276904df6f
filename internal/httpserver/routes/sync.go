package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	r.With(reading(d)...).Get("/api/partition", handlers.GetPartition(d))

	write := r.With(mutating(d)...)
	write.Put("/api/partition", handlers.PutPartition(d))
	write.Post("/api/sync", handlers.Sync(d))
	// the config holds the token, read access is guarded like a write
	write.Get("/api/sync/config", handlers.GetSyncConfig(d))
	write.Put("/api/sync/config", handlers.PutSyncConfig(d))
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	read := r.With(reading(d)...)
	read.Get("/api/bookmarks", handlers.ListBookmarks(d))
	read.Get("/api/categories", handlers.Categories(d))
	read.Get("/api/export", handlers.Export(d))

	write := r.With(mutating(d)...)
	write.Post("/api/bookmarks", handlers.CreateBookmark(d))
	write.Put("/api/bookmarks/{id}", handlers.UpdateBookmark(d))
	write.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
	write.Post("/api/bookmarks/{id}/open", handlers.OpenBookmark(d))
	write.Post("/api/import/json", handlers.ImportJSON(d))
	write.Post("/api/import/html", handlers.ImportHTML(d))
	write.Post("/api/suggest", handlers.Suggest(d))
}

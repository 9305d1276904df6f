package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// ListBookmarks returns the active partition.
//
//	?q=        case-insensitive match on title, url and notes
//	?category= exact category
//	?sort=rank relevance to q, then usage
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Bookmarks.List(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		q := r.URL.Query()
		term := strings.TrimSpace(q.Get("q"))
		if cat := q.Get("category"); cat != "" {
			list = byCategory(list, cat)
		}

		switch q.Get("sort") {
		case "", "stored":
			list = domain.Filter(list, term)
		case "rank":
			list = domain.Bookmarks(domain.Rank(list, term, domain.Millis(d.Now())))
		default:
			badRequest(w, d, r, "sort must be rank or stored")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func byCategory(list []domain.Bookmark, cat string) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(list))
	for _, b := range list {
		if b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// Categories returns the distinct categories of the active partition.
func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Bookmarks.List(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.Categories(list))
	}
}

// CreateBookmark adds a bookmark from a form body.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.Form
		if err := decodeJSON(w, r, &f); err != nil {
			writeError(w, d, r, err)
			return
		}
		b, err := d.Bookmarks.Create(r.Context(), f)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("bookmark created", logger.String("id", b.ID))
		writeJSON(w, http.StatusCreated, b)
	}
}

// UpdateBookmark replaces the editable fields of {id}.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.Form
		if err := decodeJSON(w, r, &f); err != nil {
			writeError(w, d, r, err)
			return
		}
		b, err := d.Bookmarks.Update(r.Context(), chi.URLParam(r, "id"), f)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes {id}.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Bookmarks.Delete(r.Context(), id); err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("bookmark deleted", logger.String("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// OpenBookmark records a visit of {id}. With ?redirect=1 it also redirects
// to the bookmark URL.
func OpenBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Bookmarks.Open(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if r.URL.Query().Get("redirect") != "" {
			http.Redirect(w, r, b.URL, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

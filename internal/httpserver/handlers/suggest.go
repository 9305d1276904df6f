package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/suggest"
)

type suggestRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Suggest proposes a category and notes for a bookmark being edited. The
// categories of the active partition are passed as examples. An empty
// model answer is returned as null.
func Suggest(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Suggester == nil {
			writeError(w, d, r, suggest.ErrDisabled)
			return
		}
		var in suggestRequest
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, d, r, err)
			return
		}
		in.URL = strings.TrimSpace(in.URL)
		if in.URL == "" {
			writeError(w, d, r, domain.ErrInvalidForm)
			return
		}

		var existing []string
		if list, err := d.Bookmarks.List(r.Context()); err == nil {
			existing = domain.Categories(list)
		}

		s, err := d.Suggester.Suggest(r.Context(), in.URL, in.Title, existing)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

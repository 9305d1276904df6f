package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/importer"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

type importResponse struct {
	Added        int                 `json:"added"`
	Notification domain.Notification `json:"notification"`
}

// ImportJSON imports a JSON array of partial bookmarks.
func ImportJSON(d deps.Deps) http.HandlerFunc {
	return importWith(d, importer.ParseJSON)
}

// ImportHTML imports a Netscape bookmark file.
func ImportHTML(d deps.Deps) http.HandlerFunc {
	return importWith(d, importer.ParseHTML)
}

func importWith(d deps.Deps, parse func(io.Reader) ([]domain.ImportItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := parse(body(w, r))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		added, err := d.Bookmarks.Import(r.Context(), items)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("import done", logger.Int("items", len(items)), logger.Int("added", added))
		writeJSON(w, http.StatusOK, importResponse{
			Added:        added,
			Notification: domain.Success(importMessage(added)),
		})
	}
}

func importMessage(added int) string {
	if added == 1 {
		return "Imported 1 bookmark"
	}
	return "Imported " + strconv.Itoa(added) + " bookmarks"
}

// Export downloads the active partition as a JSON attachment.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Bookmarks.List(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		var buf bytes.Buffer
		if err := importer.Export(&buf, list); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+d.Bookmarks.Partition().ExportFileName()+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

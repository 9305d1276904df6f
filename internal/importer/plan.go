// Package importer reads bookmark files (JSON arrays and Netscape HTML
// exports) and plans which of their records are new.
package importer

import (
	"strings"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// Plan returns the bookmarks to add for items, in input order. Records whose
// url does not start with "http" or already exists in existing are dropped.
// Duplicates inside items are kept. ids may be nil when the backend assigns
// ids itself.
func Plan(existing []domain.Bookmark, items []domain.ImportItem, ids domain.IDGenerator, nowMillis int64) []domain.Bookmark {
	known := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		known[b.URL] = struct{}{}
	}

	out := make([]domain.Bookmark, 0, len(items))
	for _, item := range items {
		if !strings.HasPrefix(item.URL, "http") {
			continue
		}
		if _, dup := known[item.URL]; dup {
			continue
		}

		b := domain.Bookmark{
			Title:     item.Title,
			URL:       item.URL,
			Category:  item.Category,
			Notes:     item.Notes,
			Favicon:   domain.FaviconFor(item.URL),
			CreatedAt: nowMillis,
		}
		if b.Title == "" {
			b.Title = domain.UntitledTitle
		}
		if b.Category == "" {
			b.Category = domain.ImportedCategory
		}
		if ids != nil {
			b.ID = ids.New()
		}
		out = append(out, b)
	}
	return out
}

// Prepend returns added followed by existing.
func Prepend(added, existing []domain.Bookmark) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(added)+len(existing))
	out = append(out, added...)
	return append(out, existing...)
}

package domain

import (
	"net/url"
	"strings"
)

const (
	// DefaultCategory is used when a bookmark is saved from the form without a category.
	DefaultCategory = "General"
	// ImportedCategory is used for imported records that carry no category.
	ImportedCategory = "Imported"
	// UntitledTitle is used for imported records that carry no title.
	UntitledTitle = "Untitled"

	faviconProxy = "https://api.iowen.cn/favicon/"
)

// Bookmark is the identity-bearing record shared by every backend.
//
// Timestamps are Unix milliseconds. Blob backends stamp them with the
// client clock, realtime backends convert the server-assigned timestamp.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is unique within a partition.
	ID string `json:"id"`

	// ─────────────────────────────
	// Editable fields
	// ─────────────────────────────

	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Notes    string `json:"notes,omitempty"`

	// ─────────────────────────────
	// Derived
	// ─────────────────────────────

	// Favicon is recomputed from URL on every save. Never authoritative.
	Favicon string `json:"favicon,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`

	// ClickCount and LastUsedAt are only used for display ranking.
	ClickCount int64 `json:"clickCount,omitempty"`
	LastUsedAt int64 `json:"lastUsedAt,omitempty"`

	// LastEditor is only set in the public partition of the realtime backend.
	LastEditor string `json:"lastEditor,omitempty"`
}

// Apply merges the editable fields of f into b, recomputes the favicon and
// stamps UpdatedAt. The form must already be validated.
func (b Bookmark) Apply(f Form, nowMillis int64) Bookmark {
	f = f.Normalize()
	b.Title = f.Title
	b.URL = f.URL
	b.Category = f.Category
	b.Notes = f.Notes
	b.Favicon = FaviconFor(f.URL)
	b.UpdatedAt = nowMillis
	return b
}

// FaviconFor derives the favicon proxy URL from rawURL's hostname.
// Unparsable URLs fall back to the "unknown" host.
func FaviconFor(rawURL string) string {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return faviconProxy + host + ".png"
}

// Matches reports whether the bookmark's title, url or notes contain term
// (case-insensitive). An empty term matches everything.
func (b Bookmark) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.URL), term) ||
		strings.Contains(strings.ToLower(b.Notes), term)
}

// Filter returns the bookmarks matching term, preserving order.
func Filter(list []Bookmark, term string) []Bookmark {
	out := make([]Bookmark, 0, len(list))
	for _, b := range list {
		if b.Matches(term) {
			out = append(out, b)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
// Bookmarks without a category count as DefaultCategory.
func Categories(list []Bookmark) []string {
	seen := make(map[string]bool, len(list))
	cats := make([]string, 0)
	for _, b := range list {
		c := b.Category
		if c == "" {
			c = DefaultCategory
		}
		if !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	return cats
}

// IndexOf returns the position of the bookmark with id, or -1.
func IndexOf(list []Bookmark, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Package realtime keeps a live view of a remote document collection per
// partition and issues per-document mutations against it.
package realtime

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// ErrListenerStopped is returned by Listener.Next once Stop was called or
// the listen context is done.
var ErrListenerStopped = errors.New("listener stopped")

// BatchSize is the maximum number of documents committed in one batch.
const BatchSize = 400

// Backend is a document store with server-assigned timestamps. Created and
// updated documents get createdAt/updatedAt stamped by the server.
type Backend interface {
	// Listen starts a snapshot listener on collection.
	Listen(ctx context.Context, collection string) (Listener, error)
	// Create adds a document and returns its id. b.ID is ignored.
	Create(ctx context.Context, collection string, b domain.Bookmark) (string, error)
	// Update applies patch to the document id. A missing document is ErrNotFound.
	Update(ctx context.Context, collection, id string, patch Patch) error
	// Delete removes the document id.
	Delete(ctx context.Context, collection, id string) error
	// CreateBatch adds up to BatchSize documents atomically.
	CreateBatch(ctx context.Context, collection string, list []domain.Bookmark) error
}

// Listener delivers full snapshots of a collection.
type Listener interface {
	// Next blocks until the collection changes and returns every document.
	// The first call returns the current content.
	Next() ([]domain.Bookmark, error)
	// Stop releases the listener. Next then returns ErrListenerStopped.
	Stop()
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title      *string
	URL        *string
	Category   *string
	Notes      *string
	Favicon    *string
	ClickCount *int64
	LastUsedAt *int64
	LastEditor *string
}

// FieldValue is one field of a patch, named as stored.
type FieldValue struct {
	Path  string
	Value any
}

// Fields lists the set fields of p in a stable order.
func (p Patch) Fields() []FieldValue {
	var out []FieldValue
	add := func(path string, set bool, v any) {
		if set {
			out = append(out, FieldValue{Path: path, Value: v})
		}
	}
	add("title", p.Title != nil, deref(p.Title))
	add("url", p.URL != nil, deref(p.URL))
	add("category", p.Category != nil, deref(p.Category))
	add("notes", p.Notes != nil, deref(p.Notes))
	add("favicon", p.Favicon != nil, deref(p.Favicon))
	add("clickCount", p.ClickCount != nil, deref(p.ClickCount))
	add("lastUsedAt", p.LastUsedAt != nil, deref(p.LastUsedAt))
	add("lastEditor", p.LastEditor != nil, deref(p.LastEditor))
	return out
}

// ApplyTo returns b with the set fields of p.
func (p Patch) ApplyTo(b domain.Bookmark) domain.Bookmark {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Favicon != nil {
		b.Favicon = *p.Favicon
	}
	if p.ClickCount != nil {
		b.ClickCount = *p.ClickCount
	}
	if p.LastUsedAt != nil {
		b.LastUsedAt = *p.LastUsedAt
	}
	if p.LastEditor != nil {
		b.LastEditor = *p.LastEditor
	}
	return b
}

// FormPatch patches the editable fields of f and the derived favicon.
func FormPatch(f domain.Form) Patch {
	f = f.Normalize()
	favicon := domain.FaviconFor(f.URL)
	return Patch{Title: &f.Title, URL: &f.URL, Category: &f.Category, Notes: &f.Notes, Favicon: &favicon}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Package firestore is the Cloud Firestore backend of the realtime adapter.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/realtime"
)

// document is the stored shape of a bookmark.
type document struct {
	Title      string    `firestore:"title"`
	URL        string    `firestore:"url"`
	Category   string    `firestore:"category"`
	Notes      string    `firestore:"notes"`
	Favicon    string    `firestore:"favicon"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
	ClickCount int64     `firestore:"clickCount"`
	LastUsedAt int64     `firestore:"lastUsedAt"`
	LastEditor string    `firestore:"lastEditor,omitempty"`
}

func (d document) bookmark(id string) domain.Bookmark {
	return domain.Bookmark{
		ID:         id,
		Title:      d.Title,
		URL:        d.URL,
		Category:   d.Category,
		Notes:      d.Notes,
		Favicon:    d.Favicon,
		CreatedAt:  domain.Millis(d.CreatedAt),
		UpdatedAt:  domain.Millis(d.UpdatedAt),
		ClickCount: d.ClickCount,
		LastUsedAt: d.LastUsedAt,
		LastEditor: d.LastEditor,
	}
}

// newFields is the payload of a created document, timestamps left to the server.
func newFields(b domain.Bookmark) map[string]any {
	fields := map[string]any{
		"title":      b.Title,
		"url":        b.URL,
		"category":   b.Category,
		"notes":      b.Notes,
		"favicon":    b.Favicon,
		"clickCount": b.ClickCount,
		"lastUsedAt": b.LastUsedAt,
		"createdAt":  firestore.ServerTimestamp,
		"updatedAt":  firestore.ServerTimestamp,
	}
	if b.LastEditor != "" {
		fields["lastEditor"] = b.LastEditor
	}
	return fields
}

// Backend stores each bookmark as a document of a collection.
type Backend struct {
	client *firestore.Client
}

// New connects to the Firestore database of projectID. Credentials come
// from opts or the application default credentials.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Backend, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Backend{client: client}, nil
}

// NewFromClient wraps an existing client (emulator, tests).
func NewFromClient(client *firestore.Client) *Backend {
	return &Backend{client: client}
}

// Close releases the client.
func (b *Backend) Close() error { return b.client.Close() }

func (b *Backend) Listen(ctx context.Context, collection string) (realtime.Listener, error) {
	return &listener{it: b.client.Collection(collection).Snapshots(ctx)}, nil
}

func (b *Backend) Create(ctx context.Context, collection string, bm domain.Bookmark) (string, error) {
	ref, _, err := b.client.Collection(collection).Add(ctx, newFields(bm))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (b *Backend) Update(ctx context.Context, collection, id string, patch realtime.Patch) error {
	fields := patch.Fields()
	updates := make([]firestore.Update, 0, len(fields)+1)
	for _, f := range fields {
		updates = append(updates, firestore.Update{Path: f.Path, Value: f.Value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	_, err := b.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	return err
}

func (b *Backend) Delete(ctx context.Context, collection, id string) error {
	_, err := b.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (b *Backend) CreateBatch(ctx context.Context, collection string, list []domain.Bookmark) error {
	if len(list) > realtime.BatchSize {
		return fmt.Errorf("batch of %d exceeds %d writes", len(list), realtime.BatchSize)
	}
	col := b.client.Collection(collection)
	batch := b.client.Batch()
	for _, bm := range list {
		batch.Create(col.NewDoc(), newFields(bm))
	}
	_, err := batch.Commit(ctx)
	return err
}

type listener struct {
	it *firestore.QuerySnapshotIterator
}

func (l *listener) Next() ([]domain.Bookmark, error) {
	qs, err := l.it.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
			return nil, realtime.ErrListenerStopped
		}
		return nil, err
	}

	docs, err := qs.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bookmark, 0, len(docs))
	for _, doc := range docs {
		var d document
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		out = append(out, d.bookmark(doc.Ref.ID))
	}
	return out, nil
}

func (l *listener) Stop() { l.it.Stop() }

var _ realtime.Backend = (*Backend)(nil)

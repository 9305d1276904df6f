// Package memstore is an in-process document store with the semantics the
// realtime adapter expects: server timestamps, full-snapshot listeners and
// atomic batches. It backs tests and offline runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/realtime"
)

// Op names an operation for failure injection.
type Op string

const (
	OpListen Op = "listen"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpBatch  Op = "batch"
)

type document struct {
	b   domain.Bookmark
	seq int // insertion order, for stable snapshots
}

// Store holds collections of documents keyed by path.
type Store struct {
	mu          sync.Mutex
	clock       domain.Clock
	collections map[string]map[string]*document
	listeners   map[string]map[*listener]struct{}
	failures    map[Op][]error
	seq         int
	batches     int
}

// New creates an empty store. clock stamps createdAt/updatedAt; nil uses
// the real clock.
func New(clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Store{
		clock:       clock,
		collections: make(map[string]map[string]*document),
		listeners:   make(map[string]map[*listener]struct{}),
		failures:    make(map[Op][]error),
	}
}

// FailNext makes the next call of op return err. Calls queue up.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// failure pops the injected error of op. Callers hold s.mu.
func (s *Store) failure(op Op) error {
	q := s.failures[op]
	if len(q) == 0 {
		return nil
	}
	s.failures[op] = q[1:]
	return q[0]
}

// Batches counts the committed batches.
func (s *Store) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// Listeners returns the number of active listeners on collection.
func (s *Store) Listeners(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[collection])
}

func (s *Store) Listen(ctx context.Context, collection string) (realtime.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpListen); err != nil {
		return nil, err
	}

	l := &listener{
		store:      s,
		collection: collection,
		ctx:        ctx,
		changed:    make(chan struct{}, 1),
		stopped:    make(chan struct{}),
	}
	l.changed <- struct{}{}
	if s.listeners[collection] == nil {
		s.listeners[collection] = make(map[*listener]struct{})
	}
	s.listeners[collection][l] = struct{}{}
	return l, nil
}

func (s *Store) Create(_ context.Context, collection string, b domain.Bookmark) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpCreate); err != nil {
		return "", err
	}
	id := s.insert(collection, b, domain.Millis(s.clock.Now()))
	s.notify(collection)
	return id, nil
}

func (s *Store) Update(_ context.Context, collection, id string, patch realtime.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUpdate); err != nil {
		return err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	doc.b = patch.ApplyTo(doc.b)
	doc.b.UpdatedAt = domain.Millis(s.clock.Now())
	s.notify(collection)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpDelete); err != nil {
		return err
	}
	// deleting a missing document succeeds, like Firestore
	delete(s.collections[collection], id)
	s.notify(collection)
	return nil
}

func (s *Store) CreateBatch(_ context.Context, collection string, list []domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(list) > realtime.BatchSize {
		return fmt.Errorf("batch of %d exceeds %d writes", len(list), realtime.BatchSize)
	}
	if err := s.failure(OpBatch); err != nil {
		return err
	}
	now := domain.Millis(s.clock.Now())
	for _, b := range list {
		s.insert(collection, b, now)
	}
	s.batches++
	s.notify(collection)
	return nil
}

// insert stores b under a fresh id. Callers hold s.mu.
func (s *Store) insert(collection string, b domain.Bookmark, now int64) string {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*document)
	}
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.seq++
	s.collections[collection][b.ID] = &document{b: b, seq: s.seq}
	return b.ID
}

// notify wakes every listener of collection. Callers hold s.mu.
func (s *Store) notify(collection string) {
	for l := range s.listeners[collection] {
		select {
		case l.changed <- struct{}{}:
		default:
			// a wake-up is already pending; snapshots are full so one suffices
		}
	}
}

// snapshot returns the documents of collection in insertion order.
func (s *Store) snapshot(collection string) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]*document, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].seq < docs[j].seq })
	out := make([]domain.Bookmark, len(docs))
	for i, d := range docs {
		out[i] = d.b
	}
	return out
}

func (s *Store) remove(l *listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners[l.collection], l)
}

type listener struct {
	store      *Store
	collection string
	ctx        context.Context
	changed    chan struct{}
	stopped    chan struct{}
	once       sync.Once
}

func (l *listener) Next() ([]domain.Bookmark, error) {
	// a stop wins over a pending change
	select {
	case <-l.stopped:
		return nil, realtime.ErrListenerStopped
	case <-l.ctx.Done():
		return nil, realtime.ErrListenerStopped
	default:
	}

	select {
	case <-l.changed:
		return l.store.snapshot(l.collection), nil
	case <-l.stopped:
		return nil, realtime.ErrListenerStopped
	case <-l.ctx.Done():
		return nil, realtime.ErrListenerStopped
	}
}

func (l *listener) Stop() {
	l.once.Do(func() {
		close(l.stopped)
		l.store.remove(l)
	})
}

// FixedClock is a settable clock for deterministic timestamps.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock starts at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{now: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ realtime.Backend = (*Store)(nil)

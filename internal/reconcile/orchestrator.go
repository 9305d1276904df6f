// Package reconcile runs the blob variant: the Local Store is the working
// copy, pull replaces a partition with the remote file and push replaces
// the remote file with the partition. Every local mutation pushes when sync
// is configured.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/hajimi/internal/blobsync"
	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/importer"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/store"
)

// Orchestrator folds remote sync results into the Local Store.
type Orchestrator struct {
	store    *store.Store
	remote   blobsync.Remote
	clock    domain.Clock
	notifier domain.Notifier
	logger   logger.Logger

	mu        sync.RWMutex
	partition domain.Partition
	last      *domain.Notification

	// writeMu is held across the load and save of a local mutation.
	writeMu sync.Mutex

	// syncing counts in-flight syncs. Advisory only: syncs are not serialized.
	syncing atomic.Int32
	pushes  sync.WaitGroup
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for timestamps.
func WithClock(c domain.Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithNotifier receives the outcome of every sync, including auto-pushes.
func WithNotifier(n domain.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.logger = log
		}
	}
}

// New creates an orchestrator on the private partition.
func New(st *store.Store, remote blobsync.Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		remote:    remote,
		clock:     domain.RealClock{},
		notifier:  domain.NotifierFunc(func(domain.Notification) {}),
		logger:    logger.Nop(),
		partition: domain.Private,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ─────────────────────────────
// Sync
// ─────────────────────────────

// Sync runs a pull, a push, or a pull then a push on the active partition.
// Without a usable SyncConfig a pull is a silent no-op and push/both fail
// with ErrConfigRequired. Both stops at the first failure.
func (o *Orchestrator) Sync(ctx context.Context, dir domain.Direction) (domain.Notification, error) {
	cfg, err := o.store.LoadConfig(ctx)
	if err != nil {
		return o.report(domain.Notification{}, err)
	}
	if !cfg.Enabled() {
		if dir == domain.Pull {
			return domain.Notification{}, nil
		}
		return o.report(domain.Notification{}, domain.ErrConfigRequired)
	}

	o.syncing.Add(1)
	defer o.syncing.Add(-1)

	p := o.Partition()
	log := o.logger.With(
		logger.String("direction", string(dir)),
		logger.String("partition", p.String()),
		logger.String("provider", string(cfg.Provider)))

	var n domain.Notification
	if dir == domain.Pull || dir == domain.Both {
		list, err := o.remote.Pull(ctx, *cfg)
		if err != nil {
			log.Warn("pull failed", logger.Error(err))
			return o.report(domain.Notification{}, err)
		}
		if err := o.store.Save(ctx, p, list); err != nil {
			return o.report(domain.Notification{}, err)
		}
		log.Info("pulled remote bookmarks", logger.Int("count", len(list)))
		n = domain.Success("Sync complete, data refreshed")
	}

	if dir == domain.Push || dir == domain.Both {
		current, err := o.store.Load(ctx, p)
		if err != nil {
			return o.report(domain.Notification{}, err)
		}
		if err := o.remote.Push(ctx, *cfg, current); err != nil {
			log.Warn("push failed", logger.Error(err))
			return o.report(domain.Notification{}, err)
		}
		log.Info("pushed bookmarks", logger.Int("count", len(current)))
		n = domain.Success("Backed up to cloud (" + strings.ToUpper(string(cfg.Provider)) + ")")
	}

	return o.report(n, nil)
}

// report records and forwards the outcome of a sync.
func (o *Orchestrator) report(n domain.Notification, err error) (domain.Notification, error) {
	if err != nil {
		n = domain.Notify(err)
	}
	o.mu.Lock()
	o.last = &n
	o.mu.Unlock()
	o.notifier.Notify(n)
	return n, err
}

// autoPush starts a push when sync is configured. One push per mutation,
// never debounced or coalesced.
func (o *Orchestrator) autoPush(ctx context.Context) {
	cfg, err := o.store.LoadConfig(ctx)
	if err != nil || !cfg.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.pushes.Add(1)
	go func() {
		defer o.pushes.Done()
		_, _ = o.Sync(ctx, domain.Push)
	}()
}

// Wait blocks until the automatic pushes started so far have settled.
func (o *Orchestrator) Wait() { o.pushes.Wait() }

// IsSyncing reports whether a sync is in flight.
func (o *Orchestrator) IsSyncing() bool { return o.syncing.Load() > 0 }

// ─────────────────────────────
// Partition
// ─────────────────────────────

// Partition returns the active partition.
func (o *Orchestrator) Partition() domain.Partition {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.partition
}

// SwitchPartition makes p active and pulls it when sync is configured.
// The switch holds even when the pull fails.
func (o *Orchestrator) SwitchPartition(ctx context.Context, p domain.Partition) error {
	o.mu.Lock()
	o.partition = p
	o.mu.Unlock()

	if _, err := o.Sync(ctx, domain.Pull); err != nil {
		return fmt.Errorf("switched to %s, pull failed: %w", p, err)
	}
	return nil
}

// ─────────────────────────────
// Mutations
// ─────────────────────────────

// List returns the active partition.
func (o *Orchestrator) List(ctx context.Context) ([]domain.Bookmark, error) {
	return o.store.Load(ctx, o.Partition())
}

// mutate applies fn to the active partition and saves the result.
// Mutations run one at a time. Syncs are not held back by them.
func (o *Orchestrator) mutate(ctx context.Context, fn func([]domain.Bookmark) ([]domain.Bookmark, error)) error {
	if err := o.apply(ctx, fn); err != nil {
		return err
	}
	o.autoPush(ctx)
	return nil
}

func (o *Orchestrator) apply(ctx context.Context, fn func([]domain.Bookmark) ([]domain.Bookmark, error)) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	p := o.Partition()
	list, err := o.store.Load(ctx, p)
	if err != nil {
		return err
	}
	list, err = fn(list)
	if err != nil {
		return err
	}
	return o.store.Save(ctx, p, list)
}

func (o *Orchestrator) now() int64 { return domain.Millis(o.clock.Now()) }

// Create prepends a new bookmark built from f.
func (o *Orchestrator) Create(ctx context.Context, f domain.Form) (domain.Bookmark, error) {
	if err := f.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	now := o.now()
	b := domain.Bookmark{ID: o.store.GenerateID(), CreatedAt: now}.Apply(f, now)

	err := o.mutate(ctx, func(list []domain.Bookmark) ([]domain.Bookmark, error) {
		return importer.Prepend([]domain.Bookmark{b}, list), nil
	})
	if err != nil {
		return domain.Bookmark{}, err
	}
	return b, nil
}

// Update merges f into the bookmark id.
func (o *Orchestrator) Update(ctx context.Context, id string, f domain.Form) (domain.Bookmark, error) {
	if err := f.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	var updated domain.Bookmark
	err := o.mutate(ctx, func(list []domain.Bookmark) ([]domain.Bookmark, error) {
		i := domain.IndexOf(list, id)
		if i < 0 {
			return nil, fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
		}
		list[i] = list[i].Apply(f, o.now())
		updated = list[i]
		return list, nil
	})
	return updated, err
}

// Delete removes the bookmark id.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	return o.mutate(ctx, func(list []domain.Bookmark) ([]domain.Bookmark, error) {
		i := domain.IndexOf(list, id)
		if i < 0 {
			return nil, fmt.Errorf("delete %s: %w", id, domain.ErrNotFound)
		}
		return append(list[:i], list[i+1:]...), nil
	})
}

// Open bumps the usage counters of id.
func (o *Orchestrator) Open(ctx context.Context, id string) (domain.Bookmark, error) {
	var opened domain.Bookmark
	err := o.mutate(ctx, func(list []domain.Bookmark) ([]domain.Bookmark, error) {
		i := domain.IndexOf(list, id)
		if i < 0 {
			return nil, fmt.Errorf("open %s: %w", id, domain.ErrNotFound)
		}
		list[i].ClickCount++
		list[i].LastUsedAt = o.now()
		opened = list[i]
		return list, nil
	})
	return opened, err
}

// Import prepends the new records of items and returns how many were added.
func (o *Orchestrator) Import(ctx context.Context, items []domain.ImportItem) (int, error) {
	added := 0
	err := o.mutate(ctx, func(list []domain.Bookmark) ([]domain.Bookmark, error) {
		fresh := importer.Plan(list, items, o.store.IDs(), o.now())
		if len(fresh) == 0 {
			return nil, domain.ErrNothingImported
		}
		added = len(fresh)
		return importer.Prepend(fresh, list), nil
	})
	if err != nil {
		return 0, err
	}
	o.logger.Info("imported bookmarks",
		logger.String("partition", o.Partition().String()),
		logger.Int("count", added))
	return added, nil
}

// ─────────────────────────────
// Config & status
// ─────────────────────────────

// SyncConfig returns the stored config, nil when none.
func (o *Orchestrator) SyncConfig(ctx context.Context) (*domain.SyncConfig, error) {
	return o.store.LoadConfig(ctx)
}

// SaveSyncConfig validates and stores cfg. It is read again on every sync.
func (o *Orchestrator) SaveSyncConfig(ctx context.Context, cfg domain.SyncConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return o.store.SaveConfig(ctx, cfg)
}

// Status reports the active partition and the last sync outcome.
func (o *Orchestrator) Status() domain.Status {
	o.mu.RLock()
	st := domain.Status{
		Backend:   "blob",
		Partition: o.partition,
		LastSync:  o.last,
	}
	o.mu.RUnlock()
	st.Syncing = o.IsSyncing()

	ctx := context.Background()
	if list, err := o.store.Load(ctx, st.Partition); err == nil {
		st.Count = len(list)
	}
	if cfg, err := o.store.LoadConfig(ctx); err == nil && cfg != nil {
		st.Provider = cfg.Provider
	}
	return st
}

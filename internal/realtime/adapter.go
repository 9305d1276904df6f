package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/importer"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// State of the adapter lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAuthenticating
	StateAuthenticated
	StateAuthFailed
	StateSubscribed
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth-failed"
	case StateSubscribed:
		return "subscribed"
	case StateTornDown:
		return "torn-down"
	default:
		return "uninitialized"
	}
}

// ErrClosed is returned once the adapter has been torn down.
var ErrClosed = errors.New("realtime adapter is closed")

// Adapter maintains the live view of the current partition and issues
// per-document mutations on its collection.
type Adapter struct {
	backend     Backend
	auth        Authenticator
	collections Collections
	clock       domain.Clock
	logger      logger.Logger

	signIn singleflight.Group

	// subMu serializes subscription changes.
	subMu sync.Mutex

	mu        sync.Mutex
	state     State
	principal Principal
	setupErr  error
	partition domain.Partition
	sub       *Subscription
	gen       uint64

	view View
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithClock sets the clock of client-stamped fields (lastUsedAt).
func WithClock(c domain.Clock) Option {
	return func(a *Adapter) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.logger = log
		}
	}
}

// NewAdapter creates an adapter in the uninitialized state.
func NewAdapter(backend Backend, auth Authenticator, collections Collections, opts ...Option) *Adapter {
	a := &Adapter{
		backend:     backend,
		auth:        auth,
		collections: collections,
		clock:       domain.RealClock{},
		logger:      logger.Nop(),
		partition:   domain.Private,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// View is the live state published by the subscription.
func (a *Adapter) View() *View { return &a.view }

// Authenticate signs in once. A setup failure is terminal and returned by
// every later call; other failures leave the adapter uninitialized.
func (a *Adapter) Authenticate(ctx context.Context) (Principal, error) {
	a.mu.Lock()
	switch a.state {
	case StateAuthFailed:
		err := a.setupErr
		a.mu.Unlock()
		return Principal{}, err
	case StateAuthenticated, StateSubscribed:
		p := a.principal
		a.mu.Unlock()
		return p, nil
	case StateTornDown:
		a.mu.Unlock()
		return Principal{}, ErrClosed
	}
	a.state = StateAuthenticating
	a.mu.Unlock()

	v, err, _ := a.signIn.Do("sign-in", func() (any, error) {
		return a.auth.SignIn(ctx)
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateTornDown {
		return Principal{}, ErrClosed
	}
	if err != nil {
		var setup *domain.AuthSetupError
		if errors.As(err, &setup) {
			a.state = StateAuthFailed
			a.setupErr = err
			a.logger.Error("authentication setup failed",
				logger.String("kind", setup.Kind.String()),
				logger.Error(err))
		} else {
			a.state = StateUninitialized
			a.logger.Warn("authentication failed", logger.Error(err))
		}
		return Principal{}, err
	}

	a.principal = v.(Principal)
	if a.state == StateAuthenticating {
		a.state = StateAuthenticated
	}
	a.logger.Info("authenticated", logger.String("principal", a.principal.ShortID()))
	return a.principal, nil
}

// requirePrincipal returns the principal and the current partition, or the
// precondition failure.
func (a *Adapter) requirePrincipal() (Principal, domain.Partition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateAuthenticated, StateSubscribed:
		return a.principal, a.partition, nil
	case StateAuthFailed:
		return Principal{}, "", a.setupErr
	case StateTornDown:
		return Principal{}, "", ErrClosed
	default:
		return Principal{}, "", domain.ErrNotAuthenticated
	}
}

// Subscribe tears down the current subscription, if any, then listens to
// the collection of p. Snapshots are published newest first.
func (a *Adapter) Subscribe(ctx context.Context, p domain.Partition) error {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	principal, _, err := a.requirePrincipal()
	if err != nil {
		return err
	}

	a.mu.Lock()
	old := a.sub
	a.sub = nil
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
	a.view.reset(gen, p)

	// the listener outlives the caller's request; it ends with Cancel
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	collection := a.collections.Path(principal, p)
	listener, err := a.backend.Listen(subCtx, collection)
	if err != nil {
		cancel()
		a.mu.Lock()
		a.state = StateAuthenticated
		a.mu.Unlock()
		return fmt.Errorf("subscribe %s: %w", p, err)
	}

	sub := &Subscription{
		partition: p,
		listener:  listener,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go a.run(sub, gen)

	a.mu.Lock()
	a.sub = sub
	a.partition = p
	a.state = StateSubscribed
	a.mu.Unlock()

	a.logger.Info("subscribed", logger.String("partition", p.String()), logger.String("collection", collection))
	return nil
}

func (a *Adapter) run(sub *Subscription, gen uint64) {
	defer close(sub.done)
	for {
		list, err := sub.listener.Next()
		if err != nil {
			if errors.Is(err, ErrListenerStopped) {
				return
			}
			a.logger.Error("snapshot listener failed",
				logger.String("partition", sub.partition.String()),
				logger.Error(err))
			a.view.fail(gen, err)
			return
		}
		sortNewestFirst(list)
		a.view.publish(gen, list)
	}
}

// Close tears the subscription down. The adapter cannot be reused.
func (a *Adapter) Close() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	a.mu.Lock()
	sub := a.sub
	a.sub = nil
	a.state = StateTornDown
	a.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Partition returns the partition mutations apply to.
func (a *Adapter) Partition() domain.Partition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.partition
}

func (a *Adapter) target() (string, Principal, domain.Partition, error) {
	principal, p, err := a.requirePrincipal()
	if err != nil {
		return "", Principal{}, "", err
	}
	return a.collections.Path(principal, p), principal, p, nil
}

// Create adds a bookmark built from f to the current partition.
func (a *Adapter) Create(ctx context.Context, f domain.Form) (domain.Bookmark, error) {
	if err := f.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	collection, principal, p, err := a.target()
	if err != nil {
		return domain.Bookmark{}, err
	}

	b := domain.Bookmark{}.Apply(f, 0)
	if p == domain.Public {
		b.LastEditor = principal.ShortID()
	}
	id, err := a.backend.Create(ctx, collection, b)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("create bookmark: %w", err)
	}
	b.ID = id
	return b, nil
}

// Update overwrites the editable fields of id with f.
func (a *Adapter) Update(ctx context.Context, id string, f domain.Form) (domain.Bookmark, error) {
	if err := f.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	collection, principal, p, err := a.target()
	if err != nil {
		return domain.Bookmark{}, err
	}

	patch := FormPatch(f)
	if p == domain.Public {
		editor := principal.ShortID()
		patch.LastEditor = &editor
	}
	if err := a.backend.Update(ctx, collection, id, patch); err != nil {
		return domain.Bookmark{}, fmt.Errorf("update bookmark: %w", err)
	}

	current, _ := a.view.Find(id)
	current.ID = id
	return patch.ApplyTo(current), nil
}

// Delete removes id from the current partition.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	collection, _, _, err := a.target()
	if err != nil {
		return err
	}
	if err := a.backend.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// Open bumps the usage counters of id, based on the live view.
func (a *Adapter) Open(ctx context.Context, id string) (domain.Bookmark, error) {
	collection, _, _, err := a.target()
	if err != nil {
		return domain.Bookmark{}, err
	}
	current, ok := a.view.Find(id)
	if !ok {
		return domain.Bookmark{}, fmt.Errorf("open %s: %w", id, domain.ErrNotFound)
	}

	clicks := current.ClickCount + 1
	now := domain.Millis(a.clock.Now())
	patch := Patch{ClickCount: &clicks, LastUsedAt: &now}
	if err := a.backend.Update(ctx, collection, id, patch); err != nil {
		return domain.Bookmark{}, fmt.Errorf("open bookmark: %w", err)
	}
	return patch.ApplyTo(current), nil
}

// Import adds the new records of items in batches of BatchSize, committed
// one after the other. A failed batch stops the import; committed batches
// stay. The returned count is what was committed.
func (a *Adapter) Import(ctx context.Context, items []domain.ImportItem) (int, error) {
	collection, principal, p, err := a.target()
	if err != nil {
		return 0, err
	}

	added := importer.Plan(a.view.List(), items, nil, 0)
	if len(added) == 0 {
		return 0, domain.ErrNothingImported
	}
	if p == domain.Public {
		for i := range added {
			added[i].LastEditor = principal.ShortID()
		}
	}

	committed := 0
	total := (len(added) + BatchSize - 1) / BatchSize
	for i := 0; i < len(added); i += BatchSize {
		end := min(i+BatchSize, len(added))
		if err := a.backend.CreateBatch(ctx, collection, added[i:end]); err != nil {
			a.logger.Error("import batch failed",
				logger.Int("batch", i/BatchSize+1),
				logger.Int("batches", total),
				logger.Int("committed", committed),
				logger.Error(err))
			return committed, fmt.Errorf("import batch %d/%d: %w", i/BatchSize+1, total, err)
		}
		committed += end - i
	}
	return committed, nil
}

// Status reports the lifecycle state and the live view.
func (a *Adapter) Status() domain.Status {
	a.mu.Lock()
	st := domain.Status{
		Backend:   "realtime",
		Partition: a.partition,
		State:     a.state.String(),
	}
	if a.principal.UID != "" {
		st.Principal = a.principal.ShortID()
	}
	if a.setupErr != nil {
		st.LastError = a.setupErr.Error()
	}
	a.mu.Unlock()

	st.Count = len(a.view.List())
	if err := a.view.Err(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

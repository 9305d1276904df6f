package realtime_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/realtime"
	"github.com/MrSnakeDoc/hajimi/internal/realtime/memstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const uid = "user-1234567890"

var cols = realtime.Collections{AppID: "test-app"}

type countingAuth struct {
	calls atomic.Int32
	errs  []error
}

func (c *countingAuth) SignIn(context.Context) (realtime.Principal, error) {
	n := int(c.calls.Add(1))
	if n <= len(c.errs) && c.errs[n-1] != nil {
		return realtime.Principal{}, c.errs[n-1]
	}
	return realtime.Principal{UID: uid}, nil
}

func newAdapter(t *testing.T) (*realtime.Service, *memstore.Store, *memstore.FixedClock) {
	t.Helper()
	clock := memstore.NewFixedClock(time.UnixMilli(1_700_000_000_000))
	store := memstore.New(clock)
	svc := realtime.NewService(realtime.NewAdapter(store, realtime.StaticAuthenticator{UID: uid}, cols, realtime.WithClock(clock)))
	t.Cleanup(svc.Close)
	return svc, store, clock
}

func waitFor(t *testing.T, view *realtime.View, n int) []domain.Bookmark {
	t.Helper()
	require.Eventually(t, func() bool { return len(view.List()) == n }, 2*time.Second, 5*time.Millisecond)
	return view.List()
}

func TestCollectionPaths(t *testing.T) {
	p := realtime.Principal{UID: "abc"}
	assert.Equal(t, "artifacts/test-app/users/abc/bookmarks", cols.Path(p, domain.Private))
	assert.Equal(t, "artifacts/test-app/public/data/bookmarks", cols.Path(p, domain.Public))
	assert.Equal(t, "artifacts/default-app-id/users/abc/bookmarks", realtime.Collections{}.Path(p, domain.Private))
}

func TestMutationsRequireIdentity(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Form{Title: "t", URL: "https://x"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, "x"), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Subscribe(ctx, domain.Private), domain.ErrNotAuthenticated)
	assert.Zero(t, store.Len(cols.Path(realtime.Principal{UID: uid}, domain.Private)))
	assert.Equal(t, realtime.StateUninitialized, svc.State())
}

func TestAuthSetupFailureIsTerminal(t *testing.T) {
	setup := &domain.AuthSetupError{Kind: domain.AuthAnonymousDisabled, Code: "ADMIN_ONLY_OPERATION"}
	auth := &countingAuth{errs: []error{setup}}
	a := realtime.NewAdapter(memstore.New(nil), auth, cols)
	t.Cleanup(a.Close)
	ctx := context.Background()

	_, err := a.Authenticate(ctx)
	var got *domain.AuthSetupError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, domain.AuthAnonymousDisabled, got.Kind)
	assert.Equal(t, realtime.StateAuthFailed, a.State())

	_, err = a.Authenticate(ctx)
	assert.ErrorAs(t, err, &got)
	assert.EqualValues(t, 1, auth.calls.Load(), "a terminal failure must not be retried")

	_, err = a.Create(ctx, domain.Form{Title: "t", URL: "https://x"})
	assert.ErrorAs(t, err, &got)
}

func TestTransientAuthFailureAllowsRetry(t *testing.T) {
	auth := &countingAuth{errs: []error{errors.New("network unreachable")}}
	a := realtime.NewAdapter(memstore.New(nil), auth, cols)
	t.Cleanup(a.Close)

	_, err := a.Authenticate(context.Background())
	require.Error(t, err)
	assert.Equal(t, realtime.StateUninitialized, a.State())

	p, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uid, p.UID)
	assert.Equal(t, realtime.StateAuthenticated, a.State())
}

func TestSnapshotsAreNewestFirst(t *testing.T) {
	svc, _, clock := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, realtime.StateSubscribed, svc.State())

	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, domain.Form{Title: title, URL: "https://" + title + ".example"})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	list := waitFor(t, svc.View(), 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "first", list[2].Title)
	assert.Equal(t, domain.DefaultCategory, list[0].Category)
	assert.Equal(t, "https://api.iowen.cn/favicon/third.example.png", list[0].Favicon)
	assert.NotZero(t, list[0].CreatedAt, "createdAt is stamped by the store")
	assert.Empty(t, list[0].LastEditor, "private records carry no editor")
}

func TestSwitchPartitionResubscribes(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	_, err := svc.Create(ctx, domain.Form{Title: "mine", URL: "https://mine.example"})
	require.NoError(t, err)
	waitFor(t, svc.View(), 1)

	privatePath := cols.Path(realtime.Principal{UID: uid}, domain.Private)
	publicPath := cols.Path(realtime.Principal{UID: uid}, domain.Public)
	require.Equal(t, 1, store.Listeners(privatePath))

	require.NoError(t, svc.SwitchPartition(ctx, domain.Public))
	assert.Equal(t, 0, store.Listeners(privatePath), "previous subscription must be torn down first")
	assert.Equal(t, 1, store.Listeners(publicPath))
	assert.Equal(t, domain.Public, svc.Partition())

	created, err := svc.Create(ctx, domain.Form{Title: "shared", URL: "https://shared.example"})
	require.NoError(t, err)
	assert.Equal(t, uid[:6], created.LastEditor)

	list := waitFor(t, svc.View(), 1)
	assert.Equal(t, "shared", list[0].Title)
	assert.Equal(t, uid[:6], list[0].LastEditor)
	assert.Equal(t, 1, store.Len(privatePath), "partitions stay isolated")
}

func TestUpdateOpenDelete(t *testing.T) {
	svc, _, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	b, err := svc.Create(ctx, domain.Form{Title: "old", URL: "https://old.example", Category: "Dev"})
	require.NoError(t, err)
	waitFor(t, svc.View(), 1)

	_, err = svc.Update(ctx, b.ID, domain.Form{Title: "new", URL: "https://new.example"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, ok := svc.View().Find(b.ID)
		return ok && got.Title == "new"
	}, 2*time.Second, 5*time.Millisecond)
	got, _ := svc.View().Find(b.ID)
	assert.Equal(t, "https://api.iowen.cn/favicon/new.example.png", got.Favicon)
	assert.Equal(t, domain.DefaultCategory, got.Category)

	opened, err := svc.Open(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, opened.ClickCount)
	assert.NotZero(t, opened.LastUsedAt)

	_, err = svc.Open(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Update(ctx, "missing", domain.Form{Title: "t", URL: "https://x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, b.ID))
	waitFor(t, svc.View(), 0)
}

func TestImportBatches(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	items := make([]domain.ImportItem, 900)
	for i := range items {
		items[i] = domain.ImportItem{URL: fmt.Sprintf("https://site%d.example", i)}
	}

	n, err := svc.Import(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 900, n)
	assert.Equal(t, 3, store.Batches())
	waitFor(t, svc.View(), 900)

	// everything is now a duplicate
	_, err = svc.Import(ctx, items)
	assert.ErrorIs(t, err, domain.ErrNothingImported)
}

func TestImportStopsAtFailedBatchWithoutRollback(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	items := make([]domain.ImportItem, 1000)
	for i := range items {
		items[i] = domain.ImportItem{URL: fmt.Sprintf("https://site%d.example", i)}
	}

	boom := errors.New("deadline exceeded")
	store.FailNext(memstore.OpBatch, nil)
	store.FailNext(memstore.OpBatch, boom)

	n, err := svc.Import(ctx, items)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, realtime.BatchSize, n)
	assert.Equal(t, realtime.BatchSize, store.Len(cols.Path(realtime.Principal{UID: uid}, domain.Private)))
}

func TestListenFailure(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()
	_, err := svc.Authenticate(ctx)
	require.NoError(t, err)

	store.FailNext(memstore.OpListen, errors.New("permission denied"))
	require.Error(t, svc.Subscribe(ctx, domain.Private))
	assert.Equal(t, realtime.StateAuthenticated, svc.State())

	require.NoError(t, svc.Subscribe(ctx, domain.Private))
}

func TestCancelIsIdempotentAndReleasesGoroutine(t *testing.T) {
	svc, store, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, realtime.StateTornDown, svc.State())
	assert.Zero(t, store.Listeners(cols.Path(realtime.Principal{UID: uid}, domain.Private)))
	_, err := svc.Create(ctx, domain.Form{Title: "t", URL: "https://x"})
	assert.ErrorIs(t, err, realtime.ErrClosed)
	// goleak in TestMain checks the listener goroutine exited
}

func TestSyncIsNotSupported(t *testing.T) {
	svc, _, _ := newAdapter(t)
	_, err := svc.Sync(context.Background(), domain.Pull)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	_, err = svc.SyncConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestStatus(t *testing.T) {
	svc, _, _ := newAdapter(t)
	require.NoError(t, svc.Start(context.Background()))

	st := svc.Status()
	assert.Equal(t, "realtime", st.Backend)
	assert.Equal(t, "subscribed", st.State)
	assert.Equal(t, uid[:6], st.Principal)
	assert.Equal(t, domain.Private, st.Partition)
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/hajimi/internal/config"
	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

func blobConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Backend:         config.BackendBlob,
		Store:           config.StoreMemory,
		PrivateKey:      "private",
		PublicKey:       "public",
		ConfigKey:       "config",
		LocalRemoteRoot: t.TempDir(),
	}
}

func TestBlobAppRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := blobConfig(t)
	seed := filepath.Join(t.TempDir(), "sync.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("provider: local\ntoken: ${HAJIMI_TEST_TOKEN}\n"), 0o600))
	t.Setenv("HAJIMI_TEST_TOKEN", "t0k")
	cfg.SyncSeedFile = seed

	a, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))

	b := a.Bookmarks()
	stored, err := b.SyncConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "t0k", stored.Token)

	_, err = b.Create(ctx, domain.Form{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)
	require.NoError(t, a.Close(), "close waits for the auto-push")

	data, err := os.ReadFile(filepath.Join(cfg.LocalRemoteRoot, domain.DefaultPath))
	require.NoError(t, err)
	list, err := domain.UnmarshalList(data)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://go.dev", list[0].URL)
}

func TestBlobAppRejectsBadSeed(t *testing.T) {
	cfg := blobConfig(t)
	seed := filepath.Join(t.TempDir(), "sync.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("provider: github\ntoken: x\n"), 0o600))
	cfg.SyncSeedFile = seed

	_, err := New(context.Background(), cfg, logger.Nop())
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
}

func TestWatchedPathFollowsStoredConfig(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, blobConfig(t), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	path, err := a.watchedPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.cfg.LocalRemoteRoot, domain.DefaultPath), path)

	require.NoError(t, a.Bookmarks().SaveSyncConfig(ctx, domain.SyncConfig{
		Provider: domain.ProviderLocal, Token: "x", Path: "team/marks.json",
	}))
	path, err = a.watchedPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.cfg.LocalRemoteRoot, "team", "marks.json"), path)
}

func TestRealtimeAppWithStaticPrincipal(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, &config.Config{
		Backend:   config.BackendRealtime,
		AppID:     "test",
		Principal: "user-1",
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(ctx))

	st := a.Bookmarks().Status()
	assert.Equal(t, "realtime", st.Backend)
	assert.Equal(t, domain.Private, st.Partition)

	_, err = a.Bookmarks().Sync(ctx, domain.Both)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestRealtimeAppNeedsAPrincipal(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Backend: config.BackendRealtime}, logger.Nop())
	assert.Error(t, err)
}

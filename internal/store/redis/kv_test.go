package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/store"
)

func newMiniredisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestGetMissingKey(t *testing.T) {
	s, _ := newMiniredisStore(t)

	v, ok, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestSetUsesNamespacedKeyWithoutTTL(t *testing.T) {
	s, mr := newMiniredisStore(t)

	require.NoError(t, s.Set(context.Background(), "hajimi_bookmarks_private", []byte(`[]`)))

	got, err := mr.Get("hajimi:hajimi_bookmarks_private")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.Zero(t, mr.TTL("hajimi:hajimi_bookmarks_private"))
}

func TestLocalStoreOverRedis(t *testing.T) {
	kv, _ := newMiniredisStore(t)
	s := store.New(kv, store.DefaultKeys, nil, nil)
	ctx := context.Background()

	list := []domain.Bookmark{{ID: "a", Title: "标题", URL: "https://example.com", Category: "Dev"}}
	require.NoError(t, s.Save(ctx, domain.Private, list))

	got, err := s.Load(ctx, domain.Private)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	other, err := s.Load(ctx, domain.Public)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGetFailsWhenRedisIsDown(t *testing.T) {
	s, mr := newMiniredisStore(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

func newTestStore() (*Store, *MemoryKV) {
	kv := NewMemoryKV()
	return New(kv, DefaultKeys, nil, nil), kv
}

func TestLoadFreshProfile(t *testing.T) {
	s, _ := newTestStore()

	list, err := s.Load(context.Background(), domain.Private)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("Load() on fresh store = %#v, want empty non-nil list", list)
	}
}

func TestLoadCorruptedIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{{"},
		{name: "object instead of array", payload: `{"id":"a"}`},
		{name: "json null", payload: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, kv := newTestStore()
			_ = kv.Set(context.Background(), DefaultKeys.Private, []byte(tt.payload))

			list, err := s.Load(context.Background(), domain.Private)
			if err != nil {
				t.Fatalf("Load() error = %v, corruption must be swallowed", err)
			}
			if len(list) != 0 {
				t.Errorf("Load() = %v, want empty", list)
			}
		})
	}
}

func TestPartitionIsolation(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	private := []domain.Bookmark{{ID: "p1", Title: "Private", URL: "https://private.example"}}
	public := []domain.Bookmark{{ID: "s1", Title: "Shared", URL: "https://shared.example"}}

	if err := s.Save(ctx, domain.Private, private); err != nil {
		t.Fatalf("Save(private) error = %v", err)
	}

	got, _ := s.Load(ctx, domain.Public)
	if len(got) != 0 {
		t.Fatalf("public partition leaked private records: %v", got)
	}

	if err := s.Save(ctx, domain.Public, public); err != nil {
		t.Fatalf("Save(public) error = %v", err)
	}

	got, _ = s.Load(ctx, domain.Private)
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("Load(private) = %v, want only p1", got)
	}
	got, _ = s.Load(ctx, domain.Public)
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("Load(public) = %v, want only s1", got)
	}
}

func TestSaveReplacesWholeList(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_ = s.Save(ctx, domain.Private, []domain.Bookmark{{ID: "a"}, {ID: "b"}})
	_ = s.Save(ctx, domain.Private, []domain.Bookmark{{ID: "c"}})

	got, _ := s.Load(ctx, domain.Private)
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Load() = %v, want [c]", got)
	}
}

func TestSyncConfigRoundTrip(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()

	cfg, err := s.LoadConfig(ctx)
	if err != nil || cfg != nil {
		t.Fatalf("LoadConfig() on fresh store = %v, %v; want nil, nil", cfg, err)
	}

	want := domain.SyncConfig{Provider: domain.ProviderGitHub, Token: "t", Owner: "o", Repo: "r", Branch: "main", Path: "b.json"}
	if err := s.SaveConfig(ctx, want); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	cfg, err = s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg == nil || *cfg != want {
		t.Errorf("LoadConfig() = %+v, want %+v", cfg, want)
	}

	_ = kv.Set(ctx, DefaultKeys.Config, []byte("nope"))
	cfg, err = s.LoadConfig(ctx)
	if err != nil || cfg != nil {
		t.Errorf("LoadConfig() on corrupted payload = %v, %v; want nil, nil", cfg, err)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingKV) Set(context.Context, string, []byte) error { return errors.New("connection refused") }

func TestBackendErrorsAreReturned(t *testing.T) {
	s := New(failingKV{}, DefaultKeys, nil, nil)
	ctx := context.Background()

	if _, err := s.Load(ctx, domain.Private); err == nil {
		t.Error("Load() should surface backend failures")
	}
	if err := s.Save(ctx, domain.Private, nil); err == nil {
		t.Error("Save() should surface backend failures")
	}
}

func TestGenerateID(t *testing.T) {
	s, _ := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.GenerateID()
		if len(id) == 0 || len(id) > 13 {
			t.Fatalf("GenerateID() = %q, want 1..13 chars", id)
		}
		for _, r := range id {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z') {
				t.Fatalf("GenerateID() = %q, want base-36", id)
			}
		}
		seen[id] = true
	}
	if len(seen) < 100 {
		t.Errorf("GenerateID() produced %d distinct ids out of 100", len(seen))
	}
}

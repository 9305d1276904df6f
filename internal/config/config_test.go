package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendBlob {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendBlob)
	}
	if cfg.Store != StoreRedis {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreRedis)
	}
	if cfg.PrivateKey != "hajimi_bookmarks_private" || cfg.PublicKey != "hajimi_bookmarks_public" {
		t.Errorf("unexpected partition keys %q %q", cfg.PrivateKey, cfg.PublicKey)
	}
	if cfg.AppID != "default-app-id" {
		t.Errorf("AppID = %q", cfg.AppID)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HAJIMI_BACKEND", "Realtime")
	t.Setenv("HAJIMI_PRINCIPAL", "uid-1")
	t.Setenv("HAJIMI_STORE", "memory")
	t.Setenv("HAJIMI_PULL_INTERVAL", "90s")
	t.Setenv("HAJIMI_ALLOWED_CIDRS", ` "10.0.0.0/8", 127.0.0.1 ,`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendRealtime {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.PullInterval != 90*time.Second {
		t.Errorf("PullInterval = %v", cfg.PullInterval)
	}
	if len(cfg.AllowedCIDRS) != 2 || cfg.AllowedCIDRS[0] != "10.0.0.0/8" || cfg.AllowedCIDRS[1] != "127.0.0.1" {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"HAJIMI_BACKEND": "sqlite"}},
		{name: "unknown store", env: map[string]string{"HAJIMI_STORE": "disk"}},
		{name: "same partition keys", env: map[string]string{"HAJIMI_KEY_PRIVATE": "k", "HAJIMI_KEY_PUBLIC": "k"}},
		{name: "watch without root", env: map[string]string{"HAJIMI_WATCH_LOCAL": "true"}},
		{name: "realtime without identity", env: map[string]string{"HAJIMI_BACKEND": "realtime"}},
		{name: "required redis password", env: map[string]string{"HAJIMI_REDIS_PASSWORD_REQUIRED": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoadSyncConfig(t *testing.T) {
	t.Setenv("TEST_HAJIMI_TOKEN", "ghp_secret")
	path := writeFile(t, "sync.yaml", `
provider: GitHub
token: ${TEST_HAJIMI_TOKEN}
owner: me
repo: marks
`)

	cfg, err := LoadSyncConfig(path)
	if err != nil {
		t.Fatalf("LoadSyncConfig() error = %v", err)
	}
	want := domain.SyncConfig{
		Provider: domain.ProviderGitHub,
		Token:    "ghp_secret",
		Owner:    "me",
		Repo:     "marks",
		Branch:   domain.DefaultBranch,
		Path:     domain.DefaultPath,
	}
	if cfg != want {
		t.Errorf("LoadSyncConfig() = %+v, want %+v", cfg, want)
	}
}

func TestLoadSyncConfigJSON(t *testing.T) {
	path := writeFile(t, "sync.json", `{"provider":"cnb","token":"t","owner":"o","repo":"r","branch":"dev"}`)

	cfg, err := LoadSyncConfig(path)
	if err != nil {
		t.Fatalf("LoadSyncConfig() error = %v", err)
	}
	if cfg.Provider != domain.ProviderCNB || cfg.Branch != "dev" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadSyncConfigIncomplete(t *testing.T) {
	path := writeFile(t, "sync.yaml", "provider: github\ntoken: ${TEST_HAJIMI_UNSET}\n")

	if _, err := LoadSyncConfig(path); err == nil {
		t.Error("an unset token variable must fail validation")
	}
	if _, err := LoadSyncConfig("/nonexistent/sync.yaml"); err == nil {
		t.Error("a missing file must fail")
	}
}

func TestLoadFirebaseConfig(t *testing.T) {
	path := writeFile(t, "firebase.json", `{"apiKey":"web-key","authDomain":"x.firebaseapp.com","projectId":"hajimi-1","appId":"1:2:web:3"}`)

	cfg, err := LoadFirebaseConfig(path)
	if err != nil {
		t.Fatalf("LoadFirebaseConfig() error = %v", err)
	}
	if cfg.APIKey != "web-key" || cfg.ProjectID != "hajimi-1" {
		t.Errorf("unexpected config %+v", cfg)
	}

	path = writeFile(t, "firebase.yaml", "apiKey: k\n")
	if _, err := LoadFirebaseConfig(path); err == nil {
		t.Error("projectId is required")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a, "b" ,,'c' `)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitAndTrim() = %v", got)
	}
	if splitAndTrim("") != nil {
		t.Error("empty input should give nil")
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParsePartition(t *testing.T) {
	tests := []struct {
		in      string
		want    Partition
		wantErr bool
	}{
		{in: "", want: Private},
		{in: "private", want: Private},
		{in: "public", want: Public},
		{in: "PUBLIC", wantErr: true},
		{in: "shared", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePartition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePartition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePartition(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	if got := Public.ExportFileName(); got != "hajimi_bookmarks_public.json" {
		t.Errorf("ExportFileName() = %q", got)
	}
}

func TestSyncConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         SyncConfig
		wantErr     bool
		wantMissing []string
	}{
		{name: "github complete", cfg: SyncConfig{Provider: ProviderGitHub, Token: "t", Owner: "o", Repo: "r"}},
		{name: "local needs token only", cfg: SyncConfig{Provider: ProviderLocal, Token: "t"}},
		{name: "cnb without repo", cfg: SyncConfig{Provider: ProviderCNB, Token: "t", Owner: "o"}, wantErr: true, wantMissing: []string{"repo"}},
		{name: "no token", cfg: SyncConfig{Provider: ProviderGitHub, Owner: "o", Repo: "r"}, wantErr: true, wantMissing: []string{"token"}},
		{name: "unknown provider", cfg: SyncConfig{Provider: "gitlab", Token: "t"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrConfigRequired) {
				t.Errorf("Validate() error should match ErrConfigRequired, got %v", err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error is not a *ConfigError: %T", err)
			}
			if tt.wantMissing != nil && strings.Join(cfgErr.Missing, ",") != strings.Join(tt.wantMissing, ",") {
				t.Errorf("Missing = %v, want %v", cfgErr.Missing, tt.wantMissing)
			}
		})
	}
}

func TestSyncConfigDefaultsAndEnabled(t *testing.T) {
	cfg := SyncConfig{Provider: " GitHub ", Token: "t", Path: "/dir/file.json"}.WithDefaults()
	if cfg.Provider != ProviderGitHub || cfg.Branch != DefaultBranch || cfg.Path != "dir/file.json" {
		t.Errorf("WithDefaults() = %+v", cfg)
	}

	var nilCfg *SyncConfig
	if nilCfg.Enabled() {
		t.Error("nil config should be disabled")
	}
	if (&SyncConfig{Provider: ProviderGitHub, Token: "  "}).Enabled() {
		t.Error("blank token should disable sync")
	}
	if !(&cfg).Enabled() {
		t.Error("config with provider and token should be enabled")
	}
	if cfg.Redacted().Token == "t" {
		t.Error("Redacted() leaked the token")
	}
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantPrefix      string
		wantRemediation bool
	}{
		{
			name:            "auth setup",
			err:             fmt.Errorf("subscribe: %w", &AuthSetupError{Kind: AuthAnonymousDisabled, Code: "ADMIN_ONLY_OPERATION"}),
			wantPrefix:      "auth setup failed",
			wantRemediation: true,
		},
		{name: "config required", err: ErrConfigRequired, wantPrefix: "Complete the cloud configuration"},
		{name: "config error", err: &ConfigError{Missing: []string{"token"}}, wantPrefix: "Complete the cloud configuration"},
		{name: "format", err: fmt.Errorf("%w: bad json", ErrFormat), wantPrefix: "Format error"},
		{name: "conflict", err: fmt.Errorf("push: %w", ErrConflict), wantPrefix: "Sync failed: the remote file changed"},
		{name: "api", err: &APIError{Provider: ProviderGitHub, Op: "push", Status: 401, Message: "Bad credentials"}, wantPrefix: "Sync failed: github push: Bad credentials"},
		{name: "other", err: errors.New("boom"), wantPrefix: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Notify(tt.err)
			if n.Type != LevelError {
				t.Errorf("Notify() type = %q, want error", n.Type)
			}
			if !strings.HasPrefix(n.Message, tt.wantPrefix) {
				t.Errorf("Notify() message = %q, want prefix %q", n.Message, tt.wantPrefix)
			}
			if (n.Remediation != "") != tt.wantRemediation {
				t.Errorf("Notify() remediation = %q", n.Remediation)
			}
		})
	}
}

func TestAuthFailureRemediationsDiffer(t *testing.T) {
	kinds := []AuthFailure{AuthGeneric, AuthAnonymousDisabled, AuthInvalidCredential}
	seen := make(map[string]bool)
	for _, k := range kinds {
		r := k.Remediation()
		if r == "" || seen[r] {
			t.Errorf("remediation for %s is empty or duplicated", k)
		}
		seen[r] = true
	}
}

func TestBase36IDs(t *testing.T) {
	id := Base36IDs{}.New()
	if len(id) != 13 {
		t.Fatalf("New() = %q, want 13 chars", id)
	}
	if strings.Trim(id, base36Alphabet) != "" {
		t.Errorf("New() = %q contains non base-36 characters", id)
	}
}

func TestRank(t *testing.T) {
	now := int64(1_700_000_000_000)
	list := []Bookmark{
		{ID: "notes", Title: "Misc", URL: "https://misc.example", Notes: "go tips"},
		{ID: "substr", Title: "Learn Go", URL: "https://learn.example"},
		{ID: "exact", Title: "Go", URL: "https://go.dev"},
		{ID: "none", Title: "Rust", URL: "https://rust-lang.org"},
	}

	got := Rank(list, "go", now)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.Bookmark.ID
	}
	if strings.Join(ids, ",") != "exact,substr,notes" {
		t.Errorf("Rank() order = %v", ids)
	}

	used := []Bookmark{
		{ID: "cold", Title: "A"},
		{ID: "hot", Title: "B", ClickCount: 50, LastUsedAt: now - 1000},
	}
	got = Rank(used, "", now)
	if len(got) != 2 || got[0].Bookmark.ID != "hot" {
		t.Errorf("Rank() by usage = %+v", got)
	}

	ties := Bookmarks(Rank([]Bookmark{{ID: "1"}, {ID: "2"}}, "", now))
	if ties[0].ID != "1" || ties[1].ID != "2" {
		t.Errorf("Rank() should keep stored order on ties, got %v", ties)
	}
}

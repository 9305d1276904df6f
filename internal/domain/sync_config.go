package domain

import (
	"fmt"
	"strings"
)

// Provider selects the remote blob backend.
type Provider string

const (
	// ProviderGitHub syncs through the GitHub contents API.
	ProviderGitHub Provider = "github"
	// ProviderCNB syncs through the CNB contents API.
	ProviderCNB Provider = "cnb"
	// ProviderLocal syncs to a file under the local remote root.
	ProviderLocal Provider = "local"
)

const (
	// DefaultBranch is used when a config names no branch.
	DefaultBranch = "main"
	// DefaultPath is the remote file used when a config names no path.
	DefaultPath = "hajimi_bookmarks.json"
	// RedactedToken replaces the token in Redacted copies.
	RedactedToken = "***REDACTED***"
)

// SyncConfig describes the connection to the remote blob.
// An absent config or an empty Token means sync is disabled.
type SyncConfig struct {
	Provider Provider `json:"provider" yaml:"provider"`
	Token    string   `json:"token" yaml:"token"`
	Owner    string   `json:"owner" yaml:"owner"`
	Repo     string   `json:"repo" yaml:"repo"`
	Branch   string   `json:"branch" yaml:"branch"`
	Path     string   `json:"path" yaml:"path"`
}

// Enabled reports whether cfg is present with a provider and a token.
func (cfg *SyncConfig) Enabled() bool {
	return cfg != nil && cfg.Provider != "" && strings.TrimSpace(cfg.Token) != ""
}

// WithDefaults fills Branch and Path when they are empty.
func (cfg SyncConfig) WithDefaults() SyncConfig {
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	cfg.Path = strings.TrimPrefix(cfg.Path, "/")
	return cfg
}

// Validate checks the fields a provider needs before any network call.
func (cfg SyncConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(cfg.Token) == "" {
		missing = append(missing, "token")
	}
	switch cfg.Provider {
	case ProviderGitHub, ProviderCNB:
		if cfg.Owner == "" {
			missing = append(missing, "owner")
		}
		if cfg.Repo == "" {
			missing = append(missing, "repo")
		}
	case ProviderLocal:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Redacted returns a copy safe for logging or API responses.
func (cfg SyncConfig) Redacted() SyncConfig {
	if cfg.Token != "" {
		cfg.Token = RedactedToken
	}
	return cfg
}

// KeepToken swaps a RedactedToken for the token of stored, so a redacted
// config read back from the API can be saved again. Without a stored
// config the token is cleared.
func (cfg SyncConfig) KeepToken(stored *SyncConfig) SyncConfig {
	if cfg.Token != RedactedToken {
		return cfg
	}
	cfg.Token = ""
	if stored != nil {
		cfg.Token = stored.Token
	}
	return cfg
}

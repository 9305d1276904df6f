package blobsync

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// FactoryOptions are the process-level settings of the remotes.
type FactoryOptions struct {
	GitHubBaseURL string
	CNBBaseURL    string
	LocalRoot     string
	Timeout       time.Duration
	Logger        logger.Logger
}

// Router selects the Remote of the provider named in each SyncConfig.
// The config is read on every sync, so the provider may change at runtime.
type Router struct {
	github *GitContent
	cnb    *GitContent
	local  *Filesystem
}

// NewRouter builds one remote per provider. The local provider is only
// available when LocalRoot is set.
func NewRouter(opts FactoryOptions) (*Router, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := &Router{
		github: NewGitContent(domain.ProviderGitHub,
			WithBaseURL(opts.GitHubBaseURL),
			WithTimeout(opts.Timeout),
			WithLogger(log.With(logger.String("provider", "github")))),
		cnb: NewGitContent(domain.ProviderCNB,
			WithBaseURL(opts.CNBBaseURL),
			WithTimeout(opts.Timeout),
			WithLogger(log.With(logger.String("provider", "cnb")))),
	}

	if opts.LocalRoot != "" {
		fs, err := NewFilesystem(opts.LocalRoot, log.With(logger.String("provider", "local")))
		if err != nil {
			return nil, err
		}
		r.local = fs
	}
	return r, nil
}

// RemoteFor returns the remote of provider.
func (r *Router) RemoteFor(provider domain.Provider) (Remote, error) {
	switch provider {
	case domain.ProviderGitHub:
		return r.github, nil
	case domain.ProviderCNB:
		return r.cnb, nil
	case domain.ProviderLocal:
		if r.local == nil {
			return nil, &domain.ConfigError{Reason: "local provider requires HAJIMI_LOCAL_REMOTE_ROOT"}
		}
		return r.local, nil
	default:
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
}

// Local returns the filesystem remote, or nil when not configured.
func (r *Router) Local() *Filesystem { return r.local }

// Pull dispatches to the remote of cfg.Provider.
func (r *Router) Pull(ctx context.Context, cfg domain.SyncConfig) ([]domain.Bookmark, error) {
	cfg = cfg.WithDefaults()
	remote, err := r.RemoteFor(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return remote.Pull(ctx, cfg)
}

// Push dispatches to the remote of cfg.Provider.
func (r *Router) Push(ctx context.Context, cfg domain.SyncConfig, list []domain.Bookmark) error {
	cfg = cfg.WithDefaults()
	remote, err := r.RemoteFor(cfg.Provider)
	if err != nil {
		return err
	}
	return remote.Push(ctx, cfg, list)
}

var _ Remote = (*Router)(nil)

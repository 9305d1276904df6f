package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/MrSnakeDoc/hajimi/internal/blobsync"
	"github.com/MrSnakeDoc/hajimi/internal/config"
	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/realtime"
	"github.com/MrSnakeDoc/hajimi/internal/realtime/firebaseauth"
	"github.com/MrSnakeDoc/hajimi/internal/realtime/firestore"
	"github.com/MrSnakeDoc/hajimi/internal/realtime/memstore"
	"github.com/MrSnakeDoc/hajimi/internal/reconcile"
	"github.com/MrSnakeDoc/hajimi/internal/redis"
	"github.com/MrSnakeDoc/hajimi/internal/scheduler"
	"github.com/MrSnakeDoc/hajimi/internal/store"
	redisstore "github.com/MrSnakeDoc/hajimi/internal/store/redis"
	"github.com/MrSnakeDoc/hajimi/internal/suggest"
	"github.com/MrSnakeDoc/hajimi/internal/version"
)

// Bookmarks is the service shared by the HTTP API and the CLI.
type Bookmarks = deps.Bookmarks

// App holds one configured bookmark backend and its background workers.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	bookmarks Bookmarks
	suggester suggest.Suggester
	checks    []deps.Check

	// blob variant
	orch  *reconcile.Orchestrator
	local *blobsync.Filesystem

	// realtime variant
	live *realtime.Service

	closers []func() error
}

// New builds the backend selected by cfg. Nothing runs in the background
// until Start or Serve.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	var err error
	switch cfg.Backend {
	case config.BackendRealtime:
		err = a.buildRealtime(ctx)
	default:
		err = a.buildBlob(ctx)
	}
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	s, err := suggest.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log.With(logger.String("component", "suggest")))
	if err != nil {
		log.Warn("suggestions disabled", logger.Error(err))
		s = suggest.Disabled{}
	}
	a.suggester = s
	return a, nil
}

// Bookmarks returns the configured service.
func (a *App) Bookmarks() Bookmarks { return a.bookmarks }

func (a *App) buildBlob(ctx context.Context) error {
	kv, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	st := store.New(kv, store.Keys{
		Private: a.cfg.PrivateKey,
		Public:  a.cfg.PublicKey,
		Config:  a.cfg.ConfigKey,
	}, nil, a.logger.With(logger.String("component", "store")))

	remotes, err := blobsync.NewRouter(blobsync.FactoryOptions{
		GitHubBaseURL: a.cfg.GitHubAPIURL,
		CNBBaseURL:    a.cfg.CNBAPIURL,
		LocalRoot:     a.cfg.LocalRemoteRoot,
		Timeout:       a.cfg.RemoteTimeout,
		Logger:        a.logger.With(logger.String("component", "remote")),
	})
	if err != nil {
		return err
	}
	a.local = remotes.Local()

	a.orch = reconcile.New(st, remotes,
		reconcile.WithLogger(a.logger.With(logger.String("component", "reconcile"))),
		reconcile.WithNotifier(logNotifier(a.logger)))
	a.bookmarks = a.orch
	a.closers = append(a.closers, func() error {
		a.orch.Wait()
		return nil
	})

	if a.cfg.SyncSeedFile != "" {
		seed, err := config.LoadSyncConfig(a.cfg.SyncSeedFile)
		if err != nil {
			return err
		}
		if err := a.orch.SaveSyncConfig(ctx, seed); err != nil {
			return fmt.Errorf("failed to store sync config: %w", err)
		}
		a.logger.Info("sync config seeded",
			logger.String("file", a.cfg.SyncSeedFile),
			logger.String("provider", string(seed.Provider)))
	}
	return nil
}

// openStore connects to Redis, or falls back to the in-memory store.
func (a *App) openStore(ctx context.Context) (store.KV, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("using the in-memory store, bookmarks are lost on exit")
		kv := store.NewMemoryKV()
		a.checks = append(a.checks, deps.Check{Name: "store", Run: func(context.Context) error { return nil }})
		return kv, nil
	}

	client, err := redis.Connect(ctx, redis.Options{
		Addr:         a.cfg.RedisAddr,
		User:         a.cfg.RedisUser,
		Password:     a.cfg.RedisPassword,
		DB:           a.cfg.RedisDB,
		DialTimeout:  a.cfg.RedisDT,
		ReadTimeout:  a.cfg.RedisRT,
		WriteTimeout: a.cfg.RedisWT,
		PoolSize:     a.cfg.RedisPoolSize,
		Backoff: redis.Backoff{
			Total:         a.cfg.RedisConnectTimeout,
			Initial:       a.cfg.RedisRetryInterval,
			Max:           a.cfg.RedisMaxWait,
			PingTimeout:   a.cfg.RedisPingTimeout,
			WarnThreshold: a.cfg.RedisWarnThreshold,
		},
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, closeRedis(client, a.logger))

	kv := redisstore.NewStore(client)
	a.checks = append(a.checks, deps.Check{Name: "redis", Run: kv.Ping})
	return kv, nil
}

func closeRedis(client *goredis.Client, log logger.Logger) func() error {
	return func() error {
		if err := client.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
		log.Info("redis closed")
		return nil
	}
}

func (a *App) buildRealtime(ctx context.Context) error {
	log := a.logger.With(logger.String("component", "realtime"))

	var (
		backend realtime.Backend
		auth    realtime.Authenticator
	)
	if a.cfg.FirebaseConfigFile == "" {
		log.Warn("no firebase config, using the in-memory document store")
		backend = memstore.New(domain.RealClock{})
	} else {
		fb, err := config.LoadFirebaseConfig(a.cfg.FirebaseConfigFile)
		if err != nil {
			return err
		}
		var opts []option.ClientOption
		authURL := ""
		if fb.EmulatorHost != "" {
			// the firestore client reads the emulator address from the environment
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", fb.EmulatorHost); err != nil {
				return err
			}
			authURL = "http://" + fb.EmulatorHost + "/identitytoolkit.googleapis.com"
		} else if fb.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(fb.CredentialsFile))
		}
		fs, err := firestore.New(ctx, fb.ProjectID, opts...)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, fs.Close)
		backend = fs
		auth = firebaseauth.NewClient(fb.APIKey, authURL)
		log.Info("firestore backend ready", logger.String("project", fb.ProjectID))
	}
	if a.cfg.Principal != "" {
		auth = realtime.StaticAuthenticator{UID: a.cfg.Principal}
	}
	if auth == nil {
		return errors.New("realtime backend without firebase config needs HAJIMI_PRINCIPAL")
	}

	a.live = realtime.NewService(realtime.NewAdapter(backend, auth,
		realtime.Collections{AppID: a.cfg.AppID},
		realtime.WithLogger(log)))
	a.bookmarks = a.live
	a.closers = append(a.closers, func() error {
		a.live.Close()
		return nil
	})
	a.checks = append(a.checks, deps.Check{Name: "realtime", Run: func(context.Context) error {
		if st := a.live.Status(); st.LastError != "" {
			return errors.New(st.LastError)
		}
		return nil
	}})
	return nil
}

// Start brings the service online: the realtime variant signs in and
// subscribes. The blob variant needs nothing.
func (a *App) Start(ctx context.Context) error {
	if a.live == nil {
		return nil
	}
	if err := a.live.Start(ctx); err != nil {
		return fmt.Errorf("failed to start realtime backend: %w", err)
	}
	return nil
}

// Serve starts the background workers and the HTTP server, and blocks
// until ctx is done or the server fails.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof("Starting HAJIMI %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("HAJIMI %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	if err := a.Start(ctx); err != nil {
		return err
	}

	stopWorkers, err := a.startWorkers(ctx)
	if err != nil {
		return err
	}
	defer stopWorkers()

	d := deps.Deps{
		Logger:       a.logger,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: a.cfg.AllowedHosts,
		AllowedCIDRS: a.cfg.AllowedCIDRS,
		TrustProxy:   a.cfg.TrustProxy,
		Bookmarks:    a.bookmarks,
		Suggester:    a.suggester,
		Checks:       a.checks,
	}
	server := httpserver.New(a.cfg, a.logger, d)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// startWorkers runs the periodic pull and the local file watcher of the
// blob variant. The returned func stops them.
func (a *App) startWorkers(ctx context.Context) (func(), error) {
	if a.orch == nil {
		return func() {}, nil
	}

	puller := scheduler.NewPuller(a.orch, a.logger.With(logger.String("component", "puller")), a.cfg.PullInterval)
	puller.Start(ctx)
	a.logger.Info("puller started", logger.Duration("interval", a.cfg.PullInterval))

	if !a.cfg.WatchLocal || a.local == nil {
		return puller.Stop, nil
	}

	path, err := a.watchedPath(ctx)
	if err != nil {
		puller.Stop()
		return nil, err
	}
	w, err := scheduler.NewWatcher(path, puller.Trigger,
		a.logger.With(logger.String("component", "watcher")),
		scheduler.IgnoreWhen(a.local.OwnWrite))
	if err != nil {
		puller.Stop()
		return nil, err
	}
	a.logger.Info("watching local remote", logger.String("path", path))

	return func() {
		if err := w.Close(); err != nil {
			a.logger.Warn("failed to close watcher", logger.Error(err))
		}
		puller.Stop()
	}, nil
}

// watchedPath is the local provider file of the stored config, or the
// default path when the config names another provider.
func (a *App) watchedPath(ctx context.Context) (string, error) {
	cfg := domain.SyncConfig{Provider: domain.ProviderLocal}
	if stored, err := a.orch.SyncConfig(ctx); err == nil && stored != nil && stored.Provider == domain.ProviderLocal {
		cfg = *stored
	}
	return a.local.PathFor(cfg)
}

// Close waits for in-flight pushes and releases every backend, in reverse
// order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// logNotifier logs the outcome of background syncs.
func logNotifier(log logger.Logger) domain.Notifier {
	return domain.NotifierFunc(func(n domain.Notification) {
		switch {
		case n.Type == domain.LevelError:
			log.Warn("sync failed", logger.String("message", n.Message))
		case n.Message != "":
			log.Info("sync done", logger.String("message", n.Message))
		}
	})
}

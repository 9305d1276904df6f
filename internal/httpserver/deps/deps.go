package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/suggest"
)

// Bookmarks is the bookmark service of either backend: the blob
// orchestrator or the realtime adapter.
type Bookmarks interface {
	Partition() domain.Partition
	SwitchPartition(ctx context.Context, p domain.Partition) error
	List(ctx context.Context) ([]domain.Bookmark, error)
	Create(ctx context.Context, f domain.Form) (domain.Bookmark, error)
	Update(ctx context.Context, id string, f domain.Form) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (domain.Bookmark, error)
	Import(ctx context.Context, items []domain.ImportItem) (int, error)
	Sync(ctx context.Context, dir domain.Direction) (domain.Notification, error)
	SyncConfig(ctx context.Context) (*domain.SyncConfig, error)
	SaveSyncConfig(ctx context.Context, cfg domain.SyncConfig) error
	Status() domain.Status
}

// Check is a named readiness probe, e.g. a Redis ping.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // defaults to time.Now
	AllowedHosts []string         // Host headers allowed on /api
	AllowedCIDRS []string         // IPs allowed on mutating routes and probes
	TrustProxy   bool             // read the client IP from proxy headers

	Bookmarks Bookmarks
	Suggester suggest.Suggester
	Checks    []Check

	// RateLimit is shared by every mutating route. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
}

// Now returns the current time from TimeNow.
func (d Deps) Now() time.Time {
	if d.TimeNow == nil {
		return time.Now()
	}
	return d.TimeNow()
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// Syncer runs one sync of the active partition.
type Syncer interface {
	Sync(ctx context.Context, dir domain.Direction) (domain.Notification, error)
}

// Puller periodically pulls the remote blob into the Local Store
type Puller struct {
	syncer   Syncer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	trigger  chan struct{}
	done     chan struct{}
	stop     sync.Once
}

// NewPuller creates a puller. interval <= 0 disables the ticker; pulls then
// only happen on Trigger.
func NewPuller(s Syncer, log logger.Logger, interval time.Duration) *Puller {
	if log == nil {
		log = logger.Nop()
	}
	return &Puller{
		syncer:   s,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start pulls once, then keeps pulling on every tick or trigger until Stop
// or ctx is done. A failed pull is logged; the loop keeps going.
func (p *Puller) Start(ctx context.Context) {
	p.Pull(ctx)

	go func() {
		defer close(p.done)

		var tick <-chan time.Time
		if p.interval > 0 {
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				p.Pull(ctx)
			case <-p.trigger:
				p.logger.Debug("manual pull triggered")
				p.Pull(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger requests a pull. It returns false when one is already pending.
func (p *Puller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Stop stops the loop and waits for the running pull to finish. Start must
// have been called.
func (p *Puller) Stop() {
	p.stop.Do(func() { close(p.stopCh) })
	<-p.done
}

// Pull runs one pull now.
func (p *Puller) Pull(ctx context.Context) {
	n, err := p.syncer.Sync(ctx, domain.Pull)
	if err != nil {
		p.logger.Warn("periodic pull failed", logger.Error(err))
		return
	}
	if n.Message != "" {
		p.logger.Debug("periodic pull done", logger.String("result", n.Message))
	}
}

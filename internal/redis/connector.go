// Package redis opens the go-redis client behind the Local Store, waiting
// for the server with capped exponential backoff.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// Options configures the client and the startup wait.
type Options struct {
	Addr         string
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	Backoff Backoff
}

// Backoff is the retry policy used until the first successful PING.
type Backoff struct {
	Total         time.Duration // give up after this long
	Initial       time.Duration // first wait, doubled after every failure
	Max           time.Duration // cap of a single wait
	PingTimeout   time.Duration // timeout of each PING
	WarnThreshold int           // attempts logged as warnings before escalating to errors
}

func (b Backoff) validate() error {
	switch {
	case b.Total <= 0:
		return fmt.Errorf("redis connect timeout must be > 0, got %v", b.Total)
	case b.Initial <= 0:
		return fmt.Errorf("redis retry interval must be > 0, got %v", b.Initial)
	case b.Max <= 0:
		return fmt.Errorf("redis max wait must be > 0, got %v", b.Max)
	case b.PingTimeout <= 0:
		return fmt.Errorf("redis ping timeout must be > 0, got %v", b.PingTimeout)
	case b.WarnThreshold < 0:
		return fmt.Errorf("redis warn threshold must be >= 0, got %d", b.WarnThreshold)
	}
	return nil
}

// next returns the wait following wait.
func (b Backoff) next(wait time.Duration) time.Duration {
	wait *= 2
	if wait > b.Max {
		wait = b.Max
	}
	return wait
}

// Connect builds the client and blocks until Redis answers, ctx is done, or
// the backoff budget is spent. The client is closed on failure.
func Connect(ctx context.Context, opts Options, log logger.Logger) (*redis.Client, error) {
	if err := opts.Backoff.validate(); err != nil {
		return nil, err
	}
	log = log.With(logger.String("addr", opts.Addr))

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitReady(ctx, client, opts.Backoff, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitReady(ctx context.Context, client *redis.Client, b Backoff, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, b.Total)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", b.Total))
	start := time.Now()
	wait := b.Initial

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, b.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable",
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", client.Options().Addr, attempt, err)
		case <-timer.C:
		}

		fields := []logger.Field{
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= b.WarnThreshold {
			log.Warn("redis connection failed, retrying", fields...)
		} else {
			log.Error("redis still unavailable, retrying", fields...)
		}
		wait = b.next(wait)
	}
}

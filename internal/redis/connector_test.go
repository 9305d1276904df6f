package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

func fastBackoff() Backoff {
	return Backoff{
		Total:         300 * time.Millisecond,
		Initial:       10 * time.Millisecond,
		Max:           40 * time.Millisecond,
		PingTimeout:   50 * time.Millisecond,
		WarnThreshold: 1,
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Options{Addr: mr.Addr(), Backoff: fastBackoff()}, logger.Nop())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Errorf("client unusable after Connect(): %v", err)
	}
}

func TestConnectGivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	_, err := Connect(context.Background(), Options{Addr: addr, DialTimeout: 20 * time.Millisecond, Backoff: fastBackoff()}, logger.Nop())
	if err == nil {
		t.Fatal("Connect() to a closed server should fail")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Connect() took %v, the backoff budget was not honored", elapsed)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		b       Backoff
		wantErr bool
	}{
		{name: "valid", b: fastBackoff()},
		{name: "no total", b: Backoff{Initial: 1, Max: 1, PingTimeout: 1}, wantErr: true},
		{name: "no initial", b: Backoff{Total: 1, Max: 1, PingTimeout: 1}, wantErr: true},
		{name: "negative threshold", b: Backoff{Total: 1, Initial: 1, Max: 1, PingTimeout: 1, WarnThreshold: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.b.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	b := fastBackoff()
	wait := b.Initial
	for i := 0; i < 5; i++ {
		wait = b.next(wait)
	}
	if wait != b.Max {
		t.Errorf("next() = %v, want capped at %v", wait, b.Max)
	}
}

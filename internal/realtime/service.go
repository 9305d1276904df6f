package realtime

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// Service exposes the adapter through the bookmark operations shared with
// the blob variant. Whole-list sync does not apply to a live collection.
type Service struct {
	*Adapter
}

// NewService wraps a.
func NewService(a *Adapter) *Service { return &Service{Adapter: a} }

// Start authenticates and subscribes to the private partition.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.Authenticate(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx, domain.Private)
}

// SwitchPartition re-subscribes to p.
func (s *Service) SwitchPartition(ctx context.Context, p domain.Partition) error {
	if _, err := s.Authenticate(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx, p)
}

// List returns the live view.
func (s *Service) List(context.Context) ([]domain.Bookmark, error) {
	if _, _, err := s.requirePrincipal(); err != nil {
		return nil, err
	}
	return s.View().List(), nil
}

func (s *Service) Sync(context.Context, domain.Direction) (domain.Notification, error) {
	err := fmt.Errorf("sync: %w", domain.ErrNotSupported)
	return domain.Notify(err), err
}

func (s *Service) SyncConfig(context.Context) (*domain.SyncConfig, error) {
	return nil, fmt.Errorf("sync config: %w", domain.ErrNotSupported)
}

func (s *Service) SaveSyncConfig(context.Context, domain.SyncConfig) error {
	return fmt.Errorf("sync config: %w", domain.ErrNotSupported)
}

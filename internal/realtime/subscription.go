package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// Subscription owns the goroutine reading a Listener. Cancel releases it
// exactly once and waits for the goroutine to exit.
type Subscription struct {
	partition domain.Partition
	listener  Listener
	cancel    context.CancelFunc
	once      sync.Once
	done      chan struct{}
}

// Partition is the partition this subscription streams.
func (s *Subscription) Partition() domain.Partition { return s.partition }

// Done is closed when the reading goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel stops the listener. Safe to call many times and concurrently.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.listener.Stop()
	})
	<-s.done
}

// View is the in-memory state published by the current subscription.
type View struct {
	mu        sync.RWMutex
	gen       uint64
	partition domain.Partition
	list      []domain.Bookmark
	err       error
	snapshots int
}

// reset starts a new generation; snapshots of older ones are dropped.
func (v *View) reset(gen uint64, p domain.Partition) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen = gen
	v.partition = p
	v.list = []domain.Bookmark{}
	v.err = nil
	v.snapshots = 0
}

func (v *View) publish(gen uint64, list []domain.Bookmark) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return false
	}
	v.list = list
	v.err = nil
	v.snapshots++
	return true
}

func (v *View) fail(gen uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen == v.gen {
		v.err = err
	}
}

// List returns a copy of the current list.
func (v *View) List() []domain.Bookmark {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Bookmark(nil), v.list...)
}

// Find returns the bookmark with id in the current list.
func (v *View) Find(id string) (domain.Bookmark, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := domain.IndexOf(v.list, id); i >= 0 {
		return v.list[i], true
	}
	return domain.Bookmark{}, false
}

// Partition of the published list.
func (v *View) Partition() domain.Partition {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.partition
}

// Err is the error that ended the current subscription, if any.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Snapshots counts the snapshots published in the current generation.
func (v *View) Snapshots() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshots
}

// sortNewestFirst orders by creation time descending. Documents without a
// creation time (not yet stamped) sort last, keeping their relative order.
func sortNewestFirst(list []domain.Bookmark) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
}

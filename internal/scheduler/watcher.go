package scheduler

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// Trigger is what a file change fires, usually Puller.Trigger.
type Trigger func() bool

// Watcher fires a trigger when the local provider file is replaced or
// edited. The directory is watched because atomic writes rename a temp file
// over the target.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	fire    Trigger
	ignore  func(path string) bool
	logger  logger.Logger
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// IgnoreWhen skips events for which fn returns true, e.g. this process's
// own pushes.
func IgnoreWhen(fn func(path string) bool) WatcherOption {
	return func(w *Watcher) { w.ignore = fn }
}

// NewWatcher watches the directory of path. The directory must exist.
func NewWatcher(path string, fire Trigger, log logger.Logger, opts ...WatcherOption) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		watcher: fw,
		path:    path,
		fire:    fire,
		ignore:  func(string) bool { return false },
		logger:  log,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if w.ignore(w.path) {
				w.logger.Debug("ignoring own write", logger.String("path", w.path))
				continue
			}
			w.logger.Info("remote file changed, pulling",
				logger.String("path", w.path),
				logger.String("op", ev.Op.String()))
			w.fire()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", logger.Error(err))
		}
	}
}

// relevant keeps writes and creations of the target. A removal is not
// pulled: it would replace the partition with an empty list.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

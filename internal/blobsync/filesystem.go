package blobsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// Filesystem is the "local" provider: the remote file lives under root,
// at cfg.Path. The content hash is the SHA-256 of the file bytes and plays
// the role of the API sha.
type Filesystem struct {
	root   string
	logger logger.Logger

	// mu makes the hash check and the rename one step for writers in this process.
	mu sync.Mutex
	// written holds the hash of the last write per path.
	written map[string]string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root string, log logger.Logger) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("local provider requires a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local remote root: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Filesystem{root: root, logger: log, written: make(map[string]string)}, nil
}

// Root returns the directory holding the remote files.
func (f *Filesystem) Root() string { return f.root }

// PathFor resolves the file of cfg, refusing paths that leave root.
func (f *Filesystem) PathFor(cfg domain.SyncConfig) (string, error) {
	p := filepath.Join(f.root, filepath.FromSlash(cfg.WithDefaults().Path))
	rel, err := filepath.Rel(f.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", &domain.ConfigError{Reason: fmt.Sprintf("path %q escapes the local remote root", cfg.Path)}
	}
	return p, nil
}

// Pull reads the file. A missing file is an empty list.
func (f *Filesystem) Pull(_ context.Context, cfg domain.SyncConfig) ([]domain.Bookmark, error) {
	path, err := f.PathFor(cfg)
	if err != nil {
		return nil, err
	}
	data, _, err := readHashed(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []domain.Bookmark{}, nil
	}
	list, err := domain.UnmarshalList(data)
	if err != nil {
		return nil, fmt.Errorf("local pull: %w", err)
	}
	return list, nil
}

// Push hashes the current file, then replaces it if the hash still matches.
func (f *Filesystem) Push(_ context.Context, cfg domain.SyncConfig, list []domain.Bookmark) error {
	path, err := f.PathFor(cfg)
	if err != nil {
		return err
	}
	_, sha, err := readHashed(path)
	if err != nil {
		return err
	}
	data, err := domain.MarshalList(list)
	if err != nil {
		return err
	}
	return f.writeIfMatch(path, sha, data)
}

// writeIfMatch replaces path with data when its hash is still sha. An
// empty sha requires the file to be absent.
func (f *Filesystem) writeIfMatch(path, sha string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, current, err := readHashed(path)
	if err != nil {
		return err
	}
	if current != sha {
		f.logger.Warn("local remote file changed since it was read", logger.String("path", path))
		return fmt.Errorf("local push: %w", domain.ErrConflict)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	f.written[path] = hex.EncodeToString(sum[:])
	return nil
}

// OwnWrite reports whether path still holds the bytes this process last
// wrote to it.
func (f *Filesystem) OwnWrite(path string) bool {
	_, sha, err := readHashed(path)
	if err != nil || sha == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written[filepath.Clean(path)] == sha
}

// readHashed returns the file bytes and their SHA-256. A missing file
// returns nil data and an empty hash.
func readHashed(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ Remote = (*Filesystem)(nil)

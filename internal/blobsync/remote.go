// Package blobsync keeps the whole bookmark list of a partition in a single
// remote JSON file. Writes carry the content hash read just before them so
// a concurrent writer makes the push fail instead of being overwritten.
package blobsync

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// CommitMessage is the message of every remote write.
const CommitMessage = "Sync bookmarks from HAJIMI"

// Remote reads and replaces the remote file described by a SyncConfig.
type Remote interface {
	// Pull returns the remote list. A missing file is an empty list.
	Pull(ctx context.Context, cfg domain.SyncConfig) ([]domain.Bookmark, error)
	// Push replaces the remote file with list.
	Push(ctx context.Context, cfg domain.SyncConfig, list []domain.Bookmark) error
}

// EncodeContent renders list as base64 of its UTF-8 JSON bytes.
func EncodeContent(list []domain.Bookmark) (string, error) {
	data, err := domain.MarshalList(list)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeContent is the inverse of EncodeContent. Line breaks inserted by
// the hosting API are ignored and an empty file is an empty list.
func DecodeContent(content string) ([]domain.Bookmark, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, content)
	if clean == "" {
		return []domain.Bookmark{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not base64: %v", domain.ErrFormat, err)
	}
	return domain.UnmarshalList(data)
}

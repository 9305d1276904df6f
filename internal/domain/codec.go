package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MarshalList encodes list as the shared blob/export format: a UTF-8 JSON
// array, 2-space indented, HTML characters left as is, no trailing newline.
func MarshalList(list []Bookmark) ([]byte, error) {
	if list == nil {
		list = []Bookmark{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return nil, fmt.Errorf("failed to encode bookmarks: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalList decodes a JSON array of bookmarks. Invalid UTF-8 or
// anything but an array, JSON null included, is an ErrFormat.
func UnmarshalList(data []byte) ([]Bookmark, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrFormat)
	}
	var list []Bookmark
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if list == nil {
		return nil, fmt.Errorf("%w: content is not an array", ErrFormat)
	}
	return list, nil
}

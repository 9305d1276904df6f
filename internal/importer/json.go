package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// ParseJSON reads a JSON array of partial bookmark records.
func ParseJSON(r io.Reader) ([]domain.ImportItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	var items []domain.ImportItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON import: %v", domain.ErrFormat, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: JSON import must be an array", domain.ErrFormat)
	}
	return items, nil
}

// Export writes list in the export format.
func Export(w io.Writer, list []domain.Bookmark) error {
	data, err := domain.MarshalList(list)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

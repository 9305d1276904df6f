package domain

import (
	"fmt"
	"strings"
)

// Form is the editable subset of a Bookmark, as submitted by a user.
type Form struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

// Normalize trims the fields and applies the default category.
func (f Form) Normalize() Form {
	f.Title = strings.TrimSpace(f.Title)
	f.URL = strings.TrimSpace(f.URL)
	f.Category = strings.TrimSpace(f.Category)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Category == "" {
		f.Category = DefaultCategory
	}
	return f
}

// Validate rejects forms missing a title or a url.
func (f Form) Validate() error {
	f = f.Normalize()
	if f.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidForm)
	}
	if f.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidForm)
	}
	return nil
}

// FormOf extracts the editable fields of b.
func FormOf(b Bookmark) Form {
	return Form{Title: b.Title, URL: b.URL, Category: b.Category, Notes: b.Notes}
}

// ImportItem is a partial bookmark record read from an import file.
// Every field is optional.
type ImportItem struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

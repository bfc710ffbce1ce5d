// Package models defines the domain types for Codex.
package models

import "slices"

// Manuscript is a single journal entry. Optional fields are pointers so that
// records written without them round-trip unchanged.
type Manuscript struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Timestamp  string   `json:"timestamp"`
	Status     *string  `json:"status,omitempty"`
	IsPinned   *bool    `json:"isPinned,omitempty"`
	IsFavorite *bool    `json:"isFavorite,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Pinned reports the pin flag, treating an absent flag as false.
func (m Manuscript) Pinned() bool {
	return m.IsPinned != nil && *m.IsPinned
}

// Favorite reports the favorite flag, treating an absent flag as false.
func (m Manuscript) Favorite() bool {
	return m.IsFavorite != nil && *m.IsFavorite
}

// StatusText returns the status badge or "".
func (m Manuscript) StatusText() string {
	if m.Status == nil {
		return ""
	}
	return *m.Status
}

// TagList never returns nil.
func (m Manuscript) TagList() []string {
	if m.Tags == nil {
		return []string{}
	}
	return m.Tags
}

// HasTag reports whether tag is one of the manuscript's tags (exact match).
func (m Manuscript) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// Clone returns a deep copy so callers cannot alias store-owned memory.
func (m Manuscript) Clone() Manuscript {
	out := m
	if m.Status != nil {
		s := *m.Status
		out.Status = &s
	}
	if m.IsPinned != nil {
		b := *m.IsPinned
		out.IsPinned = &b
	}
	if m.IsFavorite != nil {
		b := *m.IsFavorite
		out.IsFavorite = &b
	}
	if m.Tags != nil {
		out.Tags = slices.Clone(m.Tags)
	}
	return out
}

// ManuscriptInput carries the caller-supplied fields of a new manuscript.
// Empty fields are filled with defaults by the store.
type ManuscriptInput struct {
	Category string
	Title    string
	Content  string
	Status   string
	Tags     []string
	Pinned   bool
	Favorite bool
}

// GeneratedDraft is the structured record returned by the generation backend.
type GeneratedDraft struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Metadata string `json:"metadata"`
}

// Theme is the persisted display preference.
type Theme string

// Themes.
const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

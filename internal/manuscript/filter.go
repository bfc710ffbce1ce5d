package manuscript

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/codex/internal/models"
)

// Visible returns the manuscripts matching both the search query and the
// active category, in their original order.
//
// The query matches case-insensitively against title, content (markup
// included) and tags; an empty query matches everything. An empty category
// passes everything; otherwise see MatchesCategory.
func Visible(ms []models.Manuscript, query, category string) []models.Manuscript {
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]models.Manuscript, 0, len(ms))
	for _, m := range ms {
		if !MatchesCategory(m, category) {
			continue
		}
		if q != "" && !matchesQuery(fold, m, q) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func matchesQuery(fold cases.Caser, m models.Manuscript, q string) bool {
	if strings.Contains(fold.String(m.Title), q) || strings.Contains(fold.String(m.Content), q) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(fold.String(tag), q) {
			return true
		}
	}
	return false
}

// MatchesCategory reports whether m belongs to label: its category equals
// label exactly (case-sensitive) or label is one of its tags. An empty label
// matches every manuscript.
func MatchesCategory(m models.Manuscript, label string) bool {
	if label == "" {
		return true
	}
	return m.Category == label || m.HasTag(label)
}

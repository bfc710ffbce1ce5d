package manuscript

import "github.com/starford/codex/internal/models"

// KanbanColumn is one board column and the manuscripts grouped under it.
type KanbanColumn struct {
	Label       string              `json:"label"`
	Manuscripts []models.Manuscript `json:"manuscripts"`
}

// Kanban groups manuscripts under a fixed list of column labels. A manuscript
// lands in every column whose label equals its category or appears in its
// tags, so it may show up in several columns or in none.
func Kanban(ms []models.Manuscript, columns []string) []KanbanColumn {
	out := make([]KanbanColumn, 0, len(columns))
	for _, label := range columns {
		col := KanbanColumn{Label: label, Manuscripts: []models.Manuscript{}}
		if label != "" {
			for _, m := range ms {
				if MatchesCategory(m, label) {
					col.Manuscripts = append(col.Manuscripts, m)
				}
			}
		}
		out = append(out, col)
	}
	return out
}

// Vault returns the pinned or favorite manuscripts in store order.
func Vault(ms []models.Manuscript) []models.Manuscript {
	out := make([]models.Manuscript, 0)
	for _, m := range ms {
		if m.Pinned() || m.Favorite() {
			out = append(out, m)
		}
	}
	return out
}

package manuscript

import "github.com/starford/codex/internal/models"

// Seed returns a fresh copy of the built-in example manuscripts used when
// nothing (or nothing readable) is persisted, and by ResetToSeed.
func Seed() []models.Manuscript {
	return []models.Manuscript{
		{
			ID:       "1",
			Category: "Alquimia",
			Title:    "A Essência do Mercúrio Digital",
			Content: `<img src="https://images.unsplash.com/photo-1532187863486-abf51ad54417?auto=format&fit=crop&w=800&q=80" style="width:100%; border-radius:12px; margin-bottom:15px;" /><br/>` +
				`<b>Protocolo de Purificação:</b><br/>Para extrair a verdade dos dados brutos, deve-se filtrar as impurezas do ruído estático.`,
			Timestamp: "01/01/2024",
			Status:    models.Ptr("Selo de Prata"),
			IsPinned:  models.Ptr(true),
			Tags:      []string{"Conceito inicial"},
		},
		{
			ID:         "2",
			Category:   "Filosofia",
			Title:      "O Vazio Entre os Códigos",
			Content:    "Muitos buscam o poder na complexidade, mas a verdadeira maestria reside no espaço entre as linhas. O código que não é escrito é o mais resiliente de todos.",
			Timestamp:  "15/10/2023",
			Status:     models.Ptr("Ancestral"),
			IsFavorite: models.Ptr(true),
			Tags:       []string{"Conceito inicial", "Gestão de Tarefas"},
		},
	}
}

func cloneAll(ms []models.Manuscript) []models.Manuscript {
	out := make([]models.Manuscript, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

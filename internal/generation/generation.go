// Package generation asks a language model for new manuscripts.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/models"
)

// Defaults.
const (
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 30 * time.Second
)

// Config selects and tunes the backend.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generator is satisfied by every backend in this package.
type Generator interface {
	Generate(ctx context.Context, topic string) (*models.GeneratedDraft, error)
}

// New returns the Gemini backend, or Unavailable when no API key is set.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("generation: no api key configured, generation disabled")
		return Unavailable{}, nil
	}
	return NewGemini(ctx, cfg, logger)
}

// Unavailable is the backend used when generation is not configured.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string) (*models.GeneratedDraft, error) {
	return nil, apperr.ErrUnavailable
}

// Prompt builds the instruction sent for topic.
func Prompt(topic string) string {
	return "Gere uma entrada de manuscrito arcano em PORTUGUÊS sobre: " + topic +
		". O tom deve ser poético e arcaico, mas o tema pode ser tecnologia moderna disfarçada de magia." +
		" Formate a resposta como um objeto JSON com 'title', 'category', 'content' (algumas linhas de texto)," +
		" e 'metadata' (um status curto como 'Arquivado' ou 'Lua: Crescente')."
}

// DecodeDraft parses a model response. Code fences around the JSON object
// are tolerated. A response with neither title nor content yields a nil
// draft and no error.
func DecodeDraft(text string) (*models.GeneratedDraft, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, nil
	}

	var d models.GeneratedDraft
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return nil, fmt.Errorf("generation: decode response: %w", err)
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Category = strings.TrimSpace(d.Category)
	d.Metadata = strings.TrimSpace(d.Metadata)
	if d.Title == "" && strings.TrimSpace(d.Content) == "" {
		return nil, nil
	}
	return &d, nil
}

package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/starford/codex/internal/models"
)

// draftSchema constrains the model to the four fields of a GeneratedDraft.
var draftSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":    {Type: genai.TypeString},
		"category": {Type: genai.TypeString},
		"content":  {Type: genai.TypeString},
		"metadata": {Type: genai.TypeString},
	},
	Required: []string{"title", "category", "content", "metadata"},
}

type completeFunc func(ctx context.Context, model, prompt string) (string, error)

// Gemini generates drafts through the Gemini API.
type Gemini struct {
	model    string
	timeout  time.Duration
	logger   *slog.Logger
	complete completeFunc
}

// NewGemini creates a Gemini client for cfg.
func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: create client: %w", err)
	}

	complete := func(ctx context.Context, model, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   draftSchema,
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGemini(cfg, logger, complete), nil
}

func newGemini(cfg Config, logger *slog.Logger, complete completeFunc) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{model: cfg.Model, timeout: cfg.Timeout, logger: logger, complete: complete}
}

// Generate asks the model for a manuscript about topic. The call is bounded
// by the configured timeout.
func (g *Gemini) Generate(ctx context.Context, topic string) (*models.GeneratedDraft, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.complete(ctx, g.model, Prompt(topic))
	if err != nil {
		g.logger.Warn("generation: request failed",
			slog.String("model", g.model),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("generation: %s: %w", g.model, err)
	}
	d, err := DecodeDraft(text)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("generation: done",
		slog.String("model", g.model),
		slog.Duration("took", time.Since(start)),
		slog.Bool("empty", d == nil),
	)
	return d, nil
}

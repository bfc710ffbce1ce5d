// Package manuscriptservice coordinates the manuscript store, the session,
// the composer and preferences for the HTTP, MCP and CLI transports.
package manuscriptservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/generation"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/parser"
	"github.com/starford/codex/internal/preferences"
	"github.com/starford/codex/internal/share"
)

// DefaultKanbanColumns are the labels of the category tree.
var DefaultKanbanColumns = []string{
	"Original", "Conceito inicial", "Dicas de Site", "Gestão de Tarefas",
	"Monday", "Pacote Office", "Excel", "Word",
}

// EventSink receives store changes, typically the SSE broker.
type EventSink interface {
	PublishManuscriptEvent(kind, id string, m *models.Manuscript)
	PublishSelectionClosed(id string)
}

// Config tunes the service.
type Config struct {
	KanbanColumns     []string
	GenerationTimeout time.Duration
	Composer          manuscript.ComposerConfig
}

// Service is the single entry point used by transports. It owns one session;
// the journal is single-user.
type Service struct {
	store    *manuscript.Store
	session  *manuscript.Session
	composer *manuscript.Composer
	themes   *preferences.Themes
	gen      manuscript.Generator
	cfg      Config
	logger   *slog.Logger

	unsubscribe func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventSink forwards store and selection events to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		s.unsubscribe = s.store.Subscribe(func(ev manuscript.Event) {
			sink.PublishManuscriptEvent(string(ev.Kind), ev.ID, ev.Manuscript)
		})
		s.session.OnSelectionClosed(sink.PublishSelectionClosed)
	}
}

// New wires a service over an opened store. gen may be nil, in which case
// generation reports apperr.ErrUnavailable.
func New(store *manuscript.Store, gen manuscript.Generator, themes *preferences.Themes, cfg Config, opts ...Option) *Service {
	if len(cfg.KanbanColumns) == 0 {
		cfg.KanbanColumns = DefaultKanbanColumns
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = generation.DefaultTimeout
	}
	if gen == nil {
		gen = generation.Unavailable{}
	}

	s := &Service{
		store:   store,
		session: manuscript.NewSession(store),
		themes:  themes,
		gen:     gen,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.composer = manuscript.NewComposer(store, gen, s.session, cfg.Composer, s.logger)
	return s
}

// Close detaches the service from the store.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.session.Close()
}

// List applies the filter engine to the whole store.
func (s *Service) List(query, category string) []models.Manuscript {
	return manuscript.Visible(s.store.List(), query, category)
}

// Get returns one manuscript.
func (s *Service) Get(id string) (models.Manuscript, error) {
	m, ok := s.store.Get(id)
	if !ok {
		return models.Manuscript{}, apperr.ErrNotFound
	}
	return m, nil
}

// Create appends a manuscript written directly by the caller.
func (s *Service) Create(in models.ManuscriptInput) models.Manuscript {
	m := s.store.Create(in)
	s.logger.Info("manuscript created", slog.String("id", m.ID))
	return m
}

// Import parses a Markdown document and appends it.
func (s *Service) Import(data []byte) (models.Manuscript, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return models.Manuscript{}, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	in := res.Input()
	if strings.TrimSpace(in.Content) == "" {
		return models.Manuscript{}, fmt.Errorf("%w: document body is empty", apperr.ErrInvalidInput)
	}
	return s.Create(in), nil
}

// Delete removes a manuscript.
func (s *Service) Delete(id string) error {
	if !s.store.Delete(id) {
		return apperr.ErrNotFound
	}
	s.logger.Info("manuscript deleted", slog.String("id", id))
	return nil
}

// TogglePinned flips the pin flag.
func (s *Service) TogglePinned(id string) (models.Manuscript, error) {
	m, ok := s.store.TogglePinned(id)
	if !ok {
		return models.Manuscript{}, apperr.ErrNotFound
	}
	return m, nil
}

// ToggleFavorite flips the favorite flag.
func (s *Service) ToggleFavorite(id string) (models.Manuscript, error) {
	m, ok := s.store.ToggleFavorite(id)
	if !ok {
		return models.Manuscript{}, apperr.ErrNotFound
	}
	return m, nil
}

// PlainText returns the stripped content of a manuscript.
func (s *Service) PlainText(id string) (string, error) {
	m, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return manuscript.PlainText(m.Content), nil
}

// Share builds the payload for sharing a manuscript to target.
func (s *Service) Share(id, target string) (share.Payload, error) {
	t, err := share.ParseTarget(target)
	if err != nil {
		return share.Payload{}, err
	}
	m, err := s.Get(id)
	if err != nil {
		return share.Payload{}, err
	}
	return share.Build(m, t)
}

// Reset replaces every manuscript with the seed. It refuses unless confirm is
// set.
func (s *Service) Reset(confirm bool) ([]models.Manuscript, error) {
	if !confirm {
		return nil, apperr.ErrConfirmationRequired
	}
	ms := s.store.ResetToSeed()
	s.logger.Warn("archive reset to seed", slog.Int("count", len(ms)))
	return ms, nil
}

// Reload picks up an external change to the persisted archive.
func (s *Service) Reload() bool {
	return s.store.Reload()
}

// Kanban groups the store by the configured column labels.
func (s *Service) Kanban() []manuscript.KanbanColumn {
	return manuscript.Kanban(s.store.List(), s.cfg.KanbanColumns)
}

// Vault returns pinned and favorite manuscripts, regardless of the session
// gate.
func (s *Service) Vault() []models.Manuscript {
	return manuscript.Vault(s.store.List())
}

// SessionVault returns the vault as the session shows it.
func (s *Service) SessionVault() (bool, []models.Manuscript) {
	return s.session.VaultView()
}

// Session returns the session state.
func (s *Service) Session() manuscript.SessionState {
	return s.session.State()
}

// UpdateSession applies p to the session.
func (s *Service) UpdateSession(p manuscript.SessionPatch) (manuscript.SessionState, error) {
	if p.View != nil && !p.View.Valid() {
		return s.session.State(), fmt.Errorf("%w: unknown view %q", apperr.ErrInvalidInput, *p.View)
	}
	return s.session.Apply(p), nil
}

// Visible is the archive listing as the session sees it.
func (s *Service) Visible() []models.Manuscript {
	return s.session.Visible()
}

// Select opens the detail view of id.
func (s *Service) Select(id string) (models.Manuscript, error) {
	m, ok := s.session.Select(id)
	if !ok {
		return models.Manuscript{}, apperr.ErrNotFound
	}
	return m, nil
}

// CloseSelection closes the detail view.
func (s *Service) CloseSelection() {
	s.session.CloseSelection()
}

// Draft returns the composer draft.
func (s *Service) Draft() manuscript.Draft {
	return s.composer.Draft()
}

// ComposerState reports whether a submission is running.
func (s *Service) ComposerState() manuscript.ComposerState {
	return s.composer.State()
}

// SetDraft replaces the composer draft.
func (s *Service) SetDraft(d manuscript.Draft) manuscript.Draft {
	return s.composer.SetDraft(d)
}

// ToggleDraftTag toggles tag in the draft selection.
func (s *Service) ToggleDraftTag(tag string) []string {
	return s.composer.ToggleTag(tag)
}

// InsertImage appends an image to the draft.
func (s *Service) InsertImage(src string) (manuscript.Draft, error) {
	return s.composer.InsertImage(src)
}

// Submit turns the draft into a manuscript. The generation call is detached
// from ctx cancellation and bounded by the configured timeout, so a client
// that disconnects still gets its manuscript appended.
func (s *Service) Submit(ctx context.Context, mode manuscript.Mode) (manuscript.Outcome, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.GenerationTimeout)
	defer cancel()

	out, err := s.composer.Submit(ctx, mode)
	if err != nil && !errors.Is(err, apperr.ErrBusy) && !errors.Is(err, apperr.ErrInvalidInput) {
		s.logger.Warn("composer submit failed", slog.String("mode", string(mode)), slog.String("error", err.Error()))
	}
	return out, err
}

// Generate asks the backend for a manuscript about topic and appends it with
// tags, bypassing the shared draft.
func (s *Service) Generate(ctx context.Context, topic string, tags []string) (models.Manuscript, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = manuscript.DefaultTopic
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.GenerationTimeout)
	defer cancel()

	d, err := s.gen.Generate(ctx, topic)
	if err != nil {
		return models.Manuscript{}, fmt.Errorf("%w: %w", apperr.ErrGenerationFailed, err)
	}
	if d == nil {
		return models.Manuscript{}, fmt.Errorf("%w: empty result", apperr.ErrGenerationFailed)
	}
	return s.Create(models.ManuscriptInput{
		Category: d.Category,
		Title:    d.Title,
		Content:  d.Content,
		Status:   d.Metadata,
		Tags:     tags,
	}), nil
}

// Theme returns the display theme.
func (s *Service) Theme() models.Theme {
	return s.themes.Current()
}

// SetTheme changes the display theme.
func (s *Service) SetTheme(t models.Theme) (models.Theme, error) {
	return s.themes.Set(t)
}

// ToggleTheme flips the display theme.
func (s *Service) ToggleTheme() models.Theme {
	return s.themes.Toggle()
}

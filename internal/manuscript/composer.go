package manuscript

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/models"
)

// Composer defaults.
const (
	DefaultManualThreshold = 5
	DefaultTopic           = "Sabedoria Digital"
	ManualStatus           = "Autoral"
)

// GenerationFailureNotice is the one-line message shown when the generation
// backend cannot produce a manuscript.
const GenerationFailureNotice = "O oráculo está em silêncio. Escreva seu manuscrito manualmente."

// Generator produces a manuscript draft about topic. A nil draft with a nil
// error means the backend had nothing to offer.
type Generator interface {
	Generate(ctx context.Context, topic string) (*models.GeneratedDraft, error)
}

// Mode selects how a draft is turned into a manuscript.
type Mode string

// Modes. ModeAuto infers manual vs generated from the draft content.
const (
	ModeAuto     Mode = "auto"
	ModeManual   Mode = "manual"
	ModeGenerate Mode = "generate"
)

// ComposerState reports whether a submission is in flight.
type ComposerState string

// Composer states.
const (
	StateIdle       ComposerState = "idle"
	StateSubmitting ComposerState = "submitting"
)

// Draft is the work in progress of the composer.
type Draft struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (d Draft) clone() Draft {
	d.Tags = slices.Clone(d.Tags)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

// Outcome describes a successful submission.
type Outcome struct {
	Path       Mode              `json:"path"`
	Appended   bool              `json:"appended"`
	Manuscript models.Manuscript `json:"manuscript"`
}

// ComposerConfig tunes the composer.
type ComposerConfig struct {
	// ManualThreshold is the plain-text length a draft must exceed to be
	// saved as written in auto mode.
	ManualThreshold int
	DefaultTopic    string
}

// Composer turns drafts into manuscripts, either as written or by asking the
// generation backend.
type Composer struct {
	store   *Store
	gen     Generator
	session *Session
	cfg     ComposerConfig
	logger  *slog.Logger

	mu         sync.Mutex
	draft      Draft
	submitting bool
}

// NewComposer creates a composer appending to store. session may be nil; when
// set it is switched back to the archive view after every append.
func NewComposer(store *Store, gen Generator, session *Session, cfg ComposerConfig, logger *slog.Logger) *Composer {
	if cfg.ManualThreshold <= 0 {
		cfg.ManualThreshold = DefaultManualThreshold
	}
	if cfg.DefaultTopic == "" {
		cfg.DefaultTopic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		store:   store,
		gen:     gen,
		session: session,
		cfg:     cfg,
		logger:  logger,
		draft:   Draft{Tags: []string{}},
	}
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.clone()
}

// SetDraft replaces the draft.
func (c *Composer) SetDraft(d Draft) Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d.Tags = normalizeTags(d.Tags)
	c.draft = d.clone()
	return c.draft.clone()
}

// SetTitle replaces the draft title.
func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	c.draft.Title = title
	c.mu.Unlock()
}

// SetContent replaces the draft markup.
func (c *Composer) SetContent(markup string) {
	c.mu.Lock()
	c.draft.Content = markup
	c.mu.Unlock()
}

// InsertImage appends an image referencing src to the draft content. Only
// http(s) URLs and server-relative paths are accepted.
func (c *Composer) InsertImage(src string) (Draft, error) {
	src = strings.TrimSpace(src)
	u, err := url.Parse(src)
	if err != nil || src == "" {
		return c.Draft(), fmt.Errorf("%w: invalid image url", apperr.ErrInvalidInput)
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/"):
	default:
		return c.Draft(), fmt.Errorf("%w: unsupported image url %q", apperr.ErrInvalidInput, src)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Content += ImageMarkup(src)
	return c.draft.clone(), nil
}

// ToggleTag adds tag to the selected set, or removes it if already selected.
func (c *Composer) ToggleTag(tag string) []string {
	tag = strings.TrimSpace(tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	if tag == "" {
		return slices.Clone(c.draft.Tags)
	}
	if i := slices.Index(c.draft.Tags, tag); i >= 0 {
		c.draft.Tags = slices.Delete(c.draft.Tags, i, i+1)
	} else {
		c.draft.Tags = append(c.draft.Tags, tag)
	}
	return slices.Clone(c.draft.Tags)
}

// Clear empties title, content and tag selection.
func (c *Composer) Clear() {
	c.mu.Lock()
	c.draft = Draft{Tags: []string{}}
	c.mu.Unlock()
}

// State reports whether a submission is in flight.
func (c *Composer) State() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return StateSubmitting
	}
	return StateIdle
}

// Classify picks the path auto mode takes for markup: manual when the
// stripped text is longer than threshold runes or an image is embedded,
// generation otherwise. Short notes are therefore replaced by generated
// content; ModeManual exists for callers that want to opt out.
func Classify(markup string, threshold int) Mode {
	if PlainLength(markup) > threshold || HasImageMarker(markup) {
		return ModeManual
	}
	return ModeGenerate
}

// Submit turns the current draft into a manuscript. Only one submission runs
// at a time; a concurrent call fails with apperr.ErrBusy. On success the
// draft is cleared. When generation fails the error wraps
// apperr.ErrGenerationFailed, nothing is appended and the draft is kept.
func (c *Composer) Submit(ctx context.Context, mode Mode) (Outcome, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return Outcome{}, apperr.ErrBusy
	}
	c.submitting = true
	draft := c.draft.clone()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	path := mode
	switch mode {
	case ModeAuto, "":
		path = Classify(draft.Content, c.cfg.ManualThreshold)
	case ModeManual:
		if PlainLength(draft.Content) == 0 && !HasImageMarker(draft.Content) {
			return Outcome{}, fmt.Errorf("%w: draft content is empty", apperr.ErrInvalidInput)
		}
	case ModeGenerate:
	default:
		return Outcome{}, fmt.Errorf("%w: unknown mode %q", apperr.ErrInvalidInput, mode)
	}

	var in models.ManuscriptInput
	if path == ModeManual {
		in = models.ManuscriptInput{
			Category: DefaultCategory,
			Title:    draft.Title,
			Content:  draft.Content,
			Status:   ManualStatus,
			Tags:     draft.Tags,
		}
	} else {
		gd, err := c.generate(ctx, draft)
		if err != nil {
			c.logger.Warn("composer: generation failed", slog.String("error", err.Error()))
			return Outcome{Path: ModeGenerate}, err
		}
		in = models.ManuscriptInput{
			Category: gd.Category,
			Title:    gd.Title,
			Content:  gd.Content,
			Status:   gd.Metadata,
			Tags:     draft.Tags,
		}
	}

	m := c.store.Create(in)
	c.Clear()
	if c.session != nil {
		c.session.SetView(ViewArchive)
	}
	c.logger.Info("composer: appended", slog.String("id", m.ID), slog.String("path", string(path)))
	return Outcome{Path: path, Appended: true, Manuscript: m}, nil
}

func (c *Composer) generate(ctx context.Context, draft Draft) (*models.GeneratedDraft, error) {
	if c.gen == nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrGenerationFailed, apperr.ErrUnavailable)
	}
	topic := strings.TrimSpace(draft.Title)
	if topic == "" {
		topic = c.cfg.DefaultTopic
	}
	gd, err := c.gen.Generate(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrGenerationFailed, err)
	}
	if gd == nil {
		return nil, fmt.Errorf("%w: empty result", apperr.ErrGenerationFailed)
	}
	return gd, nil
}

package manuscriptservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/preferences"
	"github.com/starford/codex/internal/storage"
)

type recordingSink struct {
	mu     sync.Mutex
	kinds  []string
	closed []string
}

func (r *recordingSink) PublishManuscriptEvent(kind, id string, _ *models.Manuscript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind+":"+id)
}

func (r *recordingSink) PublishSelectionClosed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
}

type stubGenerator struct {
	draft *models.GeneratedDraft
	err   error
	ctxOK func(ctx context.Context)
}

func (g stubGenerator) Generate(ctx context.Context, _ string) (*models.GeneratedDraft, error) {
	if g.ctxOK != nil {
		g.ctxOK(ctx)
	}
	return g.draft, g.err
}

func newTestService(t *testing.T, gen manuscript.Generator, opts ...Option) (*Service, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	store := manuscript.Open(mem)
	svc := New(store, gen, preferences.LoadThemes(mem, nil), Config{}, opts...)
	t.Cleanup(svc.Close)
	return svc, mem
}

func TestService_CRUDAndEvents(t *testing.T) {
	sink := &recordingSink{}
	svc, _ := newTestService(t, nil, WithEventSink(sink))

	m := svc.Create(models.ManuscriptInput{Title: "Planilhas", Content: "<b>PROCV</b>", Tags: []string{"Excel"}})
	_, err := svc.TogglePinned(m.ID)
	require.NoError(t, err)

	_, err = svc.Select(m.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(m.ID))

	assert.ErrorIs(t, svc.Delete(m.ID), apperr.ErrNotFound)
	_, err = svc.ToggleFavorite("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []string{"created:" + m.ID, "updated:" + m.ID, "deleted:" + m.ID}, sink.kinds)
	assert.Equal(t, []string{m.ID}, sink.closed)
}

func TestService_ListAndKanban(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.Create(models.ManuscriptInput{Title: "Planilhas", Content: "x", Tags: []string{"Excel"}})

	assert.Len(t, svc.List("", ""), 3)
	assert.Len(t, svc.List("planilhas", ""), 1)
	assert.Len(t, svc.List("", "Excel"), 1)

	cols := svc.Kanban()
	require.Len(t, cols, len(DefaultKanbanColumns))
	assert.Equal(t, "Original", cols[0].Label)
	assert.Len(t, cols[0].Manuscripts, 1, "manual create defaults to Original")
	assert.Len(t, svc.Vault(), 2)
}

func TestService_Import(t *testing.T) {
	svc, _ := newTestService(t, nil)

	m, err := svc.Import([]byte("---\ncategory: Word\ntags: [Word]\n---\n# Estilos\nUse *estilos* de título.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Estilos", m.Title)
	assert.Equal(t, "Word", m.Category)
	assert.Contains(t, m.Content, "<em>estilos</em>")

	_, err = svc.Import([]byte("---\ntitle: vazio\n---\n"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_ResetNeedsConfirmation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.Create(models.ManuscriptInput{Content: "x"})

	_, err := svc.Reset(false)
	assert.ErrorIs(t, err, apperr.ErrConfirmationRequired)
	assert.Len(t, svc.List("", ""), 3)

	ms, err := svc.Reset(true)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
}

func TestService_ShareAndPlainText(t *testing.T) {
	svc, _ := newTestService(t, nil)

	txt, err := svc.PlainText("1")
	require.NoError(t, err)
	assert.NotContains(t, txt, "<")

	p, err := svc.Share("2", "whatsapp")
	require.NoError(t, err)
	assert.Contains(t, p.URL, "api.whatsapp.com")

	_, err = svc.Share("2", "fax")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Share("404", "email")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_SubmitIgnoresCallerCancellation(t *testing.T) {
	gen := stubGenerator{
		draft: &models.GeneratedDraft{Title: "Tarde", Category: "Alquimia", Content: "c", Metadata: "m"},
		ctxOK: func(ctx context.Context) {
			assert.NoError(t, ctx.Err(), "generation must not see the caller's cancellation")
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		},
	}
	svc, _ := newTestService(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.Submit(ctx, manuscript.ModeAuto)
	require.NoError(t, err)
	assert.True(t, out.Appended)
	assert.Equal(t, "Tarde", svc.List("", "")[0].Title)
}

func TestService_SubmitWithoutBackend(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.SetDraft(manuscript.Draft{Title: "oi"})

	_, err := svc.Submit(context.Background(), manuscript.ModeAuto)
	assert.ErrorIs(t, err, apperr.ErrGenerationFailed)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, "oi", svc.Draft().Title)
}

func TestService_Generate(t *testing.T) {
	svc, _ := newTestService(t, stubGenerator{draft: &models.GeneratedDraft{Title: "G", Category: "Monday", Content: "c", Metadata: "Arquivado"}})
	m, err := svc.Generate(context.Background(), "", []string{"Monday"})
	require.NoError(t, err)
	assert.Equal(t, "Arquivado", m.StatusText())
	assert.Equal(t, []string{"Monday"}, m.Tags)

	failing, _ := newTestService(t, stubGenerator{err: errors.New("down")})
	_, err = failing.Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, apperr.ErrGenerationFailed)
}

func TestService_SessionAndTheme(t *testing.T) {
	svc, mem := newTestService(t, nil)

	_, err := svc.UpdateSession(manuscript.SessionPatch{View: models.Ptr(manuscript.View("nowhere"))})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	st, err := svc.UpdateSession(manuscript.SessionPatch{VaultUnlocked: models.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, st.VaultUnlocked)
	open, ms := svc.SessionVault()
	assert.True(t, open)
	assert.Len(t, ms, 2)

	assert.Equal(t, models.ThemeDark, svc.Theme())
	assert.Equal(t, models.ThemeLight, svc.ToggleTheme())
	raw, err := mem.Get(preferences.ThemeKey)
	require.NoError(t, err)
	assert.Equal(t, "light", string(raw))
}

func TestService_Reload(t *testing.T) {
	svc, mem := newTestService(t, nil)
	assert.False(t, svc.Reload(), "nothing persisted yet")
	svc.Create(models.ManuscriptInput{Content: "x"})
	assert.False(t, svc.Reload(), "own write is not an external change")

	require.NoError(t, mem.Set(manuscript.ManuscriptsKey, []byte(`[{"id":"z","category":"c","title":"externo","content":"x","timestamp":"01/01/2024"}]`)))
	assert.True(t, svc.Reload())
	assert.Equal(t, "externo", svc.List("", "")[0].Title)
}

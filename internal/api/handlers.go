package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/manuscriptservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *manuscriptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *manuscriptservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListManuscripts handles GET /api/manuscripts?q=&category=.
func (h *Handler) ListManuscripts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := nonNil(h.svc.List(q.Get("q"), q.Get("category")))
	writeJSONTagged(w, r, ManuscriptListResponse{Manuscripts: items, Total: len(items)})
}

// CreateManuscript handles POST /api/manuscripts.
func (h *Handler) CreateManuscript(w http.ResponseWriter, r *http.Request) {
	var req CreateManuscriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.Create(req.input()))
}

// ImportManuscript handles POST /api/manuscripts/import with a Markdown body.
func (h *Handler) ImportManuscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	m, err := h.svc.Import(data)
	if err != nil {
		writeError(w, "import manuscript", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetManuscript handles GET /api/manuscripts/{id}.
func (h *Handler) GetManuscript(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get manuscript", err)
		return
	}
	writeJSONTagged(w, r, m)
}

// DeleteManuscript handles DELETE /api/manuscripts/{id}.
func (h *Handler) DeleteManuscript(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete manuscript", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePinned handles POST /api/manuscripts/{id}/pin.
func (h *Handler) TogglePinned(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.TogglePinned(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle pin", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ToggleFavorite handles POST /api/manuscripts/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.ToggleFavorite(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PlainText handles GET /api/manuscripts/{id}/plaintext.
func (h *Handler) PlainText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := h.svc.PlainText(id)
	if err != nil {
		writeError(w, "plain text", err)
		return
	}
	writeJSON(w, http.StatusOK, PlainTextResponse{ID: id, Text: text})
}

// Share handles GET /api/manuscripts/{id}/share/{target}. The pdf target is
// answered with the print document itself when ?format=html is given.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Share(chi.URLParam(r, "id"), chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, "share", err)
		return
	}
	if p.Document != "" && r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, p.Document)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Reset handles POST /api/manuscripts/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ms, err := h.svc.Reset(req.Confirm)
	if err != nil {
		writeError(w, "reset", err)
		return
	}
	writeJSON(w, http.StatusOK, ManuscriptListResponse{Manuscripts: ms, Total: len(ms)})
}

// Kanban handles GET /api/kanban.
func (h *Handler) Kanban(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, KanbanResponse{Columns: h.svc.Kanban()})
}

// Vault handles GET /api/vault. A locked session gets an empty listing.
func (h *Handler) Vault(w http.ResponseWriter, _ *http.Request) {
	unlocked, ms := h.svc.SessionVault()
	writeJSON(w, http.StatusOK, VaultResponse{Unlocked: unlocked, Manuscripts: nonNil(ms)})
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Session())
}

// UpdateSession handles PUT /api/session.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.UpdateSession(req.SessionPatch)
	if err != nil {
		writeError(w, "update session", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// VisibleManuscripts handles GET /api/session/manuscripts: the listing
// filtered by the session's query and category.
func (h *Handler) VisibleManuscripts(w http.ResponseWriter, _ *http.Request) {
	items := nonNil(h.svc.Visible())
	writeJSON(w, http.StatusOK, ManuscriptListResponse{Manuscripts: items, Total: len(items)})
}

// Select handles PUT /api/session/selection/{id}.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Select(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CloseSelection handles DELETE /api/session/selection.
func (h *Handler) CloseSelection(w http.ResponseWriter, _ *http.Request) {
	h.svc.CloseSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) composerResponse() ComposerResponse {
	return ComposerResponse{Draft: h.svc.Draft(), State: h.svc.ComposerState()}
}

// GetDraft handles GET /api/composer/draft.
func (h *Handler) GetDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.composerResponse())
}

// PutDraft handles PUT /api/composer/draft.
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.svc.SetDraft(manuscript.Draft{Title: req.Title, Content: req.Content, Tags: req.Tags})
	writeJSON(w, http.StatusOK, h.composerResponse())
}

// ToggleDraftTag handles POST /api/composer/tags/{tag}.
func (h *Handler) ToggleDraftTag(w http.ResponseWriter, r *http.Request) {
	h.svc.ToggleDraftTag(chi.URLParam(r, "tag"))
	writeJSON(w, http.StatusOK, h.composerResponse())
}

// InsertImage handles POST /api/composer/image.
func (h *Handler) InsertImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.svc.InsertImage(req.URL); err != nil {
		writeError(w, "insert image", err)
		return
	}
	writeJSON(w, http.StatusOK, h.composerResponse())
}

// Submit handles POST /api/composer/submit. An empty body means auto mode.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	req := SubmitRequest{Mode: manuscript.ModeAuto}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Submit(r.Context(), req.Mode)
	if err != nil {
		writeError(w, "submit", err)
		return
	}
	slog.Debug("composer submitted", slog.String("id", out.Manuscript.ID), slog.String("path", string(out.Path)))
	writeJSON(w, http.StatusCreated, out)
}

// GetTheme handles GET /api/theme.
func (h *Handler) GetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: h.svc.Theme()})
}

// PutTheme handles PUT /api/theme.
func (h *Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.SetTheme(req.Theme)
	if err != nil {
		writeError(w, "set theme", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: t})
}

// ToggleTheme handles POST /api/theme/toggle.
func (h *Handler) ToggleTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: h.svc.ToggleTheme()})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/codex/internal/attachments"
	"github.com/starford/codex/internal/manuscriptservice"
)

// RouterConfig carries the optional parts of the API.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events      http.Handler
	Attachments *attachments.Dir
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *manuscriptservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Route("/manuscripts", func(r chi.Router) {
		r.Get("/", h.ListManuscripts)
		r.Post("/", h.CreateManuscript)
		r.Post("/import", h.ImportManuscript)
		r.Post("/reset", h.Reset)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetManuscript)
			r.Delete("/", h.DeleteManuscript)
			r.Post("/pin", h.TogglePinned)
			r.Post("/favorite", h.ToggleFavorite)
			r.Get("/plaintext", h.PlainText)
			r.Get("/share/{target}", h.Share)
		})
	})

	r.Get("/kanban", h.Kanban)
	r.Get("/vault", h.Vault)

	r.Get("/session", h.GetSession)
	r.Put("/session", h.UpdateSession)
	r.Get("/session/manuscripts", h.VisibleManuscripts)
	r.Put("/session/selection/{id}", h.Select)
	r.Delete("/session/selection", h.CloseSelection)

	r.Get("/composer/draft", h.GetDraft)
	r.Put("/composer/draft", h.PutDraft)
	r.Post("/composer/tags/{tag}", h.ToggleDraftTag)
	r.Post("/composer/image", h.InsertImage)
	r.Post("/composer/submit", h.Submit)

	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.PutTheme)
	r.Post("/theme/toggle", h.ToggleTheme)

	if cfg.Attachments != nil {
		r.Post("/attachments", NewAttachmentHandler(cfg.Attachments).Upload)
	}
	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}

package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/models"
)

const (
	maxTitleLen = 200
	maxTags     = 32
)

// CreateManuscriptRequest is the body of POST /api/manuscripts.
type CreateManuscriptRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"isPinned"`
	Favorite bool     `json:"isFavorite"`
}

// Validate implements validation.Validatable.
func (r *CreateManuscriptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Category, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Tags, validation.Length(0, maxTags)),
	)
}

func (r *CreateManuscriptRequest) input() models.ManuscriptInput {
	return models.ManuscriptInput{
		Category: r.Category,
		Title:    r.Title,
		Content:  r.Content,
		Status:   r.Status,
		Tags:     r.Tags,
		Pinned:   r.Pinned,
		Favorite: r.Favorite,
	}
}

// ResetRequest is the body of POST /api/manuscripts/reset.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

// Validate implements validation.Validatable.
func (r *ResetRequest) Validate() error { return nil }

// DraftRequest is the body of PUT /api/composer/draft.
type DraftRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Validate implements validation.Validatable.
func (r *DraftRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Tags, validation.Length(0, maxTags)),
	)
}

// ImageRequest is the body of POST /api/composer/image.
type ImageRequest struct {
	URL string `json:"url"`
}

// Validate implements validation.Validatable.
func (r *ImageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URL, validation.Required),
	)
}

// SubmitRequest is the body of POST /api/composer/submit.
type SubmitRequest struct {
	Mode manuscript.Mode `json:"mode"`
}

// Validate implements validation.Validatable.
func (r *SubmitRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mode, validation.In(manuscript.ModeAuto, manuscript.ModeManual, manuscript.ModeGenerate)),
	)
}

// ThemeRequest is the body of PUT /api/theme.
type ThemeRequest struct {
	Theme models.Theme `json:"theme"`
}

// Validate implements validation.Validatable.
func (r *ThemeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Theme, validation.Required, validation.In(models.ThemeDark, models.ThemeLight)),
	)
}

// SessionRequest is the body of PUT /api/session.
type SessionRequest struct {
	manuscript.SessionPatch
}

// Validate implements validation.Validatable.
func (r *SessionRequest) Validate() error {
	if r.View != nil && !r.View.Valid() {
		return validation.NewError("validation_view", "view: must be archive, composer or settings")
	}
	return nil
}

// ManuscriptListResponse wraps a filtered listing.
type ManuscriptListResponse struct {
	Manuscripts []models.Manuscript `json:"manuscripts"`
	Total       int                 `json:"total"`
}

// KanbanResponse wraps the kanban board.
type KanbanResponse struct {
	Columns []manuscript.KanbanColumn `json:"columns"`
}

// VaultResponse is the vault as the session shows it.
type VaultResponse struct {
	Unlocked    bool                `json:"unlocked"`
	Manuscripts []models.Manuscript `json:"manuscripts"`
}

// ComposerResponse is the draft with the composer state.
type ComposerResponse struct {
	Draft manuscript.Draft         `json:"draft"`
	State manuscript.ComposerState `json:"state"`
}

// ThemeResponse carries the current theme.
type ThemeResponse struct {
	Theme models.Theme `json:"theme"`
}

// PlainTextResponse carries a stripped manuscript body.
type PlainTextResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

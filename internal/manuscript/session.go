package manuscript

import (
	"sync"

	"github.com/starford/codex/internal/models"
)

// View is the active screen of a session.
type View string

// Views.
const (
	ViewArchive  View = "archive"
	ViewComposer View = "composer"
	ViewSettings View = "settings"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	return v == ViewArchive || v == ViewComposer || v == ViewSettings
}

// SessionState is the transient, never persisted UI state.
type SessionState struct {
	SearchQuery    string `json:"search_query"`
	ActiveCategory string `json:"active_category"`
	View           View   `json:"view"`
	VaultUnlocked  bool   `json:"vault_unlocked"`
	SelectedID     string `json:"selected_id,omitempty"`
}

// SessionPatch updates the fields that are non-nil.
type SessionPatch struct {
	SearchQuery    *string `json:"search_query,omitempty"`
	ActiveCategory *string `json:"active_category,omitempty"`
	View           *View   `json:"view,omitempty"`
	VaultUnlocked  *bool   `json:"vault_unlocked,omitempty"`
}

// Session tracks what one user is looking at. It reads the store but never
// mutates it.
type Session struct {
	store *Store

	mu    sync.Mutex
	state SessionState

	closedMu sync.Mutex
	onClosed []func(id string)

	unsubscribe func()
}

// NewSession creates a session over store, starting on the archive view.
func NewSession(store *Store) *Session {
	s := &Session{
		store: store,
		state: SessionState{View: ViewArchive},
	}
	s.unsubscribe = store.Subscribe(s.handleEvent)
	return s
}

// Close detaches the session from store events.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// State returns a snapshot of the session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply updates the session with the non-nil fields of p. Unknown views are
// ignored.
func (s *Session) Apply(p SessionPatch) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.SearchQuery != nil {
		s.state.SearchQuery = *p.SearchQuery
	}
	if p.ActiveCategory != nil {
		s.state.ActiveCategory = *p.ActiveCategory
	}
	if p.View != nil && p.View.Valid() {
		s.state.View = *p.View
	}
	if p.VaultUnlocked != nil {
		s.state.VaultUnlocked = *p.VaultUnlocked
	}
	return s.state
}

// FocusCategory sets the category filter and switches to the archive view,
// as picking an entry of the category tree does.
func (s *Session) FocusCategory(label string) {
	s.mu.Lock()
	s.state.ActiveCategory = label
	s.state.View = ViewArchive
	s.mu.Unlock()
}

// SetView switches the active view.
func (s *Session) SetView(v View) {
	if !v.Valid() {
		return
	}
	s.mu.Lock()
	s.state.View = v
	s.mu.Unlock()
}

// Visible applies the filter engine with the session's query and category.
func (s *Session) Visible() []models.Manuscript {
	st := s.State()
	return Visible(s.store.List(), st.SearchQuery, st.ActiveCategory)
}

// VaultView returns the vault contents when the vault is unlocked and nil
// otherwise. The gate is cosmetic; Vault itself is never gated.
func (s *Session) VaultView() (bool, []models.Manuscript) {
	if !s.State().VaultUnlocked {
		return false, nil
	}
	return true, Vault(s.store.List())
}

// Select opens the detail view for id. Unknown ids leave the selection
// unchanged.
func (s *Session) Select(id string) (models.Manuscript, bool) {
	m, ok := s.store.Get(id)
	if !ok {
		return models.Manuscript{}, false
	}
	s.mu.Lock()
	s.state.SelectedID = id
	s.mu.Unlock()
	return m, true
}

// Selected returns the manuscript open in the detail view.
func (s *Session) Selected() (models.Manuscript, bool) {
	id := s.State().SelectedID
	if id == "" {
		return models.Manuscript{}, false
	}
	return s.store.Get(id)
}

// CloseSelection closes the detail view.
func (s *Session) CloseSelection() {
	s.mu.Lock()
	s.state.SelectedID = ""
	s.mu.Unlock()
}

// OnSelectionClosed registers fn to run when the selected manuscript
// disappears from the store and the detail view is closed as a result.
func (s *Session) OnSelectionClosed(fn func(id string)) {
	s.closedMu.Lock()
	s.onClosed = append(s.onClosed, fn)
	s.closedMu.Unlock()
}

func (s *Session) handleEvent(ev Event) {
	var gone string
	switch ev.Kind {
	case EventDeleted:
		s.mu.Lock()
		if s.state.SelectedID != "" && s.state.SelectedID == ev.ID {
			gone = s.state.SelectedID
			s.state.SelectedID = ""
		}
		s.mu.Unlock()
	case EventReset, EventReloaded:
		id := s.State().SelectedID
		if id == "" {
			return
		}
		if _, ok := s.store.Get(id); ok {
			return
		}
		s.mu.Lock()
		if s.state.SelectedID == id {
			gone = id
			s.state.SelectedID = ""
		}
		s.mu.Unlock()
	}
	if gone == "" {
		return
	}

	s.closedMu.Lock()
	fns := append([]func(string){}, s.onClosed...)
	s.closedMu.Unlock()
	for _, fn := range fns {
		fn(gone)
	}
}

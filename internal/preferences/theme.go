// Package preferences persists user display preferences.
package preferences

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/storage"
)

// ThemeKey is the persistence key of the theme preference.
const ThemeKey = "codex-theme"

// DefaultTheme is used when nothing valid is stored.
const DefaultTheme = models.ThemeDark

// Themes holds the current theme and writes every change through to the
// provider. Write failures are logged; the in-memory value still changes.
type Themes struct {
	provider storage.Provider
	logger   *slog.Logger

	mu      sync.Mutex
	current models.Theme
}

// LoadThemes reads the stored theme. Missing or unrecognized values fall
// back to DefaultTheme.
func LoadThemes(provider storage.Provider, logger *slog.Logger) *Themes {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Themes{provider: provider, logger: logger, current: DefaultTheme}

	raw, err := provider.Get(ThemeKey)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		logger.Warn("preferences: read theme", slog.String("error", err.Error()))
	default:
		v := models.Theme(strings.Trim(strings.TrimSpace(string(raw)), `"`))
		if v.Valid() {
			t.current = v
		} else {
			logger.Warn("preferences: ignoring unknown theme", slog.String("value", string(v)))
		}
	}
	return t
}

// Current returns the active theme.
func (t *Themes) Current() models.Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Set changes the theme. Unknown values are rejected with apperr.ErrInvalidInput.
func (t *Themes) Set(v models.Theme) (models.Theme, error) {
	if !v.Valid() {
		return t.Current(), apperr.ErrInvalidInput
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = v
	t.persistLocked()
	return v, nil
}

// Toggle flips between dark and light.
func (t *Themes) Toggle() models.Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = t.current.Toggled()
	t.persistLocked()
	return t.current
}

func (t *Themes) persistLocked() {
	if err := t.provider.Set(ThemeKey, []byte(t.current)); err != nil {
		t.logger.Error("preferences: save theme", slog.String("error", err.Error()))
	}
}

// Package testutil provides shared test helpers for building services over
// throwaway storage.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/manuscriptservice"
	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/preferences"
	"github.com/starford/codex/internal/storage"
)

// SQLite opens a provider on a temporary database that is closed on cleanup.
func SQLite(t *testing.T) storage.Provider {
	t.Helper()
	p, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "codex-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// Service builds a manuscript service over provider with the seed loaded.
// gen may be nil.
func Service(t *testing.T, provider storage.Provider, gen manuscript.Generator, opts ...manuscriptservice.Option) *manuscriptservice.Service {
	t.Helper()
	store := manuscript.Open(provider)
	svc := manuscriptservice.New(store, gen, preferences.LoadThemes(provider, nil), manuscriptservice.Config{}, opts...)
	t.Cleanup(svc.Close)
	return svc
}

// Generator is a canned generation backend that records requested topics.
type Generator struct {
	Draft *models.GeneratedDraft
	Err   error

	mu     sync.Mutex
	topics []string
}

func (g *Generator) Generate(_ context.Context, topic string) (*models.GeneratedDraft, error) {
	g.mu.Lock()
	g.topics = append(g.topics, topic)
	g.mu.Unlock()
	return g.Draft, g.Err
}

// Topics returns the topics requested so far.
func (g *Generator) Topics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.topics...)
}

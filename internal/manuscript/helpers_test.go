package manuscript

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/storage"
)

var fixedNow = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	opts = append([]StoreOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return Open(mem, opts...), mem
}

func ids(ms []models.Manuscript) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

type fakeGenerator struct {
	mu     sync.Mutex
	topics []string
	draft  *models.GeneratedDraft
	err    error
	gate   chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, topic string) (*models.GeneratedDraft, error) {
	f.mu.Lock()
	f.topics = append(f.topics, topic)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.draft, f.err
}

func (f *fakeGenerator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

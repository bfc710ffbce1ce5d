package manuscript

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/checksum"
	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/storage"
)

// ManuscriptsKey is the persistence key holding the serialized store.
const ManuscriptsKey = "codex-manuscripts"

// Defaults applied to new manuscripts.
const (
	DefaultTitle           = "Novo Fragmento"
	DefaultCategory        = "Original"
	DefaultTimestampLayout = "02/01/2006"
)

// EventKind names a store mutation.
type EventKind string

// Store events.
const (
	EventCreated  EventKind = "created"
	EventDeleted  EventKind = "deleted"
	EventUpdated  EventKind = "updated"
	EventReset    EventKind = "reset"
	EventReloaded EventKind = "reloaded"
)

// Event describes a completed mutation. Manuscript is set for created and
// updated events.
type Event struct {
	Kind       EventKind
	ID         string
	Manuscript *models.Manuscript
}

// Store is the ordered, in-memory source of truth for manuscripts. Every
// mutation is written through to the persistence provider before it returns.
// Persistence failures are logged and never surfaced to callers.
type Store struct {
	provider storage.Provider
	logger   *slog.Logger
	now      func() time.Time
	layout   string
	seed     []models.Manuscript
	newID    func(time.Time) string

	mu      sync.Mutex
	items   []models.Manuscript
	lastSum string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithTimestampLayout sets the time layout of the display timestamp.
func WithTimestampLayout(layout string) StoreOption {
	return func(s *Store) {
		if layout != "" {
			s.layout = layout
		}
	}
}

// WithSeed replaces the built-in seed sequence.
func WithSeed(seed []models.Manuscript) StoreOption {
	return func(s *Store) { s.seed = cloneAll(seed) }
}

// WithIDSource overrides id generation. Generated ids that collide with an
// existing id are retried.
func WithIDSource(fn func() string) StoreOption {
	return func(s *Store) { s.newID = func(time.Time) string { return fn() } }
}

// NewStore returns an empty store over provider. Call Load to populate it.
func NewStore(provider storage.Provider, opts ...StoreOption) *Store {
	s := &Store{
		provider: provider,
		logger:   slog.Default(),
		now:      time.Now,
		layout:   DefaultTimestampLayout,
		seed:     Seed(),
		newID:    ulidSource(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and loads it from provider.
func Open(provider storage.Provider, opts ...StoreOption) *Store {
	s := NewStore(provider, opts...)
	s.Load()
	return s
}

func ulidSource() func(time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func(t time.Time) string {
		return ulid.MustNew(ulid.Timestamp(t), entropy).String()
	}
}

// Load reads the persisted sequence and installs it. Absent or unreadable
// data falls back to the seed sequence. The fallback is not written back
// until the next mutation.
func (s *Store) Load() []models.Manuscript {
	items, sum, err := s.read()
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Info("store: nothing persisted, using seed")
		} else {
			s.logger.Warn("store: load failed, using seed", slog.String("error", err.Error()))
		}
		items, sum = cloneAll(s.seed), ""
	}

	s.mu.Lock()
	s.items = items
	s.lastSum = sum
	out := cloneAll(s.items)
	s.mu.Unlock()

	s.logger.Debug("store: loaded", slog.Int("count", len(out)))
	return out
}

// Reload re-reads the persisted sequence after an external change. It
// returns true when the in-memory state was replaced. Payloads identical to
// our last write and unparsable payloads are ignored.
func (s *Store) Reload() bool {
	data, err := s.provider.Get(ManuscriptsKey)
	if err != nil {
		s.logger.Debug("store: reload skipped", slog.String("error", err.Error()))
		return false
	}
	sum := checksum.Sum(data)

	s.mu.Lock()
	if sum == s.lastSum {
		s.mu.Unlock()
		return false
	}
	items, err := s.decode(data)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("store: reload ignored unparsable payload", slog.String("error", err.Error()))
		return false
	}
	s.items = items
	s.lastSum = sum
	s.mu.Unlock()

	s.logger.Info("store: reloaded external change", slog.Int("count", len(items)))
	s.emit(Event{Kind: EventReloaded})
	return true
}

func (s *Store) read() ([]models.Manuscript, string, error) {
	data, err := s.provider.Get(ManuscriptsKey)
	if err != nil {
		return nil, "", err
	}
	items, err := s.decode(data)
	if err != nil {
		return nil, "", err
	}
	return items, checksum.Sum(data), nil
}

// decode parses a persisted payload and repairs ids: records
// without an id get a fresh one, later duplicates are dropped.
func (s *Store) decode(data []byte) ([]models.Manuscript, error) {
	var items []models.Manuscript
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("store: decode: payload is null")
	}

	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, m := range items {
		if m.ID == "" {
			m.ID = s.uniqueID(seen)
		}
		if _, dup := seen[m.ID]; dup {
			s.logger.Warn("store: dropping duplicate id", slog.String("id", m.ID))
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// Save writes the full sequence to the provider.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked()
}

func (s *Store) saveLocked() {
	items := s.items
	if items == nil {
		items = []models.Manuscript{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("store: encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.provider.Set(ManuscriptsKey, data); err != nil {
		s.logger.Warn("store: save failed", slog.String("error", err.Error()))
		return
	}
	s.lastSum = checksum.Sum(data)
}

// List returns a copy of all manuscripts, most recent first.
func (s *Store) List() []models.Manuscript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

// Len returns the number of manuscripts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the manuscript with id.
func (s *Store) Get(id string) (models.Manuscript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return models.Manuscript{}, false
}

// Create builds a manuscript from in, prepends it and saves.
func (s *Store) Create(in models.ManuscriptInput) models.Manuscript {
	now := s.now()

	s.mu.Lock()
	m := models.Manuscript{
		ID:        s.uniqueIDLocked(now),
		Category:  orDefault(in.Category, DefaultCategory),
		Title:     orDefault(in.Title, DefaultTitle),
		Content:   in.Content,
		Timestamp: now.Format(s.layout),
	}
	if in.Status != "" {
		m.Status = models.Ptr(in.Status)
	}
	if in.Pinned {
		m.IsPinned = models.Ptr(true)
	}
	if in.Favorite {
		m.IsFavorite = models.Ptr(true)
	}
	if len(in.Tags) > 0 {
		m.Tags = normalizeTags(in.Tags)
	}
	s.items = append([]models.Manuscript{m}, s.items...)
	s.saveLocked()
	out := m.Clone()
	s.mu.Unlock()

	s.logger.Info("store: created", slog.String("id", out.ID), slog.String("category", out.Category))
	s.emit(Event{Kind: EventCreated, ID: out.ID, Manuscript: &out})
	return out.Clone()
}

// Delete removes the manuscript with id. Unknown ids are a no-op and return
// false.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.saveLocked()
	s.mu.Unlock()

	s.logger.Info("store: deleted", slog.String("id", id))
	s.emit(Event{Kind: EventDeleted, ID: id})
	return true
}

// TogglePinned flips the pin flag of id in place.
func (s *Store) TogglePinned(id string) (models.Manuscript, bool) {
	return s.toggle(id, func(m *models.Manuscript) {
		m.IsPinned = models.Ptr(!m.Pinned())
	})
}

// ToggleFavorite flips the favorite flag of id in place.
func (s *Store) ToggleFavorite(id string) (models.Manuscript, bool) {
	return s.toggle(id, func(m *models.Manuscript) {
		m.IsFavorite = models.Ptr(!m.Favorite())
	})
}

func (s *Store) toggle(id string, flip func(*models.Manuscript)) (models.Manuscript, bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Manuscript{}, false
	}
	flip(&s.items[i])
	s.saveLocked()
	out := s.items[i].Clone()
	s.mu.Unlock()

	s.emit(Event{Kind: EventUpdated, ID: id, Manuscript: &out})
	return out.Clone(), true
}

// ResetToSeed replaces every manuscript with the seed sequence. It is
// destructive; callers are expected to have confirmed it.
func (s *Store) ResetToSeed() []models.Manuscript {
	s.mu.Lock()
	s.items = cloneAll(s.seed)
	s.saveLocked()
	out := cloneAll(s.items)
	s.mu.Unlock()

	s.logger.Warn("store: reset to seed", slog.Int("count", len(out)))
	s.emit(Event{Kind: EventReset})
	return out
}

// Subscribe registers fn for store events and returns a function that
// removes it. fn runs on the mutating goroutine after the store lock is
// released.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueIDLocked(now time.Time) string {
	seen := make(map[string]struct{}, len(s.items))
	for _, m := range s.items {
		seen[m.ID] = struct{}{}
	}
	return s.uniqueIDAt(seen, now)
}

func (s *Store) uniqueID(seen map[string]struct{}) string {
	return s.uniqueIDAt(seen, s.now())
}

func (s *Store) uniqueIDAt(seen map[string]struct{}, now time.Time) string {
	for attempt := 0; ; attempt++ {
		id := s.newID(now)
		if attempt > 0 && attempt%8 == 0 {
			id = fmt.Sprintf("%s-%d", id, attempt)
		}
		if _, taken := seen[id]; !taken && id != "" {
			return id
		}
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

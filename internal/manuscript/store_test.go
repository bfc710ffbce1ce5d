package manuscript

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/codex/internal/models"
	"github.com/starford/codex/internal/storage"
)

func TestLoad_EmptyProviderFallsBackToSeed(t *testing.T) {
	s, mem := newTestStore(t)
	assert.Equal(t, []string{"1", "2"}, ids(s.List()))

	_, err := mem.Get(ManuscriptsKey)
	assert.Error(t, err, "seed fallback is not written until a mutation")
}

func TestLoad_CorruptPayloadFallsBackToSeed(t *testing.T) {
	for name, payload := range map[string]string{
		"garbage": "{not json",
		"null":    "null",
		"object":  `{"id":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			mem := storage.NewMemory()
			require.NoError(t, mem.Set(ManuscriptsKey, []byte(payload)))
			s := Open(mem)
			assert.Equal(t, []string{"1", "2"}, ids(s.List()))
		})
	}
}

func TestLoad_EmptyArrayIsAValidStore(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ManuscriptsKey, []byte(`[]`)))
	s := Open(mem)
	assert.Empty(t, s.List())
}

func TestLoad_ReadsOriginalFormat(t *testing.T) {
	mem := storage.NewMemory()
	payload := `[{"id":"1700000000000","category":"Original","title":"T","content":"<b>x</b>","timestamp":"01/02/2024","status":"Autoral","isPinned":true,"tags":["Excel"]},
	             {"id":"2","category":"Filosofia","title":"U","content":"y","timestamp":"15/10/2023"}]`
	require.NoError(t, mem.Set(ManuscriptsKey, []byte(payload)))

	s := Open(mem)
	list := s.List()
	require.Len(t, list, 2)
	assert.True(t, list[0].Pinned())
	assert.False(t, list[0].Favorite())
	assert.Equal(t, "Autoral", list[0].StatusText())
	assert.Equal(t, []string{"Excel"}, list[0].TagList())
	assert.Nil(t, list[1].Status)
	assert.Equal(t, []string{}, list[1].TagList())
}

func TestLoad_RepairsDuplicateAndMissingIDs(t *testing.T) {
	mem := storage.NewMemory()
	payload := `[{"id":"a","title":"first"},{"id":"a","title":"dup"},{"title":"no id"}]`
	require.NoError(t, mem.Set(ManuscriptsKey, []byte(payload)))

	s := Open(mem, WithIDSource(func() string { return "fresh" }))
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "fresh", list[1].ID)
}

func TestCreate_PrependsAndPersists(t *testing.T) {
	s, mem := newTestStore(t)

	m := s.Create(models.ManuscriptInput{Title: "Nova", Content: "texto", Tags: []string{"Excel"}})

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, m.ID, list[0].ID)
	assert.Equal(t, "05/03/2024", m.Timestamp)
	assert.Equal(t, DefaultCategory, m.Category)

	data, err := mem.Get(ManuscriptsKey)
	require.NoError(t, err)
	var persisted []models.Manuscript
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, ids(list), ids(persisted))
}

func TestCreate_FillsDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	m := s.Create(models.ManuscriptInput{Title: "   ", Content: "c"})
	assert.Equal(t, DefaultTitle, m.Title)
	assert.Equal(t, DefaultCategory, m.Category)
	assert.Nil(t, m.Status)
	assert.Nil(t, m.IsPinned)
	assert.Nil(t, m.Tags)
}

func TestCreate_IDsUniqueAcrossCreateDelete(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 50; i++ {
		m := s.Create(models.ManuscriptInput{Title: fmt.Sprintf("n%d", i)})
		if i%3 == 0 {
			s.Delete(m.ID)
		}
	}
	seen := map[string]bool{}
	for _, m := range s.List() {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestCreate_CollidingIDSourceIsRetried(t *testing.T) {
	calls := 0
	s, _ := newTestStore(t, WithIDSource(func() string {
		calls++
		if calls == 1 {
			return "1" // taken by the seed
		}
		return fmt.Sprintf("id-%d", calls)
	}))
	m := s.Create(models.ManuscriptInput{Title: "x"})
	assert.Equal(t, "id-2", m.ID)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	assert.True(t, s.Delete("1"))
	assert.Equal(t, []string{"2"}, ids(s.List()))
	assert.False(t, s.Delete("1"), "second delete is a no-op")
	assert.False(t, s.Delete("missing"))
}

func TestToggle_IsInvolution(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.List()

	_, ok := s.TogglePinned("2")
	require.True(t, ok)
	m, _ := s.Get("2")
	assert.True(t, m.Pinned(), "absent flag flips to true")

	s.TogglePinned("2")
	s.ToggleFavorite("1")
	s.ToggleFavorite("1")

	after := s.List()
	require.Equal(t, ids(before), ids(after))
	for i := range before {
		assert.Equal(t, before[i].Pinned(), after[i].Pinned())
		assert.Equal(t, before[i].Favorite(), after[i].Favorite())
		assert.Equal(t, before[i].Title, after[i].Title)
		assert.Equal(t, before[i].Content, after[i].Content)
		assert.Equal(t, before[i].TagList(), after[i].TagList())
	}
}

func TestToggle_UnknownIDIsNoop(t *testing.T) {
	s, mem := newTestStore(t)
	_, ok := s.ToggleFavorite("nope")
	assert.False(t, ok)
	_, err := mem.Get(ManuscriptsKey)
	assert.Error(t, err, "no-op must not save")
}

func TestResetToSeed_DeepEqualsSeed(t *testing.T) {
	s, _ := newTestStore(t)
	s.Create(models.ManuscriptInput{Title: "a"})
	s.Delete("2")
	s.TogglePinned("1")
	s.ToggleFavorite("1")

	got := s.ResetToSeed()
	if diff := cmp.Diff(Seed(), got); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Seed(), s.List()); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestList_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	list := s.List()
	list[0].Title = "mutated"
	list[0].Tags[0] = "mutated"
	fresh, _ := s.Get(list[0].ID)
	assert.Equal(t, "A Essência do Mercúrio Digital", fresh.Title)
	assert.Equal(t, "Conceito inicial", fresh.Tags[0])
}

func TestSave_FailureIsSwallowed(t *testing.T) {
	mem := storage.NewMemory()
	mem.FailWrites = true
	s := Open(mem)
	m := s.Create(models.ManuscriptInput{Title: "still here"})
	assert.Equal(t, m.ID, s.List()[0].ID)
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	s, _ := newTestStore(t)
	var kinds []EventKind
	unsubscribe := s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	m := s.Create(models.ManuscriptInput{Title: "x"})
	s.TogglePinned(m.ID)
	s.Delete(m.ID)
	s.Delete(m.ID)
	s.ResetToSeed()
	unsubscribe()
	s.Create(models.ManuscriptInput{Title: "after"})

	assert.Equal(t, []EventKind{EventCreated, EventUpdated, EventDeleted, EventReset}, kinds)
}

func TestReload(t *testing.T) {
	s, mem := newTestStore(t)
	s.Create(models.ManuscriptInput{Title: "mine"})

	assert.False(t, s.Reload(), "our own write is not an external change")

	require.NoError(t, mem.Set(ManuscriptsKey, []byte(`[{"id":"ext","title":"external"}]`)))
	assert.True(t, s.Reload())
	assert.Equal(t, []string{"ext"}, ids(s.List()))

	require.NoError(t, mem.Set(ManuscriptsKey, []byte(`broken`)))
	assert.False(t, s.Reload())
	assert.Equal(t, []string{"ext"}, ids(s.List()), "unparsable payload keeps current state")
}

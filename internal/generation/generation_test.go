package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/models"
)

func TestDecodeDraft(t *testing.T) {
	want := &models.GeneratedDraft{
		Title: "Runas", Category: "Alquimia", Content: "linha um\nlinha dois", Metadata: "Arquivado",
	}
	cases := []struct {
		name string
		in   string
		want *models.GeneratedDraft
	}{
		{"plain", `{"title":"Runas","category":"Alquimia","content":"linha um\nlinha dois","metadata":"Arquivado"}`, want},
		{"fenced", "```json\n{\"title\":\" Runas \",\"category\":\"Alquimia\",\"content\":\"linha um\\nlinha dois\",\"metadata\":\"Arquivado\"}\n```", want},
		{"empty text", "  ", nil},
		{"empty object", "{}", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeDraft(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DecodeDraft("not json")
	assert.Error(t, err)
}

func TestNew_WithoutKeyIsUnavailable(t *testing.T) {
	g, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	d, err := g.Generate(context.Background(), "x")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestGemini_Generate(t *testing.T) {
	var gotModel, gotPrompt string
	g := newGemini(Config{Model: "test-model"}, nil, func(ctx context.Context, model, prompt string) (string, error) {
		gotModel, gotPrompt = model, prompt
		_, ok := ctx.Deadline()
		assert.True(t, ok, "request must carry a deadline")
		return `{"title":"T","category":"C","content":"body","metadata":"M"}`, nil
	})

	d, err := g.Generate(context.Background(), "Excel")
	require.NoError(t, err)
	assert.Equal(t, "T", d.Title)
	assert.Equal(t, "test-model", gotModel)
	assert.True(t, strings.Contains(gotPrompt, "sobre: Excel."))
}

func TestGemini_GenerateError(t *testing.T) {
	boom := errors.New("quota")
	g := newGemini(Config{}, nil, func(context.Context, string, string) (string, error) {
		return "", boom
	})
	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestGemini_Timeout(t *testing.T) {
	g := newGemini(Config{Timeout: 20 * time.Millisecond}, nil, func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

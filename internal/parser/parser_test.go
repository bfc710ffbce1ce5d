package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Fórmulas\ncategory: Excel\nstatus: Arquivado\npinned: true\ntags:\n  - Excel\n  - Pacote Office\n---\n# Ignored heading\nUse **PROCV**.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Fórmulas" {
		t.Errorf("title = %q, want %q", r.Title, "Fórmulas")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "Excel" || r.Tags[1] != "Pacote Office" {
		t.Errorf("tags = %v, want [Excel Pacote Office]", r.Tags)
	}
	if r.Body != "# Ignored heading\nUse **PROCV**.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if !strings.Contains(r.HTML, "<strong>PROCV</strong>") {
		t.Errorf("html = %q", r.HTML)
	}

	in := r.Input()
	if in.Category != "Excel" || in.Status != "Arquivado" || !in.Pinned || in.Favorite {
		t.Errorf("input = %+v", in)
	}
	if in.Content != r.HTML {
		t.Errorf("content should be the rendered html")
	}
}

func TestParse_NoFrontmatterTakesHeading(t *testing.T) {
	r, err := Parse([]byte("# Diário\nPrimeira linha\nsegunda linha\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %+v", r.Frontmatter)
	}
	if r.Title != "Diário" {
		t.Errorf("title = %q, want %q", r.Title, "Diário")
	}
	if strings.Contains(r.HTML, "<h1>") {
		t.Errorf("title heading should be removed from body: %q", r.HTML)
	}
	if !strings.Contains(r.HTML, "Primeira linha<br>") {
		t.Errorf("hard wraps expected: %q", r.HTML)
	}
	in := r.Input()
	if in.Category != "" || in.Status != "" {
		t.Errorf("defaults must be left to the store: %+v", in)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_RawHTMLNotPassedThrough(t *testing.T) {
	r, err := Parse([]byte("texto <script>alert(1)</script>\n\n![selo](/attachments/a.png)\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(r.HTML, "<script>") {
		t.Errorf("raw html leaked: %q", r.HTML)
	}
	if !strings.Contains(r.HTML, `<img src="/attachments/a.png" alt="selo">`) {
		t.Errorf("markdown image missing: %q", r.HTML)
	}
}

func TestTagList_CommaString(t *testing.T) {
	r, err := Parse([]byte("---\ntags: Word, Excel ,\n---\ncorpo\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "Word" || r.Tags[1] != "Excel" {
		t.Errorf("tags = %v, want [Word Excel]", r.Tags)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := &Frontmatter{Tags: tagList{"alpha"}}
	tags := extractTags("Some text #gestão and #alpha again.\n# Heading", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "gestão" {
		t.Errorf("tags = %v, want [alpha gestão]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title, body := deriveTitle(&Frontmatter{Title: "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
	if body != "# H1 Title\ntext" {
		t.Errorf("body changed: %q", body)
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title, body := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
	if body != "some text\nmore" {
		t.Errorf("body = %q", body)
	}
}

// Package parser turns Markdown documents with YAML frontmatter into
// manuscript input for import.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/starford/codex/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)

// Raw HTML is not passed through; images and links written in Markdown are.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Frontmatter is the recognised header of an imported document.
type Frontmatter struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Status   string   `yaml:"status"`
	Tags     tagList  `yaml:"tags"`
	Pinned   bool     `yaml:"pinned"`
	Favorite bool     `yaml:"favorite"`
}

// tagList accepts either a YAML sequence or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		for _, s := range strings.Split(n.Value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				*t = append(*t, s)
			}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*t = items
		return nil
	default:
		return fmt.Errorf("tags: unsupported yaml kind %d", n.Kind)
	}
}

// Result holds a parsed document.
type Result struct {
	Frontmatter *Frontmatter
	// Body is the Markdown after the frontmatter, without the title heading
	// when the title was taken from it.
	Body  string
	HTML  string
	Tags  []string
	Title string
}

// Parse splits frontmatter from body, derives title and tags and renders the
// body to HTML. Malformed frontmatter is treated as part of the body.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	title, body := deriveTitle(fm, body)
	tags := extractTags(body, fm)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("parser: render markdown: %w", err)
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		HTML:        strings.TrimSpace(buf.String()),
		Tags:        tags,
		Title:       title,
	}, nil
}

// Input converts r into the fields of a new manuscript. Empty fields are left
// for the store to default.
func (r *Result) Input() models.ManuscriptInput {
	in := models.ManuscriptInput{
		Title:   r.Title,
		Content: r.HTML,
		Tags:    r.Tags,
	}
	if fm := r.Frontmatter; fm != nil {
		in.Category = strings.TrimSpace(fm.Category)
		in.Status = strings.TrimSpace(fm.Status)
		in.Pinned = fm.Pinned
		in.Favorite = fm.Favorite
	}
	return in
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body.
func splitFrontmatter(data []byte) (*Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

// extractTags collects frontmatter tags first, then inline #tags from body.
func extractTags(body string, fm *Frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		for _, s := range fm.Tags {
			add(s)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, which is then removed from the body.
func deriveTitle(fm *Frontmatter, body string) (string, string) {
	if fm != nil {
		if s := strings.TrimSpace(fm.Title); s != "" {
			return s, body
		}
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			rest := append(lines[:i:i], lines[i+1:]...)
			return strings.TrimSpace(trimmed[2:]), strings.TrimLeft(strings.Join(rest, "\n"), "\n")
		}
	}
	return "", body
}

// Package share builds export payloads for a manuscript: the share text,
// destination links and a printable document.
package share

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/models"
)

// Target is a share destination.
type Target string

// Targets.
const (
	WhatsApp Target = "whatsapp"
	Email    Target = "email"
	PDF      Target = "pdf"
	Notion   Target = "notion"
	Keep     Target = "keep"
)

// Targets lists every supported destination in menu order.
var Targets = []Target{WhatsApp, Email, PDF, Notion, Keep}

// TargetNames returns the targets as a comma separated list.
func TargetNames() string {
	names := make([]string, len(Targets))
	for i, t := range Targets {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Signature closes every shared text.
const Signature = "— Registro do Códice Arcano"

// ParseTarget validates s.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Targets {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown share target %q", apperr.ErrInvalidInput, s)
}

// Payload is what a client needs to complete a share. Clipboard means the
// text must be copied before URL is opened; Document is only set for PDF.
type Payload struct {
	Target    Target `json:"target"`
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	Clipboard bool   `json:"clipboard"`
	Notice    string `json:"notice,omitempty"`
	Document  string `json:"document,omitempty"`
}

// Text renders the share text: upper-cased title, plain-text body and the
// signature.
func Text(m models.Manuscript) string {
	return "📜 *" + strings.ToUpper(m.Title) + "*\n\n" + manuscript.PlainText(m.Content) + "\n\n" + Signature
}

// Build prepares the payload for target.
func Build(m models.Manuscript, target Target) (Payload, error) {
	text := Text(m)
	p := Payload{Target: target, Text: text}

	switch target {
	case WhatsApp:
		p.URL = "https://api.whatsapp.com/send?text=" + escape(text)
	case Email:
		p.URL = "mailto:?subject=" + escape(m.Title) + "&body=" + escape(text)
	case PDF:
		doc, err := Document(m)
		if err != nil {
			return Payload{}, err
		}
		p.Document = doc
	case Notion, Keep:
		p.Clipboard = true
		p.URL = "https://www.notion.so"
		if target == Keep {
			p.URL = "https://keep.google.com"
		}
		p.Notice = fmt.Sprintf("Conteúdo copiado! Abrindo %s... Cole (Ctrl+V) sua nota lá.", target)
	default:
		return Payload{}, fmt.Errorf("%w: unknown share target %q", apperr.ErrInvalidInput, target)
	}
	return p, nil
}

// escape percent-encodes s for a query value, with spaces as %20 so mail
// clients do not show plus signs.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var printTmpl = template.Must(template.New("print").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>body{font-family:Georgia,serif;max-width:42rem;margin:2rem auto;line-height:1.6}</style>
</head>
<body onload="window.print()">
<header>
<p>{{.Category}} · {{.Timestamp}}{{with .Status}} · {{.}}{{end}}</p>
<h1>{{.Title}}</h1>
</header>
<article>{{.Content}}</article>
{{with .Tags}}<footer>{{join . ", "}}</footer>
{{end}}</body>
</html>
`))

type printView struct {
	Title     string
	Category  string
	Timestamp string
	Status    string
	// Content is the author's own markup and is rendered as is.
	Content template.HTML
	Tags    []string
}

// Document renders a standalone HTML page that opens the print dialog.
func Document(m models.Manuscript) (string, error) {
	var buf bytes.Buffer
	err := printTmpl.Execute(&buf, printView{
		Title:     m.Title,
		Category:  m.Category,
		Timestamp: m.Timestamp,
		Status:    m.StatusText(),
		Content:   template.HTML(m.Content),
		Tags:      m.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("share: render document: %w", err)
	}
	return buf.String(), nil
}

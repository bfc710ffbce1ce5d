package manuscript

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

// PlainText strips markup from content, keeping a line break at every <br>
// and block boundary. Entities are decoded.
func PlainText(markup string) string {
	if markup == "" {
		return ""
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return strings.TrimSpace(markup)
	}
	var sb strings.Builder
	for _, n := range nodes {
		writeText(&sb, n)
	}
	return normalizeLines(sb.String())
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "template":
			return
		case "br":
			sb.WriteByte('\n')
			return
		case "td", "th":
			if n.PrevSibling != nil {
				sb.WriteByte('\t')
			}
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		breakLine(sb)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		breakLine(sb)
	}
}

func breakLine(sb *strings.Builder) {
	s := sb.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}

// normalizeLines trims every line, keeps at most one empty line between
// paragraphs and drops leading and trailing blank lines.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		blank = false
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// PlainLength is the rune count of PlainText(markup).
func PlainLength(markup string) int {
	return utf8.RuneCountInString(PlainText(markup))
}

// HasImageMarker reports whether markup embeds an image.
func HasImageMarker(markup string) bool {
	return strings.Contains(strings.ToLower(markup), "<img")
}

// ImageMarkup returns the snippet inserted into a draft to embed the image
// at src.
func ImageMarkup(src string) string {
	return `<img src="` + html.EscapeString(src) + `" style="max-width: 100%; border-radius: 12px; margin: 15px 0; display: block;" /><br/>`
}

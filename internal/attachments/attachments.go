// Package attachments stores uploaded images next to the manuscripts and
// produces the markup that embeds them.
package attachments

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/manuscript"
)

// MaxSize bounds a single attachment.
const MaxSize = 10 << 20

// URLPrefix is where attachments are served.
const URLPrefix = "/attachments/"

var (
	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	allowedExt = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	unsafeRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Saved describes a stored attachment.
type Saved struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	Markup   string `json:"markup"`
}

// Dir is a flat directory of attachments.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. The directory is created on first save.
func NewDir(root string) *Dir {
	return &Dir{root: filepath.Clean(root)}
}

// Root returns the attachments directory.
func (d *Dir) Root() string { return d.root }

// Path resolves a stored file name, rejecting anything that is not a plain
// name inside the directory.
func (d *Dir) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: filename is required", apperr.ErrInvalidInput)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("%w: invalid filename %q", apperr.ErrInvalidInput, name)
	}
	return filepath.Join(d.root, cleaned), nil
}

// Save stores data read from r under a fresh unique name derived from
// name. Only image types whose content matches the extension are accepted.
func (d *Dir) Save(name string, r io.Reader) (Saved, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Saved{}, fmt.Errorf("attachments: read: %w", err)
	}
	if len(data) > MaxSize {
		return Saved{}, fmt.Errorf("%w: file too large (max %d bytes)", apperr.ErrInvalidInput, MaxSize)
	}
	if len(data) == 0 {
		return Saved{}, fmt.Errorf("%w: empty file", apperr.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = mimeToExt[detect(data)]
	}
	if !allowedExt[ext] {
		return Saved{}, fmt.Errorf("%w: unsupported file type %q", apperr.ErrInvalidInput, ext)
	}
	if err := validateContent(data, ext); err != nil {
		return Saved{}, err
	}

	filename := uniqueName(name, ext)
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return Saved{}, fmt.Errorf("attachments: mkdir: %w", err)
	}
	if err := writeFile(filepath.Join(d.root, filename), data); err != nil {
		return Saved{}, err
	}

	u := URLPrefix + filename
	return Saved{
		Filename: filename,
		Size:     int64(len(data)),
		URL:      u,
		Markup:   manuscript.ImageMarkup(u),
	}, nil
}

// uniqueName keeps a sanitized stem of the original name for readability and
// prefixes it with a UUID so uploads never overwrite each other.
func uniqueName(name, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = unsafeRe.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._-")
	if len(stem) > 40 {
		stem = stem[:40]
	}
	id := uuid.NewString()
	if stem == "" {
		return id + ext
	}
	return id + "-" + stem + ext
}

func detect(data []byte) string {
	if isSVG(data) {
		return "image/svg+xml"
	}
	return strings.Split(http.DetectContentType(data), ";")[0]
}

func isSVG(data []byte) bool {
	prefix := data
	if len(prefix) > 1024 {
		prefix = prefix[:1024]
	}
	return bytes.Contains(prefix, []byte("<svg"))
}

// validateContent verifies the content matches the extension.
func validateContent(data []byte, ext string) error {
	if ext == ".svg" {
		if !isSVG(data) {
			return fmt.Errorf("%w: content is not an svg image", apperr.ErrInvalidInput)
		}
		return nil
	}
	got := mimeToExt[detect(data)]
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if got != ext {
		return fmt.Errorf("%w: content does not match extension %s", apperr.ErrInvalidInput, ext)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("attachments: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("attachments: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("attachments: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("attachments: rename: %w", err)
	}
	return nil
}

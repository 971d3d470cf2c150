package storage

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/charmap"

	"github.com/starford/ansuz/internal/models"
)

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".tsv": {},
	".json": {}, ".yaml": {}, ".yml": {}, ".rst": {}, ".html": {}, ".htm": {},
}

var textMIMETypes = map[string]struct{}{
	"application/json":   {},
	"application/x-yaml": {},
	"application/yaml":   {},
	"application/csv":    {},
	"application/xml":    {},
}

// LooksText reports whether a file with this name or MIME type holds text.
func LooksText(name, mime string) bool {
	if _, ok := textExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return true
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	_, ok := textMIMETypes[mime]
	return ok
}

// DecodeText returns payload as a string: UTF-8 when valid, Latin-1 otherwise.
func DecodeText(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "\uFFFD")
	}
	return string(out)
}

// ExtractText returns the trimmed text of a text-like file clipped to
// maxChars, or "" for binary content. A missing or generic MIME type is
// sniffed from the payload.
func ExtractText(name, mime string, payload []byte, maxChars int) string {
	if m := strings.TrimSpace(mime); m == "" || m == "application/octet-stream" {
		mime = mimetype.Detect(payload).String()
	}
	if !LooksText(name, mime) {
		return ""
	}
	text := strings.TrimSpace(DecodeText(payload))
	if maxChars > 0 {
		text = models.Clip(text, maxChars)
	}
	return text
}

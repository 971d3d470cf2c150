// Package checksum computes content fingerprints used for drift detection.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/ansuz/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// NoteHash fingerprints the semantic fields of a card. Tags are normalized
// first, so casing duplicates do not change the digest.
func NoteHash(f models.CardFields) string {
	typ := f.Type
	if typ == "" {
		typ = models.NoteBasic
	}
	return stableHash(map[string]any{
		"type":  string(typ),
		"front": f.Front,
		"back":  f.Back,
		"cloze": f.Cloze,
		"extra": f.Extra,
		"tags":  models.NormalizeTags(f.Tags),
	})
}

// RemoteCardHash fingerprints a remote card as seen by the sync engine.
func RemoteCardHash(content, deckID string, tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	return stableHash(map[string]any{
		"content": content,
		"deck-id": deckID,
		"tags":    tags,
	})
}

// stableHash serializes payload with sorted keys, no insignificant
// whitespace and no HTML escaping, then hashes it.
func stableHash(payload map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Maps of strings and string slices always encode.
	_ = enc.Encode(payload)
	return Sum(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

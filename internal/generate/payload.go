package generate

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

var fenceRe = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractJSON finds the first JSON object in model output. It tries the
// whole text, then fenced blocks, then balanced-brace scanning.
func ExtractJSON(text string) ([]byte, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, false
	}
	chunks := []string{raw}
	if strings.Contains(raw, "```") {
		for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
			if block := strings.TrimSpace(m[1]); block != "" {
				chunks = append(chunks, block)
			}
		}
	}

	for _, chunk := range chunks {
		if isObject(chunk) {
			return []byte(chunk), true
		}
		for start := strings.IndexByte(chunk, '{'); start != -1; {
			if piece, ok := balancedObject(chunk[start:]); ok && isObject(piece) {
				return []byte(piece), true
			}
			next := strings.IndexByte(chunk[start+1:], '{')
			if next == -1 {
				break
			}
			start += next + 1
		}
	}
	return nil, false
}

func balancedObject(s string) (string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func isObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

// DecodeNotes reads the "notes" list from a payload object. Fields of the
// wrong JSON type are treated as empty.
func DecodeNotes(payload []byte) ([]models.CardFields, error) {
	var envelope struct {
		Notes json.RawMessage `json:"notes"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	var items []map[string]any
	if len(envelope.Notes) == 0 || json.Unmarshal(envelope.Notes, &items) != nil {
		return nil, errors.New("payload has no notes list")
	}

	out := make([]models.CardFields, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		f := models.CardFields{
			Type:  models.NoteType(stringField(item, "type")),
			Front: stringField(item, "front"),
			Back:  stringField(item, "back"),
			Cloze: stringField(item, "cloze"),
			Extra: stringField(item, "extra"),
		}
		if tags, ok := item["tags"].([]any); ok {
			for _, t := range tags {
				if s, ok := t.(string); ok && s != "" {
					f.Tags = append(f.Tags, s)
				}
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Sanitize drops unusable candidates and canonicalizes the rest.
func Sanitize(notes []models.CardFields) []models.CardFields {
	clean := make([]models.CardFields, 0, len(notes))
	for _, n := range notes {
		typ := strings.ToLower(strings.TrimSpace(string(n.Type)))
		front := strings.TrimSpace(n.Front)
		back := strings.TrimSpace(n.Back)
		cloze := strings.TrimSpace(n.Cloze)
		extra := strings.TrimSpace(n.Extra)
		tags := models.NormalizeTags(n.Tags)

		if typ == string(models.NoteCloze) {
			if cloze == "" {
				continue
			}
			clean = append(clean, models.CardFields{
				Type: models.NoteCloze, Back: back, Cloze: cloze, Extra: extra, Tags: tags,
			})
			continue
		}
		if front == "" || back == "" {
			continue
		}
		clean = append(clean, models.CardFields{
			Type: models.NoteBasic, Front: front, Back: back, Extra: extra, Tags: tags,
		})
	}
	return clean
}

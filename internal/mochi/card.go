package mochi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

// Card is a remote card as returned by the cards endpoints.
type Card struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	DeckID     string    `json:"deck-id"`
	Tags       TagList   `json:"tags"`
	ManualTags TagList   `json:"manual-tags"`
	UpdatedAt  Timestamp `json:"updated-at"`
	Trashed    any       `json:"trashed?,omitempty"`
}

// Hash is the remote-side content hash of c.
func (c Card) Hash() string {
	return checksum.RemoteCardHash(c.Content, c.DeckID, []string(c.Tags))
}

// EffectiveTags prefers manual tags over computed tags and normalizes them.
func (c Card) EffectiveTags() []string {
	if len(c.ManualTags) > 0 {
		return models.NormalizeTags(c.ManualTags)
	}
	return models.NormalizeTags(c.Tags)
}

// Deck is a remote deck.
type Deck struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent-id,omitempty"`
	Trashed  any    `json:"trashed?,omitempty"`
}

// IsTrashed reports whether the deck carries a truthy "trashed?" marker.
func (d Deck) IsTrashed() bool { return truthy(d.Trashed) }

// Template is a remote card template.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CardInput is the body of a create call.
type CardInput struct {
	Content    string   `json:"content"`
	DeckID     string   `json:"deck-id"`
	ManualTags []string `json:"manual-tags"`
}

// Page is one page of a bookmark-paginated listing.
type Page[T any] struct {
	Docs     []T     `json:"docs"`
	Bookmark *string `json:"bookmark"`
}

// TagList accepts a JSON array of strings or {name|id} objects.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// null or a non-array value carries no tags
		*t = nil
		return nil
	}
	out := make(TagList, 0, len(items))
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Name any `json:"name"`
			ID   any `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		if name, ok := obj.Name.(string); ok && name != "" {
			out = append(out, name)
		} else if id, ok := obj.ID.(string); ok && id != "" {
			out = append(out, id)
		}
	}
	*t = out
	return nil
}

// Timestamp accepts either a string or an object with a "date" field.
type Timestamp string

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = Timestamp(s)
		return nil
	}
	var obj struct {
		Date any `json:"date"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if d, ok := obj.Date.(string); ok {
			*ts = Timestamp(d)
			return nil
		}
	}
	*ts = ""
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return strings.TrimSpace(x) != ""
	case float64:
		return x != 0
	}
	return true
}

package mochi

import (
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

var (
	ankiClozeRe  = regexp.MustCompile(`\{\{c(\d+)::(.*?)\}\}`)
	mochiClozeRe = regexp.MustCompile(`\{\{(\d+)::(.*?)\}\}`)
	mochiMarkRe  = regexp.MustCompile(`\{\{\d+::`)
	separatorRe  = regexp.MustCompile(`\n-{3,}\n`)
)

const contentSeparator = "\n\n---\n"

// AnkiClozeToMochi rewrites {{cN::x}} markers as {{N::x}}.
func AnkiClozeToMochi(s string) string {
	return ankiClozeRe.ReplaceAllString(s, "{{${1}::${2}}}")
}

// MochiClozeToAnki rewrites {{N::x}} markers as {{cN::x}}.
func MochiClozeToAnki(s string) string {
	return mochiClozeRe.ReplaceAllString(s, "{{c${1}::${2}}}")
}

// NoteContent renders a note as remote card markdown.
func NoteContent(f models.CardFields) string {
	if f.Type == models.NoteCloze {
		content := AnkiClozeToMochi(f.Cloze)
		if f.Extra != "" {
			content += contentSeparator + f.Extra
		}
		return content
	}
	content := f.Front + contentSeparator + f.Back
	if f.Extra != "" {
		content += "\n\n" + f.Extra
	}
	return content
}

// NewCardInput builds the create payload for a note.
func NewCardInput(f models.CardFields, deckID string) CardInput {
	tags := append([]string{}, f.Tags...)
	return CardInput{Content: NoteContent(f), DeckID: deckID, ManualTags: tags}
}

func splitContent(content string) (string, string) {
	if content == "" {
		return "", ""
	}
	loc := separatorRe.FindStringIndex(content)
	if loc == nil {
		return strings.TrimSpace(content), ""
	}
	return strings.TrimSpace(content[:loc[0]]), strings.TrimSpace(content[loc[1]:])
}

// CardFields maps a remote card back onto local note fields.
func CardFields(c Card) models.CardFields {
	content := strings.TrimSpace(c.Content)
	title := strings.TrimSpace(c.Name)
	tags := c.EffectiveTags()
	left, right := splitContent(content)

	zone := left
	if zone == "" {
		zone = content
	}
	if mochiMarkRe.MatchString(zone) {
		return models.CardFields{Type: models.NoteCloze, Cloze: MochiClozeToAnki(zone), Extra: right, Tags: tags}
	}

	if right != "" {
		front := firstNonEmpty(left, title, "Untitled")
		return models.CardFields{Type: models.NoteBasic, Front: front, Back: right, Tags: tags}
	}

	var lines []string
	for _, ln := range strings.Split(content, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) >= 2 {
		return models.CardFields{Type: models.NoteBasic, Front: lines[0], Back: strings.Join(lines[1:], "\n"), Tags: tags}
	}

	first := ""
	if len(lines) == 1 {
		first = lines[0]
	}
	f := models.CardFields{Type: models.NoteBasic, Front: firstNonEmpty(title, first, "Untitled"), Tags: tags}
	if title != "" {
		f.Back = content
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

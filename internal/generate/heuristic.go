package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

const (
	heuristicMaxCards = 3
	heuristicMaxChars = 12000
)

var (
	pairRe   = regexp.MustCompile(`^(.+?)\s*(?:->|=>|:|-)\s*(.+)$`)
	numberRe = regexp.MustCompile(`\b\d{3,4}\b`)
)

// Heuristic builds cards from line structure alone. It never fails.
type Heuristic struct{}

// Generate implements Generator.
func (Heuristic) Generate(_ context.Context, req Request) ([]models.CardFields, error) {
	return heuristicCards(req.Text, req.Lang), nil
}

func heuristicCards(text, lang string) []models.CardFields {
	extra := fmt.Sprintf("proposal (%s)", lang)

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	var notes []models.CardFields
	for _, ln := range lines {
		if card, ok := lineToBasic(ln); ok {
			card.Extra = extra
			notes = append(notes, card)
		}
		if len(notes) >= heuristicMaxCards {
			return notes
		}
	}
	if len(notes) > 0 {
		return notes
	}

	merged := strings.TrimSpace(models.Clip(strings.Join(lines, " "), heuristicMaxChars))
	if merged == "" {
		return nil
	}

	if loc := numberRe.FindStringIndex(merged); loc != nil {
		cloze := merged[:loc[0]] + "{{c1::" + merged[loc[0]:loc[1]] + "}}" + merged[loc[1]:]
		return []models.CardFields{{Type: models.NoteCloze, Cloze: cloze, Extra: extra}}
	}

	if words := strings.Fields(merged); len(words) >= 4 {
		phrase := words[0] + " " + words[1]
		cloze := strings.Replace(merged, phrase, "{{c1::"+phrase+"}}", 1)
		return []models.CardFields{{Type: models.NoteCloze, Cloze: cloze, Extra: extra}}
	}

	if term := strings.Trim(merged, " .,:;!?"); term != "" {
		return []models.CardFields{{
			Type:  models.NoteBasic,
			Front: "What is " + term + "?",
			Back:  merged,
			Extra: extra,
		}}
	}
	return nil
}

func lineToBasic(line string) (models.CardFields, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return models.CardFields{}, false
	}
	if q := strings.IndexByte(s, '?'); q != -1 {
		front := strings.TrimSpace(s[:q+1])
		back := strings.Trim(strings.TrimSpace(s[q+1:]), " -:;\t")
		if front != "" && back != "" {
			return models.CardFields{Type: models.NoteBasic, Front: front, Back: back}, true
		}
	}
	if m := pairRe.FindStringSubmatch(s); m != nil {
		front := strings.TrimSpace(m[1])
		back := strings.TrimSpace(m[2])
		if front != "" && back != "" {
			return models.CardFields{Type: models.NoteBasic, Front: front, Back: back}, true
		}
	}
	return models.CardFields{}, false
}

// Package lang resolves the language proposals are generated in: explicit
// directives in feedback or text first, then stopword detection.
package lang

import (
	"regexp"
	"strings"
)

var aliases = map[string]string{
	"pl":        "pl",
	"polish":    "pl",
	"polski":    "pl",
	"polsku":    "pl",
	"en":        "en",
	"english":   "en",
	"angielski": "en",
	"angielsku": "en",
}

var (
	bracketRe = regexp.MustCompile(`(?is)^\s*\[(?:lang|language)\s*[:=]\s*([A-Za-z-]{2,20})\]\s*(.*)$`)
	prefixRe  = regexp.MustCompile(`(?is)^\s*(?:lang|language)\s*[:=]\s*([A-Za-z-]{2,20})(?:\s*[,;:-]\s*|\s+)(.*)$`)
	wordRe    = regexp.MustCompile(`(?is)^\s*(pl|en|polish|english|polski|angielski)(?:\s*[,;:-]\s*|\s+)(.*)$`)
	phraseRe  = regexp.MustCompile(`(?is)^\s*(?:in\s+(english|polish)|po\s+(angielsku|polsku))(?:\s*[,;:-]\s*|\s+)?(.*)$`)
	codeRe    = regexp.MustCompile(`^[a-z]{2}(?:-[a-z]{2})?$`)
	wordsRe   = regexp.MustCompile(`[a-zA-Ząćęłńóśżź]+`)
)

const polishDiacritics = "ąćęłńóśżź"

var polishStopwords = setOf(
	"i", "oraz", "albo", "to", "jest", "czy", "jak", "jaki", "jaka", "jakie",
	"co", "kto", "gdzie", "kiedy", "dlaczego", "w", "na", "do", "z", "od",
	"roku", "ktory", "która", "ktore", "który", "które", "się",
)

var englishStopwords = setOf(
	"the", "a", "an", "is", "are", "what", "which", "when", "where", "why",
	"how", "who", "in", "on", "at", "to", "of", "for", "from", "did", "does",
	"year", "start", "end",
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// NormalizeCode maps an alias or a locale code to a two-letter language
// code. It returns "" when raw is not recognised.
func NormalizeCode(raw string) string {
	token := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	token = strings.ReplaceAll(token, "_", "-")
	if token == "" {
		return ""
	}
	if code, ok := aliases[token]; ok {
		return code
	}
	if codeRe.MatchString(token) {
		return token[:2]
	}
	return ""
}

// ExtractDirective looks for a leading language directive in text. It
// returns the language and the text with the directive removed, or "" and
// the trimmed text when no directive is present.
func ExtractDirective(text string) (string, string) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "", ""
	}
	for _, re := range []*regexp.Regexp{bracketRe, prefixRe, wordRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			if code := NormalizeCode(m[1]); code != "" {
				return code, strings.TrimSpace(m[2])
			}
		}
	}
	if m := phraseRe.FindStringSubmatch(raw); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if code := NormalizeCode(name); code != "" {
			return code, strings.TrimSpace(m[3])
		}
	}
	return "", raw
}

// Detect scores text as Polish or English. Ties and texts without any
// signal resolve to def.
func Detect(text, def string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return def
	}
	var pl, en int
	if strings.ContainsAny(t, polishDiacritics) {
		pl += 3
	}
	for _, w := range wordsRe.FindAllString(t, -1) {
		if _, ok := polishStopwords[w]; ok {
			pl++
		}
		if _, ok := englishStopwords[w]; ok {
			en++
		}
	}
	switch {
	case pl == 0 && en == 0:
		return def
	case pl > en:
		return "pl"
	case en > pl:
		return "en"
	}
	return def
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Lang     string
	Text     string
	Feedback string
}

// Resolve picks the language for a generation request. A directive in the
// feedback wins over one in the text, which wins over detection. The
// returned text and feedback have their directives stripped.
func Resolve(text, feedback, def string) Resolution {
	feedbackLang, cleanFeedback := ExtractDirective(feedback)
	textLang, cleanText := ExtractDirective(text)

	res := Resolution{
		Text:     firstNonEmpty(cleanText, strings.TrimSpace(text)),
		Feedback: firstNonEmpty(cleanFeedback, strings.TrimSpace(feedback)),
	}
	switch {
	case feedbackLang != "":
		res.Lang = feedbackLang
	case textLang != "":
		res.Lang = textLang
	default:
		res.Lang = Detect(res.Text, def)
	}
	return res
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

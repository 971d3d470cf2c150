package generate

import (
	"fmt"
	"strings"
)

const promptTemplate = `Generate high-quality Anki proposal cards from input text.
Output JSON only in this format:
{"notes":[{"type":"basic|cloze","front":"","back":"","cloze":"","extra":"","tags":[]}]}
Return 1 to %d notes.

Rules:
- Use language: %s
- If input is a short term/phrase (about 1-4 words), produce 2 complementary cards when possible:
  1) a direct definition card ("What is X?")
  2) a role/category card ("What is represented by X?" or "X is a unit of what?")
- Prefer basic cards for direct Q/A facts.
- Prefer cloze cards when preserving an important sentence helps recall.
- If input is a single term, produce at least one useful definition-style basic card.
- For factoid prompts (dates, names, starts/ends), make at least one direct atomic card with a short answer.
- If a concept is associated with a named source/work, include that anchor in the front when helpful.
- Front must be specific and answerable; never use placeholders.
- Keep each front/back concise, testable, and easy to answer quickly.
- Prefer simpler wording in answers over abstract phrasing.
- ` + "`extra`" + ` is optional and short.
- Tags: 1-3 short kebab-case topical tags when possible.
- Never return blank front/back for basic cards.
- Never return blank cloze text for cloze cards.
- Never use generic fronts like "Recall this fact".
- Do not output commentary, markdown, or code fences.
- If input is too vague for a good card, return empty notes.`

// Prompt renders the generation instructions. Feedback, when present, is
// appended as revision instructions.
func Prompt(lang string, maxNotes int, feedback string) string {
	base := fmt.Sprintf(promptTemplate, maxNotes, lang)
	fb := strings.TrimSpace(feedback)
	if fb == "" {
		return base
	}
	return base + "\n\nRevision instructions from user feedback (apply strictly when possible):\n" + fb
}

// PromptWithInput is Prompt followed by the source text.
func PromptWithInput(req Request) string {
	return Prompt(req.Lang, req.MaxNotes, req.Feedback) + "\n\nInput text:\n" + req.Text
}

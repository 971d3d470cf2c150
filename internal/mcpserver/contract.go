package mcpserver

const cardFormatURI = "ansuz://card-format"

// CardFormat describes the two card types and how proposals are reviewed.
const CardFormat = `# Ansuz Card Format

Ansuz proposes flashcards from source text. A reviewer approves or rejects
each proposal; approved cards become notes and are pushed to a Mochi deck.

## Card types

Basic:

` + "```" + `json
{"type": "basic", "front": "Capital of Poland?", "back": "Warsaw", "extra": "", "tags": ["geo"]}
` + "```" + `

Cloze:

` + "```" + `json
{"type": "cloze", "cloze": "{{c1::Warsaw}} is the capital of Poland", "extra": "", "tags": ["geo"]}
` + "```" + `

## Rules

1. A basic card needs both front and back. Its cloze is empty.
2. A cloze card needs cloze text with at least one ` + "`" + `{{cN::...}}` + "`" + ` deletion. Its front and back are empty.
3. Tags are lowercase and de-duplicated.
4. Prefix the source text with ` + "`" + `[lang:xx]` + "`" + ` (two letters) to choose the card language.
   A marker inside feedback overrides it for the revision.

## Workflow

1. ` + "`" + `propose_text` + "`" + ` returns proposal ids; each id is also its handle.
2. ` + "`" + `decide_proposal` + "`" + ` approves or rejects a pending handle. Decided handles are ignored.
3. ` + "`" + `submit_feedback` + "`" + ` revises a pending handle. Pending siblings from the same
   source are expired and replaced by the revision.
4. ` + "`" + `sync_mochi` + "`" + ` reconciles notes with the deck: push, pull, both or repair.
   Push never overwrites a card whose note changed locally since the last sync.
`

package proposal

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

const messageFooter = "\n\nReact with 👍/✅ to approve+sync, or 👎/❌ to reject." +
	"\nReply with `feedback ...` (or `/feedback ...`) to revise."

// FormatMessage renders the outbound message for one proposal.
func FormatMessage(id int64, f models.CardFields) string {
	tags := strings.Join(f.Tags, " ")
	if tags == "" {
		tags = "(none)"
	}
	extra := f.Extra
	if strings.TrimSpace(extra) == "" {
		extra = "(none)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Proposal #%d\n", id)
	if f.Type == models.NoteCloze {
		b.WriteString("Type: CLOZE\n")
		fmt.Fprintf(&b, "Cloze: %s\n", trimForMessage(f.Cloze, 1500))
	} else {
		b.WriteString("Type: BASIC\n")
		fmt.Fprintf(&b, "Front: %s\n", trimForMessage(f.Front, 800))
		fmt.Fprintf(&b, "Back: %s\n", trimForMessage(f.Back, 1200))
	}
	fmt.Fprintf(&b, "Extra: %s\n", trimForMessage(extra, 300))
	fmt.Fprintf(&b, "Tags: %s", tags)
	b.WriteString(messageFooter)
	return b.String()
}

// trimForMessage keeps at most limit runes, marking a cut with "...".
func trimForMessage(value string, limit int) string {
	txt := strings.TrimSpace(value)
	r := []rune(txt)
	if len(r) <= limit {
		return txt
	}
	return strings.TrimRight(string(r[:max(1, limit-3)]), " \t\r\n") + "..."
}

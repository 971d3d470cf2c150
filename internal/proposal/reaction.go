package proposal

import (
	"regexp"
	"strings"
)

// Decision is the outcome of a reaction.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionApprove
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	default:
		return "none"
	}
}

// MarshalText renders the decision name in JSON.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText is the inverse of MarshalText; unknown names become DecisionNone.
func (d *Decision) UnmarshalText(b []byte) error {
	*d = ParseDecision(string(b))
	return nil
}

// ParseDecision accepts "approve"/"approved" and "reject"/"rejected".
func ParseDecision(s string) Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "accept", "yes":
		return DecisionApprove
	case "reject", "rejected", "no":
		return DecisionReject
	}
	return DecisionNone
}

var (
	approveEmojis = map[string]struct{}{"👍": {}, "✅": {}, "🔥": {}, "💚": {}, "🟢": {}}
	rejectEmojis  = map[string]struct{}{"👎": {}, "❌": {}, "🗑️": {}, "🗑": {}}
)

// ClassifyReaction maps newly added reaction emojis to a Decision.
// Approval wins when both sets are present.
func ClassifyReaction(added []string) Decision {
	var approve, reject bool
	for _, e := range added {
		e = strings.TrimSpace(e)
		if _, ok := approveEmojis[e]; ok {
			approve = true
		}
		if _, ok := rejectEmojis[e]; ok {
			reject = true
		}
	}
	switch {
	case approve:
		return DecisionApprove
	case reject:
		return DecisionReject
	}
	return DecisionNone
}

var feedbackRe = regexp.MustCompile(`(?is)^\s*feedback\b[:\s-]*(.*)$`)

// ExtractFeedback returns the body of a "feedback ..." reply.
func ExtractFeedback(text string) (string, bool) {
	m := feedbackRe.FindStringSubmatch(strings.TrimPrefix(strings.TrimSpace(text), "/"))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

package proposal

import "testing"

func TestClassifyReaction(t *testing.T) {
	tests := []struct {
		name  string
		added []string
		want  Decision
	}{
		{"thumbs up", []string{"👍"}, DecisionApprove},
		{"fire", []string{"🔥"}, DecisionApprove},
		{"cross", []string{"❌"}, DecisionReject},
		{"wastebasket", []string{"🗑️"}, DecisionReject},
		{"both approve wins", []string{"👎", "✅"}, DecisionApprove},
		{"unrelated", []string{"😂"}, DecisionNone},
		{"empty", nil, DecisionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyReaction(tt.added); got != tt.want {
				t.Errorf("got = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractFeedback(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"feedback: shorter please", "shorter please", true},
		{"Feedback - use Polish\nand examples", "use Polish\nand examples", true},
		{"/feedback more detail", "more detail", true},
		{"FEEDBACK", "", true},
		{"feedbacks are nice", "", false},
		{"nice card", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractFeedback(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractFeedback(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDecision(t *testing.T) {
	if ParseDecision(" Approve ") != DecisionApprove || ParseDecision("rejected") != DecisionReject || ParseDecision("maybe") != DecisionNone {
		t.Error("ParseDecision mismatch")
	}
}

package models

import "time"

// ProposalStatus is the state of a Proposal. Everything except pending is terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// Terminal reports whether no further transition is allowed from s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalApproved || s == ProposalRejected || s == ProposalExpired
}

// Proposal is a candidate card awaiting a decision.
type Proposal struct {
	ID         int64 `json:"id"`
	UserID     int64 `json:"user_id"`
	SourceID   int64 `json:"source_id"`
	ParentID   int64 `json:"parent_proposal_id"`
	RootID     int64 `json:"root_proposal_id"`
	Revision   int   `json:"revision_index"`
	FeedbackID int64 `json:"feedback_id"`
	CardFields
	Handle    int64          `json:"handle"`
	Status    ProposalStatus `json:"status"`
	NoteID    int64          `json:"note_id"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

// Feedback is free text that drove a proposal revision.
type Feedback struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	SourceID         int64     `json:"source_id"`
	TargetProposalID int64     `json:"target_proposal_id"`
	Text             string    `json:"text"`
	RequestedLang    string    `json:"requested_lang"`
	Handle           int64     `json:"handle"`
	CreatedAt        time.Time `json:"created_at"`
}

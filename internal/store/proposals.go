package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const proposalColumns = `id, user_id, source_id, parent_proposal_id, root_proposal_id, revision_index, feedback_id,
	type, front, back, cloze, extra, tags, outbound_handle, status, note_id, created_at, decided_at`

// AddProposal inserts a pending Proposal. A proposal without a root becomes
// the root of its own chain.
func (db *DB) AddProposal(ctx context.Context, p models.Proposal) (int64, error) {
	if err := db.EnsureUser(ctx, p.UserID); err != nil {
		return 0, err
	}
	res, err := db.q.ExecContext(ctx, `
		INSERT INTO note_proposals (
			user_id, source_id, parent_proposal_id, root_proposal_id, revision_index, feedback_id,
			type, front, back, cloze, extra, tags, outbound_handle, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
	`, p.UserID, p.SourceID, max(0, p.ParentID), max(0, p.RootID), max(0, p.Revision), max(0, p.FeedbackID),
		string(models.ParseNoteType(string(p.Type))), p.Front, p.Back, p.Cloze, p.Extra, encodeTags(p.Tags), p.Handle)
	if err != nil {
		return 0, fmt.Errorf("store: add proposal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add proposal: %w", err)
	}
	if p.RootID <= 0 {
		if _, err := db.q.ExecContext(ctx,
			`UPDATE note_proposals SET root_proposal_id = ? WHERE id = ? AND user_id = ?`, id, id, p.UserID); err != nil {
			return 0, fmt.Errorf("store: set proposal root: %w", err)
		}
	}
	return id, nil
}

// GetProposal returns the Proposal or apperr.ErrNotFound.
func (db *DB) GetProposal(ctx context.Context, userID, id int64) (*models.Proposal, error) {
	row := db.q.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM note_proposals WHERE user_id = ? AND id = ?`, userID, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: proposal %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get proposal: %w", err)
	}
	return p, nil
}

// SetProposalHandle records the outbound handle a proposal was delivered under.
func (db *DB) SetProposalHandle(ctx context.Context, userID, id, handle int64) error {
	if _, err := db.q.ExecContext(ctx,
		`UPDATE note_proposals SET outbound_handle = ? WHERE id = ? AND user_id = ?`, handle, id, userID); err != nil {
		return fmt.Errorf("store: set proposal handle: %w", err)
	}
	return nil
}

// PendingProposalByHandle returns the pending proposal addressed by handle,
// or apperr.ErrNotFound when none is pending under it.
func (db *DB) PendingProposalByHandle(ctx context.Context, userID, handle int64) (*models.Proposal, error) {
	if handle <= 0 {
		return nil, fmt.Errorf("store: proposal handle %d: %w", handle, apperr.ErrNotFound)
	}
	row := db.q.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM note_proposals
		WHERE user_id = ? AND outbound_handle = ? AND status = 'pending'
		ORDER BY id DESC LIMIT 1
	`, userID, handle)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: proposal handle %d: %w", handle, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: pending proposal by handle: %w", err)
	}
	return p, nil
}

// SetProposalDecision moves a pending proposal to a terminal status. Rows
// that are already terminal are left untouched.
func (db *DB) SetProposalDecision(ctx context.Context, userID, id int64, status models.ProposalStatus, noteID int64) error {
	if !status.Terminal() {
		return fmt.Errorf("store: invalid proposal decision %q", status)
	}
	if _, err := db.q.ExecContext(ctx, `
		UPDATE note_proposals SET status = ?, note_id = ?, decided_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND status = 'pending'
	`, string(status), noteID, id, userID); err != nil {
		return fmt.Errorf("store: set proposal decision: %w", err)
	}
	return nil
}

// ExpirePendingForSource expires every pending proposal of a source and
// returns how many were expired.
func (db *DB) ExpirePendingForSource(ctx context.Context, userID, sourceID int64) (int64, error) {
	res, err := db.q.ExecContext(ctx, `
		UPDATE note_proposals SET status = 'expired', note_id = 0, decided_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND source_id = ? AND status = 'pending'
	`, userID, sourceID)
	if err != nil {
		return 0, fmt.Errorf("store: expire pending proposals: %w", err)
	}
	return res.RowsAffected()
}

// ListProposals returns the user's proposals in id order.
func (db *DB) ListProposals(ctx context.Context, userID int64, limit int) ([]models.Proposal, error) {
	if limit <= 0 {
		limit = 20000
	}
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM note_proposals WHERE user_id = ? ORDER BY id ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan proposal: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProposal(r rowScanner) (*models.Proposal, error) {
	var (
		p       models.Proposal
		typ     string
		tags    string
		status  string
		decided sql.NullTime
	)
	if err := r.Scan(&p.ID, &p.UserID, &p.SourceID, &p.ParentID, &p.RootID, &p.Revision, &p.FeedbackID,
		&typ, &p.Front, &p.Back, &p.Cloze, &p.Extra, &tags, &p.Handle, &status, &p.NoteID, &p.CreatedAt, &decided); err != nil {
		return nil, err
	}
	p.Type = models.NoteType(typ)
	p.Tags = decodeTags(tags)
	p.Status = models.ProposalStatus(status)
	if decided.Valid {
		t := decided.Time
		p.DecidedAt = &t
	}
	return &p, nil
}

// AddFeedback records a Feedback row and returns its id.
func (db *DB) AddFeedback(ctx context.Context, f models.Feedback) (int64, error) {
	if err := db.EnsureUser(ctx, f.UserID); err != nil {
		return 0, err
	}
	res, err := db.q.ExecContext(ctx, `
		INSERT INTO proposal_feedback (user_id, source_id, target_proposal_id, feedback_text, requested_lang, outbound_handle)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.UserID, max(0, f.SourceID), max(0, f.TargetProposalID), f.Text, f.RequestedLang, max(0, f.Handle))
	if err != nil {
		return 0, fmt.Errorf("store: add feedback: %w", err)
	}
	return res.LastInsertId()
}

// ListFeedback returns the user's feedback rows in id order.
func (db *DB) ListFeedback(ctx context.Context, userID int64, limit int) ([]models.Feedback, error) {
	if limit <= 0 {
		limit = 20000
	}
	rows, err := db.q.QueryContext(ctx, `
		SELECT id, user_id, source_id, target_proposal_id, feedback_text, requested_lang, outbound_handle, created_at
		FROM proposal_feedback WHERE user_id = ? ORDER BY id ASC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list feedback: %w", err)
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.SourceID, &f.TargetProposalID, &f.Text, &f.RequestedLang, &f.Handle, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

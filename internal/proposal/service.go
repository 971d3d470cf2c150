// Package proposal runs the review/revision state machine for generated
// cards: create, deliver, decide and revise with lineage.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/generate"
	"github.com/starford/ansuz/internal/lang"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// Notifier delivers a rendered proposal to the user and returns the handle
// that later reactions and replies refer to.
type Notifier interface {
	Deliver(ctx context.Context, userID int64, p models.Proposal, message string) (int64, error)
}

// Config holds the proposal settings.
type Config struct {
	MaxNotes              int
	DefaultLang           string
	MaxSourceChars        int
	TolerateMissingHandle bool
}

// Service implements the proposal lifecycle.
type Service struct {
	repo     store.Repository
	proposer generate.Proposer
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(repo store.Repository, proposer generate.Proposer, notifier Notifier, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxNotes < 1 {
		cfg.MaxNotes = 1
	}
	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = 12000
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, proposer: proposer, notifier: notifier, cfg: cfg, logger: logger}
}

// CreateRequest describes one proposal round for a source.
type CreateRequest struct {
	SourceID       int64
	Text           string
	Feedback       string
	ParentID       int64
	RootID         int64
	Revision       int
	FeedbackID     int64
	ReplacePending bool
}

// Outcome reports what a proposal round produced.
type Outcome struct {
	SourceID    int64   `json:"source_id"`
	ProposalIDs []int64 `json:"proposal_ids"`
	Engine      string  `json:"engine"`
	Lang        string  `json:"lang"`
	Delivered   int     `json:"delivered"`
	FeedbackID  int64   `json:"feedback_id,omitempty"`
}

// Posted is the number of proposals stored in this round.
func (o Outcome) Posted() int { return len(o.ProposalIDs) }

// CreateProposals generates candidates for req, stores them and delivers
// one message per proposal.
func (s *Service) CreateProposals(ctx context.Context, userID int64, req CreateRequest) (Outcome, error) {
	res := lang.Resolve(req.Text, req.Feedback, s.cfg.DefaultLang)
	out := Outcome{SourceID: req.SourceID, Lang: res.Lang, FeedbackID: req.FeedbackID, ProposalIDs: []int64{}}

	clipped := strings.TrimSpace(models.Clip(res.Text, s.cfg.MaxSourceChars))
	if clipped == "" {
		return out, apperr.ErrEmptyText
	}

	gen := s.proposer.Propose(ctx, generate.Request{
		Text:     clipped,
		Lang:     res.Lang,
		MaxNotes: s.cfg.MaxNotes,
		Feedback: res.Feedback,
	})
	out.Engine = gen.Engine
	if len(gen.Candidates) == 0 {
		s.logger.Info("proposal: no candidates",
			slog.Int64("user_id", userID), slog.Int64("source_id", req.SourceID), slog.String("engine", gen.Engine))
		return out, nil
	}

	candidates := gen.Candidates
	if len(candidates) > s.cfg.MaxNotes {
		candidates = candidates[:s.cfg.MaxNotes]
	}

	var stored []models.Proposal
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if req.ReplacePending && req.SourceID > 0 {
			if _, err := tx.ExpirePendingForSource(ctx, userID, req.SourceID); err != nil {
				return err
			}
		}
		for _, c := range candidates {
			p := models.Proposal{
				UserID:     userID,
				SourceID:   req.SourceID,
				ParentID:   req.ParentID,
				RootID:     req.RootID,
				Revision:   req.Revision,
				FeedbackID: req.FeedbackID,
				CardFields: c,
			}
			id, err := tx.AddProposal(ctx, p)
			if err != nil {
				return err
			}
			p.ID = id
			if p.RootID <= 0 {
				p.RootID = id
			}
			p.Status = models.ProposalPending
			stored = append(stored, p)
		}
		if req.SourceID > 0 {
			if _, err := tx.SetSourceStatus(ctx, userID, req.SourceID, models.SourceProcessed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("proposal: create: %w", err)
	}

	for _, p := range stored {
		out.ProposalIDs = append(out.ProposalIDs, p.ID)
		if s.deliver(ctx, userID, p) {
			out.Delivered++
		}
	}
	return out, nil
}

func (s *Service) deliver(ctx context.Context, userID int64, p models.Proposal) bool {
	handle, err := s.notifier.Deliver(ctx, userID, p, FormatMessage(p.ID, p.CardFields))
	if err == nil && handle > 0 {
		if err := s.repo.SetProposalHandle(ctx, userID, p.ID, handle); err != nil {
			s.logger.Error("proposal: store handle", slog.Int64("proposal_id", p.ID), slog.String("error", err.Error()))
			return false
		}
		return true
	}
	if err == nil {
		err = errors.New("notifier returned no handle")
	}
	s.logger.Warn("proposal: delivery failed", slog.Int64("proposal_id", p.ID), slog.String("error", err.Error()))

	if s.cfg.TolerateMissingHandle {
		return false
	}
	if err := s.repo.SetProposalDecision(ctx, userID, p.ID, models.ProposalExpired, 0); err != nil {
		s.logger.Error("proposal: expire undelivered", slog.Int64("proposal_id", p.ID), slog.String("error", err.Error()))
	}
	return false
}

// DecideResult reports the effect of a reaction.
type DecideResult struct {
	Applied  bool             `json:"applied"`
	Decision Decision         `json:"decision"`
	Proposal *models.Proposal `json:"proposal,omitempty"`
	Note     *models.Note     `json:"note,omitempty"`
}

// Decide applies an approve or reject decision to the pending proposal
// behind handle. An unknown or already decided handle is a no-op.
func (s *Service) Decide(ctx context.Context, userID, handle int64, decision Decision) (DecideResult, error) {
	res := DecideResult{Decision: decision}
	if decision != DecisionApprove && decision != DecisionReject {
		return res, nil
	}

	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		p, err := tx.PendingProposalByHandle(ctx, userID, handle)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if decision == DecisionReject {
			if err := tx.SetProposalDecision(ctx, userID, p.ID, models.ProposalRejected, 0); err != nil {
				return err
			}
			p.Status = models.ProposalRejected
			res.Applied, res.Proposal = true, p
			return nil
		}

		noteID, err := tx.AddNote(ctx, models.Note{
			UserID:     userID,
			CardFields: p.CardFields,
			SourceID:   p.SourceID,
			Origin:     models.OriginProposalApproved,
		})
		if err != nil {
			return err
		}
		if err := tx.SetProposalDecision(ctx, userID, p.ID, models.ProposalApproved, noteID); err != nil {
			return err
		}
		note, err := tx.GetNote(ctx, userID, noteID)
		if err != nil {
			return err
		}
		p.Status, p.NoteID = models.ProposalApproved, noteID
		res.Applied, res.Proposal, res.Note = true, p, note
		return nil
	})
	if err != nil {
		return DecideResult{Decision: decision}, fmt.Errorf("proposal: decide: %w", err)
	}
	if res.Applied {
		s.logger.Info("proposal: decided",
			slog.Int64("user_id", userID), slog.Int64("proposal_id", res.Proposal.ID), slog.String("decision", decision.String()))
	}
	return res, nil
}

// SubmitFeedback records feedback on the pending proposal behind handle and
// replaces the source's pending proposals with a revised round.
func (s *Service) SubmitFeedback(ctx context.Context, userID, handle int64, text string) (Outcome, error) {
	feedback := strings.TrimSpace(text)
	if feedback == "" {
		return Outcome{}, apperr.ErrEmptyFeedback
	}

	var (
		target     *models.Proposal
		source     *models.Source
		feedbackID int64
	)
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		p, err := tx.PendingProposalByHandle(ctx, userID, handle)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNoPendingProposal
		}
		if err != nil {
			return err
		}
		if p.SourceID <= 0 {
			return apperr.ErrNotLinkedToSource
		}

		src, err := tx.GetSource(ctx, userID, p.SourceID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrSourceNotFound
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(src.Text) == "" {
			return apperr.ErrSourceNoText
		}

		requested := lang.Resolve("", feedback, s.cfg.DefaultLang).Lang
		feedbackID, err = tx.AddFeedback(ctx, models.Feedback{
			UserID:           userID,
			SourceID:         p.SourceID,
			TargetProposalID: p.ID,
			Text:             feedback,
			RequestedLang:    requested,
			Handle:           handle,
		})
		if err != nil {
			return err
		}
		target, source = p, src
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("proposal: feedback: %w", err)
	}

	root := target.RootID
	if root <= 0 {
		root = target.ID
	}
	return s.CreateProposals(ctx, userID, CreateRequest{
		SourceID:       source.ID,
		Text:           strings.TrimSpace(source.Text),
		Feedback:       feedback,
		ParentID:       target.ID,
		RootID:         root,
		Revision:       target.Revision + 1,
		FeedbackID:     feedbackID,
		ReplacePending: true,
	})
}

// ProposeText stores text as a proposal_text Source and proposes from it.
func (s *Service) ProposeText(ctx context.Context, userID int64, text, transport string) (Outcome, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Outcome{}, apperr.ErrEmptyText
	}
	sourceID, err := s.repo.AddSource(ctx, models.Source{
		UserID: userID,
		Kind:   models.SourceKindProposalText,
		Label:  models.Clip(raw, 120),
		Text:   models.Clip(raw, s.cfg.MaxSourceChars),
		Meta:   map[string]any{"transport": transport},
		Status: models.SourcePending,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("proposal: propose text: %w", err)
	}
	return s.CreateProposals(ctx, userID, CreateRequest{SourceID: sourceID, Text: raw})
}

// ProposeSource proposes from a stored Source.
func (s *Service) ProposeSource(ctx context.Context, userID, sourceID int64) (Outcome, error) {
	src, err := s.repo.GetSource(ctx, userID, sourceID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Outcome{}, apperr.ErrSourceNotFound
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("proposal: propose source: %w", err)
	}
	text := strings.TrimSpace(src.Text)
	if text == "" {
		return Outcome{SourceID: sourceID}, apperr.ErrSourceNoText
	}
	return s.CreateProposals(ctx, userID, CreateRequest{SourceID: sourceID, Text: text})
}

// BatchSummary reports a ProposePending pass.
type BatchSummary struct {
	Scanned          int      `json:"scanned"`
	WithProposals    int      `json:"with_proposals"`
	ProposalsPosted  int      `json:"proposals_posted"`
	WithoutProposals int      `json:"without_proposals"`
	Engines          []string `json:"engines"`
}

const (
	defaultPendingLimit = 3
	maxPendingLimit     = 20
)

// ProposePending proposes from the oldest pending text sources.
func (s *Service) ProposePending(ctx context.Context, userID int64, limit int) (BatchSummary, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	limit = min(limit, maxPendingLimit)

	pending, err := s.repo.PendingTextSources(ctx, userID, limit)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("proposal: propose pending: %w", err)
	}

	sum := BatchSummary{Scanned: len(pending), Engines: []string{}}
	seen := make(map[string]struct{})
	for _, src := range pending {
		text := strings.TrimSpace(src.Text)
		if text == "" {
			sum.WithoutProposals++
			continue
		}
		out, err := s.CreateProposals(ctx, userID, CreateRequest{SourceID: src.ID, Text: text})
		if err != nil && !errors.Is(err, apperr.ErrEmptyText) {
			return sum, err
		}
		if out.Engine != "" {
			seen[out.Engine] = struct{}{}
		}
		if out.Posted() > 0 {
			sum.WithProposals++
			sum.ProposalsPosted += out.Posted()
		} else {
			sum.WithoutProposals++
		}
	}
	for e := range seen {
		sum.Engines = append(sum.Engines, e)
	}
	sort.Strings(sum.Engines)
	return sum, nil
}

// ListProposals returns the user's proposals, optionally only those with status.
func (s *Service) ListProposals(ctx context.Context, userID int64, status models.ProposalStatus, limit int) ([]models.Proposal, error) {
	all, err := s.repo.ListProposals(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("proposal: list: %w", err)
	}
	out := make([]models.Proposal, 0, len(all))
	for _, p := range all {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Package noteservice handles the user's raw material and accepted notes
// outside the proposal flow: ingesting sources, the pending queue, manual
// notes and status counters.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

var urlOnlyRe = regexp.MustCompile(`(?i)^\s*(https?://\S+)\s*$`)

// SourceEvents is told about every new source.
type SourceEvents interface {
	PublishSourceEvent(userID, sourceID int64, kind string)
}

// Service coordinates the store and source file storage.
type Service struct {
	repo           store.Repository
	files          storage.Provider
	events         SourceEvents
	maxSourceChars int
	backend        string
	logger         *slog.Logger
}

// Options configures a Service.
type Options struct {
	MaxSourceChars int
	// Backend is the generation backend name reported by Status.
	Backend string
	Logger  *slog.Logger
}

// NewService creates a new note service. files and events may be nil.
func NewService(repo store.Repository, files storage.Provider, events SourceEvents, opts Options) *Service {
	if opts.MaxSourceChars <= 0 {
		opts.MaxSourceChars = 12000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		files:          files,
		events:         events,
		maxSourceChars: opts.MaxSourceChars,
		backend:        opts.Backend,
		logger:         opts.Logger,
	}
}

func (s *Service) added(userID int64, src *models.Source) {
	if s.events != nil {
		s.events.PublishSourceEvent(userID, src.ID, src.Kind)
	}
}

// IngestText stores text as a pending source. A message that is only a URL
// becomes a url source without text.
func (s *Service) IngestText(ctx context.Context, userID int64, text, transport string) (*models.Source, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.ErrEmptyText
	}
	meta := map[string]any{}
	if transport != "" {
		meta["transport"] = transport
	}

	src := models.Source{UserID: userID, Meta: meta, Status: models.SourcePending}
	if m := urlOnlyRe.FindStringSubmatch(text); m != nil {
		src.Kind = models.SourceKindURL
		src.Label = models.Clip(m[1], 120)
		src.URL = m[1]
	} else {
		clipped := models.Clip(text, s.maxSourceChars)
		src.Kind = models.SourceKindText
		src.Label = models.Clip(clipped, 120)
		src.Text = clipped
	}

	id, err := s.repo.AddSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("noteservice: ingest text: %w", err)
	}
	return s.getSource(ctx, userID, id)
}

// IngestFile keeps a copy of an uploaded file and stores a pending source.
// Text-like files carry their extracted text; anything else is queued
// with the caption as its text.
func (s *Service) IngestFile(ctx context.Context, userID int64, name, mime, caption string, payload []byte) (*models.Source, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperr.ErrInvalidInput)
	}
	var stored string
	if s.files != nil {
		p, err := s.files.Persist(userID, name, payload)
		if err != nil {
			return nil, fmt.Errorf("noteservice: ingest file: %w", err)
		}
		stored = p
	}

	text := storage.ExtractText(name, mime, payload, s.maxSourceChars)
	if text != "" && parser.Supported(name) && parser.DetectFormat(name) != parser.FormatText {
		if doc, err := parser.Parse(name, []byte(text)); err == nil && doc.Text != "" {
			text = models.Clip(doc.Text, s.maxSourceChars)
		}
	}
	if text == "" {
		text = models.Clip(strings.TrimSpace(caption), s.maxSourceChars)
	}

	label := name
	if label == "" {
		label = "uploaded file"
	}
	id, err := s.repo.AddSource(ctx, models.Source{
		UserID:   userID,
		Kind:     models.SourceKindFile,
		Label:    models.Clip(label, 120),
		Text:     text,
		FilePath: stored,
		Meta: map[string]any{
			"file_name": name,
			"mime_type": mime,
			"file_size": len(payload),
			"caption":   caption,
			"has_text":  storage.LooksText(name, mime),
		},
		Status: models.SourcePending,
	})
	if err != nil {
		return nil, fmt.Errorf("noteservice: ingest file: %w", err)
	}
	return s.getSource(ctx, userID, id)
}

func (s *Service) getSource(ctx context.Context, userID, id int64) (*models.Source, error) {
	src, err := s.repo.GetSource(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.added(userID, src)
	return src, nil
}

// ParseSourceStatus accepts the stored names plus "done" for processed.
func ParseSourceStatus(raw string) (models.SourceStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "done" {
		return models.SourceProcessed, nil
	}
	st := models.SourceStatus(raw)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown source status %q", apperr.ErrInvalidInput, raw)
	}
	return st, nil
}

// ListSources lists the user's sources; an empty status lists all.
func (s *Service) ListSources(ctx context.Context, userID int64, status string, limit int) ([]models.Source, error) {
	var st models.SourceStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := ParseSourceStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	sources, err := s.repo.ListSources(ctx, userID, st, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(sources), nil
}

// SetSourceStatus moves a source between pending, processed and ignored.
func (s *Service) SetSourceStatus(ctx context.Context, userID, id int64, status string) error {
	st, err := ParseSourceStatus(status)
	if err != nil {
		return err
	}
	ok, err := s.repo.SetSourceStatus(ctx, userID, id, st)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("noteservice: source %d: %w", id, apperr.ErrSourceNotFound)
	}
	return nil
}

// ManualNote is a card typed in by the user.
type ManualNote struct {
	Type  models.NoteType
	Front string
	Back  string
	Cloze string
	Extra string
	Tags  []string
}

// AddNote stores a manual note together with a processed source that
// records what was typed.
func (s *Service) AddNote(ctx context.Context, userID int64, in ManualNote) (*models.Note, error) {
	f := models.CardFields{
		Type:  models.ParseNoteType(string(in.Type)),
		Front: strings.TrimSpace(in.Front),
		Back:  strings.TrimSpace(in.Back),
		Cloze: strings.TrimSpace(in.Cloze),
		Extra: strings.TrimSpace(in.Extra),
		Tags:  models.NormalizeTags(in.Tags),
	}

	src := models.Source{UserID: userID, Status: models.SourceProcessed}
	switch f.Type {
	case models.NoteCloze:
		if f.Cloze == "" {
			return nil, fmt.Errorf("%w: cloze text is required", apperr.ErrInvalidInput)
		}
		f.Front, f.Back = "", ""
		src.Kind = models.SourceKindManualCloze
		src.Label = models.Clip(f.Cloze, 120)
		src.Text = fmt.Sprintf("cloze: %s\nextra: %s", f.Cloze, f.Extra)
	default:
		if f.Front == "" || f.Back == "" {
			return nil, fmt.Errorf("%w: front and back are required", apperr.ErrInvalidInput)
		}
		f.Cloze = ""
		src.Kind = models.SourceKindManualBasic
		src.Label = models.Clip(f.Front, 120)
		src.Text = fmt.Sprintf("front: %s\nback: %s\nextra: %s", f.Front, f.Back, f.Extra)
	}

	var noteID int64
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		sourceID, err := tx.AddSource(ctx, src)
		if err != nil {
			return err
		}
		noteID, err = tx.AddNote(ctx, models.Note{
			UserID:     userID,
			CardFields: f,
			SourceID:   sourceID,
			Origin:     models.OriginManual,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("noteservice: add note: %w", err)
	}
	return s.repo.GetNote(ctx, userID, noteID)
}

// ListNotes returns every note of the user.
func (s *Service) ListNotes(ctx context.Context, userID int64) ([]models.Note, error) {
	notes, err := s.repo.ListNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(notes), nil
}

// ClearNotes deletes every note of the user and returns the count.
func (s *Service) ClearNotes(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.ClearNotes(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("notes cleared", slog.Int64("user_id", userID), slog.Int64("count", n))
	return n, nil
}

// SetDeckName stores the user's local deck name.
func (s *Service) SetDeckName(ctx context.Context, userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: deck name is empty", apperr.ErrInvalidInput)
	}
	return s.repo.SetDeckName(ctx, userID, name)
}

// Status summarises a user's collection.
type Status struct {
	Backend        string `json:"backend"`
	DeckName       string `json:"deck_name"`
	Notes          int    `json:"notes"`
	PendingSources int    `json:"pending_sources"`
}

// Status reports note and queue counters.
func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	notes, err := s.repo.CountNotes(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	pending, err := s.repo.PendingSourceCount(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Backend: s.backend, DeckName: u.DeckName, Notes: notes, PendingSources: pending}, nil
}

// nonNilSlice returns s if non-nil, or an empty slice to ensure JSON [] instead of null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

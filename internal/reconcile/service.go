package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/mochi"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// Client is the remote surface the Service needs on top of card sync.
type Client interface {
	mochi.Remote
	ListDecks(ctx context.Context) ([]mochi.Deck, error)
	GetDeck(ctx context.Context, id string) (mochi.Deck, error)
	CreateDeck(ctx context.Context, name string) (string, error)
	FindSimpleTemplateID(ctx context.Context) string
}

// ClientFactory builds a Client for one API key.
type ClientFactory func(apiKey string) Client

// Backuper writes a database snapshot.
type Backuper interface {
	Backup(ctx context.Context, dir string, userID int64, reason string) (string, error)
}

// Config holds the sync defaults.
type Config struct {
	DefaultAPIKey  string
	DefaultDeckID  string
	PageSize       int
	MaxSourceChars int
	BackupDir      string
}

// Service wraps the Engine with credentials, deck validation and backups.
type Service struct {
	repo      store.Repository
	backups   Backuper
	newClient ClientFactory
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(repo store.Repository, backups Backuper, newClient ClientFactory, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, backups: backups, newClient: newClient, cfg: cfg, logger: logger}
}

// Credentials are the effective key and deck for a user.
type Credentials struct {
	APIKey string
	DeckID string
}

// Credentials resolves the user's key and deck, falling back to config.
func (s *Service) Credentials(ctx context.Context, userID int64) (Credentials, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Credentials{}, fmt.Errorf("reconcile: credentials: %w", err)
	}
	c := Credentials{
		APIKey: firstNonEmpty(u.MochiAPIKey, s.cfg.DefaultAPIKey),
		DeckID: firstNonEmpty(u.MochiDeckID, s.cfg.DefaultDeckID),
	}
	if c.APIKey == "" {
		return c, fmt.Errorf("%w: no mochi api key", apperr.ErrMissingCredentials)
	}
	if c.DeckID == "" {
		return c, fmt.Errorf("%w: no mochi deck id", apperr.ErrMissingCredentials)
	}
	return c, nil
}

func (s *Service) validateDeck(ctx context.Context, client Client, deckID string) error {
	deck, err := client.GetDeck(ctx, deckID)
	if errors.Is(err, mochi.ErrNotFound) {
		return fmt.Errorf("%w: deck %s not found", apperr.ErrDeckUnavailable, deckID)
	}
	if err != nil {
		return fmt.Errorf("reconcile: validate deck: %w", err)
	}
	if deck.IsTrashed() {
		return fmt.Errorf("%w: deck %s is trashed", apperr.ErrDeckUnavailable, deckID)
	}
	return nil
}

// prepare resolves credentials, validates the deck and builds an Engine.
func (s *Service) prepare(ctx context.Context, userID int64) (*Engine, Credentials, error) {
	creds, err := s.Credentials(ctx, userID)
	if err != nil {
		return nil, creds, err
	}
	client := s.newClient(creds.APIKey)
	if err := s.validateDeck(ctx, client, creds.DeckID); err != nil {
		return nil, creds, err
	}
	return NewEngine(s.repo, client, s.cfg.PageSize, s.cfg.MaxSourceChars, s.logger), creds, nil
}

// Action names a full sync pass.
type Action string

const (
	ActionPush   Action = "push"
	ActionPull   Action = "pull"
	ActionBoth   Action = "both"
	ActionRepair Action = "repair"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPush, ActionPull, ActionBoth, ActionRepair:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown sync action %q", apperr.ErrInvalidInput, s)
}

// Report is the outcome of a full sync pass.
type Report struct {
	Action  Action        `json:"action"`
	DeckID  string        `json:"deck_id"`
	Backup  string        `json:"backup,omitempty"`
	Push    *PushResult   `json:"push,omitempty"`
	Pull    *PullResult   `json:"pull,omitempty"`
	Repair  *RepairResult `json:"repair,omitempty"`
	Summary string        `json:"summary"`
}

// Run executes a full pass after taking a backup. On a remote failure the
// partial counts are returned alongside the error.
func (s *Service) Run(ctx context.Context, userID int64, action Action) (Report, error) {
	rep := Report{Action: action}
	engine, creds, err := s.prepare(ctx, userID)
	if err != nil {
		return rep, err
	}
	rep.DeckID = creds.DeckID

	if s.backups != nil {
		path, err := s.backups.Backup(ctx, s.cfg.BackupDir, userID, "sync_"+string(action))
		if err != nil {
			return rep, fmt.Errorf("reconcile: backup: %w", err)
		}
		rep.Backup = path
	}

	switch action {
	case ActionPush:
		res, runErr := engine.Push(ctx, userID, creds.DeckID, nil)
		rep.Push, rep.Summary, err = &res, res.String(), runErr
	case ActionPull:
		res, runErr := engine.Pull(ctx, userID, creds.DeckID)
		rep.Pull, rep.Summary, err = &res, res.String(), runErr
	case ActionBoth:
		res, runErr := engine.Both(ctx, userID, creds.DeckID)
		rep.Push, rep.Pull, rep.Summary, err = &res.Push, &res.Pull, res.String(), runErr
	case ActionRepair:
		res, runErr := engine.Repair(ctx, userID, creds.DeckID)
		rep.Repair, rep.Summary, err = &res, res.String(), runErr
	default:
		return rep, fmt.Errorf("reconcile: unknown action %q", action)
	}

	if err != nil {
		s.logger.Error("reconcile: pass failed",
			slog.Int64("user_id", userID), slog.String("action", string(action)), slog.String("error", err.Error()))
		return rep, err
	}
	s.logger.Info("reconcile: pass complete",
		slog.Int64("user_id", userID), slog.String("action", string(action)), slog.String("summary", rep.Summary))
	return rep, nil
}

// PushNote pushes a single freshly approved note without a backup.
func (s *Service) PushNote(ctx context.Context, userID int64, note models.Note) (PushResult, error) {
	engine, creds, err := s.prepare(ctx, userID)
	if err != nil {
		return PushResult{}, err
	}
	return engine.Push(ctx, userID, creds.DeckID, []models.Note{note})
}

// Status describes the effective Mochi settings of a user.
type Status struct {
	KeyMasked   string `json:"key"`
	KeySource   string `json:"key_source"`
	DeckID      string `json:"deck_id"`
	DeckSource  string `json:"deck_source"`
	LinkedCards int    `json:"linked_cards"`
	TemplateID  string `json:"simple_template_id,omitempty"`
}

// Status reports where the key and deck come from. With a key it also looks
// up the simple template; an unreachable API leaves TemplateID empty.
func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("reconcile: status: %w", err)
	}
	links, err := s.repo.ListLinks(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("reconcile: status: %w", err)
	}
	key := firstNonEmpty(u.MochiAPIKey, s.cfg.DefaultAPIKey)
	st := Status{
		KeyMasked:   "(none)",
		KeySource:   settingSource(u.MochiAPIKey, s.cfg.DefaultAPIKey),
		DeckID:      firstNonEmpty(u.MochiDeckID, s.cfg.DefaultDeckID, "(none)"),
		DeckSource:  settingSource(u.MochiDeckID, s.cfg.DefaultDeckID),
		LinkedCards: len(links),
	}
	if key != "" {
		st.KeyMasked = models.Clip(key, 4) + "..."
		st.TemplateID = s.newClient(key).FindSimpleTemplateID(ctx)
	}
	return st, nil
}

// Decks lists the user's remote decks.
func (s *Service) Decks(ctx context.Context, userID int64) ([]mochi.Deck, error) {
	client, err := s.keyedClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	return client.ListDecks(ctx)
}

// CreateDeck creates a remote deck and selects it for the user.
func (s *Service) CreateDeck(ctx context.Context, userID int64, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: deck name is empty", apperr.ErrInvalidInput)
	}
	client, err := s.keyedClient(ctx, userID)
	if err != nil {
		return "", err
	}
	id, err := client.CreateDeck(ctx, name)
	if err != nil {
		return "", fmt.Errorf("reconcile: create deck: %w", err)
	}
	if err := s.repo.SetMochiDeckID(ctx, userID, id); err != nil {
		return id, err
	}
	return id, nil
}

// SaveSettings stores a per-user key and/or deck. Empty values are left as they are.
func (s *Service) SaveSettings(ctx context.Context, userID int64, apiKey, deckID string) error {
	if k := strings.TrimSpace(apiKey); k != "" {
		if err := s.repo.SetMochiAPIKey(ctx, userID, k); err != nil {
			return err
		}
	}
	if d := strings.TrimSpace(deckID); d != "" {
		if err := s.repo.SetMochiDeckID(ctx, userID, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) keyedClient(ctx context.Context, userID int64) (Client, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := firstNonEmpty(u.MochiAPIKey, s.cfg.DefaultAPIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: no mochi api key", apperr.ErrMissingCredentials)
	}
	return s.newClient(key), nil
}

func settingSource(user, def string) string {
	switch {
	case user != "":
		return "user"
	case def != "":
		return "config"
	}
	return "missing"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

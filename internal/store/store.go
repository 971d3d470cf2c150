package store

import (
	"context"

	"github.com/starford/ansuz/internal/models"
)

// Repository defines the content-store operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	EnsureUser(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (models.User, error)
	SetDeckName(ctx context.Context, userID int64, name string) error
	SetMochiAPIKey(ctx context.Context, userID int64, key string) error
	SetMochiDeckID(ctx context.Context, userID int64, deckID string) error

	AddSource(ctx context.Context, s models.Source) (int64, error)
	GetSource(ctx context.Context, userID, id int64) (*models.Source, error)
	SetSourceStatus(ctx context.Context, userID, id int64, status models.SourceStatus) (bool, error)
	ListSources(ctx context.Context, userID int64, status models.SourceStatus, limit int) ([]models.Source, error)
	PendingTextSources(ctx context.Context, userID int64, limit int) ([]models.Source, error)
	PendingSourceCount(ctx context.Context, userID int64) (int, error)

	AddNote(ctx context.Context, n models.Note) (int64, error)
	GetNote(ctx context.Context, userID, id int64) (*models.Note, error)
	ListNotes(ctx context.Context, userID int64) ([]models.Note, error)
	CountNotes(ctx context.Context, userID int64) (int, error)
	UpdateNoteFields(ctx context.Context, userID, id int64, f models.CardFields, origin string) error
	ClearNotes(ctx context.Context, userID int64) (int64, error)

	AddProposal(ctx context.Context, p models.Proposal) (int64, error)
	GetProposal(ctx context.Context, userID, id int64) (*models.Proposal, error)
	SetProposalHandle(ctx context.Context, userID, id, handle int64) error
	PendingProposalByHandle(ctx context.Context, userID, handle int64) (*models.Proposal, error)
	SetProposalDecision(ctx context.Context, userID, id int64, status models.ProposalStatus, noteID int64) error
	ExpirePendingForSource(ctx context.Context, userID, sourceID int64) (int64, error)
	ListProposals(ctx context.Context, userID int64, limit int) ([]models.Proposal, error)

	AddFeedback(ctx context.Context, f models.Feedback) (int64, error)
	ListFeedback(ctx context.Context, userID int64, limit int) ([]models.Feedback, error)

	ListLinks(ctx context.Context, userID int64) ([]models.SyncLink, error)
	UpsertLink(ctx context.Context, l models.SyncLink) error
	RemoveLinkByCard(ctx context.Context, userID int64, cardID string) error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)

// Package reconcile keeps local notes and remote Mochi cards in sync using
// content hashes stored on each link.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/mochi"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// PushResult counts the outcome of a push pass.
type PushResult struct {
	TotalNotes             int `json:"total_notes"`
	Created                int `json:"created"`
	AlreadyLinked          int `json:"already_linked"`
	RecreatedMissingRemote int `json:"recreated_missing_remote"`
	Skipped                int `json:"skipped"`
	LocalChangedNotPushed  int `json:"local_changed_not_pushed"`
}

func (r PushResult) String() string {
	return fmt.Sprintf("Push: created=%d, linked=%d, recreated=%d, skipped=%d, local_changed_not_pushed=%d",
		r.Created, r.AlreadyLinked, r.RecreatedMissingRemote, r.Skipped, r.LocalChangedNotPushed)
}

// PullResult counts the outcome of a pull pass.
type PullResult struct {
	RemoteCards       int `json:"remote_cards"`
	CreatedLocal      int `json:"created_local"`
	UpdatedLocal      int `json:"updated_local"`
	Unchanged         int `json:"unchanged"`
	RemovedStaleLinks int `json:"removed_stale_links"`
}

func (r PullResult) String() string {
	return fmt.Sprintf("Pull: remote_cards=%d, created_local=%d, updated_local=%d, unchanged=%d, removed_stale_links=%d",
		r.RemoteCards, r.CreatedLocal, r.UpdatedLocal, r.Unchanged, r.RemovedStaleLinks)
}

// BothResult is a push followed by a pull.
type BothResult struct {
	Push PushResult `json:"push"`
	Pull PullResult `json:"pull"`
}

func (r BothResult) String() string { return r.Push.String() + "\n" + r.Pull.String() }

// RepairResult counts the outcome of a repair pass.
type RepairResult struct {
	CheckedLinks     int `json:"checked_links"`
	Recreated        int `json:"recreated"`
	MissingLocalNote int `json:"missing_local_note"`
	FailedCreate     int `json:"failed_create"`
}

func (r RepairResult) String() string {
	return fmt.Sprintf("Repair: checked=%d, recreated=%d, missing_local_note=%d, failed_create=%d",
		r.CheckedLinks, r.Recreated, r.MissingLocalNote, r.FailedCreate)
}

// Engine runs sync passes for one remote.
type Engine struct {
	repo           store.Repository
	remote         mochi.Remote
	pageSize       int
	maxSourceChars int
	logger         *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(repo store.Repository, remote mochi.Remote, pageSize, maxSourceChars int, logger *slog.Logger) *Engine {
	if maxSourceChars <= 0 {
		maxSourceChars = 12000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, remote: remote, pageSize: pageSize, maxSourceChars: maxSourceChars, logger: logger}
}

func linkFor(userID, noteID int64, deckID, localHash string, card mochi.Card) models.SyncLink {
	return models.SyncLink{
		UserID:          userID,
		NoteID:          noteID,
		CardID:          card.ID,
		DeckID:          deckID,
		LocalHash:       localHash,
		RemoteHash:      card.Hash(),
		RemoteUpdatedAt: string(card.UpdatedAt),
	}
}

// Push sends notes to deckID. A nil notes slice pushes every local note.
// Remote content of a note edited locally after linking is left untouched.
func (e *Engine) Push(ctx context.Context, userID int64, deckID string, notes []models.Note) (PushResult, error) {
	var res PushResult
	if notes == nil {
		all, err := e.repo.ListNotes(ctx, userID)
		if err != nil {
			return res, fmt.Errorf("reconcile: push: %w", err)
		}
		notes = all
	}
	links, err := e.repo.ListLinks(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("reconcile: push: %w", err)
	}
	byNote := make(map[int64]models.SyncLink, len(links))
	for _, l := range links {
		byNote[l.NoteID] = l
	}

	res.TotalNotes = len(notes)
	for _, n := range notes {
		localHash := checksum.NoteHash(n.CardFields)

		link, linked := byNote[n.ID]
		if !linked {
			card, err := e.remote.CreateCard(ctx, mochi.NewCardInput(n.CardFields, deckID))
			if err != nil {
				return res, fmt.Errorf("reconcile: push note %d: %w", n.ID, err)
			}
			if strings.TrimSpace(card.ID) == "" {
				res.Skipped++
				continue
			}
			if err := e.repo.UpsertLink(ctx, linkFor(userID, n.ID, deckID, localHash, card)); err != nil {
				return res, fmt.Errorf("reconcile: push: %w", err)
			}
			res.Created++
			continue
		}

		remote, err := e.remote.GetCard(ctx, link.CardID)
		missing := errors.Is(err, mochi.ErrNotFound)
		if err != nil && !missing {
			return res, fmt.Errorf("reconcile: push note %d: %w", n.ID, err)
		}

		if missing || remote.DeckID != deckID {
			card, err := e.remote.CreateCard(ctx, mochi.NewCardInput(n.CardFields, deckID))
			if err != nil {
				return res, fmt.Errorf("reconcile: push note %d: %w", n.ID, err)
			}
			if err := e.repo.UpsertLink(ctx, linkFor(userID, n.ID, deckID, localHash, card)); err != nil {
				return res, fmt.Errorf("reconcile: push: %w", err)
			}
			res.RecreatedMissingRemote++
			continue
		}

		keepHash := localHash
		if link.LocalHash != "" && link.LocalHash != localHash {
			res.LocalChangedNotPushed++
			keepHash = link.LocalHash
		}
		if err := e.repo.UpsertLink(ctx, linkFor(userID, n.ID, deckID, keepHash, remote)); err != nil {
			return res, fmt.Errorf("reconcile: push: %w", err)
		}
		res.AlreadyLinked++
	}
	return res, nil
}

// Pull brings every card of deckID into the local store.
func (e *Engine) Pull(ctx context.Context, userID int64, deckID string) (PullResult, error) {
	var res PullResult
	cards, err := mochi.AllCards(ctx, e.remote, deckID, e.pageSize)
	if err != nil {
		return res, fmt.Errorf("reconcile: pull: %w", err)
	}
	links, err := e.repo.ListLinks(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("reconcile: pull: %w", err)
	}
	byCard := make(map[string]models.SyncLink, len(links))
	for _, l := range links {
		byCard[l.CardID] = l
	}

	res.RemoteCards = len(cards)
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		card.ID = strings.TrimSpace(card.ID)
		if card.ID == "" || card.DeckID != deckID {
			continue
		}
		seen[card.ID] = struct{}{}
		fields := mochi.CardFields(card)

		if link, ok := byCard[card.ID]; ok {
			linked, err := e.pullLinked(ctx, userID, deckID, link, card, fields, &res)
			if err != nil {
				return res, err
			}
			if linked {
				continue
			}
		}
		if err := e.pullNew(ctx, userID, deckID, card, fields); err != nil {
			return res, err
		}
		res.CreatedLocal++
	}

	for _, l := range links {
		if l.DeckID != deckID {
			continue
		}
		if _, ok := seen[l.CardID]; ok {
			continue
		}
		if err := e.repo.RemoveLinkByCard(ctx, userID, l.CardID); err != nil {
			return res, fmt.Errorf("reconcile: pull: %w", err)
		}
		res.RemovedStaleLinks++
	}
	return res, nil
}

// pullLinked refreshes the note behind link. It reports false when the note
// is gone; the dangling link is dropped and the card should be imported anew.
func (e *Engine) pullLinked(ctx context.Context, userID int64, deckID string, link models.SyncLink, card mochi.Card, fields models.CardFields, res *PullResult) (bool, error) {
	note, err := e.repo.GetNote(ctx, userID, link.NoteID)
	if errors.Is(err, apperr.ErrNotFound) {
		if err := e.repo.RemoveLinkByCard(ctx, userID, card.ID); err != nil {
			return false, fmt.Errorf("reconcile: pull: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reconcile: pull: %w", err)
	}

	if link.RemoteHash != card.Hash() {
		if err := e.repo.UpdateNoteFields(ctx, userID, note.ID, fields, models.OriginMochiPull); err != nil {
			return false, fmt.Errorf("reconcile: pull: %w", err)
		}
		if note, err = e.repo.GetNote(ctx, userID, note.ID); err != nil {
			return false, fmt.Errorf("reconcile: pull: %w", err)
		}
		res.UpdatedLocal++
	} else {
		res.Unchanged++
	}

	if err := e.repo.UpsertLink(ctx, linkFor(userID, note.ID, deckID, checksum.NoteHash(note.CardFields), card)); err != nil {
		return false, fmt.Errorf("reconcile: pull: %w", err)
	}
	return true, nil
}

func (e *Engine) pullNew(ctx context.Context, userID int64, deckID string, card mochi.Card, fields models.CardFields) error {
	label := strings.TrimSpace(card.Name)
	if label == "" {
		label = "mochi:" + card.ID
	}
	err := e.repo.InTx(ctx, func(tx store.Repository) error {
		sourceID, err := tx.AddSource(ctx, models.Source{
			UserID: userID,
			Kind:   models.SourceKindMochiPull,
			Label:  models.Clip(label, 120),
			Text:   models.Clip(card.Content, e.maxSourceChars),
			URL:    "mochi://card/" + card.ID,
			Meta:   map[string]any{"mochi_card_id": card.ID, "mochi_deck_id": deckID},
			Status: models.SourceProcessed,
		})
		if err != nil {
			return err
		}
		noteID, err := tx.AddNote(ctx, models.Note{
			UserID:     userID,
			CardFields: fields,
			SourceID:   sourceID,
			Origin:     models.OriginMochiPull,
		})
		if err != nil {
			return err
		}
		note, err := tx.GetNote(ctx, userID, noteID)
		if err != nil {
			return err
		}
		return tx.UpsertLink(ctx, linkFor(userID, noteID, deckID, checksum.NoteHash(note.CardFields), card))
	})
	if err != nil {
		return fmt.Errorf("reconcile: pull card %s: %w", card.ID, err)
	}
	return nil
}

// Both pushes then pulls.
func (e *Engine) Both(ctx context.Context, userID int64, deckID string) (BothResult, error) {
	var res BothResult
	push, err := e.Push(ctx, userID, deckID, nil)
	res.Push = push
	if err != nil {
		return res, err
	}
	pull, err := e.Pull(ctx, userID, deckID)
	res.Pull = pull
	return res, err
}

// Repair deletes and recreates every linked card of deckID from the local note.
func (e *Engine) Repair(ctx context.Context, userID int64, deckID string) (RepairResult, error) {
	var res RepairResult
	links, err := e.repo.ListLinks(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("reconcile: repair: %w", err)
	}
	for _, l := range links {
		if l.DeckID != deckID {
			continue
		}
		res.CheckedLinks++

		note, err := e.repo.GetNote(ctx, userID, l.NoteID)
		if errors.Is(err, apperr.ErrNotFound) {
			res.MissingLocalNote++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("reconcile: repair: %w", err)
		}

		if l.CardID != "" {
			if _, err := e.remote.DeleteCard(ctx, l.CardID); err != nil {
				return res, fmt.Errorf("reconcile: repair card %s: %w", l.CardID, err)
			}
		}
		card, err := e.remote.CreateCard(ctx, mochi.NewCardInput(note.CardFields, deckID))
		if err != nil {
			return res, fmt.Errorf("reconcile: repair note %d: %w", note.ID, err)
		}
		if strings.TrimSpace(card.ID) == "" {
			res.FailedCreate++
			continue
		}
		if err := e.repo.UpsertLink(ctx, linkFor(userID, note.ID, deckID, checksum.NoteHash(note.CardFields), card)); err != nil {
			return res, fmt.Errorf("reconcile: repair: %w", err)
		}
		res.Recreated++
	}
	return res, nil
}

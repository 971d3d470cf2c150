package reconcile

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/mochi"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

func newService(t *testing.T, cfg Config) (*Service, *store.DB, *fakeRemote, *[]string) {
	t.Helper()
	db := openStore(t)
	remote := newFakeRemote(deck)
	var keys []string
	factory := func(key string) Client {
		keys = append(keys, key)
		return remote
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = t.TempDir()
	}
	return NewService(db, db, factory, cfg, nil), db, remote, &keys
}

func TestCredentialsFallback(t *testing.T) {
	svc, db, _, _ := newService(t, Config{DefaultAPIKey: "env-key"})
	ctx := context.Background()

	_, err := svc.Credentials(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrMissingCredentials)

	require.NoError(t, db.SetMochiDeckID(ctx, user, deck))
	c, err := svc.Credentials(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Credentials{APIKey: "env-key", DeckID: deck}, c)

	require.NoError(t, svc.SaveSettings(ctx, user, "user-key", ""))
	c, err = svc.Credentials(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "user-key", c.APIKey)
	assert.Equal(t, deck, c.DeckID)
}

func TestRunRejectsUnavailableDeck(t *testing.T) {
	svc, _, remote, _ := newService(t, Config{DefaultAPIKey: "k", DefaultDeckID: "missing"})
	_, err := svc.Run(context.Background(), user, ActionPush)
	assert.ErrorIs(t, err, apperr.ErrDeckUnavailable)

	remote.decks["trash"] = mochi.Deck{ID: "trash", Trashed: true}
	svc.cfg.DefaultDeckID = "trash"
	_, err = svc.Run(context.Background(), user, ActionPull)
	assert.ErrorIs(t, err, apperr.ErrDeckUnavailable)
}

func TestRunTakesBackupAndSummarizes(t *testing.T) {
	svc, db, _, keys := newService(t, Config{DefaultAPIKey: "k", DefaultDeckID: deck})
	ctx := context.Background()
	_, err := db.AddNote(ctx, models.Note{UserID: user, CardFields: models.CardFields{Type: models.NoteBasic, Front: "Q", Back: "A"}})
	require.NoError(t, err)

	rep, err := svc.Run(ctx, user, ActionBoth)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, *keys)
	require.NotNil(t, rep.Push)
	require.NotNil(t, rep.Pull)
	assert.Equal(t, 1, rep.Push.Created)
	assert.Equal(t, 1, rep.Pull.Unchanged)
	assert.Contains(t, rep.Summary, "Push: created=1")
	assert.Contains(t, rep.Summary, "Pull: remote_cards=1")

	_, err = os.Stat(rep.Backup)
	assert.NoError(t, err)
	assert.Contains(t, rep.Backup, "sync_both")

	rep, err = svc.Run(ctx, user, ActionRepair)
	require.NoError(t, err)
	require.NotNil(t, rep.Repair)
	assert.Equal(t, 1, rep.Repair.Recreated)
}

func TestPushNote(t *testing.T) {
	svc, db, remote, _ := newService(t, Config{DefaultAPIKey: "k", DefaultDeckID: deck})
	ctx := context.Background()
	a, err := db.AddNote(ctx, models.Note{UserID: user, CardFields: models.CardFields{Type: models.NoteBasic, Front: "Q1", Back: "A"}})
	require.NoError(t, err)
	_, err = db.AddNote(ctx, models.Note{UserID: user, CardFields: models.CardFields{Type: models.NoteBasic, Front: "Q2", Back: "A"}})
	require.NoError(t, err)

	n, err := db.GetNote(ctx, user, a)
	require.NoError(t, err)
	res, err := svc.PushNote(ctx, user, *n)
	require.NoError(t, err)
	assert.Equal(t, PushResult{TotalNotes: 1, Created: 1}, res)
	assert.Len(t, remote.cards, 1)
}

func TestStatusAndDecks(t *testing.T) {
	svc, db, remote, _ := newService(t, Config{DefaultDeckID: deck})
	ctx := context.Background()

	st, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "(none)", st.KeyMasked)
	assert.Equal(t, "missing", st.KeySource)
	assert.Equal(t, "config", st.DeckSource)
	assert.Empty(t, st.TemplateID)

	_, err = svc.Decks(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrMissingCredentials)

	require.NoError(t, db.SetMochiAPIKey(ctx, user, "abcdefgh"))
	remote.template = "tpl-1"
	st, err = svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "abcd...", st.KeyMasked)
	assert.Equal(t, "user", st.KeySource)
	assert.Equal(t, "tpl-1", st.TemplateID)

	id, err := svc.CreateDeck(ctx, user, "Imports")
	require.NoError(t, err)
	assert.Contains(t, remote.decks, id)
	u, err := db.GetUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, u.MochiDeckID)

	decks, err := svc.Decks(ctx, user)
	require.NoError(t, err)
	assert.Len(t, decks, 2)

	_, err = svc.CreateDeck(ctx, user, "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Pull ")
	require.NoError(t, err)
	assert.Equal(t, ActionPull, a)
	_, err = ParseAction("sideways")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

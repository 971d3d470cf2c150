package store

import (
	"context"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func TestUpsertLinkKeepsOneToOne(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(db.UpsertLink(ctx, models.SyncLink{UserID: 1, NoteID: 1, CardID: "a", DeckID: "d", LocalHash: "h1"}))
	must(db.UpsertLink(ctx, models.SyncLink{UserID: 1, NoteID: 2, CardID: "b", DeckID: "d"}))

	// Note 1 moves to card b: both the old row of note 1 and the old owner
	// of card b are replaced.
	must(db.UpsertLink(ctx, models.SyncLink{UserID: 1, NoteID: 1, CardID: "b", DeckID: "d", LocalHash: "h2"}))

	links, err := db.ListLinks(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v, want exactly one", links)
	}
	if links[0].NoteID != 1 || links[0].CardID != "b" || links[0].LocalHash != "h2" {
		t.Errorf("link = %+v", links[0])
	}

	must(db.RemoveLinkByCard(ctx, 1, "b"))
	links, _ = db.ListLinks(ctx, 1)
	if len(links) != 0 {
		t.Errorf("links after remove = %d", len(links))
	}
}

func TestUpsertLinkInsideTx(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(r Repository) error {
		return r.UpsertLink(ctx, models.SyncLink{UserID: 1, NoteID: 1, CardID: "a"})
	})
	if err != nil {
		t.Fatal(err)
	}
	links, _ := db.ListLinks(ctx, 1)
	if len(links) != 1 {
		t.Errorf("links = %d, want 1", len(links))
	}
}

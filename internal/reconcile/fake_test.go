package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/starford/ansuz/internal/mochi"
)

// fakeRemote is an in-memory card service.
type fakeRemote struct {
	mu      sync.Mutex
	cards   map[string]mochi.Card
	decks   map[string]mochi.Deck
	nextID  int
	created int
	deleted []string
	blankID bool
	failGet error
	// template is returned by FindSimpleTemplateID.
	template string
}

func newFakeRemote(deckIDs ...string) *fakeRemote {
	f := &fakeRemote{cards: map[string]mochi.Card{}, decks: map[string]mochi.Deck{}}
	for _, id := range deckIDs {
		f.decks[id] = mochi.Deck{ID: id, Name: "deck " + id}
	}
	return f
}

func (f *fakeRemote) put(c mochi.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[c.ID] = c
}

func (f *fakeRemote) CreateCard(_ context.Context, in mochi.CardInput) (mochi.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	if f.blankID {
		return mochi.Card{}, nil
	}
	f.nextID++
	c := mochi.Card{
		ID:         fmt.Sprintf("card-%d", f.nextID),
		Content:    in.Content,
		DeckID:     in.DeckID,
		Tags:       mochi.TagList(in.ManualTags),
		ManualTags: mochi.TagList(in.ManualTags),
		UpdatedAt:  mochi.Timestamp(fmt.Sprintf("2024-01-%02d", f.nextID)),
	}
	f.cards[c.ID] = c
	return c, nil
}

func (f *fakeRemote) GetCard(_ context.Context, id string) (mochi.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return mochi.Card{}, f.failGet
	}
	c, ok := f.cards[id]
	if !ok {
		return mochi.Card{}, mochi.ErrNotFound
	}
	return c, nil
}

func (f *fakeRemote) DeleteCard(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if _, ok := f.cards[id]; !ok {
		return false, nil
	}
	delete(f.cards, id)
	return true, nil
}

// ListCards pages by sorted id, two cards at a time.
func (f *fakeRemote) ListCards(_ context.Context, deckID string, _ int, bookmark string) (mochi.Page[mochi.Card], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, c := range f.cards {
		if c.DeckID == deckID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	start := 0
	if bookmark != "" {
		for i, id := range ids {
			if id == bookmark {
				start = i
				break
			}
		}
	}
	end := min(start+2, len(ids))
	page := mochi.Page[mochi.Card]{}
	for _, id := range ids[start:end] {
		page.Docs = append(page.Docs, f.cards[id])
	}
	if end < len(ids) {
		next := ids[end]
		page.Bookmark = &next
	}
	return page, nil
}

func (f *fakeRemote) ListDecks(context.Context) ([]mochi.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mochi.Deck
	for _, d := range f.decks {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeRemote) GetDeck(_ context.Context, id string) (mochi.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decks[id]
	if !ok {
		return mochi.Deck{}, mochi.ErrNotFound
	}
	return d, nil
}

func (f *fakeRemote) CreateDeck(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("deck-%d", len(f.decks)+1)
	f.decks[id] = mochi.Deck{ID: id, Name: name}
	return id, nil
}

func (f *fakeRemote) FindSimpleTemplateID(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.template
}

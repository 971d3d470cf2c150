package mochi

import (
	"context"
	"strings"
)

// CardLister lists one page of cards.
type CardLister interface {
	ListCards(ctx context.Context, deckID string, limit int, bookmark string) (Page[Card], error)
}

const (
	DefaultPageSize = 100
	MaxPageSize     = 200
)

// AllCards walks every page of a deck. It stops on a terminal bookmark or
// when the server repeats one.
func AllCards(ctx context.Context, lister CardLister, deckID string, pageSize int) ([]Card, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = max(1, min(pageSize, MaxPageSize))

	var (
		all      []Card
		bookmark string
		seen     = make(map[string]struct{})
	)
	for {
		page, err := lister.ListCards(ctx, deckID, pageSize, bookmark)
		if err != nil {
			return all, err
		}
		all = append(all, page.Docs...)

		next := ""
		if page.Bookmark != nil {
			next = *page.Bookmark
		}
		if terminalBookmark(next) {
			return all, nil
		}
		if _, dup := seen[next]; dup {
			return all, nil
		}
		seen[next] = struct{}{}
		bookmark = next
	}
}

func terminalBookmark(b string) bool {
	switch strings.ToLower(strings.TrimSpace(b)) {
	case "", "nil", "null", "none":
		return true
	}
	return false
}

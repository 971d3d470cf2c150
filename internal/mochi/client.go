// Package mochi is a client for the Mochi cards REST API and the mapping
// between local notes and remote card content.
package mochi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the remote answers 404.
var ErrNotFound = errors.New("mochi: not found")

// APIError is any other non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mochi: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Remote is the card-service surface the sync engine depends on.
type Remote interface {
	CreateCard(ctx context.Context, in CardInput) (Card, error)
	GetCard(ctx context.Context, id string) (Card, error)
	DeleteCard(ctx context.Context, id string) (bool, error)
	ListCards(ctx context.Context, deckID string, limit int, bookmark string) (Page[Card], error)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	Retries       int
	RetrySleep    time.Duration
	RatePerSecond float64
	Transport     http.RoundTripper
	Logger        *slog.Logger
}

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://app.mochi.cards/api"

// Client talks to the Mochi API with HTTP Basic auth (key as username).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

var _ Remote = (*Client)(nil)

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetrySleep <= 0 {
		opts.RetrySleep = 600 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.RatePerSecond > 0 {
		base = &limitTransport{next: base, limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)}
	}
	rt := &retryTransport{
		next:    base,
		retries: opts.Retries,
		sleep:   opts.RetrySleep,
		timeout: opts.Timeout,
		wait:    sleepCtx,
		logger:  opts.Logger,
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Transport: rt},
		logger:  opts.Logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("mochi: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, fmt.Errorf("mochi: build request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("mochi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("mochi: read %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("mochi: decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// CreateCard creates a card and returns the stored representation.
func (c *Client) CreateCard(ctx context.Context, in CardInput) (Card, error) {
	if in.ManualTags == nil {
		in.ManualTags = []string{}
	}
	var card Card
	_, err := c.do(ctx, http.MethodPost, "/cards/", nil, in, &card)
	return card, err
}

// GetCard fetches a card. A missing card yields ErrNotFound.
func (c *Client) GetCard(ctx context.Context, id string) (Card, error) {
	var card Card
	_, err := c.do(ctx, http.MethodGet, "/cards/"+url.PathEscape(id), nil, nil, &card)
	return card, err
}

// DeleteCard deletes a card. A card that is already gone reports false
// without an error.
func (c *Client) DeleteCard(ctx context.Context, id string) (bool, error) {
	_, err := c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(id), nil, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListCards fetches one page of a deck.
func (c *Client) ListCards(ctx context.Context, deckID string, limit int, bookmark string) (Page[Card], error) {
	q := url.Values{}
	q.Set("deck-id", deckID)
	q.Set("limit", strconv.Itoa(limit))
	if bookmark != "" {
		q.Set("bookmark", bookmark)
	}
	var page Page[Card]
	_, err := c.do(ctx, http.MethodGet, "/cards/", q, nil, &page)
	return page, err
}

// ListDecks returns the first page of decks.
func (c *Client) ListDecks(ctx context.Context) ([]Deck, error) {
	var page Page[Deck]
	if _, err := c.do(ctx, http.MethodGet, "/decks/", nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Docs, nil
}

// GetDeck finds a deck by id in the deck listing.
func (c *Client) GetDeck(ctx context.Context, id string) (Deck, error) {
	if id == "" {
		return Deck{}, ErrNotFound
	}
	decks, err := c.ListDecks(ctx)
	if err != nil {
		return Deck{}, err
	}
	for _, d := range decks {
		if d.ID == id {
			return d, nil
		}
	}
	return Deck{}, ErrNotFound
}

// CreateDeck creates a deck and returns its id.
func (c *Client) CreateDeck(ctx context.Context, name string) (string, error) {
	var d Deck
	if _, err := c.do(ctx, http.MethodPost, "/decks/", nil, map[string]string{"name": name}, &d); err != nil {
		return "", err
	}
	if d.ID == "" {
		return "", errors.New("mochi: create deck: response carried no id")
	}
	return d.ID, nil
}

// ListTemplates returns the first page of templates.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var page Page[Template]
	if _, err := c.do(ctx, http.MethodGet, "/templates/", nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Docs, nil
}

var simpleTemplateNames = map[string]struct{}{"Simple flashcard": {}, "Basic Flashcard": {}}

// FindSimpleTemplateID returns the id of the built-in simple template, or ""
// when none is listed or the listing fails.
func (c *Client) FindSimpleTemplateID(ctx context.Context) string {
	templates, err := c.ListTemplates(ctx)
	if err != nil {
		c.logger.Warn("mochi: list templates", slog.String("error", err.Error()))
		return ""
	}
	for _, t := range templates {
		if _, ok := simpleTemplateNames[t.Name]; ok {
			return t.ID
		}
	}
	return ""
}

// Package sse implements a Server-Sent Events broker. It is the outbound
// channel for proposal messages and sync notifications.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/models"
)

// ErrClosed is returned by Deliver once the broker has been stopped.
var ErrClosed = errors.New("sse: broker closed")

// Event types.
const (
	EventProposal     = "proposal.created"
	EventSourceAdded  = "source.created"
	EventQueueUpdated = "queue.updated"
	EventSync         = "sync.completed"
)

// Event represents an SSE event to broadcast. UserID 0 reaches every client.
type Event struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	Data   any    `json:"data"`
}

// ProposalMessage is the payload of a proposal.created event.
type ProposalMessage struct {
	Handle   int64           `json:"handle"`
	Message  string          `json:"message"`
	Proposal models.Proposal `json:"proposal"`
}

type sourceEventReq struct {
	userID   int64
	sourceID int64
	kind     string
}

type subscription struct {
	ch     chan []byte
	userID int64
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-user queue throttle timestamps). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	queueMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	sourceEventCh chan sourceEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given queue throttle interval.
func NewBroker(queueThrottle time.Duration) *Broker {
	if queueThrottle <= 0 {
		queueThrottle = 2 * time.Second
	}

	b := &Broker{
		queueMin:      queueThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		sourceEventCh: make(chan sourceEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]int64)
	lastQueue := make(map[int64]time.Time)

	broadcast := func(event Event) {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload))

		for ch, userID := range clients {
			if userID != 0 && event.UserID != 0 && userID != event.UserID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.userID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.sourceEventCh:
			broadcast(Event{
				Type:   EventSourceAdded,
				UserID: req.userID,
				Data:   map[string]any{"source_id": req.sourceID, "kind": req.kind},
			})

			now := time.Now()
			if now.Sub(lastQueue[req.userID]) >= b.queueMin {
				lastQueue[req.userID] = now
				broadcast(Event{Type: EventQueueUpdated, UserID: req.userID, Data: map[string]any{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client for userID (0 for all users) and returns its channel.
func (b *Broker) Subscribe(userID int64) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, userID: userID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSourceEvent announces a new source and a throttled queue.updated event.
func (b *Broker) PublishSourceEvent(userID, sourceID int64, kind string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.sourceEventCh <- sourceEventReq{userID: userID, sourceID: sourceID, kind: kind}:
	case <-b.stopped:
	}
}

// PublishSync announces a finished sync run.
func (b *Broker) PublishSync(userID int64, report any) {
	b.Publish(Event{Type: EventSync, UserID: userID, Data: report})
}

// Deliver posts a rendered proposal to the user's stream. The returned handle
// is the proposal id; reactions and replies refer to it.
func (b *Broker) Deliver(ctx context.Context, userID int64, p models.Proposal, message string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.closed.Load() {
		return 0, ErrClosed
	}
	event := Event{
		ID:     uuid.NewString(),
		Type:   EventProposal,
		UserID: userID,
		Data:   ProposalMessage{Handle: p.ID, Message: message, Proposal: p},
	}
	select {
	case b.publishCh <- event:
		return p.ID, nil
	case <-b.stopped:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ServeHTTP is the SSE endpoint handler. Under /users/{userID}/events only
// that user's events are streamed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var userID int64
	if raw := chi.URLParam(r, "userID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		userID = id
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(userID)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// Package sse implements a Server-Sent Events broker that pushes notebook
// tree and artifact changes to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/studyvault/internal/pathstore"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Change kinds accepted by PublishChange.
const (
	KindGroupCreated    = "group.created"
	KindNotebookCreated = "notebook.created"
	KindArtifactUpdated = "artifact.updated"
	KindTreeUpdated     = "tree.updated"
	KindStoreReset      = "store.reset"

	// KindLibraryUpdated is the throttled summary sent after changes.
	KindLibraryUpdated = "library.updated"
)

var changeKinds = map[string]struct{}{
	KindGroupCreated:    {},
	KindNotebookCreated: {},
	KindArtifactUpdated: {},
	KindTreeUpdated:     {},
	KindStoreReset:      {},
}

// ChangeData is the payload of a change event.
type ChangeData struct {
	Path string `json:"path"`
}

// subscriber is one connected client. An empty scope receives everything;
// otherwise only changes whose path starts with scope are delivered.
type subscriber struct {
	ch    chan []byte
	scope string
}

func (s subscriber) wants(path string) bool {
	return s.scope == "" || strings.HasPrefix(path, s.scope)
}

// message is an event plus the path used for scope filtering. Messages
// without a path go to every subscriber.
type message struct {
	event Event
	path  string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the subscriber set, the event sequence and the
// summary throttle; public methods talk to it over channels.
type Broker struct {
	summaryMin time.Duration
	heartbeat  time.Duration

	subscribeCh   chan subscriber
	unsubscribeCh chan chan []byte
	publishCh     chan message
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker; library.updated is sent at most once
// per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		summaryMin:    throttle,
		heartbeat:     15 * time.Second,
		subscribeCh:   make(chan subscriber),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan message, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscriber)
	var seq uint64
	var lastSummary time.Time

	send := func(m message) {
		payload, err := json.Marshal(m.event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, m.event.Type, payload))

		for ch, sub := range clients {
			if m.path != "" && !sub.wants(m.path) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall every other subscriber.
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
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case m := <-b.publishCh:
			send(m)
			if _, isChange := changeKinds[m.event.Type]; !isChange {
				continue
			}
			if now := time.Now(); now.Sub(lastSummary) >= b.summaryMin {
				lastSummary = now
				send(message{event: Event{Type: KindLibraryUpdated, Data: struct{}{}}})
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

// Subscribe adds a client interested in paths under scope ("" for all) and
// returns its channel. The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe(scope string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscriber{ch: ch, scope: scope}:
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

// Publish sends an event to every client regardless of scope.
func (b *Broker) Publish(event Event) {
	b.enqueue(message{event: event})
}

// PublishChange publishes a tree or artifact change to the clients whose
// scope covers path, followed by a throttled library.updated. Unknown kinds
// are dropped. A store reset reaches every client.
func (b *Broker) PublishChange(kind, path string) {
	if _, ok := changeKinds[kind]; !ok {
		return
	}
	m := message{event: Event{Type: kind, Data: ChangeData{Path: path}}, path: path}
	if kind == KindStoreReset {
		m.path = ""
	}
	b.enqueue(m)
}

func (b *Broker) enqueue(m message) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- m:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// path query parameter is a group path and limits change events to that
// subtree.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	scope := r.URL.Query().Get("path")
	if scope != "" && !pathstore.IsGroupPath(scope) {
		http.Error(w, "path must be a group path", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(scope)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

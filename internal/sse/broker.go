// Package sse streams contact book change events to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	clientBuffer     = 64
	defaultHistory   = 64
	defaultHeartbeat = 25 * time.Second
)

// Event is one change notification. An empty ID is filled with a random
// UUID so clients can resume with Last-Event-ID.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// record is an encoded event kept for replay.
type record struct {
	id   string
	kind string
	raw  []byte
}

type subscription struct {
	ch    chan []byte
	kinds map[string]struct{}
	after string
}

func (s subscription) wants(kind string) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Option configures a Broker.
type Option func(*Broker)

// WithHistory sets how many recent events are kept for clients that
// reconnect with Last-Event-ID. Zero disables replay.
func WithHistory(n int) Option {
	return func(b *Broker) { b.history = max(n, 0) }
}

// WithHeartbeat sets the keep-alive comment interval of ServeHTTP. Zero
// disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// Broker fans events out to subscribers.
//
// A single event loop owns the subscriber set and the replay history; the
// public methods talk to it over channels.
type Broker struct {
	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	history   int
	heartbeat time.Duration

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its event loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		history:       defaultHistory,
		heartbeat:     defaultHeartbeat,
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload)), nil
}

// offer hands raw to ch without blocking the loop. Slow clients lose events.
func offer(ch chan []byte, raw []byte) {
	select {
	case ch <- raw:
	default:
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscription)
	var recent []record

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub
			if sub.after == "" {
				continue
			}
			for i, r := range recent {
				if r.id != sub.after {
					continue
				}
				for _, missed := range recent[i+1:] {
					if sub.wants(missed.kind) {
						offer(sub.ch, missed.raw)
					}
				}
				break
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			raw, err := encode(event)
			if err != nil {
				continue
			}
			if b.history > 0 {
				recent = append(recent, record{id: event.ID, kind: event.Type, raw: raw})
				if len(recent) > b.history {
					recent = recent[len(recent)-b.history:]
				}
			}
			for ch, sub := range clients {
				if sub.wants(event.Type) {
					offer(ch, raw)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client for the given event kinds, or all kinds when
// none are given.
func (b *Broker) Subscribe(kinds ...string) chan []byte {
	return b.Resume("", kinds...)
}

// Resume is Subscribe for a reconnecting client: events published after
// lastEventID that are still in the history are delivered first. An unknown
// id replays nothing.
func (b *Broker) Resume(lastEventID string, kinds ...string) chan []byte {
	sub := subscription{ch: make(chan []byte, clientBuffer), after: lastEventID}
	for _, k := range kinds {
		if k = strings.TrimSpace(k); k != "" {
			if sub.kinds == nil {
				sub.kinds = make(map[string]struct{})
			}
			sub.kinds[k] = struct{}{}
		}
	}
	if b.closed.Load() {
		close(sub.ch)
		return sub.ch
	}

	select {
	case b.subscribeCh <- sub:
	case <-b.stopped:
		close(sub.ch)
	}
	return sub.ch
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

// Publish queues an event for every interested client.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes a contact book change of the given kind.
func (b *Broker) PublishChange(kind string, data any) {
	b.Publish(Event{Type: kind, Data: data})
}

// ServeHTTP streams events (GET /events). The optional kinds query parameter
// is a comma-separated filter; Last-Event-ID resumes from the history.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var kinds []string
	if q := r.URL.Query().Get("kinds"); q != "" {
		kinds = strings.Split(q, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Resume(r.Header.Get("Last-Event-ID"), kinds...)
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
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

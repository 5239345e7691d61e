// Package sse implements a Server-Sent Events broker for live work and
// editor history updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeWorkCreated    = "work.created"
	TypeWorkUpdated    = "work.updated"
	TypeWorkDeleted    = "work.deleted"
	TypeWorkSaved      = "work.saved"
	TypeWorkPublished  = "work.published"
	TypeWorksUpdated   = "works.updated"
	TypeHistoryChanged = "history.changed"
)

// Event represents an SSE event to broadcast. A non-empty WorkID scopes
// the event to that work; subscribers filtering on another work skip it.
type Event struct {
	Type   string `json:"type"`
	WorkID string `json:"-"`
	Data   any    `json:"data"`
}

type workEventReq struct {
	kind string
	id   string
}

type subscription struct {
	ch     chan []byte
	workID string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set and the list throttle
// timestamp. Public methods talk to the loop through channels.
type Broker struct {
	listMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	workEventCh   chan workEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. listThrottle bounds how often the
// works.updated list refresh is sent.
func NewBroker(listThrottle time.Duration) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}

	b := &Broker{
		listMin:       listThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		workEventCh:   make(chan workEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastList time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, filter := range clients {
			if filter != "" && event.WorkID != "" && filter != event.WorkID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
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
			clients[sub.ch] = sub.workID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.workEventCh:
			data := map[string]string{"id": req.id}
			broadcast(Event{Type: "work." + req.kind, WorkID: req.id, Data: data})

			now := time.Now()
			if now.Sub(lastList) >= b.listMin {
				lastList = now
				broadcast(Event{Type: TypeWorksUpdated, Data: map[string]string{}})
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

// Subscribe adds a client receiving every event and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeWork("")
}

// SubscribeWork adds a client that receives global events plus the
// events of workID only. An empty workID receives everything.
func (b *Broker) SubscribeWork(workID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, workID: workID}:
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

// Publish sends an event to all matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishWorkEvent publishes work.<kind> for a work document change and a
// throttled works.updated list refresh. kind is created, updated, deleted,
// saved or published.
func (b *Broker) PublishWorkEvent(kind, workID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.workEventCh <- workEventReq{kind: kind, id: workID}:
	case <-b.stopped:
	}
}

// PublishHistory publishes a history.changed event for one work. data is
// typically the editor change summary.
func (b *Broker) PublishHistory(workID string, data any) {
	b.Publish(Event{Type: TypeHistoryChanged, WorkID: workID, Data: data})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// "work" query parameter narrows work-scoped events to one work.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeWork(r.URL.Query().Get("work"))
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

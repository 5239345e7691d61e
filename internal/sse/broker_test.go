package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// drain collects every message already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeWorkSaved, Data: map[string]string{"id": "w1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: work.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"w1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishWorkEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishWorkEvent("created", "a")
	b.PublishWorkEvent("updated", "b")

	time.Sleep(50 * time.Millisecond)
	listCount, workCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: works.updated") {
			listCount++
		} else {
			workCount++
		}
	}

	if workCount != 2 {
		t.Errorf("work events = %d, want 2", workCount)
	}
	if listCount != 1 {
		t.Errorf("list events = %d, want 1 (throttled)", listCount)
	}
}

func TestSubscribeWork_FiltersOtherWorks(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	mine := b.SubscribeWork("w1")
	defer b.Unsubscribe(mine)
	all := b.Subscribe()
	defer b.Unsubscribe(all)

	b.PublishHistory("w1", map[string]int{"historyIndex": -1})
	b.PublishHistory("w2", map[string]int{"historyIndex": 0})
	b.Publish(Event{Type: TypeWorksUpdated, Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	got := drain(mine)
	if len(got) != 2 {
		t.Fatalf("filtered client got %d events, want 2: %q", len(got), got)
	}
	if !strings.Contains(got[0], "event: history.changed") || !strings.Contains(got[1], "works.updated") {
		t.Errorf("unexpected events: %q", got)
	}
	if n := len(drain(all)); n != 3 {
		t.Errorf("unfiltered client got %d events, want 3", n)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?work=w1", nil)
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishHistory("w2", map[string]string{"op": "undo"})
	b.PublishHistory("w1", map[string]string{"op": "redo"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.String()
	if !strings.Contains(body, `"op":"redo"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"op":"undo"`) {
		t.Errorf("handler leaked another work's event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeWorkUpdated})
	b.PublishWorkEvent("updated", "x")
	b.PublishHistory("x", nil)
}

// syncRecorder guards the recorder body, which the handler goroutine
// writes while the test reads it.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

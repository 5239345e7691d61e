// Package testutil provides shared test helpers for setting up works
// directories and databases.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/pagecraft/internal/index"
	"github.com/starford/pagecraft/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pagecraft-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorks creates a temporary works directory with a storage.Provider.
func TestWorks(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Event is one notification captured by Recorder.
type Event struct {
	Kind   string
	WorkID string
	Data   any
}

// Recorder is a notifier that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// PublishWorkEvent records a work event.
func (r *Recorder) PublishWorkEvent(kind, workID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, WorkID: workID})
}

// PublishHistory records a history event under the kind "history".
func (r *Recorder) PublishHistory(workID string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "history", WorkID: workID, Data: data})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/pagecraft/internal/storage"
)

// watcherTestEnv sets up a works dir, storage and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *storage.FS, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, root string, store storage.Provider, db *DB, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, root, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewWorkIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	var mu sync.Mutex
	var events []string
	startWatch(t, root, store, db, func(kind, id string) {
		mu.Lock()
		events = append(events, kind+":"+id)
		mu.Unlock()
	})

	_ = os.WriteFile(filepath.Join(root, "new.json"), []byte(`{"id":"new","title":"New"}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new")
		return cs != ""
	}, "new work not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new" {
				return true
			}
		}
		return false
	}, "expected created:new callback")
}

func TestWatcher_AtomicWriteIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatch(t, root, store, db, nil)

	if err := store.Write("atomic", []byte(`{"id":"atomic","title":"Renamed In"}`)); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		w, err := db.GetWork("atomic")
		return err == nil && w.Title == "Renamed In"
	}, "atomic write not indexed")
}

func TestWatcher_IgnoresNonWorkFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatch(t, root, store, db, nil)

	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644)
	_ = store.WriteAsset("logo.png", []byte("png"))
	time.Sleep(300 * time.Millisecond)

	all, _ := db.AllChecksums()
	if len(all) != 0 {
		t.Errorf("unexpected index entries: %v", all)
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("del", []byte(`{"id":"del"}`))
	_ = Sync(db, store, quietLogger())

	if cs, _ := db.GetChecksum("del"); cs == "" {
		t.Fatal("precondition: work should be indexed")
	}

	startWatch(t, root, store, db, nil)
	_ = os.Remove(filepath.Join(root, "del.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del")
		return cs == ""
	}, "deleted work still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = store.Write("old", []byte(`{"id":"old","title":"Rename"}`))
	_ = Sync(db, store, quietLogger())

	startWatch(t, root, store, db, nil)
	_ = os.Rename(filepath.Join(root, "old.json"), filepath.Join(root, "renamed.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old")
		newCS, _ := db.GetChecksum("renamed")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old id should be removed and new id indexed")
}

package history

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestSQLStore(t *testing.T, maxEntries int) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(filepath.Join(t.TempDir(), "history.db"), maxEntries)
	if err != nil {
		t.Fatalf("open sql store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLAppendAndEntries(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t, 0)
	for i := 0; i < 3; i++ {
		if err := store.Append(entryRequest(fmt.Sprintf("req-%d", i)), entryResponse(200)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := store.Entries(0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Request.Name != "req-2" {
		t.Fatalf("entries not newest first: %s", entries[0].Request.Name)
	}

	limited, err := store.Entries(1)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestSQLCapEvictsOldest(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t, 5)
	for i := 0; i < 7; i++ {
		if err := store.Append(entryRequest(fmt.Sprintf("req-%d", i)), entryResponse(200)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := store.Entries(0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].Request.Name != "req-6" || entries[4].Request.Name != "req-2" {
		t.Fatalf("unexpected window %s .. %s", entries[0].Request.Name, entries[4].Request.Name)
	}
}

func TestSQLDeleteAndClear(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t, 0)
	if err := store.Append(entryRequest("a"), entryResponse(200)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(entryRequest("b"), entryResponse(200)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, _ := store.Entries(0)
	removed, err := store.Delete(entries[0].Timestamp)
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if removed, _ := store.Delete(entries[0].Timestamp); removed {
		t.Fatalf("second delete must report false")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, _ = store.Entries(0)
	if len(entries) != 0 {
		t.Fatalf("expected empty store after clear, got %d", len(entries))
	}
}

func TestSQLMergeAndReplace(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t, 0)
	if err := store.Replace([]Entry{
		{Request: entryRequest("one"), Response: entryResponse(200), Timestamp: 1},
		{Request: entryRequest("two"), Response: entryResponse(200), Timestamp: 2},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if err := store.Merge([]Entry{
		{Request: entryRequest("two-imported"), Response: entryResponse(201), Timestamp: 2},
		{Request: entryRequest("three"), Response: entryResponse(200), Timestamp: 3},
	}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	entries, err := store.Entries(0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Request.Name != "two-imported" {
		t.Fatalf("imported entry must win the timestamp conflict, got %s", entries[1].Request.Name)
	}
}

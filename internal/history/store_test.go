package history

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dev-hans-programmer/postman-clone/internal/model"
)

func entryRequest(name string) *model.Request {
	req := model.NewRequest()
	req.Name = name
	req.URL = "https://example.com/" + name
	return req
}

func entryResponse(code int) *model.Response {
	resp := model.NewResponse()
	resp.StatusCode = code
	return resp
}

func newTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "history.json"), maxEntries)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

func TestAppendNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 0)
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
	if entries[0].Request.Name != "req-2" || entries[2].Request.Name != "req-0" {
		t.Fatalf("entries not newest first: %s .. %s", entries[0].Request.Name, entries[2].Request.Name)
	}
}

func TestCapEvictsOldest(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1000)
	for i := 0; i <= 1000; i++ {
		if err := store.Append(entryRequest(fmt.Sprintf("req-%d", i)), entryResponse(200)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	entries, err := store.Entries(0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1000 {
		t.Fatalf("expected exactly 1000 entries, got %d", len(entries))
	}
	if entries[0].Request.Name != "req-1000" {
		t.Fatalf("most recent entry missing, head is %s", entries[0].Request.Name)
	}
	for _, entry := range entries {
		if entry.Request.Name == "req-0" {
			t.Fatalf("oldest entry should have been evicted")
		}
	}
}

func TestEntriesLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 0)
	for i := 0; i < 5; i++ {
		if err := store.Append(entryRequest(fmt.Sprintf("req-%d", i)), entryResponse(200)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := store.Entries(2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Request.Name != "req-4" {
		t.Fatalf("unexpected limited entries %#v", entries)
	}
}

func TestDeleteByTimestamp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 0)
	if err := store.Append(entryRequest("keep"), entryResponse(200)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(entryRequest("drop"), entryResponse(500)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, _ := store.Entries(0)
	removed, err := store.Delete(entries[0].Timestamp)
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	remaining, _ := store.Entries(0)
	if len(remaining) != 1 || remaining[0].Request.Name != "keep" {
		t.Fatalf("unexpected remaining entries %#v", remaining)
	}
	if removed, _ := store.Delete(12345.0); removed {
		t.Fatalf("deleting an unknown timestamp must report false")
	}
}

func TestMergeDeduplicatesByTimestamp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 0)
	if err := store.Append(entryRequest("existing"), entryResponse(200)); err != nil {
		t.Fatalf("append: %v", err)
	}
	existing, _ := store.Entries(0)

	imported := []Entry{
		{Request: entryRequest("imported-dup"), Response: entryResponse(201), Timestamp: existing[0].Timestamp},
		{Request: entryRequest("imported-new"), Response: entryResponse(202), Timestamp: existing[0].Timestamp + 10},
	}
	if err := store.Merge(imported); err != nil {
		t.Fatalf("merge: %v", err)
	}

	entries, _ := store.Entries(0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after merge, got %d", len(entries))
	}
	count := 0
	for _, entry := range entries {
		if entry.Timestamp == existing[0].Timestamp {
			count++
			if entry.Request.Name != "imported-dup" {
				t.Fatalf("imported entry must win the timestamp conflict, got %s", entry.Request.Name)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one entry per timestamp, got %d", count)
	}
}

func TestReplace(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 0)
	if err := store.Append(entryRequest("old"), entryResponse(200)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Replace([]Entry{{Request: entryRequest("new"), Response: entryResponse(200), Timestamp: 1}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	entries, _ := store.Entries(0)
	if len(entries) != 1 || entries[0].Request.Name != "new" {
		t.Fatalf("unexpected entries after replace %#v", entries)
	}
}

func TestPersistAcrossReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	store := NewStore(path, 0)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Append(entryRequest("durable"), entryResponse(404)); err != nil {
		t.Fatalf("append: %v", err)
	}

	reloaded := NewStore(path, 0)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries, _ := reloaded.Entries(0)
	if len(entries) != 1 || entries[0].Response.StatusCode != 404 {
		t.Fatalf("history lost on reload: %#v", entries)
	}
}

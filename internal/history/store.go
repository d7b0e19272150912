package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
	"github.com/dev-hans-programmer/postman-clone/internal/model"
)

// DefaultMaxEntries caps the retained history; the oldest entries are evicted
// on overflow.
const DefaultMaxEntries = 1000

// Entry is one executed request/response pair. Timestamp is the natural key
// used for deletion and import de-duplication.
type Entry struct {
	Request   *model.Request  `json:"request"`
	Response  *model.Response `json:"response"`
	Timestamp float64         `json:"timestamp"`
}

// Recorder is the history behavior shared by the JSON and SQLite backends.
type Recorder interface {
	Append(req *model.Request, resp *model.Response) error
	Entries(limit int) ([]Entry, error)
	Delete(timestamp float64) (bool, error)
	Clear() error
	Merge(imported []Entry) error
	Replace(imported []Entry) error
}

// Store is the file backed history log: newest first, bounded, written
// through on every mutation.
type Store struct {
	path       string
	maxEntries int
	entries    []Entry
	mu         sync.Mutex
	loaded     bool
}

var _ Recorder = (*Store)(nil)

func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{path: path, maxEntries: maxEntries}
}

// Load reads the persisted history file, starting empty when the file is
// missing, empty, or unreadable.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	s.entries = []Entry{}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errdef.Wrap(errdef.CodeFilesystem, err, "read history")
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.entries = []Entry{}
		return errdef.Wrap(errdef.CodeStore, err, "parse history")
	}
	return nil
}

// Append records a new entry at the head, evicting the oldest entries past
// the cap, and persists.
func (s *Store) Append(req *model.Request, resp *model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Request: req, Response: resp, Timestamp: model.NowUnix()}
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	return s.persistLocked()
}

// Entries returns up to limit entries, newest first; limit <= 0 returns all.
func (s *Store) Entries(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	copies := make([]Entry, n)
	copy(copies, s.entries[:n])
	return copies, nil
}

// Delete removes the entry with the given timestamp and reports whether a
// record was removed.
func (s *Store) Delete(timestamp float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.Timestamp == timestamp {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, s.persistLocked()
		}
	}
	return false, nil
}

// Clear drops all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{}
	return s.persistLocked()
}

// Merge prepends imported entries, de-duplicating by timestamp with at most
// one entry per timestamp (imported entries win), then re-applies the cap.
func (s *Store) Merge(imported []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	combined := make([]Entry, 0, len(imported)+len(s.entries))
	combined = append(combined, imported...)
	combined = append(combined, s.entries...)

	seen := map[float64]bool{}
	unique := combined[:0]
	for _, entry := range combined {
		if seen[entry.Timestamp] {
			continue
		}
		seen[entry.Timestamp] = true
		unique = append(unique, entry)
	}
	if len(unique) > s.maxEntries {
		unique = unique[:s.maxEntries]
	}
	s.entries = unique
	return s.persistLocked()
}

// Replace swaps the whole log with the imported entries.
func (s *Store) Replace(imported []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imported == nil {
		imported = []Entry{}
	}
	if len(imported) > s.maxEntries {
		imported = imported[:s.maxEntries]
	}
	s.entries = imported
	s.loaded = true
	return s.persistLocked()
}

// persistLocked atomically writes the history file by first writing a temp
// file and renaming it into place. Caller must hold the lock.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}
	return nil
}

package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
	"github.com/dev-hans-programmer/postman-clone/internal/model"
)

const (
	exportVersion        = "1.0"
	exportTypeCollection = "collection"

	defaultName        = "My Requests"
	defaultDescription = "Default collection for API requests"
)

type document struct {
	Collections []*Collection `json:"collections"`
}

// ExportBundle is the wire envelope for a single exported collection.
type ExportBundle struct {
	Version    string      `json:"version"`
	ExportType string      `json:"export_type"`
	ExportedAt float64     `json:"exported_at"`
	Collection *Collection `json:"collection"`
}

// Store persists a set of collections to one JSON document. Every mutating
// call writes the full state back to disk before returning.
type Store struct {
	path        string
	collections []*Collection
	mu          sync.Mutex
	loaded      bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the collections file. A missing, empty, or corrupt file falls
// back to a bootstrap state with one default collection.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "read collections")
	}

	if err == nil && len(data) > 0 {
		var doc document
		if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil && len(doc.Collections) > 0 {
			s.collections = doc.Collections
			s.loaded = true
			return nil
		}
	}

	s.collections = []*Collection{New(defaultName, defaultDescription)}
	s.loaded = true
	return s.persistLocked()
}

// Collections returns the loaded collections. The slice is a copy; the
// collections themselves are shared, so callers mutate through the store.
func (s *Store) Collections() []*Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	copies := make([]*Collection, len(s.collections))
	copy(copies, s.collections)
	return copies
}

// Collection returns a collection by id, or nil.
func (s *Store) Collection(id string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

// CollectionByName returns a collection by exact name, or nil.
func (s *Store) CollectionByName(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByNameLocked(name)
}

func (s *Store) findLocked(id string) *Collection {
	for _, c := range s.collections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Store) findByNameLocked(name string) *Collection {
	for _, c := range s.collections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Create adds a new collection and persists.
func (s *Store) Create(name, description string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := New(name, description)
	s.collections = append(s.collections, c)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a collection by id.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.collections {
		if c.ID == id {
			s.collections = append(s.collections[:i], s.collections[i+1:]...)
			return true, s.persistLocked()
		}
	}
	return false, nil
}

// Rename updates a collection's name.
func (s *Store) Rename(id, newName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(id)
	if c == nil {
		return false, nil
	}
	c.Name = newName
	c.ModifiedAt = model.NowUnix()
	return true, s.persistLocked()
}

// AddFolder adds a folder to a collection and persists.
func (s *Store) AddFolder(collectionID, name, parentID, description string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil {
		return nil, nil
	}
	folder := c.AddFolder(name, parentID, description)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return folder, nil
}

// AddRequest adds a request item to a collection and persists.
func (s *Store) AddRequest(collectionID string, req *model.Request, parentID, name string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil {
		return nil, nil
	}
	item := c.AddRequest(req, parentID, name)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem removes an item (and its descendants) from a collection.
func (s *Store) RemoveItem(collectionID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil || !c.RemoveItem(itemID) {
		return false, nil
	}
	return true, s.persistLocked()
}

// MoveItem reparents an item within a collection.
func (s *Store) MoveItem(collectionID, itemID, newParentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil || !c.MoveItem(itemID, newParentID) {
		return false, nil
	}
	return true, s.persistLocked()
}

// UpdateItem renames an item or updates its description; nil means keep.
func (s *Store) UpdateItem(collectionID, itemID string, name, description *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil {
		return false, nil
	}
	item := c.Item(itemID)
	if item == nil {
		return false, nil
	}
	if name != nil {
		item.Name = *name
	}
	if description != nil {
		item.Description = *description
	}
	now := model.NowUnix()
	item.ModifiedAt = now
	c.ModifiedAt = now
	return true, s.persistLocked()
}

// DuplicateItem deep-copies an item and returns the new root id.
func (s *Store) DuplicateItem(collectionID, itemID, newName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil {
		return "", nil
	}
	newID := c.Duplicate(itemID, newName)
	if newID == "" {
		return "", nil
	}
	return newID, s.persistLocked()
}

// SearchResult ties a matched item back to its collection.
type SearchResult struct {
	CollectionID   string
	CollectionName string
	Item           *Item
}

// SearchAll searches every collection.
func (s *Store) SearchAll(query string) []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []SearchResult
	for _, c := range s.collections {
		for _, item := range c.Search(query) {
			results = append(results, SearchResult{
				CollectionID:   c.ID,
				CollectionName: c.Name,
				Item:           item,
			})
		}
	}
	return results
}

// StoreStats aggregates statistics across all collections.
type StoreStats struct {
	TotalCollections int            `json:"total_collections"`
	TotalFolders     int            `json:"total_folders"`
	TotalRequests    int            `json:"total_requests"`
	Methods          map[string]int `json:"method_distribution"`
}

func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := StoreStats{TotalCollections: len(s.collections), Methods: map[string]int{}}
	for _, c := range s.collections {
		cs := c.Stats()
		stats.TotalFolders += cs.Folders
		stats.TotalRequests += cs.Requests
		for method, count := range cs.Methods {
			stats.Methods[method] += count
		}
	}
	return stats
}

// Export writes one collection to path as an export bundle.
func (s *Store) Export(collectionID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(collectionID)
	if c == nil {
		return errdef.New(errdef.CodeStore, "collection %s not found", collectionID)
	}
	bundle := ExportBundle{
		Version:    exportVersion,
		ExportType: exportTypeCollection,
		ExportedAt: model.NowUnix(),
		Collection: c,
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "encode export bundle")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write export bundle")
	}
	return nil
}

// Import reads an export bundle, renames the collection on name collisions
// ("<name> (<n>)"), appends it, and persists. The bundle must carry the
// collection export marker.
func (s *Store) Import(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read import file")
	}

	var bundle ExportBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "parse import file")
	}
	if bundle.ExportType != exportTypeCollection || bundle.Collection == nil {
		return nil, errdef.New(errdef.CodeImport, "file is not a collection export")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imported := bundle.Collection
	original := imported.Name
	for n := 1; s.findByNameLocked(imported.Name) != nil; n++ {
		imported.Name = fmt.Sprintf("%s (%d)", original, n)
	}

	s.collections = append(s.collections, imported)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return imported, nil
}

// ReplaceAll swaps the whole store content. Used by the all-data importer.
func (s *Store) ReplaceAll(collections []*Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if collections == nil {
		collections = []*Collection{}
	}
	s.collections = collections
	s.loaded = true
	return s.persistLocked()
}

// MergeByName overlays imported collections onto the store, imported data
// winning on name conflicts.
func (s *Store) MergeByName(collections []*Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, imported := range collections {
		if existing := s.findByNameLocked(imported.Name); existing != nil {
			*existing = *imported
			continue
		}
		s.collections = append(s.collections, imported)
	}
	return s.persistLocked()
}

// persistLocked atomically writes the collections document. Caller must hold
// the lock.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create collections dir")
	}

	data, err := json.MarshalIndent(document{Collections: s.collections}, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "encode collections")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write collections tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace collections file")
	}
	return nil
}

package environment

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
)

// Store persists environments to one JSON document (a top-level array) and
// enforces the at-most-one-active invariant on activation.
type Store struct {
	path         string
	environments []*Environment
	mu           sync.Mutex
	loaded       bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the environments file. Missing, empty, or corrupt files start
// the store empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	s.environments = []*Environment{}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errdef.Wrap(errdef.CodeFilesystem, err, "read environments")
	}
	if len(data) == 0 {
		return nil
	}

	var envs []*Environment
	if err := json.Unmarshal(data, &envs); err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "parse environments")
	}
	s.environments = envs
	return nil
}

// Environments returns a copy of the environment list.
func (s *Store) Environments() []*Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	copies := make([]*Environment, len(s.environments))
	copy(copies, s.environments)
	return copies
}

// Environment returns an environment by name, or nil.
func (s *Store) Environment(name string) *Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(name)
}

func (s *Store) findLocked(name string) *Environment {
	for _, env := range s.environments {
		if env.Name == name {
			return env
		}
	}
	return nil
}

// Save upserts an environment by name and persists.
func (s *Store) Save(env *Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.findLocked(env.Name); existing != nil {
		*existing = *env
	} else {
		s.environments = append(s.environments, env)
	}
	return s.persistLocked()
}

// Delete removes an environment by name.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, env := range s.environments {
		if env.Name == name {
			s.environments = append(s.environments[:i], s.environments[i+1:]...)
			return true, s.persistLocked()
		}
	}
	return false, nil
}

// Active returns the currently active environment, or nil.
func (s *Store) Active() *Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range s.environments {
		if env.IsActive {
			return env
		}
	}
	return nil
}

// SetActive activates the named environment, deactivating every other one
// first so at most one environment stays active.
func (s *Store) SetActive(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.findLocked(name)
	if target == nil {
		return false, nil
	}
	for _, env := range s.environments {
		env.IsActive = false
	}
	target.IsActive = true
	return true, s.persistLocked()
}

// Merge overlays imported environments onto the store, imported data winning
// on name conflicts without duplicating entries.
func (s *Store) Merge(imported []*Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range imported {
		if existing := s.findLocked(env.Name); existing != nil {
			*existing = *env
			continue
		}
		s.environments = append(s.environments, env)
	}
	return s.persistLocked()
}

// Replace swaps the whole store content with the imported environments.
func (s *Store) Replace(imported []*Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imported == nil {
		imported = []*Environment{}
	}
	s.environments = imported
	s.loaded = true
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create environments dir")
	}

	data, err := json.MarshalIndent(s.environments, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "encode environments")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write environments tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace environments file")
	}
	return nil
}

// Package export moves app data in and out of JSON bundle files. A bundle
// carries any subset of history, environments, and collections; import
// applies each present section independently.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dev-hans-programmer/postman-clone/internal/collection"
	"github.com/dev-hans-programmer/postman-clone/internal/environment"
	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
	"github.com/dev-hans-programmer/postman-clone/internal/history"
)

type Kind string

const (
	KindAll          Kind = "all"
	KindHistory      Kind = "history"
	KindEnvironments Kind = "environments"
	KindCollections  Kind = "collections"
)

type Mode int

const (
	ModeMerge Mode = iota
	ModeReplace
)

// Bundle is the all-data wire format. Absent sections stay nil and are
// omitted from the document.
type Bundle struct {
	History      []history.Entry            `json:"history,omitempty"`
	Environments []*environment.Environment `json:"environments,omitempty"`
	Collections  []*collection.Collection   `json:"collections,omitempty"`
}

// Manager ties the three stores together for whole-app export and import.
type Manager struct {
	Collections  *collection.Store
	Environments *environment.Store
	History      history.Recorder
}

// Export writes the selected sections to path. KindAll includes every
// section; a store left nil on the manager is skipped.
func (m *Manager) Export(path string, kind Kind) error {
	var bundle Bundle

	if (kind == KindAll || kind == KindHistory) && m.History != nil {
		entries, err := m.History.Entries(0)
		if err != nil {
			return err
		}
		bundle.History = entries
	}
	if (kind == KindAll || kind == KindEnvironments) && m.Environments != nil {
		bundle.Environments = m.Environments.Environments()
	}
	if (kind == KindAll || kind == KindCollections) && m.Collections != nil {
		bundle.Collections = m.Collections.Collections()
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeImport, err, "encode export bundle")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create export dir")
	}
	tmp := fmt.Sprintf("%s.tmp", path)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write export bundle")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace export bundle")
	}
	return nil
}

// Import reads a bundle and applies each present section to its store.
// ModeMerge reconciles by natural key (name for environments and
// collections, timestamp for history); ModeReplace swaps store contents
// for the imported section wholesale.
func (m *Manager) Import(path string, mode Mode) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "read import bundle")
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return errdef.Wrap(errdef.CodeImport, err, "parse import bundle")
	}

	if bundle.History != nil && m.History != nil {
		if err := m.applyHistory(bundle.History, mode); err != nil {
			return err
		}
	}
	if bundle.Environments != nil && m.Environments != nil {
		if err := m.applyEnvironments(bundle.Environments, mode); err != nil {
			return err
		}
	}
	if bundle.Collections != nil && m.Collections != nil {
		if err := m.applyCollections(bundle.Collections, mode); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) applyHistory(entries []history.Entry, mode Mode) error {
	if mode == ModeReplace {
		return m.History.Replace(entries)
	}
	return m.History.Merge(entries)
}

func (m *Manager) applyEnvironments(envs []*environment.Environment, mode Mode) error {
	if mode == ModeReplace {
		return m.Environments.Replace(envs)
	}
	return m.Environments.Merge(envs)
}

func (m *Manager) applyCollections(collections []*collection.Collection, mode Mode) error {
	if mode == ModeReplace {
		return m.Collections.ReplaceAll(collections)
	}
	return m.Collections.MergeByName(collections)
}

package history

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
	"github.com/dev-hans-programmer/postman-clone/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL NOT NULL UNIQUE,
	request TEXT NOT NULL,
	response TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
`

// SQLStore is the SQLite backed history log. It keeps the same observable
// behavior as Store: newest first, bounded, one entry per timestamp.
type SQLStore struct {
	db         *sql.DB
	maxEntries int
}

var _ Recorder = (*SQLStore)(nil)

func NewSQLStore(path string, maxEntries int) (*SQLStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "open history database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errdef.Wrap(errdef.CodeStore, err, "connect history database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errdef.Wrap(errdef.CodeStore, err, "init history schema")
	}
	return &SQLStore{db: db, maxEntries: maxEntries}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Append(req *model.Request, resp *model.Response) error {
	entry := Entry{Request: req, Response: resp, Timestamp: model.NowUnix()}
	return s.insert([]Entry{entry}, false)
}

func (s *SQLStore) Entries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT request, response, timestamp FROM history ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "query history")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var reqJSON, respJSON string
		var entry Entry
		if err := rows.Scan(&reqJSON, &respJSON, &entry.Timestamp); err != nil {
			return nil, errdef.Wrap(errdef.CodeStore, err, "scan history row")
		}
		if err := json.Unmarshal([]byte(reqJSON), &entry.Request); err != nil {
			return nil, errdef.Wrap(errdef.CodeStore, err, "decode history request")
		}
		if err := json.Unmarshal([]byte(respJSON), &entry.Response); err != nil {
			return nil, errdef.Wrap(errdef.CodeStore, err, "decode history response")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "iterate history rows")
	}
	return entries, nil
}

func (s *SQLStore) Delete(timestamp float64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM history WHERE timestamp = ?`, timestamp)
	if err != nil {
		return false, errdef.Wrap(errdef.CodeStore, err, "delete history entry")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errdef.Wrap(errdef.CodeStore, err, "delete history entry")
	}
	return affected > 0, nil
}

func (s *SQLStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM history`)
	return errdef.Wrap(errdef.CodeStore, err, "clear history")
}

func (s *SQLStore) Merge(imported []Entry) error {
	return s.insert(imported, false)
}

func (s *SQLStore) Replace(imported []Entry) error {
	return s.insert(imported, true)
}

// insert writes entries inside one transaction, optionally clearing first,
// then trims everything past the cap (oldest timestamps go first).
func (s *SQLStore) insert(entries []Entry, clearFirst bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "begin history tx")
	}
	defer tx.Rollback()

	if clearFirst {
		if _, err := tx.Exec(`DELETE FROM history`); err != nil {
			return errdef.Wrap(errdef.CodeStore, err, "clear history")
		}
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO history (timestamp, request, response) VALUES (?, ?, ?)`)
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "prepare history insert")
	}
	defer stmt.Close()

	for _, entry := range entries {
		reqJSON, err := json.Marshal(entry.Request)
		if err != nil {
			return errdef.Wrap(errdef.CodeStore, err, "encode history request")
		}
		respJSON, err := json.Marshal(entry.Response)
		if err != nil {
			return errdef.Wrap(errdef.CodeStore, err, "encode history response")
		}
		if _, err := stmt.Exec(entry.Timestamp, string(reqJSON), string(respJSON)); err != nil {
			return errdef.Wrap(errdef.CodeStore, err, "insert history entry")
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM history WHERE id NOT IN
			(SELECT id FROM history ORDER BY timestamp DESC LIMIT ?)`, s.maxEntries); err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "trim history")
	}

	return errdef.Wrap(errdef.CodeStore, tx.Commit(), "commit history tx")
}

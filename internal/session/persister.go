package session

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/iksnae/orgdash/internal"
)

// Persister stores the session entries. Write and Clear act on the whole group.
type Persister interface {
	Read() (map[string]string, error)
	Write(values map[string]string) error
	Clear() error
}

// SQLitePersister keeps the session entries in the session_kv table.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// OpenSQLitePersister opens (creating if needed) the session database at path.
func OpenSQLitePersister(path string) (*SQLitePersister, error) {
	db, err := internal.OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return &SQLitePersister{db: db, path: path}, nil
}

// NewSQLitePersister wraps an already opened database.
func NewSQLitePersister(db *sql.DB) *SQLitePersister {
	return &SQLitePersister{db: db, path: "(shared)"}
}

func (p *SQLitePersister) Read() (map[string]string, error) {
	pairs, err := internal.QueryKV(p.db, "%")
	if err != nil {
		return nil, &internal.StorageError{Path: p.path, Op: "read", Err: err}
	}
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		values[pair.Key] = pair.Value
	}
	return values, nil
}

func (p *SQLitePersister) Write(values map[string]string) error {
	pairs := make([]internal.KeyValuePair, 0, len(Keys))
	for _, key := range Keys {
		pairs = append(pairs, internal.KeyValuePair{Key: key, Value: values[key]})
	}
	if err := internal.ReplaceKV(p.db, pairs); err != nil {
		return &internal.StorageError{Path: p.path, Op: "write", Err: err}
	}
	return nil
}

func (p *SQLitePersister) Clear() error {
	if err := internal.ClearKV(p.db); err != nil {
		return &internal.StorageError{Path: p.path, Op: "clear", Err: err}
	}
	return nil
}

// Close releases the database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// ErrPersisterFailed is returned by MemoryPersister when failure injection is on.
var ErrPersisterFailed = errors.New("persister failure")

// MemoryPersister is an in-process Persister, used by tests and dry runs.
type MemoryPersister struct {
	mu        sync.Mutex
	values    map[string]string
	FailWrite bool
	FailClear bool
}

// NewMemoryPersister returns a MemoryPersister seeded with values.
func NewMemoryPersister(values map[string]string) *MemoryPersister {
	m := &MemoryPersister{values: make(map[string]string)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryPersister) Read() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryPersister) Write(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite {
		return ErrPersisterFailed
	}
	m.values = make(map[string]string, len(values))
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailClear {
		return ErrPersisterFailed
	}
	m.values = make(map[string]string)
	return nil
}

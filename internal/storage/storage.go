// Package storage provides the durable record stores behind the bookmark
// repository. Stores hold model.Record values keyed by id with a secondary
// lookup by URL and no business logic.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/nikbrunner/minimark/internal/model"
)

// ErrNotFound is returned by Get when no record has the id.
var ErrNotFound = errors.New("record not found")

// Storage defines the durable record collection.
type Storage interface {
	GetAll(ctx context.Context) ([]model.Record, error)
	Get(ctx context.Context, id string) (model.Record, error)
	GetByURL(ctx context.Context, url string) ([]model.Record, error)
	Put(ctx context.Context, rec model.Record) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string
	Redis   RedisOptions
}

// Open opens the backend named in opts.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(opts.Path)
	case BackendJSON:
		return NewJSONStorage(opts.Path), nil
	case BackendRedis:
		return NewRedisStorage(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// JSONStorage implements Storage using a single JSON file holding an array
// of records. The file is read once and rewritten on every mutation.
type JSONStorage struct {
	path string

	mu      sync.Mutex
	loaded  bool
	records []model.Record
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// GetAll returns every record in file order.
func (s *JSONStorage) GetAll(ctx context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	return slices.Clone(s.records), nil
}

// Get returns the record with the given id.
func (s *JSONStorage) Get(ctx context.Context, id string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return model.Record{}, err
	}
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], nil
	}
	return model.Record{}, ErrNotFound
}

// GetByURL returns every record whose url matches.
func (s *JSONStorage) GetByURL(ctx context.Context, url string) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	var out []model.Record
	for _, r := range s.records {
		if r.URL == url {
			out = append(out, r)
		}
	}
	return out, nil
}

// Put inserts or replaces a record, keeping its position on replace.
func (s *JSONStorage) Put(ctx context.Context, rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	next := slices.Clone(s.records)
	if i := s.indexOf(rec.ID); i >= 0 {
		next[i] = rec
	} else {
		next = append(next, rec)
	}
	return s.save(next)
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *JSONStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(s.records), i, i+1)
	return s.save(next)
}

// Clear removes every record.
func (s *JSONStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save([]model.Record{})
}

// Close is a no-op for the file backend.
func (s *JSONStorage) Close() error {
	return nil
}

func (s *JSONStorage) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r model.Record) bool { return r.ID == id })
}

// load reads the file on first use. A missing file is an empty store.
func (s *JSONStorage) load() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.records = []model.Record{}
			s.loaded = true
			return nil
		}
		return err
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if records == nil {
		records = []model.Record{}
	}
	s.records = records
	s.loaded = true
	return nil
}

// save writes records through a temp file and only then swaps the cache,
// so a failed write leaves both file and cache untouched.
func (s *JSONStorage) save(records []model.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}

	s.records = records
	s.loaded = true
	return nil
}

// DefaultDir returns ~/.config/minimark.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "minimark"), nil
}

// DefaultJSONPath returns the default JSON store path: ~/.config/minimark/bookmarks.json
func DefaultJSONPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.json"), nil
}

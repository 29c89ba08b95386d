package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store reads and writes a Library at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the time source used to stamp saves.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store backed by the JSON file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the library. A missing or empty file yields an empty library.
func (s *Store) Load() (*Library, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	lib := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return lib, nil
	}
	if err := json.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("decode library %s: %w", s.path, err)
	}
	if lib.Notebooks == nil {
		lib.Notebooks = make(map[string]*Entry)
	}
	for id, e := range lib.Notebooks {
		if e == nil {
			delete(lib.Notebooks, id)
			continue
		}
		if e.ID == "" {
			e.ID = id
		}
	}
	if lib.ActiveID != "" && lib.Notebooks[lib.ActiveID] == nil {
		lib.ActiveID = ""
	}
	return lib, nil
}

// Save stamps the sync time and replaces the file contents atomically.
func (s *Store) Save(lib *Library) error {
	now := s.now().UTC().Truncate(time.Second)
	lib.LastSync = &now
	data, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}

// ListFunc fetches the authoritative notebook listing.
type ListFunc func(ctx context.Context) ([]Entry, error)

// Sync fetches the remote listing and reconciles the stored library
// with it. The listing is fetched in full before anything changes, so an
// error leaves the stored library untouched.
func (s *Store) Sync(ctx context.Context, list ListFunc) (*Library, Diff, error) {
	lib, err := s.Load()
	if err != nil {
		return nil, Diff{}, err
	}
	remote, err := list(ctx)
	if err != nil {
		return lib, Diff{}, fmt.Errorf("list notebooks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return lib, Diff{}, err
	}
	d := lib.Reconcile(remote)
	if err := s.Save(lib); err != nil {
		return lib, d, err
	}
	return lib, d, nil
}

// Update loads the library, applies fn and saves the result unless fn
// returns an error.
func (s *Store) Update(fn func(*Library) error) (*Library, error) {
	lib, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(lib); err != nil {
		return lib, err
	}
	return lib, s.Save(lib)
}

// writeFileAtomic writes data to a temp file in the target directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}

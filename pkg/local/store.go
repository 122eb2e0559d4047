// Package local is the on-disk fallback store: a single JSON document of
// named values, written through on every change.
package local

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type document struct {
	Items   map[string]json.RawMessage `json:"items"`
	Pending map[string]bool            `json:"pending,omitempty"`
}

// Store holds named JSON values in one file.
type Store struct {
	Path string
	mu   sync.RWMutex
	doc  document
}

// Open loads the store at path. A missing file is an empty store. An
// unreadable file is moved aside to path+".corrupt" and also yields an
// empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		Path: path,
		doc:  document{Items: make(map[string]json.RawMessage), Pending: make(map[string]bool)},
	}
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			log.Printf("Warning: discarding unreadable local store: %v", err)
			if err := os.Rename(path, path+".corrupt"); err != nil {
				log.Printf("Warning: could not move %s aside: %v", path, err)
			}
		}
	}
	return s, nil
}

// Load rereads the file.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode local store %s: %w", s.Path, err)
	}
	if doc.Items == nil {
		doc.Items = make(map[string]json.RawMessage)
	}
	if doc.Pending == nil {
		doc.Pending = make(map[string]bool)
	}
	s.doc = doc
	return nil
}

// Get decodes the value under key into v. It reports false when the key
// is absent.
func (s *Store) Get(key string, v any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.doc.Items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode local value %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key and writes the file.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode local value %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Items[key] = raw
	return s.save()
}

// Remove deletes key and writes the file.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.doc.Items[key]; !exists {
		return nil
	}
	delete(s.doc.Items, key)
	delete(s.doc.Pending, key)
	return s.save()
}

// SetPending marks whether the value under key holds changes the remote
// store has not seen.
func (s *Store) SetPending(key string, pending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Pending[key] == pending {
		return nil
	}
	if pending {
		s.doc.Pending[key] = true
	} else {
		delete(s.doc.Pending, key)
	}
	return s.save()
}

// Pending reports whether key has unsynced changes.
func (s *Store) Pending(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Pending[key]
}

func (s *Store) save() error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open local store for writing: %w", err)
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

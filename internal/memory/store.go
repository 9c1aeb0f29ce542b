// Package memory holds the persisted fact store and the rolling conversation context.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNothingToRemember is returned when a fact value is blank.
var ErrNothingToRemember = errors.New("nothing to remember")

// Facts is the persisted mapping. Absent keys are omitted from the file.
type Facts struct {
	Name string `json:"name,omitempty"`
	Note string `json:"note,omitempty"`
}

// Empty reports whether no fact is known.
func (f Facts) Empty() bool {
	return f.Name == "" && f.Note == ""
}

// Store is a flat JSON fact file, read once and rewritten whole on each mutation.
type Store struct {
	path  string
	facts Facts
}

// Load reads path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("memory path must not be empty")
	}

	store := &Store{path: path}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read memory %q: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return store, nil
	}

	if err := json.Unmarshal(content, &store.facts); err != nil {
		return nil, fmt.Errorf("decode memory %q: %w", path, err)
	}
	return store, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Facts returns a copy of the current facts.
func (s *Store) Facts() Facts {
	return s.facts
}

// SetName stores name and persists synchronously. On failure the previous
// value is restored and the error returned.
func (s *Store) SetName(name string) error {
	return s.mutate(name, func(f *Facts, v string) { f.Name = v })
}

// SetNote stores note and persists synchronously, with the same rollback as SetName.
func (s *Store) SetNote(note string) error {
	return s.mutate(note, func(f *Facts, v string) { f.Note = v })
}

func (s *Store) mutate(value string, apply func(*Facts, string)) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrNothingToRemember
	}

	previous := s.facts
	apply(&s.facts, value)
	if err := s.save(); err != nil {
		s.facts = previous
		return err
	}
	return nil
}

func (s *Store) save() error {
	payload, err := json.MarshalIndent(s.facts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create memory dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("write memory %q: %w", s.path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write memory %q: %w", s.path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write memory %q: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write memory %q: %w", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace memory %q: %w", s.path, err)
	}
	return nil
}

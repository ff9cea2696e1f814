// Package store persists named camera positions between invocations.
// One JSON file per (device, name) pair, holding the three encoded axis
// fields.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cam-animator/internal/visca"
)

// ErrNotFound is returned when no position was saved under the
// requested name.
var ErrNotFound = errors.New("no saved position")

// Store keeps position files under one directory. The directory is
// explicit configuration, chosen by the caller at construction.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a store rooted at dir. The directory is created on the
// first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the position for (deviceID, name), replacing any previous
// record. The write goes to a temp file first and is renamed into
// place, so a crash never leaves a corrupt position file.
func (s *Store) Save(deviceID, name string, pos visca.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(pos, "", "  ")
	if err != nil {
		return err
	}

	path := s.path(deviceID, name)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the position saved under (deviceID, name). The record is
// run through the codec on the way out, so a file edited by hand into
// something unparseable fails loudly here.
func (s *Store) Load(deviceID, name string) (visca.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(deviceID, name))
	if os.IsNotExist(err) {
		return visca.Position{}, fmt.Errorf("%w for %q", ErrNotFound, name)
	}
	if err != nil {
		return visca.Position{}, err
	}

	var pos visca.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return visca.Position{}, fmt.Errorf("position file %s: %w", s.path(deviceID, name), err)
	}
	return visca.PositionFromEncoded(pos.Pan, pos.Tilt, pos.Zoom)
}

// Delete removes a saved position. Deleting a position that does not
// exist is not an error.
func (s *Store) Delete(deviceID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(deviceID, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns the names saved for a device, in directory order.
func (s *Store) List(deviceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prefix := sanitize(deviceID) + "_"
	var names []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".json") {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(n, prefix), ".json"))
		}
	}
	return names, nil
}

func (s *Store) path(deviceID, name string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", sanitize(deviceID), name))
}

// sanitize keeps device addresses like "10.0.0.5:52381" or
// "/dev/ttyUSB0" usable as file name components.
func sanitize(deviceID string) string {
	return strings.NewReplacer(":", "-", "/", "-", "\\", "-").Replace(deviceID)
}

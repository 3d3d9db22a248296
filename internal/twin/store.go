// Package twin implements a local stand-in for the remote character catalog:
// the same list schema, generated portraits, and injectable faults for tests
// and offline demos.
package twin

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// Character is one fixture entry. An empty Origin is served without an
// origin object.
type Character struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Species string `json:"species"`
	Origin  string `json:"origin,omitempty"`
}

// LoadCharacters reads a JSON array of characters from fsys.
func LoadCharacters(fsys fs.FS, name string) ([]Character, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("twin: reading %s: %w", name, err)
	}
	var chars []Character
	if err := json.Unmarshal(data, &chars); err != nil {
		return nil, fmt.Errorf("twin: parsing %s: %w", name, err)
	}
	return chars, nil
}

// Store holds the served characters in ID order.
type Store struct {
	mu    sync.RWMutex
	chars []Character
	byID  map[int]Character
}

// NewStore creates a store seeded with chars. Duplicate IDs keep the last entry.
func NewStore(chars []Character) *Store {
	s := &Store{}
	s.Load(chars)
	return s
}

// Load replaces the store contents.
func (s *Store) Load(chars []Character) {
	byID := make(map[int]Character, len(chars))
	for _, c := range chars {
		byID[c.ID] = c
	}
	list := make([]Character, 0, len(byID))
	for _, c := range byID {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars = list
	s.byID = byID
}

// List returns a copy of all characters.
func (s *Store) List() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Character(nil), s.chars...)
}

// Get returns the character with id.
func (s *Store) Get(id int) (Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// Package prefs persists small pieces of user state between runs: named report
// filters and collapsed report sections.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blackwell-systems/feedbackwatch/internal/store"
)

// ErrNotFound is returned when a named preference does not exist.
var ErrNotFound = errors.New("preference not found")

// Store is a string key-value store. Get reports whether the key existed.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// SQLite is a Store backed by the kv table.
type SQLite struct {
	db *store.DB
}

// NewSQLite wraps an open database.
func NewSQLite(db *store.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Get(key string) (string, bool, error) { return s.db.GetKV(key) }
func (s *SQLite) Set(key, value string) error         { return s.db.SetKV(key, value) }
func (s *SQLite) Delete(key string) error             { return s.db.DeleteKV(key) }

const (
	filterPrefix    = "filter."
	collapsedPrefix = "collapsed."
)

// SavedFilter is a named report filter.
type SavedFilter struct {
	EmployeeIDs   []string `json:"employee_ids,omitempty"`
	Relationships []string `json:"relationships,omitempty"`
}

// SaveFilter stores f under name, replacing any previous filter of that name.
func SaveFilter(s Store, name string, f SavedFilter) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("filter name is required")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding filter: %w", err)
	}
	if err := s.Set(filterPrefix+name, string(data)); err != nil {
		return fmt.Errorf("saving filter %q: %w", name, err)
	}
	return nil
}

// LoadFilter returns the filter stored under name, or ErrNotFound.
func LoadFilter(s Store, name string) (SavedFilter, error) {
	var f SavedFilter
	raw, ok, err := s.Get(filterPrefix + strings.TrimSpace(name))
	if err != nil {
		return f, fmt.Errorf("loading filter %q: %w", name, err)
	}
	if !ok {
		return f, fmt.Errorf("filter %q: %w", name, ErrNotFound)
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return f, fmt.Errorf("decoding filter %q: %w", name, err)
	}
	return f, nil
}

// DeleteFilter removes a saved filter.
func DeleteFilter(s Store, name string) error {
	return s.Delete(filterPrefix + strings.TrimSpace(name))
}

// CollapsedSections returns the sorted set of collapsed sections for a view.
func CollapsedSections(s Store, view string) ([]string, error) {
	raw, ok, err := s.Get(collapsedPrefix + view)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	return strings.Split(raw, ","), nil
}

// SetCollapsed marks a section of a view as collapsed or expanded.
func SetCollapsed(s Store, view, section string, collapsed bool) error {
	current, err := CollapsedSections(s, view)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(current)+1)
	for _, c := range current {
		set[c] = true
	}
	if collapsed {
		set[section] = true
	} else {
		delete(set, section)
	}
	if len(set) == 0 {
		return s.Delete(collapsedPrefix + view)
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return s.Set(collapsedPrefix+view, strings.Join(out, ","))
}

// IsCollapsed reports whether a section of a view is collapsed.
func IsCollapsed(s Store, view, section string) bool {
	current, err := CollapsedSections(s, view)
	if err != nil {
		return false
	}
	for _, c := range current {
		if c == section {
			return true
		}
	}
	return false
}

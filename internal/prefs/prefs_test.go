package prefs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/feedbackwatch/internal/store"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": NewSQLite(db),
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("k", "v1"))
			require.NoError(t, s.Set("k", "v2"))
			v, ok, err := s.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			require.NoError(t, s.Delete("k"))
			_, ok, err = s.Get("k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSavedFilters(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := SavedFilter{EmployeeIDs: []string{"e1", "e2"}, Relationships: []string{"peer"}}
			require.NoError(t, SaveFilter(s, "team-a", want))

			got, err := LoadFilter(s, " team-a ")
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, DeleteFilter(s, "team-a"))
			_, err = LoadFilter(s, "team-a")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestSaveFilter_RequiresName(t *testing.T) {
	assert.Error(t, SaveFilter(NewMemory(), "  ", SavedFilter{}))
}

func TestLoadFilter_Corrupt(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set("filter.bad", "{not json"))
	_, err := LoadFilter(s, "bad")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestCollapsedSections(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.False(t, IsCollapsed(s, "report", "coverage"))

			require.NoError(t, SetCollapsed(s, "report", "coverage", true))
			require.NoError(t, SetCollapsed(s, "report", "breakdown", true))
			require.NoError(t, SetCollapsed(s, "report", "coverage", true))

			sections, err := CollapsedSections(s, "report")
			require.NoError(t, err)
			assert.Equal(t, []string{"breakdown", "coverage"}, sections)
			assert.True(t, IsCollapsed(s, "report", "coverage"))

			require.NoError(t, SetCollapsed(s, "report", "coverage", false))
			require.NoError(t, SetCollapsed(s, "report", "breakdown", false))
			sections, err = CollapsedSections(s, "report")
			require.NoError(t, err)
			assert.Empty(t, sections)
		})
	}
}

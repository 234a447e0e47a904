package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_Migrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	require.NoError(t, s.Close())

	// reopening must not rerun migrations
	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()
	version, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Put("k", []byte(`true`)))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(v))
}

func TestSQLiteStorage_KeysEscapesWildcards(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Put("a_b", []byte(`1`)))
	require.NoError(t, s.Put("axb", []byte(`2`)))

	keys, err := s.Keys("a_")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, keys)

	keys, err = s.Keys("zzz")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(t.Context(), func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY: database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	boom := errors.New("constraint failed")
	err = withRetry(t.Context(), func() error {
		calls++
		return fmt.Errorf("insert: %w", boom)
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestIsLockError(t *testing.T) {
	assert.False(t, isLockError(nil))
	assert.True(t, isLockError(errors.New("database table is locked")))
	assert.False(t, isLockError(errors.New("no such table")))
}

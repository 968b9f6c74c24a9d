package datastore

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]UserStore {
	t.Helper()
	sqlStore, err := OpenSQL(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })
	return map[string]UserStore{
		"sql":    sqlStore,
		"memory": NewMemory(),
	}
}

func TestRecordFindOrCreate(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := st.Exists("alice")
			require.NoError(t, err)
			assert.False(t, ok)

			first, err := st.Record("alice")
			require.NoError(t, err)
			require.Equal(t, "alice", first.Name)
			require.NotZero(t, first.ID)

			// Recording again must return the same user, not a duplicate.
			again, err := st.Record("alice")
			require.NoError(t, err)
			assert.Equal(t, first.ID, again.ID)

			ok, err = st.Exists("alice")
			require.NoError(t, err)
			assert.True(t, ok)

			users, err := st.ListUsers()
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "alice", users[0].Name)
		})
	}
}

func TestRecordConcurrent(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := st.Record("bob")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			users, err := st.ListUsers()
			require.NoError(t, err)
			require.Len(t, users, 1)
		})
	}
}

func TestSQLPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")

	st, err := OpenSQL(path)
	require.NoError(t, err)
	_, err = st.Record("carol")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = OpenSQL(path)
	require.NoError(t, err)
	defer st.Close()

	ok, err := st.Exists("carol")
	require.NoError(t, err)
	assert.True(t, ok)
}

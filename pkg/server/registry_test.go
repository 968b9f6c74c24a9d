package server

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatboat/chatboat/pkg/datastore"
)

func TestRegistryJoinLeave(t *testing.T) {
	users := datastore.NewMemory()
	reg := NewRegistry(users, 8)

	sess, err := reg.Join("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Name)
	require.NotEqual(t, sess.ID.String(), "00000000-0000-0000-0000-000000000000")

	assert.Same(t, sess, reg.Lookup("alice"))
	assert.ElementsMatch(t, []string{"alice"}, reg.List())
	assert.Equal(t, 1, reg.Count())

	// The join was recorded in the user store.
	ok, err := users.Exists("alice")
	require.NoError(t, err)
	assert.True(t, ok)

	reg.Leave("alice")
	assert.Nil(t, reg.Lookup("alice"))
	assert.Empty(t, reg.List())

	// Idempotent: leaving again is a no-op.
	reg.Leave("alice")
	assert.Equal(t, 0, reg.Count())
}

func TestRegistryNameTaken(t *testing.T) {
	reg := NewRegistry(nil, 8)

	_, err := reg.Join("bob")
	require.NoError(t, err)

	_, err = reg.Join("bob")
	require.ErrorIs(t, err, ErrNameTaken)

	// The name becomes available again after leave.
	reg.Leave("bob")
	_, err = reg.Join("bob")
	require.NoError(t, err)
}

func TestRegistryConcurrentJoinExactlyOneWins(t *testing.T) {
	reg := NewRegistry(datastore.NewMemory(), 8)

	const attempts = 64
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		taken     atomic.Int64
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Join("alice")
			switch {
			case err == nil:
				succeeded.Add(1)
			default:
				assert.ErrorIs(t, err, ErrNameTaken)
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load())
	assert.Equal(t, int64(attempts-1), taken.Load())
	assert.Equal(t, 1, reg.Count())
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := NewRegistry(nil, 8)
	_, err := reg.Join("alice")
	require.NoError(t, err)

	names := reg.List()
	reg.Leave("alice")

	// The earlier snapshot is unaffected by later mutation.
	assert.ElementsMatch(t, []string{"alice"}, names)
	assert.Empty(t, reg.List())
}

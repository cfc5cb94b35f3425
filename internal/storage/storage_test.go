package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreTests(t *testing.T, store Store) {
	t.Helper()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set("chat_user_1_conversations", `[]`))
	require.NoError(t, store.Set("chat_user_1_context_abc", `[{"id":1}]`))
	require.NoError(t, store.Set("chat_anonymous_conversations", `[]`))

	value, err := store.Get("chat_user_1_context_abc")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, value)

	require.NoError(t, store.Set("chat_user_1_context_abc", `[{"id":2}]`))
	value, err = store.Get("chat_user_1_context_abc")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":2}]`, value)

	keys, err := store.Keys("chat_user_1_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chat_user_1_conversations", "chat_user_1_context_abc"}, keys)

	keys, err = store.Keys("")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	require.NoError(t, store.Remove("chat_user_1_context_abc"))
	_, err = store.Get("chat_user_1_context_abc")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Removing an absent key is not an error.
	require.NoError(t, store.Remove("chat_user_1_context_abc"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	runStoreTests(t, store)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	runStoreTests(t, store)
}

func TestSqliteStore(t *testing.T) {
	store, err := NewSqliteStore("file::memory:")
	require.NoError(t, err)
	defer store.Close()

	runStoreTests(t, store)
}

func TestBadgerStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("chat_user_9_context_x", "persisted"))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get("chat_user_9_context_x")
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)
}

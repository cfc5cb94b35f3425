package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justicia-client/internal/storage"
)

func seedChatKeys(t *testing.T, backing storage.Store) {
	t.Helper()
	require.NoError(t, backing.Set("chat_user_u1_conversations", "[]"))
	require.NoError(t, backing.Set("chat_user_u1_context_chat_user_u1_1", "[]"))
	require.NoError(t, backing.Set("chat_anonymous_conversations", "[]"))
	require.NoError(t, backing.Set("unrelated_key", "keep"))
}

func chatKeysRemaining(t *testing.T, backing storage.Store) []string {
	t.Helper()
	keys, err := backing.Keys(KeyPrefix)
	require.NoError(t, err)
	filtered := keys[:0]
	for _, key := range keys {
		if key != lastSweepKey {
			filtered = append(filtered, key)
		}
	}
	return filtered
}

func TestWipeAllRemovesEveryIdentity(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleaner(backing)
	require.NoError(t, cleaner.WipeAll())

	assert.Empty(t, chatKeysRemaining(t, backing))

	// Keys outside the chat namespace are untouched.
	value, err := backing.Get("unrelated_key")
	require.NoError(t, err)
	assert.Equal(t, "keep", value)
}

func TestWipeAllPreservesSweepTimestamp(t *testing.T) {
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Set(lastSweepKey, "12345"))
	require.NoError(t, backing.Set("chat_user_u1_conversations", "[]"))

	cleaner := NewCleaner(backing)
	require.NoError(t, cleaner.WipeAll())

	value, err := backing.Get(lastSweepKey)
	require.NoError(t, err)
	assert.Equal(t, "12345", value)
}

func TestOnChatExitWipes(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleaner(backing)
	require.NoError(t, cleaner.OnChatExit())
	assert.Empty(t, chatKeysRemaining(t, backing))
}

func TestOnInactiveWipesAfterGrace(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleanerWithIntervals(backing, 20*time.Millisecond, DefaultSweepWindow)
	defer cleaner.Stop()
	cleaner.OnInactive()

	assert.Eventually(t, func() bool {
		return len(chatKeysRemaining(t, backing)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOnActiveCancelsPendingWipe(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleanerWithIntervals(backing, 30*time.Millisecond, DefaultSweepWindow)
	defer cleaner.Stop()

	cleaner.OnInactive()
	cleaner.OnActive()

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, chatKeysRemaining(t, backing), 3)
}

func TestOnInactiveRearmReplacesTimer(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleanerWithIntervals(backing, 50*time.Millisecond, DefaultSweepWindow)
	defer cleaner.Stop()

	cleaner.OnInactive()
	time.Sleep(30 * time.Millisecond)
	cleaner.OnInactive()
	time.Sleep(30 * time.Millisecond)

	// The rearm reset the grace period, so nothing has fired yet.
	assert.Len(t, chatKeysRemaining(t, backing), 3)

	assert.Eventually(t, func() bool {
		return len(chatKeysRemaining(t, backing)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopPreventsArming(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleanerWithIntervals(backing, 10*time.Millisecond, DefaultSweepWindow)
	cleaner.Stop()
	cleaner.OnInactive()

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, chatKeysRemaining(t, backing), 3)
}

func TestSweepIfDue(t *testing.T) {
	backing := storage.NewMemoryStore()
	seedChatKeys(t, backing)

	cleaner := NewCleaner(backing)

	ran, err := cleaner.SweepIfDue()
	require.NoError(t, err)
	assert.True(t, ran, "first sweep always runs")
	assert.Empty(t, chatKeysRemaining(t, backing))

	// Inside the window nothing happens.
	require.NoError(t, backing.Set("chat_user_u1_conversations", "[]"))
	ran, err = cleaner.SweepIfDue()
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Len(t, chatKeysRemaining(t, backing), 1)
}

func TestSweepRunsAgainAfterWindow(t *testing.T) {
	backing := storage.NewMemoryStore()
	cleaner := NewCleanerWithIntervals(backing, DefaultHiddenGrace, time.Millisecond)

	ran, err := cleaner.SweepIfDue()
	require.NoError(t, err)
	assert.True(t, ran)

	require.NoError(t, backing.Set("chat_user_u1_conversations", "[]"))
	time.Sleep(10 * time.Millisecond)

	ran, err = cleaner.SweepIfDue()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, chatKeysRemaining(t, backing))
}

func TestSweepIgnoresCorruptTimestamp(t *testing.T) {
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Set(lastSweepKey, "no es un número"))
	require.NoError(t, backing.Set("chat_user_u1_conversations", "[]"))

	cleaner := NewCleaner(backing)
	ran, err := cleaner.SweepIfDue()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, chatKeysRemaining(t, backing))
}

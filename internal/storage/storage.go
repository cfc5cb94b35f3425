package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

// Store is the persistence port for client-side state (conversation history,
// metadata indexes, cleanup bookkeeping). Values are JSON-encoded strings;
// keys are namespaced by the caller. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	// Keys returns all keys with the given prefix. An empty prefix lists
	// every key.
	Keys(prefix string) ([]string, error)
	Close() error
}

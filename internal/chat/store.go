// Package chat maintains the per-identity conversation history that primes
// the assistant's next answer: a bounded exchange list per conversation, a
// lightweight metadata index for resuming after restart, and the cleanup
// policy that purges persisted context.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"justicia-client/internal/storage"
)

const (
	// maxExchanges bounds the history kept per conversation; oldest evicted
	// first.
	maxExchanges = 15
	// maxConversations bounds the metadata index per identity.
	maxConversations = 10
	// contextWindow is how many recent exchanges prime the next request.
	contextWindow = 4
	// maxResponseChars truncates a single assistant response inside the
	// formatted context.
	maxResponseChars = 2000

	truncationMarker = "... [respuesta truncada]"

	conversationsSuffix = "_conversations"
	contextInfix        = "_context_"
)

// KeyPrefix namespaces every persisted chat key; the cleanup policy wipes by
// this prefix.
const KeyPrefix = "chat_"

// IdentityKey derives the storage namespace for a user id, falling back to a
// shared anonymous scope.
func IdentityKey(userId string) string {
	if userId == "" {
		return KeyPrefix + "anonymous"
	}
	return KeyPrefix + "user_" + userId
}

// Exchange is one completed user/assistant turn. Both sides are always
// non-empty; partial turns are never persisted.
type Exchange struct {
	Id                int64  `json:"id"`
	UserMessage       string `json:"user_message"`
	AssistantResponse string `json:"assistant_response"`
	Timestamp         string `json:"timestamp"`
}

// ConversationMeta is one entry of the per-identity conversation index.
type ConversationMeta struct {
	Id           string    `json:"id"`
	LastMessage  string    `json:"last_message"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
}

// Store holds the active conversation for one identity scope. Writes go
// straight through to the underlying storage; last write wins.
type Store struct {
	mu             sync.Mutex
	storage        storage.Store
	identity       string
	conversationId string
	exchanges      []Exchange
	now            func() time.Time
}

// NewStore loads the identity's most recently updated conversation, or
// starts a fresh one when no history exists.
func NewStore(store storage.Store, userId string) (*Store, error) {
	s := &Store{
		storage:  store,
		identity: IdentityKey(userId),
		now:      time.Now,
	}

	index, err := s.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("loading conversation index: %w", err)
	}

	if len(index) > 0 {
		// Index is kept sorted by last update, newest first.
		s.conversationId = index[0].Id
		exchanges, err := s.loadExchanges(index[0].Id)
		if err != nil {
			return nil, fmt.Errorf("loading conversation %s: %w", index[0].Id, err)
		}
		s.exchanges = exchanges
		return s, nil
	}

	s.conversationId = s.newConversationId()
	return s, nil
}

func (s *Store) newConversationId() string {
	return fmt.Sprintf("%s_%d", s.identity, s.now().UnixMilli())
}

func (s *Store) indexKey() string {
	return s.identity + conversationsSuffix
}

func (s *Store) contextKey(conversationId string) string {
	return s.identity + contextInfix + conversationId
}

// ConversationId returns the id of the active conversation.
func (s *Store) ConversationId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationId
}

// Exchanges returns a copy of the active conversation's history.
func (s *Store) Exchanges() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Conversations returns the identity's conversation index, newest first.
func (s *Store) Conversations() ([]ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndex()
}

// AddExchange appends a completed turn, evicting the oldest beyond the
// history bound, and persists both the exchange list and the refreshed
// index entry. Blank sides are rejected as a logged no-op.
func (s *Store) AddExchange(userMessage, assistantResponse string) error {
	userMessage = strings.TrimSpace(userMessage)
	assistantResponse = strings.TrimSpace(assistantResponse)

	s.mu.Lock()
	defer s.mu.Unlock()

	if userMessage == "" || assistantResponse == "" {
		slog.Warn("discarding exchange with empty side",
			"conversation_id", s.conversationId,
			"user_empty", userMessage == "",
			"assistant_empty", assistantResponse == "",
		)
		return nil
	}
	if s.conversationId == "" {
		slog.Warn("discarding exchange: no active conversation")
		return nil
	}

	now := s.now()
	s.exchanges = append(s.exchanges, Exchange{
		Id:                now.UnixMilli(),
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		Timestamp:         now.UTC().Format(time.RFC3339),
	})
	if len(s.exchanges) > maxExchanges {
		s.exchanges = s.exchanges[len(s.exchanges)-maxExchanges:]
	}

	if err := s.saveExchanges(); err != nil {
		return err
	}
	return s.refreshIndexEntry(userMessage, now)
}

// SwitchTo makes the given conversation active, loading its history from
// storage. Switching to the active conversation is a no-op.
func (s *Store) SwitchTo(conversationId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationId == s.conversationId {
		return nil
	}

	exchanges, err := s.loadExchanges(conversationId)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", conversationId, err)
	}

	s.conversationId = conversationId
	s.exchanges = exchanges
	return nil
}

// StartNew mints a fresh conversation id with an empty history. Nothing is
// persisted until the first exchange; other conversations are untouched.
func (s *Store) StartNew() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversationId = s.newConversationId()
	s.exchanges = nil
	return s.conversationId
}

// Delete removes a conversation's persisted history and index entry. If it
// was active, a new conversation is started.
func (s *Store) Delete(conversationId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(s.contextKey(conversationId)); err != nil {
		return fmt.Errorf("removing conversation %s: %w", conversationId, err)
	}

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	filtered := index[:0]
	for _, meta := range index {
		if meta.Id != conversationId {
			filtered = append(filtered, meta)
		}
	}
	if err := s.saveIndex(filtered); err != nil {
		return err
	}

	if conversationId == s.conversationId {
		s.conversationId = s.newConversationId()
		s.exchanges = nil
	}
	return nil
}

// ClearCurrent empties the active conversation in memory and in storage,
// keeping the same conversation id.
func (s *Store) ClearCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = nil
	if err := s.saveExchanges(); err != nil {
		return err
	}

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].Id == s.conversationId {
			index[i].LastMessage = ""
			index[i].MessageCount = 0
		}
	}
	return s.saveIndex(index)
}

// FormattedContext renders the most recent exchanges, oldest first, as the
// text block prepended to the next request. Read-only; returns "" when there
// is no history.
func (s *Store) FormattedContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.exchanges) == 0 {
		return ""
	}

	window := s.exchanges
	if len(window) > contextWindow {
		window = window[len(window)-contextWindow:]
	}

	var b strings.Builder
	b.WriteString("Conversación previa:\n")
	for _, exchange := range window {
		response := exchange.AssistantResponse
		if len(response) > maxResponseChars {
			response = response[:maxResponseChars] + truncationMarker
		}
		fmt.Fprintf(&b, "\nUsuario: %s\nAsistente: %s\n", exchange.UserMessage, response)
	}
	return b.String()
}

func (s *Store) loadIndex() ([]ConversationMeta, error) {
	raw, err := s.storage.Get(s.indexKey())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var index []ConversationMeta
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		// A corrupt index is recoverable: start over rather than brick the
		// chat surface.
		slog.Error("corrupt conversation index, resetting", "identity", s.identity, "error", err)
		return nil, nil
	}
	return index, nil
}

func (s *Store) saveIndex(index []ConversationMeta) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding conversation index: %w", err)
	}
	return s.storage.Set(s.indexKey(), string(raw))
}

func (s *Store) loadExchanges(conversationId string) ([]Exchange, error) {
	raw, err := s.storage.Get(s.contextKey(conversationId))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var exchanges []Exchange
	if err := json.Unmarshal([]byte(raw), &exchanges); err != nil {
		slog.Error("corrupt conversation history, resetting",
			"conversation_id", conversationId,
			"error", err,
		)
		return nil, nil
	}
	return exchanges, nil
}

func (s *Store) saveExchanges() error {
	raw, err := json.Marshal(s.exchanges)
	if err != nil {
		return fmt.Errorf("encoding exchanges: %w", err)
	}
	return s.storage.Set(s.contextKey(s.conversationId), string(raw))
}

// refreshIndexEntry upserts the active conversation in the index, re-sorts
// newest first and enforces the index bound, dropping evicted conversations'
// persisted history along the way.
func (s *Store) refreshIndexEntry(lastMessage string, now time.Time) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	found := false
	for i := range index {
		if index[i].Id == s.conversationId {
			index[i].LastMessage = lastMessage
			index[i].LastUpdated = now
			index[i].MessageCount = len(s.exchanges)
			found = true
			break
		}
	}
	if !found {
		index = append(index, ConversationMeta{
			Id:           s.conversationId,
			LastMessage:  lastMessage,
			LastUpdated:  now,
			MessageCount: len(s.exchanges),
		})
	}

	sort.SliceStable(index, func(i, j int) bool {
		return index[i].LastUpdated.After(index[j].LastUpdated)
	})

	if len(index) > maxConversations {
		for _, evicted := range index[maxConversations:] {
			if err := s.storage.Remove(s.contextKey(evicted.Id)); err != nil {
				slog.Warn("could not remove evicted conversation history",
					"conversation_id", evicted.Id,
					"error", err,
				)
			}
		}
		index = index[:maxConversations]
	}

	return s.saveIndex(index)
}

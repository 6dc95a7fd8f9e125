// Package store implements the conversation history store: an append-only,
// globally bounded message log grouped by conversation and mirrored to a
// [secretary.Medium] after every mutation.
//
// The in-memory log is authoritative. A failed write is logged, reported to
// the caller as a *[secretary.PersistenceWarning] and retried by the next
// mutation or by Flush.
package store

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/secretary"
	secjson "github.com/fwojciec/secretary/json"
	"github.com/oklog/ulid/v2"
	"github.com/rivo/uniseg"
	"github.com/sirupsen/logrus"
)

// DefaultMaxMessages bounds the total number of stored messages.
const DefaultMaxMessages = 1000

// minQueryLength is the minimum search length in user-perceived characters.
const minQueryLength = 2

// Store holds messages for all conversations.
type Store struct {
	mu       sync.Mutex
	messages []secretary.Message // append order
	dirty    bool

	// saveMu orders snapshot writes so an older snapshot never lands after
	// a newer one.
	saveMu sync.Mutex

	max    int
	medium secretary.Medium
	key    string
	log    logrus.FieldLogger
	now    func() time.Time
	newID  func() string
}

// Option configures a [Store].
type Option func(*Store)

// WithMaxMessages sets the retention bound. Default is 1000.
func WithMaxMessages(n int) Option {
	return func(s *Store) { s.max = n }
}

// WithMedium sets the persistence medium. Default is an in-memory medium.
func WithMedium(m secretary.Medium) Option {
	return func(s *Store) { s.medium = m }
}

// WithKey sets the medium key. Default is [secretary.KeyChatHistory].
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock sets the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the message id generator. Default is ULID.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty [Store]. Call Restore to load persisted history.
func New(opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Store{
		max:    DefaultMaxMessages,
		medium: NewMemoryMedium(),
		key:    secretary.KeyChatHistory,
		log:    discard,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.max <= 0 {
		s.max = DefaultMaxMessages
	}
	return s
}

// Restore replaces the in-memory log with the persisted snapshot. A missing
// snapshot leaves the store empty and is not an error.
func (s *Store) Restore() error {
	data, err := s.medium.Load(s.key)
	if errors.Is(err, secretary.ErrNotFound) {
		s.mu.Lock()
		s.messages = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	msgs, err := secjson.UnmarshalHistory(data)
	if err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	s.mu.Lock()
	s.messages = msgs
	s.evict()
	s.mu.Unlock()
	return nil
}

// Append stores msg at the end of its conversation and persists the log.
// Missing ID and CreatedAt are filled in; CreatedAt is clamped so it never
// precedes the conversation's previous message. The returned error is nil
// or a *[secretary.PersistenceWarning], in which case the message is still
// stored.
func (s *Store) Append(msg secretary.Message) (secretary.Message, error) {
	if msg.ConversationID == "" {
		return secretary.Message{}, fmt.Errorf("store: missing conversation id: %w", secretary.ErrValidation)
	}
	if !msg.Role.Valid() {
		return secretary.Message{}, fmt.Errorf("store: unknown role %q: %w", msg.Role, secretary.ErrValidation)
	}

	s.mu.Lock()
	msg = s.insert(msg)
	s.evict()
	s.mu.Unlock()

	return msg, s.persist()
}

// insert assigns defaults and appends. Callers hold mu.
func (s *Store) insert(msg secretary.Message) secretary.Message {
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if last, ok := s.lastOf(msg.ConversationID); ok && msg.CreatedAt.Before(last.CreatedAt) {
		msg.CreatedAt = last.CreatedAt
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) lastOf(conversationID string) (secretary.Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ConversationID == conversationID {
			return s.messages[i], true
		}
	}
	return secretary.Message{}, false
}

// evict drops the oldest messages by CreatedAt until the log fits the
// bound. Ties are broken by append order. Callers hold mu.
func (s *Store) evict() {
	excess := len(s.messages) - s.max
	if excess <= 0 {
		return
	}
	order := make([]int, len(s.messages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.messages[order[a]].CreatedAt.Before(s.messages[order[b]].CreatedAt)
	})
	drop := make(map[int]struct{}, excess)
	for _, idx := range order[:excess] {
		drop[idx] = struct{}{}
	}
	kept := make([]secretary.Message, 0, s.max)
	for i, m := range s.messages {
		if _, ok := drop[i]; !ok {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

// Query returns the messages of a conversation in insertion order. An
// unknown id yields an empty slice.
func (s *Store) Query(conversationID string) []secretary.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(m secretary.Message) bool { return m.ConversationID == conversationID })
}

// Has reports whether the store holds any message for conversationID.
func (s *Store) Has(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lastOf(conversationID)
	return ok
}

// Len returns the total number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// AllConversations summarizes every conversation, newest activity first.
func (s *Store) AllConversations() []secretary.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int)
	var out []secretary.ConversationSummary
	for _, m := range s.messages {
		i, ok := index[m.ConversationID]
		if !ok {
			index[m.ConversationID] = len(out)
			out = append(out, secretary.ConversationSummary{ID: m.ConversationID, MessageCount: 1, LastMessage: m})
			continue
		}
		out[i].MessageCount++
		if !m.CreatedAt.Before(out[i].LastMessage.CreatedAt) {
			out[i].LastMessage = m
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ta, tb := out[a].LastMessageAt(), out[b].LastMessageAt()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Search returns messages whose content contains query, case-insensitively,
// in stored order. An empty conversationID searches every conversation.
// Queries shorter than two characters after trimming return nothing.
func (s *Store) Search(query, conversationID string) []secretary.Message {
	q := strings.TrimSpace(query)
	if uniseg.GraphemeClusterCount(q) < minQueryLength {
		return nil
	}
	q = strings.ToLower(q)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(m secretary.Message) bool {
		if conversationID != "" && m.ConversationID != conversationID {
			return false
		}
		return strings.Contains(strings.ToLower(m.Content), q)
	})
}

func (s *Store) filter(keep func(secretary.Message) bool) []secretary.Message {
	out := []secretary.Message{}
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// Clear removes every message of one conversation and persists the log.
func (s *Store) Clear(conversationID string) error {
	s.mu.Lock()
	kept := s.messages[:0:0]
	for _, m := range s.messages {
		if m.ConversationID != conversationID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	s.mu.Unlock()
	return s.persist()
}

// ClearAll removes every message and persists the empty log.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	return s.persist()
}

// Reset drops the in-memory log without touching the medium.
func (s *Store) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.dirty = false
	s.mu.Unlock()
}

// Export snapshots one conversation.
func (s *Store) Export(conversationID string) secretary.Export {
	msgs := s.Query(conversationID)
	return secretary.Export{
		ConversationID: conversationID,
		ExportDate:     s.now(),
		MessageCount:   len(msgs),
		Messages:       msgs,
	}
}

// Import appends every message of an export in order and persists once.
func (s *Store) Import(e secretary.Export) error {
	if e.ConversationID == "" {
		return fmt.Errorf("store: missing conversation id: %w", secretary.ErrValidation)
	}
	for i, m := range e.Messages {
		if m.ConversationID != e.ConversationID || !m.Role.Valid() {
			return fmt.Errorf("store: message %d does not belong to %q: %w", i, e.ConversationID, secretary.ErrValidation)
		}
	}
	s.mu.Lock()
	for _, m := range e.Messages {
		s.insert(m)
	}
	s.evict()
	s.mu.Unlock()
	return s.persist()
}

// Dirty reports whether the last write to the medium failed.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush rewrites the snapshot if a previous write failed.
func (s *Store) Flush() error {
	if !s.Dirty() {
		return nil
	}
	return s.persist()
}

func (s *Store) persist() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := make([]secretary.Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	err := s.write(snapshot)

	s.mu.Lock()
	s.dirty = err != nil
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("key", s.key).Warn("history not persisted")
		return &secretary.PersistenceWarning{Key: s.key, Err: err}
	}
	return nil
}

func (s *Store) write(msgs []secretary.Message) error {
	data, err := secjson.MarshalHistory(msgs, s.now())
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.medium.Save(s.key, data)
}

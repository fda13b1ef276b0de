// Package feedback records user votes on generated answers.
//
// The store is append-only: records are never mutated or removed, there is
// no deduplication, and the answer ID is trusted as an opaque caller-supplied
// token — no check that it matches a previously generated answer.
package feedback

import (
	"context"
	"sync"
)

// Votes accepted from the API.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Record is one feedback submission.
type Record struct {
	AnswerID string `json:"answer_id"`
	Vote     string `json:"vote"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// Store is an append-only feedback log. Implementations must be safe for
// concurrent appends; no ordering is promised across concurrent callers.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// MemoryStore keeps records in memory. It is the default store when no
// database is configured, and the test double everywhere else.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds one record.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a snapshot of all appended records.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

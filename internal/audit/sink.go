// internal/audit/sink.go
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a sink query. Zero-valued fields match everything.
type Filter struct {
	TableID *uuid.UUID
	ActorID *uuid.UUID
	Action  string
	From    time.Time
	To      time.Time
}

func (f Filter) matches(e Entry) bool {
	if f.TableID != nil && e.TableID != *f.TableID {
		return false
	}
	if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Sink is an append-only destination for audit entries. Game logic only
// ever appends; Query exists for out-of-band audit tooling.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

func sinkContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// MemorySink keeps entries in process. It is the default sink when no
// Postgres or Redis backend is configured, and the workhorse in tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemorySink) Query(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

package storage

import (
	"context"
	"sync"
	"time"
)

// InMemorySink is a thread-safe in-memory QueryHistorySink, used for tests
// and for deployments without a configured database.
type InMemorySink struct {
	mu      sync.RWMutex
	entries []QueryHistoryEntry

	recordFailure bool
}

// NewInMemorySink creates an empty in-memory sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Record appends a query-history entry.
func (s *InMemorySink) Record(ctx context.Context, queryID, user, source, sql, backend string, submittedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordFailure {
		return errRecordFailure
	}

	s.entries = append(s.entries, QueryHistoryEntry{
		QueryID: queryID, User: user, Source: source, SQL: sql,
		Backend: backend, SubmittedAt: submittedAt,
	})
	return nil
}

// List returns up to limit entries, most recent first.
func (s *InMemorySink) List(ctx context.Context, limit int) ([]QueryHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]QueryHistoryEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.entries[n-1-i]
	}
	return out, nil
}

// CheckConnectivity always succeeds for the in-memory sink.
func (s *InMemorySink) CheckConnectivity(ctx context.Context) error {
	return ctx.Err()
}

// SetRecordFailure configures the sink to fail every Record call, for
// exercising the Proxy Handler's "log, never surface" persistence-failure
// policy in tests.
func (s *InMemorySink) SetRecordFailure(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordFailure = fail
}

var errRecordFailure = recordFailureError{}

type recordFailureError struct{}

func (recordFailureError) Error() string { return "storage: simulated record failure" }

var _ QueryHistorySink = (*InMemorySink)(nil)

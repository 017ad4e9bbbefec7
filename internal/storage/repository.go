// Package storage provides persistence for the query-history collaborator:
// an append-only sink the Proxy Handler writes to asynchronously after a
// new-statement response is bound to a backend.
package storage

import (
	"context"
	"time"
)

// QueryHistoryEntry is one recorded statement submission.
type QueryHistoryEntry struct {
	QueryID     string
	User        string
	Source      string
	SQL         string
	Backend     string
	SubmittedAt time.Time
}

// QueryHistorySink is the append-only query-history collaborator interface.
// The core calls Record asynchronously after every new-statement response
// and ignores its failures; it must be safe for concurrent use.
type QueryHistorySink interface {
	Record(ctx context.Context, queryID, user, source, sql, backend string, submittedAt time.Time) error

	// List returns recent entries, most recent first.
	List(ctx context.Context, limit int) ([]QueryHistoryEntry, error)

	// CheckConnectivity verifies the sink is reachable at startup.
	CheckConnectivity(ctx context.Context) error
}

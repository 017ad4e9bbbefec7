// Package observability provides structured logging for the gateway.
//
// Every proxied exchange emits: query-id (once known), user, routing group,
// backend, rule fired (if any), outcome, and latency.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewRequestID generates a correlation id for a single proxied exchange,
// usable in log lines emitted before a Trino query-id is known (auth
// failures, routing errors prior to a backend response).
func NewRequestID() string {
	return uuid.NewString()
}

// RouteLogEntry contains the fields logged for a single proxied exchange.
type RouteLogEntry struct {
	// RequestID correlates every log line for one exchange, independent of
	// whether a Trino query-id was ever assigned.
	RequestID string

	// QueryID is the Trino query-id, once known. Empty for follow-ups
	// resolved before a bind, or for UI/info passthrough requests.
	QueryID string

	// User is the value of X-Trino-User or the authenticated principal.
	User string

	// Source is the value of X-Trino-Source, if present.
	Source string

	// RoutingGroup is the group selected for this exchange.
	RoutingGroup string

	// RuleFired names the last rule, in evaluation order, whose actions
	// changed routingGroup, if any; for "rule_evaluation_error" entries it
	// names the rule whose predicate failed.
	RuleFired string

	// Backend is the backend name the exchange was forwarded to.
	Backend string

	// Outcome is "forwarded", "no_backend", "unknown_query", "backend_error",
	// "history_error" or "rule_evaluation_error", or "failed" for any other
	// error.
	Outcome string

	// Error contains the error message when Outcome is not "forwarded".
	Error string

	// Latency is how long the exchange took end-to-end.
	Latency time.Duration
}

// Validate checks that all required fields are present.
func (e *RouteLogEntry) Validate() error {
	if e.Outcome == "" {
		return fmt.Errorf("observability: outcome is required")
	}
	if e.Latency < 0 {
		return fmt.Errorf("observability: latency cannot be negative")
	}
	return nil
}

// RouteLogger is the interface for routing-decision logging.
type RouteLogger interface {
	LogRoute(ctx context.Context, entry RouteLogEntry) error
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated routing statistics, exposed without
// raw query text or per-query detail.
type AuditSummary struct {
	ForwardedCount   int                `json:"forwarded_count"`
	FailedCount      int                `json:"failed_count"`
	TopOutcomes      []OutcomeStat      `json:"top_outcomes"`
	TopBackends      []BackendStat      `json:"top_backends"`
}

// OutcomeStat counts occurrences of a given outcome.
type OutcomeStat struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// BackendStat counts exchanges forwarded to a given backend.
type BackendStat struct {
	Backend string `json:"backend"`
	Count   int    `json:"count"`
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp    string `json:"timestamp"`
	Level        string `json:"level"`
	RequestID    string `json:"request_id,omitempty"`
	QueryID      string `json:"query_id,omitempty"`
	User         string `json:"user,omitempty"`
	Source       string `json:"source,omitempty"`
	RoutingGroup string `json:"routing_group,omitempty"`
	RuleFired    string `json:"rule_fired,omitempty"`
	Backend      string `json:"backend,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error,omitempty"`
}

// JSONLogger implements RouteLogger with newline-delimited JSON output.
type JSONLogger struct {
	writer  io.Writer
	entries []RouteLogEntry
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		writer:  w,
		entries: make([]RouteLogEntry, 0),
	}
}

// LogRoute logs a routing decision as one line of JSON.
func (l *JSONLogger) LogRoute(ctx context.Context, entry RouteLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	level := "info"
	if entry.Error != "" {
		level = "error"
	}

	output := jsonLogOutput{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Level:        level,
		RequestID:    entry.RequestID,
		QueryID:      entry.QueryID,
		User:         entry.User,
		Source:       entry.Source,
		RoutingGroup: entry.RoutingGroup,
		RuleFired:    entry.RuleFired,
		Backend:      entry.Backend,
		LatencyMs:    entry.Latency.Milliseconds(),
		Outcome:      entry.Outcome,
		Error:        entry.Error,
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return nil
}

// GetAuditSummary returns aggregated routing statistics.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &AuditSummary{
		TopOutcomes: []OutcomeStat{},
		TopBackends: []BackendStat{},
	}

	outcomeCounts := make(map[string]int)
	backendCounts := make(map[string]int)

	for _, entry := range l.entries {
		if entry.Outcome == "forwarded" {
			summary.ForwardedCount++
		} else {
			summary.FailedCount++
		}
		outcomeCounts[entry.Outcome]++
		if entry.Backend != "" {
			backendCounts[entry.Backend]++
		}
	}

	for outcome, count := range outcomeCounts {
		summary.TopOutcomes = append(summary.TopOutcomes, OutcomeStat{Outcome: outcome, Count: count})
	}
	sort.Slice(summary.TopOutcomes, func(i, j int) bool {
		return summary.TopOutcomes[i].Count > summary.TopOutcomes[j].Count
	})

	for backend, count := range backendCounts {
		summary.TopBackends = append(summary.TopBackends, BackendStat{Backend: backend, Count: count})
	}
	sort.Slice(summary.TopBackends, func(i, j int) bool {
		return summary.TopBackends[i].Count > summary.TopBackends[j].Count
	})
	if len(summary.TopBackends) > 5 {
		summary.TopBackends = summary.TopBackends[:5]
	}

	return summary
}

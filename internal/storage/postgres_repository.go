package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresSink persists query history to PostgreSQL.
type PostgresSink struct {
	db *sql.DB
}

// PostgresConfig configures the PostgreSQL connection.
type PostgresConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// OpenPostgresSink opens a pooled connection and returns a PostgresSink.
func OpenPostgresSink(cfg PostgresConfig) (*PostgresSink, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open postgres connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &PostgresSink{db: db}, nil
}

// Record inserts one query-history row.
func (s *PostgresSink) Record(ctx context.Context, queryID, user, source, sql, backend string, submittedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (query_id, username, source, sql_text, backend, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (query_id) DO NOTHING`,
		queryID, user, source, sql, backend, submittedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: failed to record query history: %w", err)
	}
	return nil
}

// List returns the most recent query-history entries.
func (s *PostgresSink) List(ctx context.Context, limit int) ([]QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, username, source, sql_text, backend, submitted_at
		 FROM query_history ORDER BY submitted_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list query history: %w", err)
	}
	defer rows.Close()

	var out []QueryHistoryEntry
	for rows.Next() {
		var e QueryHistoryEntry
		if err := rows.Scan(&e.QueryID, &e.User, &e.Source, &e.SQL, &e.Backend, &e.SubmittedAt); err != nil {
			return nil, fmt.Errorf("storage: failed to scan query history row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: error iterating query history: %w", err)
	}
	return out, nil
}

// CheckConnectivity verifies the database is reachable, used as a fail-fast
// startup check.
func (s *PostgresSink) CheckConnectivity(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("storage: postgres unreachable: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection pool for the migration runner.
func (s *PostgresSink) DB() *sql.DB {
	return s.db
}

var _ QueryHistorySink = (*PostgresSink)(nil)

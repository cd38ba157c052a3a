// Package history records every rebuild the supervisor performs in a small
// SQLite database, so `hrc history` can show what happened and when.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Status is the outcome of a build.
type Status string

// Build statuses.
const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Build is one recorded rebuild.
type Build struct {
	ID        string        `json:"id" yaml:"id"`
	Mode      string        `json:"mode" yaml:"mode"`
	Compiler  string        `json:"compiler" yaml:"compiler"`
	Sources   []string      `json:"sources" yaml:"sources"`
	Status    Status        `json:"status" yaml:"status"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Store persists builds in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := NewWithDB(db, logger)
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection without migrating it.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// Migrate runs all pending database migrations.
func (s *Store) Migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores b. An empty ID is replaced by a new UUID and a zero StartedAt
// by the current time.
func (s *Store) Record(ctx context.Context, b Build) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
	sources, err := json.Marshal(b.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	s.logger.Debug("recording build", slog.String("id", b.ID), slog.String("status", string(b.Status)))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO builds (id, mode, compiler, sources, status, error, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Mode, b.Compiler, string(sources), string(b.Status), b.Error,
		b.StartedAt.UnixNano(), int64(b.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	return nil
}

// Recent returns up to limit builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, compiler, sources, status, error, started_at, duration_ns
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		var (
			b          Build
			sources    string
			status     string
			startedAt  int64
			durationNS int64
		)
		if err := rows.Scan(&b.ID, &b.Mode, &b.Compiler, &sources, &status, &b.Error, &startedAt, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &b.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources of build %s: %w", b.ID, err)
		}
		b.Status = Status(status)
		b.StartedAt = time.Unix(0, startedAt)
		b.Duration = time.Duration(durationNS)
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read builds: %w", err)
	}
	return builds, nil
}

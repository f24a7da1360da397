// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists one row per intake run in a SQLite database so
// operators can review past outcomes.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/case-intake/pkg/types"
)

const (
	defaultListLimit = 50

	// timeLayout is fixed width so started_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the outcome ledger database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the ledger at cfg.Path, creating parent
// directories and the schema if they do not exist.
func NewStore(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			archive TEXT NOT NULL,
			success INTEGER NOT NULL,
			kind TEXT,
			folder TEXT,
			message TEXT NOT NULL,
			files_count INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_started_at ON outcomes(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_kind ON outcomes(kind)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts rec and returns its row id.
func (s *Store) Record(ctx context.Context, rec types.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (archive, success, kind, folder, message, files_count, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Archive, rec.Success, nullable(rec.Kind), nullable(rec.Folder), rec.Message,
		rec.FilesCount, rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting outcome: %w", err)
	}
	return res.LastInsertId()
}

// ListOptions filters List results. The zero value returns the most
// recent rows up to the default limit.
type ListOptions struct {
	// Limit caps the row count. Zero uses 50.
	Limit int

	// Success, when non-nil, keeps only successful or failed runs.
	Success *bool

	// Kind keeps only failures of the given kind, e.g. "validation".
	Kind string

	// Since keeps runs started at or after this time.
	Since time.Time
}

// List returns recorded outcomes, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, archive, success, kind, folder, message, files_count, started_at, duration_ms
		FROM outcomes WHERE 1=1`)

	if opts.Success != nil {
		qb.WriteString(` AND success = ?`)
		args = append(args, *opts.Success)
	}
	if opts.Kind != "" {
		qb.WriteString(` AND kind = ?`)
		args = append(args, opts.Kind)
	}
	if !opts.Since.IsZero() {
		qb.WriteString(` AND started_at >= ?`)
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	qb.WriteString(` ORDER BY started_at DESC, id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var (
			rec        types.Record
			kind       sql.NullString
			folder     sql.NullString
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Archive, &rec.Success, &kind, &folder, &rec.Message,
			&rec.FilesCount, &startedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Kind = kind.String
		rec.Folder = folder.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			rec.StartedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary counts recorded runs by result.
type Summary struct {
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    int            `json:"failed" yaml:"failed"`
	ByKind    map[string]int `json:"by_kind,omitempty" yaml:"by_kind,omitempty"`
}

// Total returns the number of runs counted.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

// Summarize counts every recorded run.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT success, COALESCE(kind, ''), count(*) FROM outcomes GROUP BY success, kind`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing ledger: %w", err)
	}
	defer rows.Close()

	sum := Summary{ByKind: make(map[string]int)}
	for rows.Next() {
		var (
			success bool
			kind    string
			n       int
		)
		if err := rows.Scan(&success, &kind, &n); err != nil {
			return Summary{}, fmt.Errorf("scanning row: %w", err)
		}
		if success {
			sum.Succeeded += n
			continue
		}
		sum.Failed += n
		if kind != "" {
			sum.ByKind[kind] += n
		}
	}
	return sum, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)
)

// Supported database/sql driver names.
const (
	DriverSQLite3 = "sqlite3"
	DriverSQLite  = "sqlite"
)

// SQLConfig configures a SQLStore.
type SQLConfig struct {
	// Driver is DriverSQLite3 or DriverSQLite.
	Driver string

	// Path is the database file.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLStore implements Store on SQLite through database/sql.
type SQLStore struct {
	db     *sql.DB
	config SQLConfig
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens (creating if needed) the database and applies the schema.
func NewSQLStore(cfg SQLConfig, logger *slog.Logger) (*SQLStore, error) {
	if cfg.Driver != DriverSQLite3 && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history."+cfg.Driver)

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, NewStorageError(cfg.Driver, "open", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	// One writer per process; PRAGMAs below then apply to every statement.
	db.SetMaxOpenConns(1)

	s := &SQLStore{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError(s.config.Driver, "enable_wal", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError(s.config.Driver, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(s.config.Driver, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixMilli()); err != nil {
		return NewStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// RecordRun implements Store.
func (s *SQLStore) RecordRun(ctx context.Context, run *Run) error {
	totals, err := json.Marshal(run.Totals)
	if err != nil {
		return NewStorageError(s.config.Driver, "record", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.config.Driver, "record", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, environment, source, retention_count, destructive, outcome, error, totals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Environment,
		run.Source,
		run.RetentionCount,
		boolToInt(run.Destructive),
		run.Outcome,
		nullString(run.Error),
		string(totals),
	)
	if err != nil {
		return NewStorageError(s.config.Driver, "record", err)
	}

	for i, cb := range run.Cookbooks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cookbooks (run_id, position, name, pinned, outcome, reason, total, kept, planned)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, cb.Name, nullString(cb.Pinned), cb.Outcome, nullString(cb.Reason), cb.Total, cb.Kept, cb.Planned,
		)
		if err != nil {
			return NewStorageError(s.config.Driver, "record_cookbook", err)
		}

		for j, d := range cb.Deletions {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO deletions (run_id, cookbook, position, version, error)
				VALUES (?, ?, ?, ?, ?)`,
				run.ID, cb.Name, j, d.Version, nullString(d.Error),
			)
			if err != nil {
				return NewStorageError(s.config.Driver, "record_deletion", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError(s.config.Driver, "record", err)
	}
	return nil
}

const selectRun = `SELECT id, started_at, finished_at, environment, source, retention_count, destructive, outcome, error, totals FROM runs`

// ListRuns implements Store.
func (s *SQLStore) ListRuns(ctx context.Context, query Query) ([]*Run, error) {
	var (
		where []string
		args  []any
	)
	if query.Environment != "" {
		where = append(where, "environment = ?")
		args = append(args, query.Environment)
	}
	if !query.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, query.Since.UnixMilli())
	}
	if query.DestructiveOnly {
		where = append(where, "destructive = 1")
	}

	sqlQuery := selectRun
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sqlQuery += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, NewStorageError(s.config.Driver, "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	return runs, nil
}

// GetRun implements Store.
func (s *SQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRun+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "get", err)
	}

	if err := s.loadCookbooks(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LastRun implements Store.
func (s *SQLStore) LastRun(ctx context.Context) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRun+" ORDER BY started_at DESC LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "last", err)
	}
	return run, nil
}

func (s *SQLStore) loadCookbooks(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, pinned, outcome, reason, total, kept, planned
		FROM cookbooks WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return NewStorageError(s.config.Driver, "get_cookbooks", err)
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var (
			cb             Cookbook
			pinned, reason sql.NullString
		)
		if err := rows.Scan(&cb.Name, &pinned, &cb.Outcome, &reason, &cb.Total, &cb.Kept, &cb.Planned); err != nil {
			return NewStorageError(s.config.Driver, "scan_cookbook", err)
		}
		cb.Pinned = pinned.String
		cb.Reason = reason.String
		index[cb.Name] = len(run.Cookbooks)
		run.Cookbooks = append(run.Cookbooks, cb)
	}
	if err := rows.Err(); err != nil {
		return NewStorageError(s.config.Driver, "get_cookbooks", err)
	}

	drows, err := s.db.QueryContext(ctx, `
		SELECT cookbook, version, error
		FROM deletions WHERE run_id = ? ORDER BY cookbook, position`, run.ID)
	if err != nil {
		return NewStorageError(s.config.Driver, "get_deletions", err)
	}
	defer drows.Close()

	for drows.Next() {
		var (
			cookbook string
			d        Deletion
			derr     sql.NullString
		)
		if err := drows.Scan(&cookbook, &d.Version, &derr); err != nil {
			return NewStorageError(s.config.Driver, "scan_deletion", err)
		}
		d.Error = derr.String
		if i, ok := index[cookbook]; ok {
			run.Cookbooks[i].Deletions = append(run.Cookbooks[i].Deletions, d)
		}
	}
	if err := drows.Err(); err != nil {
		return NewStorageError(s.config.Driver, "get_deletions", err)
	}
	return nil
}

// Prune implements Store.
func (s *SQLStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	ms := cutoff.UnixMilli()
	for _, stmt := range []string{
		`DELETE FROM deletions WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM cookbooks WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, ms); err != nil {
			return 0, NewStorageError(s.config.Driver, "prune", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, ms)
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}

	s.logger.Info("pruned run history", "cutoff", cutoff, "runs", count)
	return count, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                   Run
		startedMs, finishedMs int64
		destructive           int
		source, runErr        sql.NullString
		totals                string
	)
	if err := row.Scan(&run.ID, &startedMs, &finishedMs, &run.Environment, &source,
		&run.RetentionCount, &destructive, &run.Outcome, &runErr, &totals); err != nil {
		return nil, err
	}

	run.StartedAt = time.UnixMilli(startedMs).UTC()
	run.FinishedAt = time.UnixMilli(finishedMs).UTC()
	run.Destructive = destructive != 0
	run.Source = source.String
	run.Error = runErr.String
	if err := json.Unmarshal([]byte(totals), &run.Totals); err != nil {
		return nil, fmt.Errorf("failed to decode totals: %w", err)
	}
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package store archives repair runs and their triggers in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/planbiir/triggerfix/internal/fix"
	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store handles SQLite persistence. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Run is one archived repair run.
type Run struct {
	ID            int64
	StartedAt     time.Time
	PositionsFile string
	EventsFile    string
	Format        string // position log layout
	Strategy      string
	Stats         fix.Stats
}

// Open creates a Store at dbPath, creating tables if needed. ":memory:"
// opens an in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// in-memory databases exist per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		positions_file TEXT NOT NULL,
		events_file TEXT NOT NULL,
		format TEXT NOT NULL,
		strategy TEXT NOT NULL,
		position_points INTEGER NOT NULL,
		original_triggers INTEGER NOT NULL,
		gaps_detected INTEGER NOT NULL,
		missing_estimated INTEGER NOT NULL,
		interpolated_triggers INTEGER NOT NULL,
		discarded INTEGER NOT NULL,
		flight_duration_ms INTEGER NOT NULL,
		path_length_m REAL NOT NULL,
		min_spacing_m REAL,
		avg_spacing_m REAL,
		max_spacing_m REAL,
		processing_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS triggers (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		week INTEGER NOT NULL,
		seconds REAL NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		height REAL NOT NULL,
		distance_from_prev REAL,
		interpolated INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_triggers_interpolated ON triggers(run_id, interpolated);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveRun stores run and its combined trigger list in one transaction and
// returns the new run id.
func (s *Store) SaveRun(ctx context.Context, run Run, triggers []pos.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st := run.Stats
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			started_at, positions_file, events_file, format, strategy,
			position_points, original_triggers, gaps_detected, missing_estimated,
			interpolated_triggers, discarded, flight_duration_ms, path_length_m,
			min_spacing_m, avg_spacing_m, max_spacing_m, processing_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartedAt.UTC(),
		run.PositionsFile,
		run.EventsFile,
		run.Format,
		run.Strategy,
		st.PositionPoints,
		st.OriginalTriggers,
		st.GapsDetected,
		st.MissingEstimated,
		st.InterpolatedTriggers,
		st.Discarded,
		st.FlightDuration.Milliseconds(),
		st.PathLength,
		nullable(st.MinSpacing),
		nullable(st.AvgSpacing),
		nullable(st.MaxSpacing),
		st.ProcessingTime.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triggers (
			run_id, seq, week, seconds, lat, lon, height, distance_from_prev, interpolated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare trigger insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range triggers {
		if _, err := stmt.ExecContext(ctx,
			id, i, e.Week, e.Seconds, e.Lat, e.Lon, e.Height,
			nullable(e.DistanceFromPrev), boolToInt(e.Interpolated),
		); err != nil {
			return 0, fmt.Errorf("insert trigger %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const runColumns = `
	id, started_at, positions_file, events_file, format, strategy,
	position_points, original_triggers, gaps_detected, missing_estimated,
	interpolated_triggers, discarded, flight_duration_ms, path_length_m,
	min_spacing_m, avg_spacing_m, max_spacing_m, processing_ms`

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Triggers returns the archived triggers of a run in stored order. With
// interpolatedOnly set, logged triggers are skipped.
func (s *Store) Triggers(ctx context.Context, runID int64, interpolatedOnly bool) ([]pos.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT week, seconds, lat, lon, height, distance_from_prev, interpolated
		FROM triggers
		WHERE run_id = ?`
	if interpolatedOnly {
		query += ` AND interpolated = 1`
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []pos.Event
	for rows.Next() {
		var (
			e            pos.Event
			dist         sql.NullFloat64
			interpolated int
		)
		if err := rows.Scan(&e.Week, &e.Seconds, &e.Lat, &e.Lon, &e.Height, &dist, &interpolated); err != nil {
			return nil, err
		}
		e.Time = geo.GPSToTime(e.Week, e.Seconds)
		e.Interpolated = interpolated != 0
		if dist.Valid {
			d := dist.Float64
			e.DistanceFromPrev = &d
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteRun removes a run and its triggers.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete triggers: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                         Run
		durationMS, processingMS    int64
		minSpacing, avg, maxSpacing sql.NullFloat64
	)
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&run.PositionsFile,
		&run.EventsFile,
		&run.Format,
		&run.Strategy,
		&run.Stats.PositionPoints,
		&run.Stats.OriginalTriggers,
		&run.Stats.GapsDetected,
		&run.Stats.MissingEstimated,
		&run.Stats.InterpolatedTriggers,
		&run.Stats.Discarded,
		&durationMS,
		&run.Stats.PathLength,
		&minSpacing,
		&avg,
		&maxSpacing,
		&processingMS,
	)
	if err != nil {
		return nil, err
	}
	run.Stats.FlightDuration = time.Duration(durationMS) * time.Millisecond
	run.Stats.ProcessingTime = time.Duration(processingMS) * time.Millisecond
	run.Stats.MinSpacing = fromNull(minSpacing)
	run.Stats.AvgSpacing = fromNull(avg)
	run.Stats.MaxSpacing = fromNull(maxSpacing)
	return &run, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

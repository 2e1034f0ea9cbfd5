// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists finished tutor runs in a SQLite database so they
// can be listed and inspected later. The pipeline never reads from it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

const defaultListLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
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
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow TEXT,
			goal TEXT NOT NULL,
			provider TEXT,
			model TEXT,
			outline TEXT,
			good_quality INTEGER,
			matches_goal INTEGER,
			lessons TEXT,
			outcome TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS spans (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			agent TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER,
			input_bytes INTEGER,
			output_bytes INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores rec and its spans in one transaction. Recording the same
// ID twice replaces the earlier entry.
func (s *Store) Record(ctx context.Context, rec types.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var quality, matches sql.NullBool
	if rec.Verdict != nil {
		quality = sql.NullBool{Bool: rec.Verdict.IsHighQuality, Valid: true}
		matches = sql.NullBool{Bool: rec.Verdict.MatchesGoal, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM spans WHERE run_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("deleting old spans: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, workflow, goal, provider, model, outline, good_quality, matches_goal,
			lessons, outcome, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			workflow=excluded.workflow, goal=excluded.goal, provider=excluded.provider,
			model=excluded.model, outline=excluded.outline, good_quality=excluded.good_quality,
			matches_goal=excluded.matches_goal, lessons=excluded.lessons, outcome=excluded.outcome,
			error=excluded.error, started_at=excluded.started_at, duration_ms=excluded.duration_ms`,
		rec.ID, rec.Workflow, string(rec.Goal), string(rec.Provider), rec.Model,
		string(rec.Outline), quality, matches, string(rec.Lessons), string(rec.Outcome),
		rec.Error, rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spans (run_id, seq, stage, agent, started_at, duration_ms, input_bytes, output_bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing span insert: %w", err)
	}
	defer stmt.Close()

	for i, sp := range rec.Spans {
		_, err := stmt.ExecContext(ctx,
			rec.ID, i, sp.Stage, sp.Agent, sp.StartedAt.UTC().Format(timeLayout),
			sp.Duration.Milliseconds(), sp.InputBytes, sp.OutputBytes, sp.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting span %d of run %s: %w", i, rec.ID, err)
		}
	}

	return tx.Commit()
}

// Summary is one row of List: a run without its long text fields.
type Summary struct {
	ID        string         `json:"id"`
	Goal      types.Goal     `json:"goal"`
	Provider  types.Provider `json:"provider"`
	Model     string         `json:"model"`
	Outcome   types.Outcome  `json:"outcome"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// List returns up to limit runs, newest first. A limit of 0 or less uses
// the default (20).
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal, provider, model, outcome, started_at, duration_ms
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum        Summary
			goal       string
			provider   string
			outcome    string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&sum.ID, &goal, &provider, &sum.Model, &outcome, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.Goal = types.Goal(goal)
		sum.Provider = types.Provider(provider)
		sum.Outcome = types.Outcome(outcome)
		sum.StartedAt = parseTime(startedAt)
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the full record for id, including spans.
func (s *Store) Get(ctx context.Context, id string) (types.RunRecord, error) {
	var (
		rec        types.RunRecord
		goal       string
		provider   string
		outline    string
		lessons    string
		outcome    string
		errText    sql.NullString
		workflow   sql.NullString
		startedAt  string
		durationMS int64
		quality    sql.NullBool
		matches    sql.NullBool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workflow, goal, provider, model, outline, good_quality, matches_goal,
			lessons, outcome, error, started_at, duration_ms
		 FROM runs WHERE id = ?`, id,
	).Scan(&rec.ID, &workflow, &goal, &provider, &rec.Model, &outline, &quality, &matches,
		&lessons, &outcome, &errText, &startedAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("reading run %s: %w", id, err)
	}

	rec.Workflow = workflow.String
	rec.Goal = types.Goal(goal)
	rec.Provider = types.Provider(provider)
	rec.Outline = types.CurriculumOutline(outline)
	rec.Lessons = types.Lessons(lessons)
	rec.Outcome = types.Outcome(outcome)
	rec.Error = errText.String
	rec.StartedAt = parseTime(startedAt)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if quality.Valid && matches.Valid {
		rec.Verdict = &types.Verdict{IsHighQuality: quality.Bool, MatchesGoal: matches.Bool}
	}

	spans, err := s.spans(ctx, id)
	if err != nil {
		return types.RunRecord{}, err
	}
	rec.Spans = spans
	return rec, nil
}

func (s *Store) spans(ctx context.Context, runID string) ([]types.Span, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, agent, started_at, duration_ms, input_bytes, output_bytes, error
		 FROM spans WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("reading spans for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.Span
	for rows.Next() {
		var (
			sp         types.Span
			startedAt  string
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(&sp.Stage, &sp.Agent, &startedAt, &durationMS, &sp.InputBytes, &sp.OutputBytes, &errText); err != nil {
			return nil, fmt.Errorf("scanning span: %w", err)
		}
		sp.StartedAt = parseTime(startedAt)
		sp.Duration = time.Duration(durationMS) * time.Millisecond
		sp.Error = errText.String
		out = append(out, sp)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

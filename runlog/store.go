package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/uiproof/runid"
)

// Store wraps the run-history database.
type Store struct {
	DB *sql.DB

	// NewID produces run identifiers. Defaults to runid.Default.
	NewID runid.Generator
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, NewID: runid.Default}
}

// InsertRun records the start of a run. Missing fields are filled: ID from
// the store's generator, StartedAt with the current time, Status "running".
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = s.NewID()
	}
	if r.StartedAt == 0 {
		r.StartedAt = time.Now().UnixMilli()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, url, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Scenario, r.URL, r.Status, r.Error, r.StartedAt, r.FinishedAt,
	)
	return err
}

// FinishRun closes a run record with its final status. runErr carries the
// failure when status is "failed"; pass nil on success.
func (s *Store) FinishRun(ctx context.Context, id, status string, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE runs SET status=?, error=?, finished_at=? WHERE id=?`,
		status, errText, now, id,
	)
	return err
}

// GetRun retrieves a run by ID. Returns (nil, nil) when no run matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, scenario, url, status, error, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, scenario, url, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of recorded runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// InsertArtifact records a file produced by a run. CreatedAt is filled with
// the current time when zero; the generated row ID is written back.
func (s *Store) InsertArtifact(ctx context.Context, a *Artifact) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, kind, path, bytes, width, height, pages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Kind, a.Path, a.Bytes, a.Width, a.Height, a.Pages, a.CreatedAt,
	)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// GetArtifact retrieves an artifact by row ID. Returns (nil, nil) when no
// artifact matches.
func (s *Store) GetArtifact(ctx context.Context, id int64) (*Artifact, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, run_id, kind, path, bytes, width, height, pages, created_at
		FROM artifacts WHERE id = ?`, id)
	var a Artifact
	err := row.Scan(&a.ID, &a.RunID, &a.Kind, &a.Path, &a.Bytes, &a.Width, &a.Height, &a.Pages, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return &a, nil
}

// ArtifactsByRun returns a run's artifacts in creation order.
func (s *Store) ArtifactsByRun(ctx context.Context, runID string) ([]*Artifact, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, kind, path, bytes, width, height, pages, created_at
		FROM artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Kind, &a.Path, &a.Bytes, &a.Width, &a.Height, &a.Pages, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}

// EventsByRun returns a run's step events in sequence order.
func (s *Store) EventsByRun(ctx context.Context, runID string) ([]*Event, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, seq, step, detail, error, elapsed_ms, created_at
		FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Step, &e.Detail, &e.Error, &e.ElapsedMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Scenario, &r.URL, &r.Status, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}

func scanRunRows(rows *sql.Rows) (*Run, error) {
	var r Run
	err := rows.Scan(&r.ID, &r.Scenario, &r.URL, &r.Status, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}

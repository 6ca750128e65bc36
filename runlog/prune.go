package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetentionConfig specifies per-status retention in days. Zero means keep
// forever. Failed runs are usually kept longer than successful ones.
type RetentionConfig struct {
	OKDays         int
	FailedDays     int
	RunVacuumAfter bool
}

// PruneStats reports what a Prune pass removed.
type PruneStats struct {
	RunsDeleted   int64 `json:"runs_deleted"`
	EventsDeleted int64 `json:"events_deleted"`
}

// Prune deletes runs exceeding the retention thresholds. Artifacts cascade
// with their run; events carry no foreign key, so orphans are swept in a
// second pass.
func Prune(ctx context.Context, db *sql.DB, cfg RetentionConfig) (PruneStats, error) {
	var stats PruneStats
	now := time.Now().UnixMilli()

	type target struct {
		status string
		days   int
	}
	targets := []target{
		{StatusOK, cfg.OKDays},
		{StatusFailed, cfg.FailedDays},
	}

	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days)*86_400_000
		res, err := db.ExecContext(ctx,
			`DELETE FROM runs WHERE status = ? AND started_at < ?`, t.status, cutoff)
		if err != nil {
			return stats, fmt.Errorf("runlog: prune %s runs: %w", t.status, err)
		}
		n, _ := res.RowsAffected()
		stats.RunsDeleted += n
	}

	res, err := db.ExecContext(ctx,
		`DELETE FROM events WHERE run_id NOT IN (SELECT id FROM runs)`)
	if err != nil {
		return stats, fmt.Errorf("runlog: prune orphan events: %w", err)
	}
	stats.EventsDeleted, _ = res.RowsAffected()

	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return stats, fmt.Errorf("runlog: vacuum: %w", err)
		}
	}
	return stats, nil
}

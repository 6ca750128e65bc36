package runlog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(OpenMemory(t))
}

func TestApplySchema(t *testing.T) {
	// WHAT: Verify schema creates all tables without error.
	// WHY: Schema is the foundation — if it fails, nothing works.
	db := OpenMemory(t)
	for _, table := range []string{"runs", "artifacts", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInsertRun_FillsDefaults(t *testing.T) {
	// WHAT: InsertRun generates an ID, start time, and running status.
	// WHY: Callers hand over a bare scenario name; the store owns identity.
	s := openTestStore(t)
	ctx := context.Background()

	r := &Run{Scenario: "arcade", URL: "http://localhost:8080"}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated ID")
	}
	if r.StartedAt == 0 {
		t.Error("expected started_at to be filled")
	}
	if r.Status != StatusRunning {
		t.Errorf("status: got %q, want %q", r.Status, StatusRunning)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.Scenario != "arcade" {
		t.Errorf("scenario: got %q", got.Scenario)
	}
	if got.FinishedAt != nil {
		t.Error("finished_at should be nil while running")
	}
}

func TestFinishRun(t *testing.T) {
	// WHAT: FinishRun records final status, error text, and finish time.
	// WHY: A run row left in "running" forever means the close path was skipped.
	s := openTestStore(t)
	ctx := context.Background()

	r := &Run{Scenario: "arcade"}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if err := s.FinishRun(ctx, r.ID, StatusFailed, errors.New("wait for #game-canvas: timeout")); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("status: got %q, want %q", got.Status, StatusFailed)
	}
	if got.Error == "" {
		t.Error("expected error text to be stored")
	}
	if got.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
}

func TestGetRun_Missing(t *testing.T) {
	// WHAT: GetRun returns (nil, nil) for an unknown ID.
	// WHY: Absence is a normal outcome, not an error.
	s := openTestStore(t)
	got, err := s.GetRun(context.Background(), "run_missing")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestListRuns_OrderAndLimit(t *testing.T) {
	// WHAT: ListRuns returns newest first and honors the limit.
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		r := &Run{Scenario: fmt.Sprintf("sc-%d", i), StartedAt: base + int64(i)}
		if err := s.InsertRun(ctx, r); err != nil {
			t.Fatalf("insert run %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Scenario != "sc-4" {
		t.Errorf("newest first: got %q, want sc-4", runs[0].Scenario)
	}
	if runs[2].Scenario != "sc-2" {
		t.Errorf("third: got %q, want sc-2", runs[2].Scenario)
	}
}

func TestInsertArtifact_AndListByRun(t *testing.T) {
	// WHAT: Artifacts attach to a run and come back in creation order.
	s := openTestStore(t)
	ctx := context.Background()

	r := &Run{Scenario: "arcade"}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	for _, name := range []string{"arcade_front.png", "arcade_side.png", "arcade_input_up.png"} {
		a := &Artifact{RunID: r.ID, Kind: KindPNG, Path: "verification/" + name, Bytes: 1024, Width: 1600, Height: 1200}
		if err := s.InsertArtifact(ctx, a); err != nil {
			t.Fatalf("insert artifact %s: %v", name, err)
		}
		if a.ID == 0 {
			t.Fatalf("artifact %s: expected row ID to be written back", name)
		}
	}

	artifacts, err := s.ArtifactsByRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("artifacts by run: %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Path != "verification/arcade_front.png" {
		t.Errorf("first artifact: got %q", artifacts[0].Path)
	}
	if artifacts[1].Width != 1600 || artifacts[1].Height != 1200 {
		t.Errorf("dimensions: got %dx%d", artifacts[1].Width, artifacts[1].Height)
	}
}

func TestGetArtifact_Missing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetArtifact(context.Background(), 999)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestArtifacts_CascadeOnRunDelete(t *testing.T) {
	// WHAT: Deleting a run removes its artifacts through the foreign key.
	// WHY: Prune relies on the cascade; a dangling artifact row points at a
	// file nobody can reach from the API.
	s := openTestStore(t)
	ctx := context.Background()

	r := &Run{Scenario: "arcade"}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	a := &Artifact{RunID: r.ID, Kind: KindPNG, Path: "verification/arcade_front.png"}
	if err := s.InsertArtifact(ctx, a); err != nil {
		t.Fatalf("insert artifact: %v", err)
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.ID); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	artifacts, err := s.ArtifactsByRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("artifacts by run: %v", err)
	}
	if len(artifacts) != 0 {
		t.Fatalf("expected cascade delete, got %d artifacts", len(artifacts))
	}
}

func TestRecorder_FlushOnClose(t *testing.T) {
	// WHAT: Events queued through RecordAsync are persisted by Close.
	// WHY: The recorder is fire-and-forget during a run; Close is the only
	// point where delivery is guaranteed.
	s := openTestStore(t)
	ctx := context.Background()

	r := &Run{Scenario: "arcade"}
	if err := s.InsertRun(ctx, r); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	rec := NewRecorder(s.DB)
	for i := 0; i < 10; i++ {
		rec.RecordAsync(&Event{RunID: r.ID, Seq: i, Step: "sleep", ElapsedMs: int64(i)})
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close recorder: %v", err)
	}

	events, err := s.EventsByRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("events by run: %v", err)
	}
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	if events[0].Seq != 0 || events[9].Seq != 9 {
		t.Errorf("sequence order: got first=%d last=%d", events[0].Seq, events[9].Seq)
	}
	if rec.Dropped() != 0 {
		t.Errorf("dropped: got %d, want 0", rec.Dropped())
	}
}

func TestRecorder_CloseIdempotent(t *testing.T) {
	s := openTestStore(t)
	rec := NewRecorder(s.DB)
	if err := rec.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestPrune_RetentionAndOrphans(t *testing.T) {
	// WHAT: Prune removes old runs per status and sweeps orphan events.
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Now().UnixMilli() - 10*86_400_000
	oldOK := &Run{Scenario: "old-ok", Status: StatusOK, StartedAt: old}
	oldFailed := &Run{Scenario: "old-failed", Status: StatusFailed, StartedAt: old}
	fresh := &Run{Scenario: "fresh", Status: StatusOK}
	for _, r := range []*Run{oldOK, oldFailed, fresh} {
		if err := s.InsertRun(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", r.Scenario, err)
		}
	}
	// Event belonging to the run that will be pruned.
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO events (run_id, seq, step, detail, elapsed_ms, created_at) VALUES (?, 0, 'navigate', '', 0, ?)`,
		oldOK.ID, old); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	// OK runs kept 7 days, failed runs kept 30: only old-ok goes.
	stats, err := Prune(ctx, s.DB, RetentionConfig{OKDays: 7, FailedDays: 30})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if stats.RunsDeleted != 1 {
		t.Errorf("runs deleted: got %d, want 1", stats.RunsDeleted)
	}
	if stats.EventsDeleted != 1 {
		t.Errorf("events deleted: got %d, want 1", stats.EventsDeleted)
	}

	if got, _ := s.GetRun(ctx, oldOK.ID); got != nil {
		t.Error("old ok run should be pruned")
	}
	if got, _ := s.GetRun(ctx, oldFailed.ID); got == nil {
		t.Error("old failed run should survive a 30-day window")
	}
	if got, _ := s.GetRun(ctx, fresh.ID); got == nil {
		t.Error("fresh run should survive")
	}
}

func TestPrune_ZeroDaysKeepsEverything(t *testing.T) {
	// WHAT: Zero retention means keep forever.
	s := openTestStore(t)
	ctx := context.Background()

	old := &Run{Scenario: "ancient", Status: StatusOK, StartedAt: 1}
	if err := s.InsertRun(ctx, old); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats, err := Prune(ctx, s.DB, RetentionConfig{})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if stats.RunsDeleted != 0 {
		t.Errorf("runs deleted: got %d, want 0", stats.RunsDeleted)
	}
}

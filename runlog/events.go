package runlog

import (
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder persists step events asynchronously so a scenario step never
// waits on the history database.
type Recorder struct {
	db      *sql.DB
	ch      chan *Event
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewRecorder creates a recorder backed by the given database connection
// and starts its flush goroutine.
func NewRecorder(db *sql.DB) *Recorder {
	r := &Recorder{
		db:   db,
		ch:   make(chan *Event, 1024),
		done: make(chan struct{}),
	}
	go r.flushLoop()
	return r
}

// RecordAsync queues an event for persistence. Non-blocking; when the buffer
// is full the event is dropped and counted, never slowing the run.
func (r *Recorder) RecordAsync(e *Event) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	select {
	case r.ch <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains the buffer and stops the flush goroutine.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.ch)
		<-r.done
	})
	return nil
}

func (r *Recorder) flushLoop() {
	defer close(r.done)

	batch := make([]*Event, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-r.ch:
			if !ok {
				r.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flushBatch(batch []*Event) {
	if len(batch) == 0 {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		slog.Error("runlog recorder: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO events (run_id, seq, step, detail, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("runlog recorder: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.RunID, e.Seq, e.Step, e.Detail, e.Error, e.ElapsedMs, e.CreatedAt); err != nil {
			slog.Error("runlog recorder: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("runlog recorder: commit", "error", err)
	}
}

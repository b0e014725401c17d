// Package sqlite persists decision transitions to a local SQLite journal.
// Only transitions are stored — raw ticks are never persisted beyond the
// in-memory rolling window.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"signal-servicev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite journal writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Writer is a single-goroutine SQLite journal with transaction batching.
type Writer struct {
	db *sql.DB

	// OnCommit is called after each batch commit with the batch size and
	// commit duration. Optional; wired to metrics.
	OnCommit func(n int, d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new journal Writer, initializing the database with WAL mode
// and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened journal at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_transitions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol        TEXT    NOT NULL,
			ts            INTEGER NOT NULL,
			trend         TEXT    NOT NULL,
			decision      TEXT    NOT NULL,
			prev_decision TEXT    NOT NULL,
			rsi           REAL    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transitions_symbol_ts
			ON signal_transitions (symbol, ts DESC);
	`)
	return err
}

// Run reads transition events and inserts them in batched transactions.
// Flushes every batchSize events OR every flushDelay, whichever comes first.
// Blocks until ctx is cancelled or eventCh is closed.
func (w *Writer) Run(ctx context.Context, eventCh <-chan model.SignalEvent) {
	batch := make([]model.SignalEvent, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else if w.OnCommit != nil {
			w.OnCommit(len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-eventCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= defaultBatchSize {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertBatch(batch []model.SignalEvent) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO signal_transitions (symbol, ts, trend, decision, prev_decision, rsi)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range batch {
		if _, err := stmt.Exec(
			ev.Symbol,
			ev.TS.UnixMilli(),
			string(ev.Signal.Trend),
			string(ev.Signal.Decision),
			string(ev.Prev),
			ev.Signal.RSI,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recent transitions for a symbol, newest first.
func (w *Writer) Recent(symbol string, limit int) ([]model.SignalEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.db.Query(`
		SELECT symbol, ts, trend, decision, prev_decision, rsi
		FROM signal_transitions
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []model.SignalEvent
	for rows.Next() {
		var ev model.SignalEvent
		var tsMilli int64
		var trend, decision, prev string
		if err := rows.Scan(&ev.Symbol, &tsMilli, &trend, &decision, &prev, &ev.Signal.RSI); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ev.TS = time.UnixMilli(tsMilli).UTC()
		ev.Signal.Trend = model.Trend(trend)
		ev.Signal.Decision = model.Decision(decision)
		ev.Prev = model.Decision(prev)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	return w.db.Close()
}

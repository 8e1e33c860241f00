package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Batch summarises one runner batch.
type Batch struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Agents    []string      `json:"agents"`
	Requested int           `json:"requested"`
	Completed int           `json:"completed"`
	Tally     []int         `json:"tally"`
	Stopped   bool          `json:"stopped"` // ended before all requested games were played
}

// AgentTotal aggregates every seat a strategy has played across batches.
type AgentTotal struct {
	Agent string `json:"agent"`
	Games int    `json:"games"`
	Wins  int    `json:"wins"`
}

// Ledger wraps the SQLite connection holding batch history.
type Ledger struct {
	conn *sql.DB
	mu   sync.Mutex
}

// OpenLedger opens (or creates) the ledger at path. ":memory:" works for
// throwaway ledgers.
func OpenLedger(path string) (*Ledger, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// SQLite only supports one writer, and ":memory:" is per connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	l := &Ledger{conn: conn}
	if err := l.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,   -- unix milliseconds
		elapsed_ms INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		agents TEXT NOT NULL,          -- JSON array of strategy names, one per seat
		requested INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		tally TEXT NOT NULL,           -- JSON array of wins, one per seat
		stopped BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS seats (
		batch_id TEXT NOT NULL,
		seat INTEGER NOT NULL,
		agent TEXT NOT NULL,
		games INTEGER NOT NULL,
		wins INTEGER NOT NULL,
		PRIMARY KEY (batch_id, seat),
		FOREIGN KEY(batch_id) REFERENCES batches(id)
	);

	CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
	CREATE INDEX IF NOT EXISTS idx_seats_agent ON seats(agent);
	`

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.conn.Exec(schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// RecordBatch stores a batch and its per-seat results in one transaction.
func (l *Ledger) RecordBatch(ctx context.Context, b Batch) error {
	if len(b.Agents) != len(b.Tally) {
		return fmt.Errorf("batch %s: %d agents but %d tally entries", b.ID, len(b.Agents), len(b.Tally))
	}
	agents, err := json.Marshal(b.Agents)
	if err != nil {
		return fmt.Errorf("encode agents: %w", err)
	}
	tally, err := json.Marshal(b.Tally)
	if err != nil {
		return fmt.Errorf("encode tally: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, started_at, elapsed_ms, width, height, agents, requested, completed, tally, stopped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.StartedAt.UnixMilli(), b.Elapsed.Milliseconds(), b.Width, b.Height,
		string(agents), b.Requested, b.Completed, string(tally), b.Stopped,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO seats (batch_id, seat, agent, games, wins) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare seat statement: %w", err)
	}
	defer stmt.Close()

	for seat, agent := range b.Agents {
		if _, err := stmt.ExecContext(ctx, b.ID, seat, agent, b.Completed, b.Tally[seat]); err != nil {
			return fmt.Errorf("insert seat %d: %w", seat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Batches returns the most recent batches, newest first.
func (l *Ledger) Batches(ctx context.Context, limit int) ([]Batch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.conn.QueryContext(ctx,
		`SELECT id, started_at, elapsed_ms, width, height, agents, requested, completed, tally, stopped
		 FROM batches ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var (
			b                  Batch
			startedMs, elapsed int64
			agents, tally      string
		)
		if err := rows.Scan(&b.ID, &startedMs, &elapsed, &b.Width, &b.Height, &agents, &b.Requested, &b.Completed, &tally, &b.Stopped); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.StartedAt = time.UnixMilli(startedMs)
		b.Elapsed = time.Duration(elapsed) * time.Millisecond
		if err := json.Unmarshal([]byte(agents), &b.Agents); err != nil {
			return nil, fmt.Errorf("decode agents of %s: %w", b.ID, err)
		}
		if err := json.Unmarshal([]byte(tally), &b.Tally); err != nil {
			return nil, fmt.Errorf("decode tally of %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AgentTotals sums games and wins per strategy over every recorded seat.
func (l *Ledger) AgentTotals(ctx context.Context) ([]AgentTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.conn.QueryContext(ctx,
		`SELECT agent, SUM(games), SUM(wins) FROM seats GROUP BY agent ORDER BY SUM(wins) DESC, agent`)
	if err != nil {
		return nil, fmt.Errorf("query agent totals: %w", err)
	}
	defer rows.Close()

	var out []AgentTotal
	for rows.Next() {
		var t AgentTotal
		if err := rows.Scan(&t.Agent, &t.Games, &t.Wins); err != nil {
			return nil, fmt.Errorf("scan agent total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error {
	return l.conn.Close()
}

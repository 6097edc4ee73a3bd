// Package storage is the embedded relational persistence layer: a
// WAL-mode SQLite database holding the raw event log (for backtest
// replay) and the two execution-journal tables the legacy and
// extended schemas require. Grounded on the teacher's EventStore,
// adapted from a generic event-type payload to the wire protocol's
// tagged packets and the execution simulator's fill records.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cortex/internal/execution"
	"cortex/internal/wire"
	"cortex/pkg/quant"

	_ "github.com/glebarez/go-sqlite"
)

// Store owns the single SQLite connection used for both the replay
// log and the trade journal.
type Store struct {
	db *sql.DB
}

// Open creates (or attaches to) the SQLite database at path, in WAL
// journal mode with synchronous=NORMAL, and ensures every table this
// package needs exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wal_events (
			seq INTEGER PRIMARY KEY,
			tag INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		// Legacy schema: one row per fill, minimal fields, matching the
		// original engine's first-generation trade log.
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			qty REAL NOT NULL,
			ts INTEGER NOT NULL
		);`,
		// Extended schema: full E8 precision plus post-fill account
		// telemetry, used by the dashboard and by post-hoc analysis.
		`CREATE TABLE IF NOT EXISTS trade_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			side TEXT NOT NULL,
			price_e8 INTEGER NOT NULL,
			qty_e8 INTEGER NOT NULL,
			realized_pnl_e8 INTEGER NOT NULL,
			position_after_e8 INTEGER NOT NULL,
			avg_entry_after_e8 INTEGER NOT NULL,
			taker INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("storage: migrate: %w", err)
		}
	}
	return nil
}

// SaveWALEvent appends one raw wire event to the replay log.
func (s *Store) SaveWALEvent(ctx context.Context, seq uint64, tag byte, ts int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO wal_events (seq, tag, ts, payload) VALUES (?, ?, ?, ?)",
		seq, tag, ts, payload,
	)
	if err != nil {
		return fmt.Errorf("storage: save wal event: %w", err)
	}
	return nil
}

// WALRecord is one row of the replay log.
type WALRecord struct {
	Seq     uint64
	Tag     byte
	Ts      int64
	Payload []byte
}

// LoadWALEvents returns every event at or after fromSeq, in order.
func (s *Store) LoadWALEvents(ctx context.Context, fromSeq uint64) ([]WALRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, tag, ts, payload FROM wal_events WHERE seq >= ? ORDER BY seq ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load wal events: %w", err)
	}
	defer rows.Close()

	var out []WALRecord
	for rows.Next() {
		var r WALRecord
		if err := rows.Scan(&r.Seq, &r.Tag, &r.Ts, &r.Payload); err != nil {
			return nil, fmt.Errorf("storage: scan wal event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLastSeq returns the highest sequence number logged, or 0 if empty.
func (s *Store) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM wal_events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("storage: get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil
	}
	return uint64(lastSeq.Int64), nil
}

// RecordFill implements execution.Journal: it writes both the legacy
// and extended schemas for one fill. It is intentionally tolerant —
// storage failures here are reported to the caller but must never be
// allowed to unwind the in-memory simulator state that already
// applied the fill.
func (s *Store) RecordFill(f execution.Fill, position quant.QtyE8, avgEntry quant.PriceE8, realizedTotal int64) error {
	sideStr := "BUY"
	if f.Side == wire.SideSell {
		sideStr = "SELL"
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin fill tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO trades (side, price, qty, ts) VALUES (?, ?, ?, ?)",
		sideStr, float64(f.Price)/float64(quant.Scale), float64(f.Qty)/float64(quant.Scale), int64(f.Timestamp),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("storage: insert legacy trade: %w", err)
	}

	taker := 0
	if f.Taker {
		taker = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trade_log
			(order_id, side, price_e8, qty_e8, realized_pnl_e8, position_after_e8, avg_entry_after_e8, taker, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.OrderID, sideStr, int64(f.Price), int64(f.Qty), f.RealizedPnL, int64(position), int64(avgEntry), taker, int64(f.Timestamp),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("storage: insert trade_log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit fill tx: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

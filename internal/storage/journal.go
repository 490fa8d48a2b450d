// Package storage keeps the SQLite journal of ledger events.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"finbot/internal/core"
)

// timeLayout sorts lexicographically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const DefaultHistoryLimit = 20

// Journal is an append-only, idempotent record of ledger events.
type Journal struct {
	db *sql.DB
}

// Open creates the database directory if needed, applies migrations and
// returns a ready journal.
func Open(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// RecordEvent stores e unless an event with the same id is already there.
// It reports whether a row was inserted.
func (j *Journal) RecordEvent(ctx context.Context, e core.LedgerEvent) (bool, error) {
	res, err := j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_events
			(id, kind, sheet_row, entry_type, amount, description, category, month, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.Kind),
		e.Row,
		string(e.Type),
		e.Amount.String(),
		e.Description,
		string(e.Category),
		e.Month,
		e.OccurredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RecentEvents returns up to limit events, newest first. A non-positive
// limit uses DefaultHistoryLimit.
func (j *Journal) RecentEvents(ctx context.Context, limit int) ([]core.LedgerEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, sheet_row, entry_type, amount, description, category, month, occurred_at
		FROM ledger_events
		ORDER BY occurred_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return out, nil
}

// CountEvents returns the number of journaled events.
func (j *Journal) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger events: %w", err)
	}
	return n, nil
}

func scanEvent(rows *sql.Rows) (core.LedgerEvent, error) {
	var (
		e                                  core.LedgerEvent
		kind, typ, amount, category, stamp string
	)
	if err := rows.Scan(&e.ID, &kind, &e.Row, &typ, &amount, &e.Description, &category, &e.Month, &stamp); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("scan ledger event: %w", err)
	}
	e.Kind = core.EventKind(kind)
	e.Type = core.EntryType(typ)
	e.Category = core.Category(category)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse amount of event %s: %w", e.ID, err)
	}
	e.Amount = d

	at, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse time of event %s: %w", e.ID, err)
	}
	e.OccurredAt = at
	return e, nil
}

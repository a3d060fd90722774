// Package journal keeps a log of task changes in SQLite. It is an append-only record
// used to show what was done recently, task files stay the source of truth.
package journal

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // sqlite driver
)

// Action is a kind of recorded change
type Action string

// enum of recorded actions
const (
	ActionAdd      Action = "add"
	ActionComplete Action = "complete"
	ActionDelete   Action = "delete"
	ActionEdit     Action = "edit"
)

// Event is a single recorded change of a task file
type Event struct {
	ID     string
	TS     time.Time
	File   string
	Action Action
	List   string // in-progress or finished
	Task   string
}

type eventRow struct {
	ID     string `db:"id"`
	TS     int64  `db:"ts"`
	File   string `db:"file"`
	Action string `db:"action"`
	List   string `db:"list"`
	Task   string `db:"task"`
}

// SQLite implements journal using SQLite
type SQLite struct {
	db      *sqlx.DB
	entropy io.Reader
	now     func() time.Time
}

// NewSQLite opens (creates if needed) journal database at dbPath and makes the schema
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	res := &SQLite{db: db, entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
	if err := res.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("[DEBUG] journal %s ready", dbPath)
	return res, nil
}

func (s *SQLite) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			file TEXT NOT NULL,
			action TEXT NOT NULL,
			list TEXT NOT NULL DEFAULT '',
			task TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_file ON events(file)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Record stores the event. ID and TS are set if empty.
func (s *SQLite) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.TS.IsZero() {
		ev.TS = s.now()
	}
	if ev.ID == "" {
		id, err := ulid.New(ulid.Timestamp(ev.TS), s.entropy)
		if err != nil {
			return Event{}, fmt.Errorf("failed to make event id: %w", err)
		}
		ev.ID = strings.ToLower(id.String())
	}

	row := eventRow{ID: ev.ID, TS: ev.TS.UnixNano(), File: ev.File, Action: string(ev.Action), List: ev.List, Task: ev.Task}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO events (id, ts, file, action, list, task) VALUES (:id, :ts, :file, :action, :list, :task)`, row)
	if err != nil {
		return Event{}, fmt.Errorf("failed to record %s for %s: %w", ev.Action, ev.File, err)
	}
	return ev, nil
}

// Recent returns up to limit latest events for the file, newest first
func (s *SQLite) Recent(ctx context.Context, file string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := []eventRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, ts, file, action, list, task FROM events WHERE file = ? ORDER BY ts DESC, id DESC LIMIT ?`, file, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", file, err)
	}

	res := make([]Event, 0, len(rows))
	for _, r := range rows {
		res = append(res, Event{ID: r.ID, TS: time.Unix(0, r.TS), File: r.File, Action: Action(r.Action),
			List: r.List, Task: r.Task})
	}
	return res, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

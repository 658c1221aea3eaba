// Package persistence provides SQLite-based storage of runs, their
// snapshots, records and events.
package persistence

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/engine"
	"github.com/talgya/dtosim/internal/series"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusAborted  = "aborted"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is one stored simulation run.
type Run struct {
	ID        string          `json:"id"`
	Seed      uint64          `json:"seed"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Config    config.Config   `json:"config"`
	Summary   *series.Summary `json:"summary,omitempty"`
}

type runRow struct {
	ID        string         `db:"id"`
	Seed      int64          `db:"seed"`
	Status    string         `db:"status"`
	CreatedAt string         `db:"created_at"`
	Config    string         `db:"config_json"`
	Summary   sql.NullString `db:"summary_json"`
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Tick      uint64 `db:"tick" json:"tick"`
	Size      int    `db:"size" json:"size"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; keeps in-process callers from tripping over SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		config_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun registers a run under a new identifier and returns it.
func (db *DB) SaveRun(cfg config.Config, seed uint64) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	id := NewRunID()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, status, created_at, config_json) VALUES (?, ?, ?, ?, ?)",
		id, int64(seed), StatusRunning, time.Now().UTC().Format(time.RFC3339), string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final summary and status of a run.
func (db *DB) FinishRun(runID, status string, summary series.Summary) error {
	sumJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	res, err := db.conn.Exec(
		"UPDATE runs SET status = ?, summary_json = ? WHERE id = ?",
		status, string(sumJSON), runID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun loads a stored run.
func (db *DB) GetRun(runID string) (*Run, error) {
	var row runRow
	err := db.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.decode()
}

// Runs lists stored runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var rows []runRow
	if err := db.conn.Select(&rows, "SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		r, err := row.decode()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, nil
}

func (row runRow) decode() (*Run, error) {
	r := &Run{ID: row.ID, Seed: uint64(row.Seed), Status: row.Status}
	created, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: created_at: %w", row.ID, err)
	}
	r.CreatedAt = created
	if err := json.Unmarshal([]byte(row.Config), &r.Config); err != nil {
		return nil, fmt.Errorf("run %s: config: %w", row.ID, err)
	}
	if row.Summary.Valid {
		r.Summary = &series.Summary{}
		if err := json.Unmarshal([]byte(row.Summary.String), r.Summary); err != nil {
			return nil, fmt.Errorf("run %s: summary: %w", row.ID, err)
		}
	}
	return r, nil
}

// SaveSnapshot stores a compressed snapshot, replacing any earlier one at
// the same tick.
func (db *DB) SaveSnapshot(runID string, snap *engine.Snapshot) error {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO snapshots (run_id, tick, created_at, data) VALUES (?, ?, ?, ?)",
		runID, snap.Tick, time.Now().UTC().Format(time.RFC3339), buf.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	slog.Debug("snapshot saved", "run", runID, "tick", snap.Tick, "bytes", buf.Len())
	return nil
}

// LoadSnapshot loads the snapshot taken at tick.
func (db *DB) LoadSnapshot(runID string, tick uint64) (*engine.Snapshot, error) {
	var data []byte
	err := db.conn.Get(&data, "SELECT data FROM snapshots WHERE run_id = ? AND tick = ?", runID, tick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s@%d: %w", runID, tick, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(bytes.NewReader(data))
}

// LatestSnapshot loads the most advanced snapshot of a run.
func (db *DB) LatestSnapshot(runID string) (*engine.Snapshot, error) {
	var data []byte
	err := db.conn.Get(&data, "SELECT data FROM snapshots WHERE run_id = ? ORDER BY tick DESC LIMIT 1", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(bytes.NewReader(data))
}

// Snapshots lists the stored snapshots of a run in tick order.
func (db *DB) Snapshots(runID string) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := db.conn.Select(&out,
		"SELECT tick, length(data) AS size, created_at FROM snapshots WHERE run_id = ? ORDER BY tick",
		runID,
	)
	return out, err
}

// SaveRecords appends per-tick records. Records already stored for a tick
// are replaced, so a resumed run can rewrite its tail.
func (db *DB) SaveRecords(runID string, recs []series.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex("INSERT OR REPLACE INTO records (run_id, tick, data) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", rec.Tick, err)
		}
		if _, err := stmt.Exec(runID, rec.Tick, string(data)); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.Tick, err)
		}
	}

	return tx.Commit()
}

// Records returns the stored records of a run in the tick range [from, to].
func (db *DB) Records(runID string, from, to uint64) ([]series.Record, error) {
	var rows []string
	err := db.conn.Select(&rows,
		"SELECT data FROM records WHERE run_id = ? AND tick BETWEEN ? AND ? ORDER BY tick",
		runID, from, to,
	)
	if err != nil {
		return nil, err
	}
	out := make([]series.Record, len(rows))
	for i, raw := range rows {
		if err := json.Unmarshal([]byte(raw), &out[i]); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
	}
	return out, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// SaveProgress stores everything a run produced since tick from: its
// records and events after that tick and a snapshot of the current state.
// Events stored earlier for later ticks are replaced, as when a run is
// resumed from an older snapshot.
func (db *DB) SaveProgress(runID string, sim *engine.Simulation, from uint64) error {
	slog.Info("saving run progress", "run", runID, "tick", sim.Tick())

	if err := db.SaveRecords(runID, sim.Series().Since(from)); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	if _, err := db.conn.Exec("DELETE FROM events WHERE run_id = ? AND tick > ?", runID, from); err != nil {
		return fmt.Errorf("trim events: %w", err)
	}
	var fresh []engine.Event
	for _, e := range sim.Events() {
		if e.Tick > from {
			fresh = append(fresh, e)
		}
	}
	if err := db.SaveEvents(runID, fresh); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	snap, err := sim.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := db.SaveSnapshot(runID, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

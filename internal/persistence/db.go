// Package persistence stores saved games and settings in SQL. SQLite is the default
// backend; PostgreSQL is available for hosted deployments.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/talgya/tribesim/internal/engine"
)

// Fixed slot keys.
const (
	SlotQuick = "quicksave"
	SlotAuto  = "autosave"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrNoSave is returned when a slot holds nothing.
	ErrNoSave = errors.New("no save in slot")
	// ErrNoSetting is returned for an unknown settings key.
	ErrNoSetting = errors.New("no such setting")
)

// Save describes one stored slot. Times are unix milliseconds.
type Save struct {
	Slot      string `db:"slot" json:"slot"`
	Name      string `db:"name" json:"name"`
	Revision  string `db:"revision" json:"revision"` // Changes on every write
	Tick      int64  `db:"tick" json:"tick"`
	Size      int64  `db:"size" json:"size"` // Encoded state, bytes
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// Updated returns UpdatedAt as a time.
func (s Save) Updated() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}

// DB wraps a SQL connection for game persistence.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates the store. For sqlite, dsn is a file path.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("open db: unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
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
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		revision TEXT NOT NULL,
		tick BIGINT NOT NULL,
		state_json TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveGame writes snap into slot, replacing what was there. The slot keeps its
// original creation time.
func (db *DB) SaveGame(slot, name string, snap *engine.Snapshot) (Save, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return Save{}, fmt.Errorf("encode save %q: %w", slot, err)
	}

	now := db.now().UnixMilli()
	s := Save{
		Slot:      slot,
		Name:      name,
		Revision:  uuid.NewString(),
		Tick:      int64(snap.Tick),
		Size:      int64(len(data)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return Save{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(db.conn.Rebind(`INSERT INTO saves
		(slot, name, revision, tick, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			name = excluded.name,
			revision = excluded.revision,
			tick = excluded.tick,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`),
		s.Slot, s.Name, s.Revision, s.Tick, string(data), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return Save{}, fmt.Errorf("write save %q: %w", slot, err)
	}
	if err := tx.Get(&s.CreatedAt, db.conn.Rebind("SELECT created_at FROM saves WHERE slot = ?"), slot); err != nil {
		return Save{}, fmt.Errorf("read back save %q: %w", slot, err)
	}
	if err := tx.Commit(); err != nil {
		return Save{}, err
	}

	slog.Info("game saved", "slot", slot, "tick", humanize.Comma(s.Tick), "size", humanize.Bytes(uint64(s.Size)))
	return s, nil
}

// LoadGame decodes the snapshot stored in slot. It does not validate it; that is
// Simulation.Restore's job.
func (db *DB) LoadGame(slot string) (*engine.Snapshot, error) {
	var data string
	err := db.conn.Get(&data, db.conn.Rebind("SELECT state_json FROM saves WHERE slot = ?"), slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %q: %w", slot, ErrNoSave)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", slot, err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode save %q: %w: %w", slot, engine.ErrCorruptSave, err)
	}
	return &snap, nil
}

// DeleteSave removes slot.
func (db *DB) DeleteSave(slot string) error {
	res, err := db.conn.Exec(db.conn.Rebind("DELETE FROM saves WHERE slot = ?"), slot)
	if err != nil {
		return fmt.Errorf("delete %q: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %q: %w", slot, ErrNoSave)
	}
	return nil
}

// ListSaves returns every slot, most recently written first.
func (db *DB) ListSaves() ([]Save, error) {
	var saves []Save
	err := db.conn.Select(&saves, `SELECT slot, name, revision, tick,
		LENGTH(state_json) AS size, created_at, updated_at
		FROM saves ORDER BY updated_at DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return saves, nil
}

// QuickSave writes the quick-save slot.
func (db *DB) QuickSave(snap *engine.Snapshot) (Save, error) {
	return db.SaveGame(SlotQuick, "Quick save", snap)
}

// AutoSave writes the autosave slot.
func (db *DB) AutoSave(snap *engine.Snapshot) (Save, error) {
	return db.SaveGame(SlotAuto, "Autosave", snap)
}

// GetQuickSave loads the quick-save slot.
func (db *DB) GetQuickSave() (*engine.Snapshot, error) {
	return db.LoadGame(SlotQuick)
}

// GetAutoSave loads the autosave slot.
func (db *DB) GetAutoSave() (*engine.Snapshot, error) {
	return db.LoadGame(SlotAuto)
}

// SetSetting stores v as JSON under key.
func (db *DB) SetSetting(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	_, err = db.conn.Exec(db.conn.Rebind(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, string(data))
	return err
}

// GetSetting decodes the value stored under key into dst.
func (db *DB) GetSetting(key string, dst any) error {
	var data string
	err := db.conn.Get(&data, db.conn.Rebind("SELECT value FROM settings WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("setting %q: %w", key, ErrNoSetting)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dst)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	applog "gonovel/internal/log"
	"gonovel/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database file created in the save directory.
const SQLiteFileName = "saves.sqlite"

// sqliteSchemaVersion tracks the local schema. Bump it and add a step to
// migrateSQLite for breaking changes.
const sqliteSchemaVersion = 2

// sqliteTimeLayout is fixed width so saved_at sorts as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// language=SQL
// dialect=SQLite
const upsertSlotSQL = `INSERT INTO slots(slot, scenario_id, line_index, player_name, saved_at, data)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET
	scenario_id = excluded.scenario_id,
	line_index  = excluded.line_index,
	player_name = excluded.player_name,
	saved_at    = excluded.saved_at,
	data        = excluded.data`

// language=SQL
// dialect=SQLite
const archiveSlotSQL = `INSERT INTO slot_history(slot, saved_at, data)
SELECT slot, saved_at, data FROM slots WHERE slot = ?`

// language=SQL
// dialect=SQLite
const selectSlotSQL = `SELECT data FROM slots WHERE slot = ?`

// language=SQL
// dialect=SQLite
const listSlotsSQL = `SELECT slot, data FROM slots WHERE slot < ? ORDER BY slot`

// language=SQL
// dialect=SQLite
const deleteSlotSQL = `DELETE FROM slots WHERE slot = ?`

// language=SQL
// dialect=SQLite
const listHistorySQL = `SELECT data FROM slot_history WHERE slot = ? ORDER BY saved_at DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneHistorySQL = `DELETE FROM slot_history WHERE slot = ? AND id NOT IN (
	SELECT id FROM slot_history WHERE slot = ? ORDER BY saved_at DESC, id DESC LIMIT ?
)`

// SQLiteStore keeps slots in an embedded SQLite database. Each overwrite
// archives the previous snapshot of the slot into slot_history.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	slots       int
	keepHistory int
	log         *slog.Logger
}

// OpenSQLite opens or creates dir/saves.sqlite with WAL enabled and the
// schema migrated. keepHistory <= 0 keeps all history.
func OpenSQLite(ctx context.Context, dir string, slots, keepHistory int) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("save.sqlite"), "open").With(slog.String("dir", dir))
	if dir == "" {
		return nil, errors.New("save dir is required")
	}
	if slots <= 0 {
		slots = DefaultSlots
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	path := filepath.Join(dir, SQLiteFileName)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("schema setup failed", slog.Any("err", err))
		return nil, err
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migration failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("save database ready", slog.String("path", path))
	return &SQLiteStore{db: db, path: path, slots: slots, keepHistory: keepHistory, log: l}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS slots (
			slot        INTEGER PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			line_index  INTEGER NOT NULL,
			player_name TEXT NOT NULL DEFAULT '',
			saved_at    TEXT NOT NULL,
			data        BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS slot_history (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			slot     INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			data     BLOB NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at schema 1 and migrate forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < sqliteSchemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_slot_history_slot ON slot_history(slot, saved_at);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Slots() int { return s.slots }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Save(ctx context.Context, slot int, snap Snapshot) error {
	if err := CheckSlot(slot, s.slots); err != nil {
		return err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	data, err := Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, archiveSlotSQL, slot); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive slot %d: %w", slot, err)
	}
	if _, err := tx.ExecContext(ctx, upsertSlotSQL, slot, snap.ScenarioID, snap.LineIndex, snap.PlayerName,
		snap.Timestamp.UTC().Format(sqliteTimeLayout), data); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slot %d: %w", slot, err)
	}
	if s.keepHistory > 0 {
		if _, err := s.Prune(ctx, slot, s.keepHistory); err != nil {
			s.log.WarnContext(applog.WithSlot(ctx, slot), "prune history failed", slog.Any("err", err))
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, slot int) (Snapshot, bool, error) {
	if err := CheckSlot(slot, s.slots); err != nil {
		return Snapshot{}, false, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, selectSlotSQL, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load slot %d: %w", slot, err)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load slot %d: %w", slot, err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, listSlotsSQL, s.slots)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			slot int
			data []byte
		)
		if err := rows.Scan(&slot, &data); err != nil {
			return nil, err
		}
		snap, err := Unmarshal(data)
		if err != nil {
			s.log.WarnContext(applog.WithSlot(ctx, slot), "skipping unreadable slot", slog.Any("err", err))
			continue
		}
		out = append(out, Entry{Slot: slot, Snapshot: snap})
	}
	return out, rows.Err()
}

// Delete removes the slot. Its history is kept.
func (s *SQLiteStore) Delete(ctx context.Context, slot int) error {
	if err := CheckSlot(slot, s.slots); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, deleteSlotSQL, slot); err != nil {
		return fmt.Errorf("delete slot %d: %w", slot, err)
	}
	return nil
}

// History returns up to limit earlier snapshots of a slot, newest first.
func (s *SQLiteStore) History(ctx context.Context, slot, limit int) ([]Snapshot, error) {
	if err := CheckSlot(slot, s.slots); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listHistorySQL, slot, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		snap, err := Unmarshal(data)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep history entries of a slot and deletes the rest.
func (s *SQLiteStore) Prune(ctx context.Context, slot, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneHistorySQL, slot, slot, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

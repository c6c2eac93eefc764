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
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "gonovel/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// language=SQL
// dialect=PostgreSQL
const pgArchiveSQL = `INSERT INTO save_history(profile, slot, saved_at, data)
SELECT profile, slot, saved_at, data FROM save_slots WHERE profile = $1 AND slot = $2`

// language=SQL
// dialect=PostgreSQL
const pgUpsertSQL = `INSERT INTO save_slots(profile, slot, scenario_id, line_index, player_name, saved_at, data, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now())
ON CONFLICT (profile, slot) DO UPDATE SET
	scenario_id = EXCLUDED.scenario_id,
	line_index  = EXCLUDED.line_index,
	player_name = EXCLUDED.player_name,
	saved_at    = EXCLUDED.saved_at,
	data        = EXCLUDED.data,
	updated_at  = now()`

// language=SQL
// dialect=PostgreSQL
const pgSelectSQL = `SELECT data FROM save_slots WHERE profile = $1 AND slot = $2`

// language=SQL
// dialect=PostgreSQL
const pgListSQL = `SELECT slot, data FROM save_slots WHERE profile = $1 AND slot < $2 ORDER BY slot`

// language=SQL
// dialect=PostgreSQL
const pgDeleteSQL = `DELETE FROM save_slots WHERE profile = $1 AND slot = $2`

// PG is a Postgres database holding the slots of many profiles.
type PG struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenPG connects to dsn and applies pending migrations.
func OpenPG(ctx context.Context, dsn string) (*PG, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	pg, err := NewPG(pctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return pg, nil
}

// NewPG wraps an open database and applies pending migrations.
func NewPG(ctx context.Context, db *sql.DB) (*PG, error) {
	pg := &PG{db: db, log: applog.WithComponent("save.pg")}
	if err := pg.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pg, nil
}

// Ping checks connectivity.
func (p *PG) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close closes the database.
func (p *PG) Close() error { return p.db.Close() }

// Profile returns a Persister scoped to one player profile.
func (p *PG) Profile(name string, slots int) *PGStore {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &PGStore{pg: p, profile: name, slots: slots}
}

// migrate applies embedded SQL migrations in filename order and records them
// in schema_migrations.
func (p *PG) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := p.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range files {
		v, err := parseMigrationVersion(name)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return err
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, v, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		p.log.Info("migration applied", slog.String("name", name))
	}
	return nil
}

func parseMigrationVersion(name string) (int64, error) {
	prefix, _, ok := strings.Cut(path.Base(name), "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// PGStore is the Persister of one profile.
type PGStore struct {
	pg      *PG
	profile string
	slots   int
}

func (s *PGStore) Slots() int { return s.slots }

// Profile returns the profile name.
func (s *PGStore) Profile() string { return s.profile }

func (s *PGStore) Save(ctx context.Context, slot int, snap Snapshot) error {
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
	tx, err := s.pg.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, pgArchiveSQL, s.profile, slot); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive slot %d: %w", slot, err)
	}
	if _, err := tx.ExecContext(ctx, pgUpsertSQL, s.profile, slot, snap.ScenarioID, snap.LineIndex, snap.PlayerName, snap.Timestamp.UTC(), string(data)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	return tx.Commit()
}

func (s *PGStore) Load(ctx context.Context, slot int) (Snapshot, bool, error) {
	if err := CheckSlot(slot, s.slots); err != nil {
		return Snapshot{}, false, err
	}
	var data []byte
	err := s.pg.db.QueryRowContext(ctx, pgSelectSQL, s.profile, slot).Scan(&data)
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

func (s *PGStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.pg.db.QueryContext(ctx, pgListSQL, s.profile, s.slots)
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
			s.pg.log.WarnContext(applog.WithSlot(ctx, slot), "skipping unreadable slot",
				slog.String("profile", s.profile), slog.Any("err", err))
			continue
		}
		out = append(out, Entry{Slot: slot, Snapshot: snap})
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, slot int) error {
	if err := CheckSlot(slot, s.slots); err != nil {
		return err
	}
	if _, err := s.pg.db.ExecContext(ctx, pgDeleteSQL, s.profile, slot); err != nil {
		return fmt.Errorf("delete slot %d: %w", slot, err)
	}
	return nil
}

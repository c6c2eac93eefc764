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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "gonovel/internal/log"
)

// BackupsDirName holds previous versions of slot files.
const BackupsDirName = "backups"

// FileStore keeps one JSON file per slot (save_<n>.json) in a directory.
// Every write goes through a temp file and rename; the replaced file is kept
// as a timestamped backup, and a slot that fails validation is recovered
// from its newest backup.
type FileStore struct {
	dir         string
	slots       int
	keepBackups int
	log         *slog.Logger
}

// NewFileStore creates dir if needed. slots <= 0 selects DefaultSlots.
func NewFileStore(dir string, slots int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("save dir is required")
	}
	if slots <= 0 {
		slots = DefaultSlots
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{dir: dir, slots: slots, keepBackups: 3, log: applog.WithComponent("save.file")}, nil
}

// Dir returns the directory holding the slot files.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) Slots() int { return f.slots }

func slotFileName(slot int) string { return fmt.Sprintf("save_%d.json", slot) }

func (f *FileStore) path(slot int) string { return filepath.Join(f.dir, slotFileName(slot)) }

func (f *FileStore) Save(ctx context.Context, slot int, s Snapshot) error {
	if err := CheckSlot(slot, f.slots); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p := f.path(slot)
	if _, err := os.Stat(p); err == nil {
		if err := f.backup(slot); err != nil {
			return err
		}
	}
	if err := WriteFile(p, s); err != nil {
		return fmt.Errorf("write slot %d: %w", slot, err)
	}
	f.log.DebugContext(applog.WithSlot(ctx, slot), "slot saved", slog.String("path", p))
	return nil
}

func (f *FileStore) Load(ctx context.Context, slot int) (Snapshot, bool, error) {
	if err := CheckSlot(slot, f.slots); err != nil {
		return Snapshot{}, false, err
	}
	s, err := ReadFile(f.path(slot))
	switch {
	case err == nil:
		return s, true, nil
	case errors.Is(err, os.ErrNotExist):
		return Snapshot{}, false, nil
	}
	ctx = applog.WithSlot(ctx, slot)
	f.log.WarnContext(ctx, "slot file unreadable, trying backup", slog.Any("err", err))
	bs, berr := f.latestBackup(slot)
	if berr != nil {
		return Snapshot{}, false, fmt.Errorf("load slot %d: %w", slot, err)
	}
	f.log.InfoContext(ctx, "slot recovered from backup")
	return bs, true, nil
}

func (f *FileStore) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for i := 0; i < f.slots; i++ {
		s, ok, err := f.Load(ctx, i)
		if err != nil {
			f.log.WarnContext(applog.WithSlot(ctx, i), "skipping unreadable slot", slog.Any("err", err))
			continue
		}
		if ok {
			out = append(out, Entry{Slot: i, Snapshot: s})
		}
	}
	return out, nil
}

// Delete removes the slot file. Backups are kept.
func (f *FileStore) Delete(_ context.Context, slot int) error {
	if err := CheckSlot(slot, f.slots); err != nil {
		return err
	}
	if err := os.Remove(f.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete slot %d: %w", slot, err)
	}
	return nil
}

func (f *FileStore) backup(slot int) error {
	bdir := filepath.Join(f.dir, BackupsDirName)
	stamp := time.Now().UTC().Format("20060102-150405.000000000")
	dst := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", slotFileName(slot), stamp))
	if err := copyFile(f.path(slot), dst); err != nil {
		return fmt.Errorf("backup slot %d: %w", slot, err)
	}
	backups, err := f.backups(slot)
	if err != nil {
		return nil
	}
	for len(backups) > f.keepBackups {
		_ = os.Remove(backups[0])
		backups = backups[1:]
	}
	return nil
}

// backups lists the slot's backup files, oldest first.
func (f *FileStore) backups(slot int) ([]string, error) {
	bdir := filepath.Join(f.dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	prefix := slotFileName(slot) + "."
	var out []string
	for _, e := range ents {
		if name := e.Name(); strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FileStore) latestBackup(slot int) (Snapshot, error) {
	backups, err := f.backups(slot)
	if err != nil {
		return Snapshot{}, err
	}
	for i := len(backups) - 1; i >= 0; i-- {
		if s, err := ReadFile(backups[i]); err == nil {
			return s, nil
		}
	}
	return Snapshot{}, errors.New("no usable backup")
}

// writeAtomic writes to a temp file in the target directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return err
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gonovel/internal/save"
)

// Profiles hands out the save slots of one player.
type Profiles interface {
	For(ctx context.Context, subject string) (save.Persister, error)
	Ping(ctx context.Context) error
}

// PGProfiles keeps every player in one Postgres database.
type PGProfiles struct {
	PG    *save.PG
	Slots int
}

func (p PGProfiles) For(_ context.Context, subject string) (save.Persister, error) {
	return save.Traced(p.PG.Profile(subject, p.Slots), "postgres"), nil
}

func (p PGProfiles) Ping(ctx context.Context) error { return p.PG.Ping(ctx) }

// DirProfiles keeps one file store per player under Root.
type DirProfiles struct {
	Root  string
	Slots int

	mu     sync.Mutex
	stores map[string]save.Persister
}

// NewDirProfiles creates root if needed.
func NewDirProfiles(root string, slots int) (*DirProfiles, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}
	return &DirProfiles{Root: root, Slots: slots, stores: map[string]save.Persister{}}, nil
}

func (d *DirProfiles) For(_ context.Context, subject string) (save.Persister, error) {
	if !validSubject(subject) {
		return nil, fmt.Errorf("invalid subject %q", subject)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stores == nil {
		d.stores = map[string]save.Persister{}
	}
	if p, ok := d.stores[subject]; ok {
		return p, nil
	}
	fs, err := save.NewFileStore(filepath.Join(d.Root, subject), d.Slots)
	if err != nil {
		return nil, err
	}
	p := save.Traced(fs, "file")
	d.stores[subject] = p
	return p, nil
}

func (d *DirProfiles) Ping(context.Context) error {
	_, err := os.Stat(d.Root)
	return err
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps an in-memory rollback backlog of game snapshots.
package history

import (
	"sync"

	"gonovel/internal/save"
)

// Entry is one rollback point: the state before an advance and the line
// that was on screen.
type Entry struct {
	Snapshot save.Snapshot
	Speaker  string
	Text     string
}

func (e Entry) size() int {
	n := 64 + len(e.Snapshot.ScenarioID) + len(e.Snapshot.CharacterID) + len(e.Snapshot.Expression) +
		len(e.Snapshot.BackgroundID) + len(e.Snapshot.PlayerName) + len(e.Speaker) + len(e.Text)
	for k := range e.Snapshot.Affection {
		n += len(k) + 8
	}
	return n
}

// Config caps the backlog.
type Config struct {
	// MaxEntries limits the rollback depth (0 means 100).
	MaxEntries int
	// MaxBytes is a soft cap on the estimated size; the oldest entries are
	// pruned when exceeded (0 means 4 MiB).
	MaxBytes int
}

// Backlog is an undo/redo stack of entries. It is safe for concurrent use.
type Backlog struct {
	cfg        Config
	mu         sync.Mutex
	back       []Entry
	forward    []Entry
	totalBytes int
}

// New returns an empty backlog.
func New(cfg Config) *Backlog {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	return &Backlog{cfg: cfg}
}

// Push records a rollback point and clears the redo stack.
func (b *Backlog) Push(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.Snapshot = e.Snapshot.Clone()
	b.back = append(b.back, e)
	b.totalBytes += e.size()
	for _, f := range b.forward {
		b.totalBytes -= f.size()
	}
	b.forward = nil
	b.enforceCapsLocked()
}

// Back pops the newest rollback point. current is kept for Forward.
func (b *Backlog) Back(current Entry) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.back) == 0 {
		return Entry{}, false
	}
	e := b.back[len(b.back)-1]
	b.back = b.back[:len(b.back)-1]
	b.totalBytes -= e.size()
	current.Snapshot = current.Snapshot.Clone()
	b.forward = append(b.forward, current)
	b.totalBytes += current.size()
	return e, true
}

// Forward undoes a Back. current becomes a rollback point again.
func (b *Backlog) Forward(current Entry) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.forward) == 0 {
		return Entry{}, false
	}
	e := b.forward[len(b.forward)-1]
	b.forward = b.forward[:len(b.forward)-1]
	b.totalBytes -= e.size()
	current.Snapshot = current.Snapshot.Clone()
	b.back = append(b.back, current)
	b.totalBytes += current.size()
	b.enforceCapsLocked()
	return e, true
}

// Lines returns up to n of the newest entries, oldest first, for a backlog view.
func (b *Backlog) Lines(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := 0
	if n > 0 && len(b.back) > n {
		start = len(b.back) - n
	}
	return append([]Entry(nil), b.back[start:]...)
}

// Clear drops everything, e.g. on a new game or a load.
func (b *Backlog) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.back, b.forward, b.totalBytes = nil, nil, 0
}

// Stats returns sizes for diagnostics.
func (b *Backlog) Stats() (totalBytes, backDepth, forwardDepth int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalBytes, len(b.back), len(b.forward)
}

func (b *Backlog) enforceCapsLocked() {
	drop := 0
	if len(b.back) > b.cfg.MaxEntries {
		drop = len(b.back) - b.cfg.MaxEntries
	}
	for i := 0; i < drop; i++ {
		b.totalBytes -= b.back[i].size()
	}
	// oldest first until under the byte cap; always keep the newest entry
	for b.totalBytes > b.cfg.MaxBytes && drop < len(b.back)-1 {
		b.totalBytes -= b.back[drop].size()
		drop++
	}
	if drop > 0 {
		b.back = append([]Entry(nil), b.back[drop:]...)
	}
}

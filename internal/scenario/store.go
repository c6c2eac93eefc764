/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scenario loads scenario scripts from a file system.
//
// Scenario "prologue" lives in "prologue.csv" at the root of the store's
// file system; ids may name subdirectories ("chapter1/market"). Every Load
// re-reads and re-parses the file, so edits show up on the next load.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	applog "gonovel/internal/log"
	"gonovel/internal/observability"
	"gonovel/internal/script"
)

// ErrScenarioNotFound is returned when no script exists for an id.
var ErrScenarioNotFound = errors.New("scenario not found")

const ext = ".csv"

// Loader is what the interpreter needs from a store.
type Loader interface {
	Load(ctx context.Context, id string) (*Track, error)
}

// Store reads scenarios from an fs.FS.
type Store struct {
	fsys   fs.FS
	log    *slog.Logger
	tracer trace.Tracer
}

// NewStore returns a store reading from fsys.
func NewStore(fsys fs.FS) *Store {
	return &Store{
		fsys:   fsys,
		log:    applog.WithComponent("scenario"),
		tracer: observability.Tracer("scenario"),
	}
}

// NormalizeID trims whitespace and a trailing ".csv" from a scenario id.
func NormalizeID(id string) string {
	return strings.TrimSuffix(strings.TrimSpace(id), ext)
}

// Load reads and decodes the scenario. Malformed rows are logged and dropped.
func (s *Store) Load(ctx context.Context, id string) (*Track, error) {
	t, errs, err := s.Parse(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range errs {
		s.log.WarnContext(applog.WithScenario(ctx, t.ID()), "malformed record dropped",
			slog.Int("line", e.Line), slog.Int("col", e.Column), slog.String("reason", e.Message))
	}
	return t, nil
}

// Parse is Load without logging; decode errors are returned to the caller.
func (s *Store) Parse(ctx context.Context, id string) (*Track, []script.Error, error) {
	id = NormalizeID(id)
	ctx, span := s.tracer.Start(ctx, "scenario.load", trace.WithAttributes(attribute.String("scenario.id", id)))
	defer span.End()

	if id == "" || !fs.ValidPath(id) {
		span.SetStatus(codes.Error, "invalid id")
		return nil, nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	data, err := fs.ReadFile(s.fsys, id+ext)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
		}
		return nil, nil, fmt.Errorf("read scenario %q: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	recs, errs := script.Parse(string(data))
	span.SetAttributes(attribute.Int("scenario.records", len(recs)), attribute.Int("scenario.errors", len(errs)))
	return NewTrack(id, recs), errs, nil
}

// Exists reports whether a script for id is present.
func (s *Store) Exists(id string) bool {
	id = NormalizeID(id)
	if id == "" || !fs.ValidPath(id) {
		return false
	}
	st, err := fs.Stat(s.fsys, id+ext)
	return err == nil && !st.IsDir()
}

// List returns all scenario ids in the store, sorted.
func (s *Store) List() ([]string, error) {
	var ids []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ext {
			return nil
		}
		ids = append(ids, strings.TrimSuffix(p, ext))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

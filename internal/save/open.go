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
	"path/filepath"

	"gonovel/internal/config"
)

// ErrRemoteBackend is returned by Open for the remote backend, which lives
// in the backend package.
var ErrRemoteBackend = errors.New("remote saves are opened by the backend client")

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the local Persister selected by cfg.Backend. The returned
// closer releases database handles; callers close it when done. An empty
// cfg.Dir falls back to dataDir/saves.
func Open(ctx context.Context, cfg config.SavesConfig, dataDir string) (Persister, io.Closer, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(dataDir, "saves")
	}
	switch cfg.Backend {
	case "", "file":
		fs, err := NewFileStore(dir, cfg.Slots)
		if err != nil {
			return nil, nil, err
		}
		return Traced(fs, "file"), nopCloser{}, nil
	case "sqlite":
		st, err := OpenSQLite(ctx, dir, cfg.Slots, cfg.KeepHistory)
		if err != nil {
			return nil, nil, err
		}
		return Traced(st, "sqlite"), st, nil
	case "postgres":
		pg, err := OpenPG(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		profile := cfg.Profile
		if profile == "" {
			profile = "default"
		}
		return Traced(pg.Profile(profile, cfg.Slots), "postgres"), pg, nil
	case "remote":
		return nil, nil, ErrRemoteBackend
	default:
		return nil, nil, fmt.Errorf("unknown save backend %q", cfg.Backend)
	}
}

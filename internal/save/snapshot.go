/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package save holds the game snapshot and the stores that persist it into
// numbered slots.
package save

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gonovel/internal/version"
)

//go:embed schema/snapshot.schema.json
var schemaJSON []byte

// ErrCorruptSave is returned when stored data does not decode into a snapshot.
var ErrCorruptSave = errors.New("corrupt save data")

// Snapshot is the resumable state of a play session.
type Snapshot struct {
	Version      int            `json:"version"`
	ScenarioID   string         `json:"scenarioId"`
	LineIndex    int            `json:"lineIndex"`
	CharacterID  string         `json:"characterId"`
	Expression   string         `json:"expression"`
	BackgroundID string         `json:"backgroundImageId"`
	PlayerName   string         `json:"playerName"`
	// AfterPending marks a line whose after-animation had not finished.
	AfterPending bool           `json:"afterPending,omitempty"`
	Affection    map[string]int `json:"affection"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Affection = maps.Clone(s.Affection)
	if c.Affection == nil {
		c.Affection = map[string]int{}
	}
	return c
}

// Summary is a one-line description for slot listings.
func (s Snapshot) Summary() string {
	name := s.PlayerName
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s  %s line %d  %s", s.Timestamp.Local().Format("2006-01-02 15:04"), s.ScenarioID, s.LineIndex+1, name)
}

// Marshal encodes s as indented JSON, filling in the format version.
func Marshal(s Snapshot) ([]byte, error) {
	s = s.Clone()
	if s.Version == 0 {
		s.Version = version.SaveFormat
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	s.Timestamp = s.Timestamp.UTC()
	return json.MarshalIndent(s, "", "  ")
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Validate checks raw JSON against the snapshot schema.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrCorruptSave, strings.Join(msgs, "; "))
	}
	return nil
}

// Unmarshal validates and decodes a snapshot. Newer format versions are rejected.
func Unmarshal(data []byte) (Snapshot, error) {
	if err := Validate(data); err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if s.Version > version.SaveFormat {
		return Snapshot{}, fmt.Errorf("%w: format version %d is newer than supported %d", ErrCorruptSave, s.Version, version.SaveFormat)
	}
	if s.Affection == nil {
		s.Affection = map[string]int{}
	}
	return s, nil
}

// WriteFile atomically writes a snapshot to path.
func WriteFile(path string, s Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// ReadFile reads a snapshot written by WriteFile.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	s, err := Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cast is the character database: display names, expressions and
// name colors keyed by the character ids used in scripts.
package cast

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Character struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Color       string   `yaml:"color,omitempty"`
	Expressions []string `yaml:"expressions,omitempty"`
}

type file struct {
	Characters []Character `yaml:"characters"`
}

// Cast is an immutable lookup of characters by id.
type Cast struct {
	byID map[string]Character
}

// Empty returns a cast without characters; every lookup falls back to the id.
func Empty() *Cast { return &Cast{byID: map[string]Character{}} }

// Parse decodes a YAML cast file.
func Parse(data []byte) (*Cast, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cast: %w", err)
	}
	c := Empty()
	for i, ch := range f.Characters {
		ch.ID = strings.TrimSpace(ch.ID)
		if ch.ID == "" {
			return nil, fmt.Errorf("parse cast: character %d has no id", i+1)
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, fmt.Errorf("parse cast: duplicate character id %q", ch.ID)
		}
		c.byID[ch.ID] = ch
	}
	return c, nil
}

// Load reads a cast file from fsys. A missing file yields an empty cast.
func Load(fsys fs.FS, name string) (*Cast, error) {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cast: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a cast file from disk.
func LoadFile(path string) (*Cast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cast: %w", err)
	}
	return Parse(data)
}

// Get returns the character with id.
func (c *Cast) Get(id string) (Character, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// Has reports whether id is a known character.
func (c *Cast) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// HasExpression reports whether the character defines the expression.
func (c *Cast) HasExpression(id, expression string) bool {
	for _, e := range c.byID[id].Expressions {
		if strings.EqualFold(e, expression) {
			return true
		}
	}
	return false
}

// DisplayName returns the character's name, or the id for unknown characters
// and characters without a name.
func (c *Cast) DisplayName(id string) string {
	if ch, ok := c.byID[id]; ok && ch.Name != "" {
		return ch.Name
	}
	return id
}

// Len returns the number of characters.
func (c *Cast) Len() int { return len(c.byID) }

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cast

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

const sample = `
characters:
  - id: alice
    name: Alice Liddell
    color: "#e06c75"
    expressions: [smile, Frown]
  - id: bob
`

func TestParseAndLookup(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d", c.Len())
	}
	if got := c.DisplayName("alice"); got != "Alice Liddell" {
		t.Fatalf("DisplayName(alice) = %q", got)
	}
	if got := c.DisplayName("bob"); got != "bob" {
		t.Fatalf("nameless character should fall back to id, got %q", got)
	}
	if got := c.DisplayName("stranger"); got != "stranger" {
		t.Fatalf("unknown character should fall back to id, got %q", got)
	}
	if !c.HasExpression("alice", "frown") || c.HasExpression("alice", "cry") || c.HasExpression("zed", "smile") {
		t.Fatalf("HasExpression mismatch")
	}
	if ch, ok := c.Get("alice"); !ok || ch.Color != "#e06c75" {
		t.Fatalf("Get(alice) = %+v, %v", ch, ok)
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	for _, bad := range []string{
		"characters:\n  - name: Nobody\n",
		"characters:\n  - id: a\n  - id: a\n",
		"characters: {",
	} {
		if _, err := Parse([]byte(bad)); err == nil {
			t.Fatalf("Parse(%q) should fail", bad)
		}
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	c, err := Load(fstest.MapFS{}, "cast.yaml")
	if err != nil || c.Len() != 0 {
		t.Fatalf("Load(missing) = %v, %v", c, err)
	}
	c, err = Load(fstest.MapFS{"cast.yaml": {Data: []byte(sample)}}, "cast.yaml")
	if err != nil || !c.Has("bob") {
		t.Fatalf("Load(cast.yaml) = %v, %v", c, err)
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cast.yaml")
	if err := os.WriteFile(p, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(p)
	if err != nil || !c.Has("alice") {
		t.Fatalf("LoadFile() = %v, %v", c, err)
	}
	if _, err := LoadFile(p + ".missing"); err == nil {
		t.Fatalf("LoadFile(missing) should fail")
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package content embeds the demo story so the game runs without any files
// on disk.
package content

import (
	"embed"
	"io/fs"

	"gonovel/internal/cast"
)

//go:embed scenarios/*.csv
var scenarios embed.FS

//go:embed cast.yaml
var castYAML []byte

// StartScenario is the first scenario of the demo.
const StartScenario = "prologue"

// Scenarios returns the demo scenarios, one <id>.csv per scenario.
func Scenarios() fs.FS {
	sub, err := fs.Sub(scenarios, "scenarios")
	if err != nil {
		panic(err)
	}
	return sub
}

// Cast returns the demo cast.
func Cast() (*cast.Cast, error) { return cast.Parse(castYAML) }

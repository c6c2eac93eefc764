/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

import "gonovel/internal/script"

// Track is the ordered, read-only record sequence of one scenario.
type Track struct {
	id   string
	recs []script.Record
}

// NewTrack copies recs into a new track.
func NewTrack(id string, recs []script.Record) *Track {
	return &Track{id: id, recs: append([]script.Record(nil), recs...)}
}

// ID returns the scenario id the track was loaded from.
func (t *Track) ID() string { return t.id }

// Len returns the number of records.
func (t *Track) Len() int { return len(t.recs) }

// At returns the record at index i.
func (t *Track) At(i int) (script.Record, bool) {
	if i < 0 || i >= len(t.recs) {
		return script.Record{}, false
	}
	return t.recs[i], true
}

// Records returns a copy of all records.
func (t *Track) Records() []script.Record { return append([]script.Record(nil), t.recs...) }

// ChoiceBlock describes the rows attached to the choice at index i: the
// option rows directly following it and the timeout rows after those.
// End is the first index past the block.
func (t *Track) ChoiceBlock(i int) (options []int, end int) {
	j := i + 1
	for j < len(t.recs) && t.recs[j].CharacterID == script.SentinelOption {
		options = append(options, j)
		j++
	}
	for j < len(t.recs) && t.recs[j].CharacterID == script.SentinelTimeout {
		j++
	}
	return options, j
}

// FindTimeout returns the index of the first timeout row after index i.
func (t *Track) FindTimeout(i int) (int, bool) {
	for j := i + 1; j < len(t.recs); j++ {
		if t.recs[j].CharacterID == script.SentinelTimeout {
			return j, true
		}
	}
	return -1, false
}

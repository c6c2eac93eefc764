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
)

// DefaultSlots is the number of save slots when none is configured.
const DefaultSlots = 5

// ErrInvalidSaveSlot is returned for slot numbers outside 0..N-1.
var ErrInvalidSaveSlot = errors.New("invalid save slot")

// CheckSlot validates slot against a store of n slots.
func CheckSlot(slot, n int) error {
	if slot < 0 || slot >= n {
		return fmt.Errorf("%w: %d (valid 0..%d)", ErrInvalidSaveSlot, slot, n-1)
	}
	return nil
}

// Entry is an occupied slot.
type Entry struct {
	Slot     int      `json:"slot"`
	Snapshot Snapshot `json:"snapshot"`
}

// Persister stores snapshots in numbered slots. Loading an empty slot
// returns found=false and a nil error. Out-of-range slots fail with
// ErrInvalidSaveSlot before anything is read or written.
type Persister interface {
	Save(ctx context.Context, slot int, s Snapshot) error
	Load(ctx context.Context, slot int) (s Snapshot, found bool, err error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, slot int) error
	Slots() int
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package content

import (
	"context"
	"slices"
	"testing"
	"time"

	"gonovel/internal/engine"
	"gonovel/internal/scenario"
	"gonovel/internal/script"
)

func TestDemoLintsClean(t *testing.T) {
	c, err := Cast()
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("cast has %d characters", c.Len())
	}
	store := scenario.NewStore(Scenarios())
	ids, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(ids, StartScenario) {
		t.Fatalf("start scenario missing from %v", ids)
	}
	findings, err := scenario.Lint(context.Background(), store, c)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		t.Errorf("lint: %s", f)
	}
}

// autoUI reveals and finishes cues at once and keeps the callbacks the
// playthrough needs.
type autoUI struct {
	lines    []string
	onSelect func(int)
	onName   func(string)
}

func (u *autoUI) PresentLine(_, text string, onRevealed func()) {
	u.lines = append(u.lines, text)
	onRevealed()
}
func (u *autoUI) SkipReveal() {}
func (u *autoUI) PresentChoices(_ string, _ []engine.Choice, onSelected func(int)) {
	u.onSelect = onSelected
}
func (u *autoUI) HideChoices()                                     { u.onSelect = nil }
func (u *autoUI) StartCountdown(time.Duration, func())             {}
func (u *autoUI) CancelCountdown()                                 {}
func (u *autoUI) PlayCues(script.Cues)                             {}
func (u *autoUI) PlayBlockingCues(_ script.Cues, onComplete func()) { onComplete() }
func (u *autoUI) PromptName(onAccepted func(string))               { u.onName = onAccepted }
func (u *autoUI) ShowBackground(string)                            {}
func (u *autoUI) ShowPortrait(string, string)                      {}

func TestDemoPlaythrough(t *testing.T) {
	c, err := Cast()
	if err != nil {
		t.Fatal(err)
	}
	ui := &autoUI{}
	eng := engine.New(scenario.NewStore(Scenarios()), ui, engine.WithCast(c))
	if err := eng.NewGame(context.Background()); err != nil {
		t.Fatalf("new game: %v", err)
	}
	for step := 0; eng.State() != engine.Finished; step++ {
		if step > 100 {
			t.Fatalf("playthrough did not finish; stuck in %s at %s:%d", eng.State(), eng.ScenarioID(), eng.Index())
		}
		switch eng.State() {
		case engine.AwaitingNameInput:
			ui.onName("Mika")
		case engine.PresentingChoice, engine.AwaitingChoiceOrTimeout:
			ui.onSelect(0)
		default:
			if err := eng.Advance(); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
	}
	if got := eng.Ledger().Get("mei"); got != 3 {
		t.Fatalf("mei affection = %d, want 3", got)
	}
	if eng.PlayerName() != "Mika" || eng.ScenarioID() != "epilogue" {
		t.Fatalf("name=%q scenario=%q", eng.PlayerName(), eng.ScenarioID())
	}
	if !slices.Contains(ui.lines, "See you!") || slices.Contains(ui.lines, "Oh. Okay.") {
		t.Fatalf("wrong branch taken: %q", ui.lines)
	}
	if slices.Contains(ui.lines, "Not bad. For a transfer student.") {
		t.Fatalf("ren line shown without affection: %q", ui.lines)
	}
}

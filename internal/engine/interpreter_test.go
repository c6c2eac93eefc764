/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"gonovel/internal/cast"
	"gonovel/internal/save"
	"gonovel/internal/scenario"
	"gonovel/internal/script"
)

// fakeUI records presenter calls and keeps the latest callbacks so tests can
// complete activities by hand.
type fakeUI struct {
	autoReveal bool

	lines      []string
	onRevealed func()
	skips      int

	prompt     string
	choices    []Choice
	onSelected func(int)
	hides      int

	countdowns []time.Duration
	onElapsed  func()
	cancels    int

	cues       []script.Cues
	blocking   []script.Cues
	onComplete func()

	namePrompts int
	onName      func(string)

	backgrounds []string
	portraits   []string
}

func (f *fakeUI) PresentLine(speaker, text string, onRevealed func()) {
	f.lines = append(f.lines, speaker+": "+text)
	f.onRevealed = onRevealed
	if f.autoReveal {
		onRevealed()
	}
}

func (f *fakeUI) SkipReveal() { f.skips++ }

func (f *fakeUI) PresentChoices(prompt string, choices []Choice, onSelected func(int)) {
	f.prompt, f.choices, f.onSelected = prompt, choices, onSelected
}

func (f *fakeUI) HideChoices() { f.hides++ }

func (f *fakeUI) StartCountdown(d time.Duration, onElapsed func()) {
	f.countdowns = append(f.countdowns, d)
	f.onElapsed = onElapsed
}

func (f *fakeUI) CancelCountdown() { f.cancels++ }

func (f *fakeUI) PlayCues(c script.Cues) { f.cues = append(f.cues, c) }

func (f *fakeUI) PlayBlockingCues(c script.Cues, onComplete func()) {
	f.blocking = append(f.blocking, c)
	f.onComplete = onComplete
}

func (f *fakeUI) PromptName(onAccepted func(string)) {
	f.namePrompts++
	f.onName = onAccepted
}

func (f *fakeUI) ShowBackground(id string) { f.backgrounds = append(f.backgrounds, id) }

func (f *fakeUI) ShowPortrait(id, expr string) { f.portraits = append(f.portraits, id+"/"+expr) }

func (f *fakeUI) last() string {
	if len(f.lines) == 0 {
		return ""
	}
	return f.lines[len(f.lines)-1]
}

type harness struct {
	t      *testing.T
	ui     *fakeUI
	in     *Interpreter
	events []Event
}

func newHarness(t *testing.T, files map[string]string, opts ...Option) *harness {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name+".csv"] = &fstest.MapFile{Data: []byte(body)}
	}
	h := &harness{t: t, ui: &fakeUI{autoReveal: true}}
	opts = append([]Option{
		WithObserver(func(ev Event) { h.events = append(h.events, ev) }),
		WithClock(func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }),
	}, opts...)
	h.in = New(scenario.NewStore(fsys), h.ui, opts...)
	return h
}

func (h *harness) load(id string) {
	h.t.Helper()
	if err := h.in.LoadScenario(context.Background(), id, 0); err != nil {
		h.t.Fatalf("load %s: %v", id, err)
	}
}

func (h *harness) advance() {
	h.t.Helper()
	if err := h.in.Advance(); err != nil {
		h.t.Fatalf("advance: %v", err)
	}
}

func (h *harness) warnings() []Event {
	var out []Event
	for _, ev := range h.events {
		if ev.Kind == EventWarning {
			out = append(out, ev)
		}
	}
	return out
}

func (h *harness) expectState(want State) {
	h.t.Helper()
	if got := h.in.State(); got != want {
		h.t.Fatalf("state = %s, want %s", got, want)
	}
}

const castYAML = `characters:
  - id: alice
    name: Alice
    expressions: [smile, sad]
`

func TestDialogueRevealAndAdvance(t *testing.T) {
	c, err := cast.Parse([]byte(castYAML))
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, map[string]string{
		"a": "# intro\nalice,smile,Hello there.,park.png\n\nbob,,\"Hi, Alice.\"\n",
	}, WithCast(c))
	h.ui.autoReveal = false
	h.load("a")

	h.expectState(PresentingLine)
	if h.ui.last() != "Alice: Hello there." {
		t.Fatalf("line = %q", h.ui.last())
	}
	if len(h.ui.backgrounds) != 1 || h.ui.backgrounds[0] != "park" {
		t.Fatalf("backgrounds = %v", h.ui.backgrounds)
	}
	stale := h.ui.onRevealed

	h.advance() // skips the reveal
	if h.ui.skips != 1 {
		t.Fatalf("skips = %d", h.ui.skips)
	}
	h.expectState(AwaitingAdvance)

	h.advance()
	h.expectState(PresentingLine)
	if h.ui.last() != "bob: Hi, Alice." {
		t.Fatalf("unknown cast id should fall back to the raw id, got %q", h.ui.last())
	}
	stale() // a completion from the previous line must not settle this one
	h.expectState(PresentingLine)

	h.ui.onRevealed()
	h.expectState(AwaitingAdvance)
	h.advance()
	h.expectState(Finished)
	if err := h.in.Advance(); !errors.Is(err, ErrFinished) {
		t.Fatalf("advance after finish: %v", err)
	}
	if h.in.Index() != 2 {
		t.Fatalf("finished index = %d, want track length", h.in.Index())
	}
}

func TestFalseBranchConditionSkipsLine(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": strings.Join([]string{
			"n,,first",
			"n,,hidden one,,,,alice:>:5",
			"n,,hidden two,,,,alice:>=:1",
			"n,,shown,,,,alice:==:0",
		}, "\n"),
	})
	h.load("a")
	h.advance()
	for _, l := range h.ui.lines {
		if strings.Contains(l, "hidden") {
			t.Fatalf("line with false condition was presented: %v", h.ui.lines)
		}
	}
	if h.ui.last() != "n: shown" || h.in.Index() != 3 {
		t.Fatalf("expected to land on index 3, got %d %q", h.in.Index(), h.ui.last())
	}
}

func TestMalformedConditionFailsOpen(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,shown anyway,,,,alice:\n"})
	h.load("a")
	if h.ui.last() != "n: shown anyway" {
		t.Fatalf("line not shown: %v", h.ui.lines)
	}
	w := h.warnings()
	if len(w) != 1 || !errors.Is(w[0].Err, script.ErrMalformedCondition) {
		t.Fatalf("want one malformed-condition warning, got %+v", w)
	}
}

func TestLedgerWarningsPointAtEvaluatedRow(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,first\nn,,second,,,,alice:\nn,,Pick,,choice\noption,,Go,,,alice:+x\n",
	})
	h.load("a")
	h.advance()
	w := h.warnings()
	if len(w) != 1 || w[0].Index != 1 || w[0].Line != 2 {
		t.Fatalf("condition warning = %+v, want index 1 line 2", w)
	}
	h.advance()
	if err := h.in.SelectChoice(0); err != nil {
		t.Fatal(err)
	}
	w = h.warnings()
	if len(w) < 2 || w[1].Index != 3 || w[1].Line != 4 {
		t.Fatalf("affection warning = %+v, want index 3 line 4", w)
	}
}

const timedChoice = `alice,,Where to?,,choice:5
option,,Go to X,,option:sceneX,alice:+2
option,,Go to Z,,option:sceneZ,alice:-1
timeout,,,,timeout:sceneY
n,,after the block
`

func timedFiles() map[string]string {
	return map[string]string{
		"main":   timedChoice,
		"sceneX": "n,,in X\n",
		"sceneY": "n,,in Y\n",
		"sceneZ": "n,,in Z\n",
	}
}

func TestChoiceSelectionCancelsCountdownOnce(t *testing.T) {
	h := newHarness(t, timedFiles())
	h.load("main")
	h.expectState(AwaitingChoiceOrTimeout)
	if h.ui.prompt != "Where to?" || len(h.ui.choices) != 2 || h.ui.choices[1].Target != "sceneZ" {
		t.Fatalf("choices = %q %+v", h.ui.prompt, h.ui.choices)
	}
	if len(h.ui.countdowns) != 1 || h.ui.countdowns[0] != 5*time.Second {
		t.Fatalf("countdowns = %v", h.ui.countdowns)
	}
	elapsed := h.ui.onElapsed

	if err := h.in.SelectChoice(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if h.ui.cancels != 1 {
		t.Fatalf("cancels = %d, want 1", h.ui.cancels)
	}
	if h.in.ScenarioID() != "sceneX" || h.ui.last() != "n: in X" {
		t.Fatalf("expected sceneX, got %s %q", h.in.ScenarioID(), h.ui.last())
	}
	if got := h.in.Ledger().Get("alice"); got != 2 {
		t.Fatalf("alice = %d, want 2", got)
	}

	elapsed() // the timer fires late
	if h.in.ScenarioID() != "sceneX" {
		t.Fatalf("late timeout moved play to %s", h.in.ScenarioID())
	}
	if err := h.in.SelectChoice(0); !errors.Is(err, ErrInputIgnored) {
		t.Fatalf("second selection: %v", err)
	}
	if got := h.in.Ledger().Get("alice"); got != 2 {
		t.Fatalf("affection applied twice: %d", got)
	}
	if h.ui.cancels != 1 {
		t.Fatalf("cancels = %d after late events", h.ui.cancels)
	}
}

func TestChoiceTimeoutJumpsToTimeoutTarget(t *testing.T) {
	h := newHarness(t, timedFiles())
	h.load("main")
	selected := h.ui.onSelected

	h.ui.onElapsed()
	if h.in.ScenarioID() != "sceneY" || h.ui.last() != "n: in Y" {
		t.Fatalf("expected sceneY, got %s %q", h.in.ScenarioID(), h.ui.last())
	}
	if h.in.Ledger().Get("alice") != 0 {
		t.Fatalf("timeout applied affection")
	}
	if h.ui.cancels != 0 {
		t.Fatalf("elapsed countdown was cancelled %d times", h.ui.cancels)
	}
	selected(0) // a click that lost the race
	if h.in.ScenarioID() != "sceneY" || h.in.Ledger().Get("alice") != 0 {
		t.Fatalf("selection after expiry was applied")
	}
	var timedOut int
	for _, ev := range h.events {
		if ev.Kind == EventChoiceTimedOut {
			timedOut++
		}
	}
	if timedOut != 1 {
		t.Fatalf("timed-out events = %d", timedOut)
	}
}

func TestChoiceTimeoutWithoutTimeoutRowContinues(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,Quick!,,choice:1500ms\noption,,Yes,,option:b\nn,,continued\n",
	})
	h.load("a")
	if h.ui.countdowns[0] != 1500*time.Millisecond {
		t.Fatalf("countdown = %v", h.ui.countdowns[0])
	}
	h.ui.onElapsed()
	if h.ui.last() != "n: continued" || h.in.ScenarioID() != "a" {
		t.Fatalf("expected to continue after the block, got %q", h.ui.last())
	}
}

func TestUntimedChoiceTargets(t *testing.T) {
	files := map[string]string{
		"a": strings.Join([]string{
			"n,,Pick,,choice",
			"option,,Stay,,option:,\"alice:+1,bob:+3\"",
			"option,,Leave,,option:QUIT",
			"option,,Elsewhere,,option:b.csv",
			"n,,stayed",
		}, "\n"),
		"b": "n,,in b\n",
	}

	h := newHarness(t, files)
	h.load("a")
	h.expectState(PresentingChoice)
	if len(h.ui.countdowns) != 0 {
		t.Fatalf("untimed choice started a countdown")
	}
	if err := h.in.SelectChoice(3); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("out of range: %v", err)
	}
	h.expectState(PresentingChoice)
	if err := h.in.Advance(); !errors.Is(err, ErrInputIgnored) {
		t.Fatalf("advance during choice: %v", err)
	}
	if err := h.in.SelectChoice(0); err != nil {
		t.Fatal(err)
	}
	if h.ui.last() != "n: stayed" || h.in.Ledger().Get("bob") != 3 {
		t.Fatalf("empty target should continue in place: %q bob=%d", h.ui.last(), h.in.Ledger().Get("bob"))
	}

	h = newHarness(t, files)
	h.load("a")
	h.ui.onSelected(1)
	h.expectState(Finished)

	h = newHarness(t, files)
	h.load("a")
	if err := h.in.SelectChoice(2); err != nil {
		t.Fatal(err)
	}
	if h.in.ScenarioID() != "b" {
		t.Fatalf("jump with .csv suffix: %s", h.in.ScenarioID())
	}
}

func TestChoiceWithoutOptionsIsShownAsLine(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,Dead end?,,choice:3\nn,,next\n"})
	h.load("a")
	h.expectState(AwaitingAdvance)
	if len(h.warnings()) != 1 {
		t.Fatalf("warnings = %+v", h.warnings())
	}
	h.advance()
	if h.ui.last() != "n: next" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestJumpLoadsWithoutVisibleStep(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,before\nn,,never shown,,jump:b\n",
		"b": "n,,in b\n",
	})
	h.load("a")
	h.advance()
	if len(h.ui.lines) != 2 || h.ui.last() != "n: in b" {
		t.Fatalf("lines = %v", h.ui.lines)
	}
}

func TestFailedJumpStalls(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,before\nn,,,,jump:missing\nn,,after\n",
	})
	h.load("a")
	h.advance()
	h.expectState(AwaitingAdvance)
	if h.in.ScenarioID() != "a" || h.in.Index() != 1 {
		t.Fatalf("stall position %s/%d", h.in.ScenarioID(), h.in.Index())
	}
	w := h.warnings()
	if len(w) != 1 || !errors.Is(w[0].Err, scenario.ErrScenarioNotFound) {
		t.Fatalf("warnings = %+v", w)
	}
	h.advance()
	if h.ui.last() != "n: after" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestJumpLoopStalls(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,,,jump:b\n",
		"b": "n,,,,jump:a\n",
	})
	h.load("a")
	h.expectState(AwaitingAdvance)
	w := h.warnings()
	if len(w) == 0 || !errors.Is(w[len(w)-1].Err, ErrJumpLoop) {
		t.Fatalf("expected jump loop warning, got %+v", w)
	}
}

func TestUnknownEventIsInert(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,,,dance:wildly\nn,,next\n"})
	h.load("a")
	if h.ui.last() != "n: next" {
		t.Fatalf("got %q", h.ui.last())
	}
	w := h.warnings()
	if len(w) != 1 || !errors.Is(w[0].Err, ErrUnknownEvent) {
		t.Fatalf("warnings = %+v", w)
	}
}

func TestStraySentinelRowsAreSkipped(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "option,,orphan,,option:x\ntimeout,,,,timeout:y\nn,,real\n"})
	h.load("a")
	if len(h.ui.lines) != 1 || h.ui.last() != "n: real" {
		t.Fatalf("lines = %v", h.ui.lines)
	}
}

func TestDuringCuesDoNotBlock(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,Boom,,,,,camera:shake\nn,,next\n"})
	h.load("a")
	if len(h.ui.cues) != 1 || h.ui.cues[0].Items[0].Trigger != "shake" {
		t.Fatalf("cues = %+v", h.ui.cues)
	}
	h.expectState(AwaitingAdvance)
	h.advance()
	if h.ui.last() != "n: next" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestAfterCueWaitsForInput(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "alice,,Wink,,,,,,alice:blink\nn,,next\n"})
	h.load("a")
	h.expectState(AwaitingAdvance)
	if len(h.ui.blocking) != 0 {
		t.Fatalf("after cue played before input")
	}
	h.advance()
	h.expectState(PlayingBlockingAnimation)
	if err := h.in.Advance(); !errors.Is(err, ErrInputIgnored) {
		t.Fatalf("advance during animation: %v", err)
	}
	h.ui.onComplete()
	h.expectState(AwaitingAdvance)
	if h.ui.last() != "alice: Wink" {
		t.Fatalf("advanced without input: %q", h.ui.last())
	}
	h.advance()
	if h.ui.last() != "n: next" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestAfterCueAutoProceed(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "alice,,Wink,,,,,,\"alice:blink,autoproceed\"\nn,,next\n"})
	h.load("a")
	h.advance()
	if !h.ui.blocking[0].AutoProceed {
		t.Fatalf("auto proceed not parsed: %+v", h.ui.blocking[0])
	}
	h.ui.onComplete()
	if h.ui.last() != "n: next" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestNameInput(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,,,inputName\nn,,welcome\n"})
	h.load("a")
	h.expectState(AwaitingNameInput)
	if err := h.in.Advance(); !errors.Is(err, ErrInputIgnored) {
		t.Fatalf("advance during name input: %v", err)
	}
	if err := h.in.SubmitName("   "); !errors.Is(err, ErrInputIgnored) {
		t.Fatalf("blank name: %v", err)
	}
	h.ui.onName(" Mika ")
	if h.in.PlayerName() != "Mika" || h.ui.last() != "n: welcome" {
		t.Fatalf("name=%q line=%q", h.in.PlayerName(), h.ui.last())
	}
	if h.in.CaptureSnapshot().PlayerName != "Mika" {
		t.Fatalf("snapshot lost the player name")
	}
}

func TestLoadMissingScenarioKeepsState(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,one\nn,,two\n"})
	h.load("a")
	h.advance()
	before := h.in.CaptureSnapshot()
	beforeState := h.in.State()

	err := h.in.LoadScenario(context.Background(), "missing", 0)
	if !errors.Is(err, scenario.ErrScenarioNotFound) {
		t.Fatalf("want ErrScenarioNotFound, got %v", err)
	}
	after := h.in.CaptureSnapshot()
	if h.in.State() != beforeState || after.ScenarioID != before.ScenarioID || after.LineIndex != before.LineIndex {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
	if err := h.in.LoadScenario(context.Background(), "a", 9); !errors.Is(err, ErrLineOutOfRange) {
		t.Fatalf("bad start line: %v", err)
	}
	if err := h.in.RestoreSnapshot(context.Background(), before); err != nil {
		t.Fatalf("restore: %v", err)
	}
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	files := map[string]string{
		"a": strings.Join([]string{
			"alice,smile,one,park",
			"alice,sad,two,,,,alice:>=:0",
			"n,,three",
			"n,,four",
		}, "\n"),
	}
	h := newHarness(t, files)
	h.load("a")
	h.in.Ledger().ApplyDelta("alice", 5)
	h.advance() // "two"
	snap := h.in.CaptureSnapshot()
	if snap.LineIndex != 1 || snap.BackgroundID != "park" || snap.Expression != "sad" || snap.Affection["alice"] != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	snap.Affection["alice"] = 99
	if h.in.Ledger().Get("alice") != 5 {
		t.Fatalf("snapshot shares the ledger map")
	}
	snap.Affection["alice"] = -3 // restored ledger makes line 1's condition false

	h.advance()
	wantNext := h.ui.last()

	h2 := newHarness(t, files)
	if err := h2.in.RestoreSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if h2.ui.last() != "alice: two" {
		t.Fatalf("restore should seek without re-evaluating conditions, got %q", h2.ui.last())
	}
	if len(h2.ui.backgrounds) == 0 || h2.ui.backgrounds[0] != "park" {
		t.Fatalf("background not replayed: %v", h2.ui.backgrounds)
	}
	if h2.in.Ledger().Get("alice") != -3 {
		t.Fatalf("ledger not restored")
	}
	h2.advance()
	if h2.ui.last() != wantNext {
		t.Fatalf("next line after restore %q, want %q", h2.ui.last(), wantNext)
	}
}

func TestRestoreDoesNotReplayCues(t *testing.T) {
	files := map[string]string{"a": "n,,start\nn,,fx,,,,,camera:shake,alice:blink\nn,,end\n"}
	h := newHarness(t, files)
	if err := h.in.RestoreSnapshot(context.Background(), saveAt("a", 1)); err != nil {
		t.Fatal(err)
	}
	if len(h.ui.cues) != 0 {
		t.Fatalf("during cues replayed on restore")
	}
	h.advance()
	if len(h.ui.blocking) != 0 || h.ui.last() != "n: end" {
		t.Fatalf("after cue replayed on restore: %v", h.ui.blocking)
	}
}

func TestRestoreKeepsUnplayedAfterCue(t *testing.T) {
	files := map[string]string{"a": "alice,,Wink,,,,,,alice:blink\nn,,next\n"}
	h := newHarness(t, files)
	h.load("a")
	snap := h.in.CaptureSnapshot()
	if !snap.AfterPending {
		t.Fatalf("after cue not marked pending: %+v", snap)
	}

	h2 := newHarness(t, files)
	if err := h2.in.RestoreSnapshot(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	h2.advance()
	h2.expectState(PlayingBlockingAnimation)
	if len(h2.ui.blocking) != 1 {
		t.Fatalf("after cue not played after restore: %v", h2.ui.blocking)
	}

	h.advance()
	h.ui.onComplete()
	if h.in.CaptureSnapshot().AfterPending {
		t.Fatalf("finished after cue still marked pending")
	}
}

func TestRestoreAtEndFinishes(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "n,,only\n"})
	if err := h.in.RestoreSnapshot(context.Background(), saveAt("a", 1)); err != nil {
		t.Fatal(err)
	}
	h.expectState(Finished)
}

func TestNewGameResetsLedger(t *testing.T) {
	h := newHarness(t, map[string]string{"start": "n,,hello\n"}, WithStartScenario("start.csv"))
	h.in.Ledger().ApplyDelta("alice", 10)
	if err := h.in.NewGame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.in.Ledger().Get("alice") != 0 || h.ui.last() != "n: hello" {
		t.Fatalf("new game did not reset: %d %q", h.in.Ledger().Get("alice"), h.ui.last())
	}
}

func TestLedgerPersistsAcrossJumps(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "n,,Pick,,choice\noption,,Go,,option:b,alice:+4\n",
		"b": "n,,liked,,,,alice:>=:4\n",
	})
	h.load("a")
	if err := h.in.SelectChoice(0); err != nil {
		t.Fatal(err)
	}
	if h.ui.last() != "n: liked" {
		t.Fatalf("got %q", h.ui.last())
	}
}

func TestStateString(t *testing.T) {
	if AwaitingChoiceOrTimeout.String() != "awaiting-choice-or-timeout" || State(42).String() != "unknown" {
		t.Fatalf("unexpected state names")
	}
	if EventChoiceTimedOut.String() != "choice_timed_out" {
		t.Fatalf("unexpected event name")
	}
}

func saveAt(id string, line int) save.Snapshot {
	return save.Snapshot{ScenarioID: id, LineIndex: line, Affection: map[string]int{}}
}

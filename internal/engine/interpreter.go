/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine runs scenarios: it walks script records, evaluates branch
// conditions against the affection ledger, and drives a Presenter through
// dialogue, choices, jumps, name input and animation cues.
//
// The interpreter is a single-writer state machine. Host input (Advance,
// SelectChoice, SubmitName) and presenter callbacks must arrive on one
// goroutine. Every asynchronous activity is tagged with a turn number when it
// starts; completions from earlier turns are dropped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gonovel/internal/affection"
	"gonovel/internal/cast"
	applog "gonovel/internal/log"
	"gonovel/internal/save"
	"gonovel/internal/scenario"
	"gonovel/internal/script"
	"gonovel/internal/version"
)

// maxJumpHops bounds consecutive jumps that present nothing.
const maxJumpHops = 64

// DefaultStartScenario is used by NewGame when no start scenario is configured.
const DefaultStartScenario = "prologue"

type diagRow struct {
	index, line int
}

type choiceState struct {
	line    int // index of the choice row
	options []int
	end     int // first index past the block
	timed   bool
}

// Interpreter plays scenarios loaded through a scenario.Loader.
type Interpreter struct {
	ctx      context.Context
	loader   scenario.Loader
	ui       Presenter
	cast     *cast.Cast
	ledger   *affection.Ledger
	log      *slog.Logger
	observer func(Event)
	now      func() time.Time
	start    string

	track  *scenario.Track
	index  int
	state  State
	turn   uint64
	after  *script.Cues
	choice *choiceState

	// resumeAfter keeps the after-cue of the line a restore seeks to.
	resumeAfter bool
	// diag is the row ledger diagnostics are reported against.
	diag *diagRow

	characterID string
	expression  string
	background  string
	playerName  string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger. Defaults to the "engine" component logger.
func WithLogger(l *slog.Logger) Option { return func(in *Interpreter) { in.log = l } }

// WithCast resolves speaker display names.
func WithCast(c *cast.Cast) Option { return func(in *Interpreter) { in.cast = c } }

// WithObserver receives an Event after each state change.
func WithObserver(fn func(Event)) Option { return func(in *Interpreter) { in.observer = fn } }

// WithStartScenario sets the scenario NewGame loads.
func WithStartScenario(id string) Option { return func(in *Interpreter) { in.start = id } }

// WithClock sets the time source for snapshots.
func WithClock(now func() time.Time) Option { return func(in *Interpreter) { in.now = now } }

// WithContext sets the context used for loads triggered by play (jumps and
// choice targets). Explicit calls use the context they are given.
func WithContext(ctx context.Context) Option { return func(in *Interpreter) { in.ctx = ctx } }

// New returns an idle interpreter.
func New(loader scenario.Loader, ui Presenter, opts ...Option) *Interpreter {
	in := &Interpreter{
		ctx:    context.Background(),
		loader: loader,
		ui:     ui,
		cast:   cast.Empty(),
		log:    applog.WithComponent("engine"),
		now:    time.Now,
		start:  DefaultStartScenario,
	}
	for _, o := range opts {
		o(in)
	}
	in.ledger = affection.New(
		affection.WithLogger(in.log),
		affection.WithDiagnostics(func(d affection.Diagnostic) {
			in.warn(d.Err, d.Expr)
		}),
	)
	return in
}

// State returns the current state.
func (in *Interpreter) State() State { return in.state }

// Ledger returns the affection ledger. It is owned by the interpreter and
// must only be used on the interpreter's goroutine.
func (in *Interpreter) Ledger() *affection.Ledger { return in.ledger }

// ScenarioID returns the loaded scenario, or "" when idle.
func (in *Interpreter) ScenarioID() string {
	if in.track == nil {
		return ""
	}
	return in.track.ID()
}

// Index returns the current record index.
func (in *Interpreter) Index() int { return in.index }

// PlayerName returns the accepted player name.
func (in *Interpreter) PlayerName() string { return in.playerName }

// Choices returns the options currently on offer, if any.
func (in *Interpreter) Choices() []Choice {
	if in.choice == nil {
		return nil
	}
	return in.choicesOf(in.choice)
}

// NewGame resets the ledger and player name and loads the start scenario.
// On failure nothing changes.
func (in *Interpreter) NewGame(ctx context.Context) error {
	t, err := in.loader.Load(ctx, scenario.NormalizeID(in.start))
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	in.interrupt()
	in.ledger.Reset()
	in.playerName = ""
	in.characterID, in.expression, in.background = "", "", ""
	in.enter(t)
	in.run(0, false)
	return nil
}

// LoadScenario loads id and starts play at startLine. The ledger and player
// name carry over. On failure the interpreter keeps its previous state.
func (in *Interpreter) LoadScenario(ctx context.Context, id string, startLine int) error {
	t, err := in.loader.Load(ctx, scenario.NormalizeID(id))
	if err != nil {
		return fmt.Errorf("load scenario %q: %w", id, err)
	}
	if startLine < 0 || startLine > t.Len() {
		return fmt.Errorf("load scenario %q: %w: %d of %d", id, ErrLineOutOfRange, startLine, t.Len())
	}
	in.interrupt()
	in.enter(t)
	in.run(startLine, false)
	return nil
}

// CaptureSnapshot returns the resumable state. The affection map is a copy.
func (in *Interpreter) CaptureSnapshot() save.Snapshot {
	aff := in.ledger.Snapshot()
	if aff == nil {
		aff = map[string]int{}
	}
	return save.Snapshot{
		Version:      version.SaveFormat,
		ScenarioID:   in.ScenarioID(),
		LineIndex:    in.index,
		CharacterID:  in.characterID,
		Expression:   in.expression,
		BackgroundID: in.background,
		PlayerName:   in.playerName,
		AfterPending: in.after != nil || in.state == PlayingBlockingAnimation,
		Affection:    aff,
		Timestamp:    in.now(),
	}
}

// RestoreSnapshot seeks directly to the snapshot's line. Branch conditions of
// earlier lines are not re-evaluated and the line's during-cues are not
// replayed. An after-cue that had not finished when the snapshot was taken
// plays again on the next advance. On failure the interpreter keeps its
// previous state.
func (in *Interpreter) RestoreSnapshot(ctx context.Context, snap save.Snapshot) error {
	t, err := in.loader.Load(ctx, scenario.NormalizeID(snap.ScenarioID))
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if snap.LineIndex < 0 || snap.LineIndex > t.Len() {
		return fmt.Errorf("restore %q: %w: %d of %d", snap.ScenarioID, ErrLineOutOfRange, snap.LineIndex, t.Len())
	}
	in.interrupt()
	in.ledger.Restore(snap.Affection)
	in.playerName = snap.PlayerName
	in.characterID, in.expression, in.background = snap.CharacterID, snap.Expression, snap.BackgroundID
	if in.background != "" {
		in.ui.ShowBackground(in.background)
	}
	if in.characterID != "" {
		in.ui.ShowPortrait(in.characterID, in.expression)
	}
	in.enter(t)
	in.resumeAfter = snap.AfterPending
	in.run(snap.LineIndex, true)
	return nil
}

// Advance is the "next" input. It completes a revealing line, plays a
// pending after-cue, or moves to the next line.
func (in *Interpreter) Advance() error {
	switch in.state {
	case Finished:
		return ErrFinished
	case PresentingLine:
		in.ui.SkipReveal()
		in.revealed()
		return nil
	case AwaitingAdvance:
		if in.after != nil {
			in.playAfter()
			return nil
		}
		in.run(in.index+1, false)
		return nil
	default:
		return fmt.Errorf("%w: advance in %s", ErrInputIgnored, in.state)
	}
}

// SelectChoice picks option i of the presented choice. The countdown is
// cancelled before the option's affection change is applied.
func (in *Interpreter) SelectChoice(i int) error {
	if in.state == Finished {
		return ErrFinished
	}
	c := in.choice
	if c == nil || (in.state != PresentingChoice && in.state != AwaitingChoiceOrTimeout) {
		return fmt.Errorf("%w: select in %s", ErrInputIgnored, in.state)
	}
	if i < 0 || i >= len(c.options) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, i, len(c.options))
	}
	in.closeChoice()
	rec, _ := in.track.At(c.options[i])
	in.diag = &diagRow{index: c.options[i], line: rec.LineNo}
	in.ledger.ApplyExpr(rec.AffectionChange)
	in.diag = nil
	in.emit(Event{Kind: EventChoiceSelected, Index: c.options[i], Line: rec.LineNo, Detail: rec.EventValue})
	in.follow(strings.TrimSpace(rec.EventValue), c)
	return nil
}

// SubmitName accepts the player name collected by the presenter.
func (in *Interpreter) SubmitName(name string) error {
	if in.state != AwaitingNameInput {
		return fmt.Errorf("%w: name in %s", ErrInputIgnored, in.state)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInputIgnored)
	}
	in.turn++
	in.playerName = name
	in.emit(Event{Kind: EventNameAccepted, Index: in.index, Detail: name})
	in.run(in.index+1, false)
	return nil
}

// enter installs a freshly loaded track.
func (in *Interpreter) enter(t *scenario.Track) {
	in.track = t
	in.index = 0
	in.emit(Event{Kind: EventScenarioLoaded})
}

// interrupt abandons whatever the current turn is waiting for.
func (in *Interpreter) interrupt() {
	if in.choice != nil {
		in.closeChoice()
	}
	in.after = nil
	in.turn++
}

func (in *Interpreter) closeChoice() {
	if in.choice.timed {
		in.ui.CancelCountdown()
	}
	in.ui.HideChoices()
	in.choice = nil
	in.turn++
}

// run plays from index i until a row settles the machine. With seek set the
// first presented row is shown as restored: no branch check and no cues.
func (in *Interpreter) run(i int, seek bool) {
	hops := 0
	resumeAfter := in.resumeAfter
	in.resumeAfter = false
	for {
		if i >= in.track.Len() {
			in.finish()
			return
		}
		rec, _ := in.track.At(i)
		if rec.IsSentinel() {
			i++
			seek = false
			continue
		}
		if !seek && !in.check(i, rec) {
			in.log.DebugContext(in.logCtx(), "line skipped by branch condition",
				slog.Int("line", rec.LineNo), slog.String("condition", rec.BranchCondition))
			i++
			continue
		}
		in.index = i
		in.applyVisuals(rec)
		if !seek {
			in.playDuring(rec)
		}

		switch rec.Type {
		case script.EventDialogue:
			in.presentLine(rec, !seek || resumeAfter)
			return
		case script.EventChoice:
			if in.presentChoice(rec) {
				return
			}
			in.presentLine(rec, false)
			return
		case script.EventInputName:
			in.promptName()
			return
		case script.EventJump:
			target := strings.TrimSpace(rec.EventValue)
			switch {
			case target == "":
				in.warnLine(rec, errors.New("jump without target"))
			case isQuit(target):
				in.finish()
				return
			default:
				hops++
				if hops > maxJumpHops {
					in.warnLine(rec, fmt.Errorf("%w: more than %d jumps", ErrJumpLoop, maxJumpHops))
					in.stall()
					return
				}
				if !in.switchTrack(target) {
					in.stall()
					return
				}
				i, seek = 0, false
				continue
			}
		case script.EventOption, script.EventTimeout:
			// typed structural rows on a regular character have nothing to show
		default:
			in.warnLine(rec, fmt.Errorf("%w: %q", ErrUnknownEvent, rec.EventName))
		}
		i++
		seek = false
	}
}

func (in *Interpreter) applyVisuals(rec script.Record) {
	if bg := strings.TrimSpace(rec.Background); bg != "" {
		in.background = strings.TrimSuffix(bg, ".png")
		in.ui.ShowBackground(in.background)
	}
	if rec.CharacterID != "" && rec.Type == script.EventDialogue {
		in.characterID, in.expression = rec.CharacterID, rec.Expression
		in.ui.ShowPortrait(rec.CharacterID, rec.Expression)
	}
}

func (in *Interpreter) playDuring(rec script.Record) {
	cues, errs := rec.During()
	for _, err := range errs {
		in.warnLine(rec, err)
	}
	if !cues.Empty() {
		in.ui.PlayCues(cues)
	}
}

func (in *Interpreter) presentLine(rec script.Record, withAfter bool) {
	in.after = nil
	if withAfter {
		cues, errs := rec.After()
		for _, err := range errs {
			in.warnLine(rec, err)
		}
		if !cues.Empty() {
			in.after = &cues
		}
	}
	in.state = PresentingLine
	in.turn++
	turn := in.turn
	speaker := ""
	if rec.CharacterID != "" {
		speaker = in.cast.DisplayName(rec.CharacterID)
	}
	in.emit(Event{Kind: EventLineShown, Index: in.index, Line: rec.LineNo})
	in.ui.PresentLine(speaker, rec.Text, func() {
		if turn == in.turn {
			in.revealed()
		}
	})
}

func (in *Interpreter) revealed() {
	if in.state == PresentingLine {
		in.state = AwaitingAdvance
	}
}

func (in *Interpreter) playAfter() {
	cues := *in.after
	in.after = nil
	in.state = PlayingBlockingAnimation
	in.turn++
	turn := in.turn
	in.ui.PlayBlockingCues(cues, func() {
		if turn != in.turn || in.state != PlayingBlockingAnimation {
			return
		}
		if cues.AutoProceed {
			in.run(in.index+1, false)
			return
		}
		in.state = AwaitingAdvance
	})
}

// presentChoice offers the option rows following rec. It reports false when
// the block has no options.
func (in *Interpreter) presentChoice(rec script.Record) bool {
	options, end := in.track.ChoiceBlock(in.index)
	if len(options) == 0 {
		in.warnLine(rec, errors.New("choice without option rows"))
		return false
	}
	c := &choiceState{line: in.index, options: options, end: end}
	d, timed := script.ParseDuration(rec.EventValue)
	if !timed && strings.TrimSpace(rec.EventValue) != "" {
		in.log.DebugContext(in.logCtx(), "choice value is not a countdown",
			slog.Int("line", rec.LineNo), slog.String("value", rec.EventValue))
	}
	c.timed = timed
	in.choice = c
	in.state = PresentingChoice
	if timed {
		in.state = AwaitingChoiceOrTimeout
	}
	in.turn++
	turn := in.turn
	in.emit(Event{Kind: EventLineShown, Index: in.index, Line: rec.LineNo})
	in.ui.PresentChoices(rec.Text, in.choicesOf(c), func(i int) {
		if turn == in.turn {
			if err := in.SelectChoice(i); err != nil {
				in.log.DebugContext(in.logCtx(), "selection rejected", slog.Any("err", err))
			}
		}
	})
	if timed && turn == in.turn {
		in.ui.StartCountdown(d, func() {
			if turn == in.turn {
				in.timeout()
			}
		})
	}
	return true
}

func (in *Interpreter) choicesOf(c *choiceState) []Choice {
	out := make([]Choice, 0, len(c.options))
	for n, idx := range c.options {
		r, _ := in.track.At(idx)
		out = append(out, Choice{Index: n, Text: r.Text, Target: r.EventValue, Line: r.LineNo})
	}
	return out
}

// timeout resolves a timed choice that got no selection. No affection change
// applies; the first timeout row after the choice decides where play goes.
func (in *Interpreter) timeout() {
	c := in.choice
	if c == nil {
		return
	}
	// the countdown already fired; nothing to cancel
	c.timed = false
	in.closeChoice()
	choiceRec, _ := in.track.At(c.line)
	j, ok := in.track.FindTimeout(c.line)
	if !ok {
		in.emit(Event{Kind: EventChoiceTimedOut, Index: c.line, Line: choiceRec.LineNo})
		in.log.WarnContext(in.logCtx(), "timed choice has no timeout row, continuing after the choice",
			slog.Int("line", choiceRec.LineNo))
		in.run(c.end, false)
		return
	}
	rec, _ := in.track.At(j)
	in.emit(Event{Kind: EventChoiceTimedOut, Index: c.line, Line: choiceRec.LineNo, Detail: rec.EventValue})
	in.follow(strings.TrimSpace(rec.EventValue), c)
}

// follow continues play after a choice resolved to target.
func (in *Interpreter) follow(target string, c *choiceState) {
	switch {
	case isQuit(target):
		in.finish()
	case target == "":
		in.run(c.end, false)
	case in.switchTrack(target):
		in.run(0, false)
	default:
		in.index = c.line
		in.stall()
	}
}

func (in *Interpreter) promptName() {
	in.state = AwaitingNameInput
	in.turn++
	turn := in.turn
	in.ui.PromptName(func(name string) {
		if turn == in.turn {
			if err := in.SubmitName(name); err != nil {
				in.log.DebugContext(in.logCtx(), "name rejected", slog.Any("err", err))
			}
		}
	})
}

// switchTrack loads target for a jump. On failure the current track stays.
func (in *Interpreter) switchTrack(target string) bool {
	id := scenario.NormalizeID(target)
	t, err := in.loader.Load(in.ctx, id)
	if err != nil {
		in.log.ErrorContext(in.logCtx(), "jump failed", slog.String("target", id), slog.Any("err", err))
		in.emit(Event{Kind: EventWarning, Index: in.index, Detail: id, Err: err})
		return false
	}
	in.enter(t)
	return true
}

// stall waits at the current line for the next advance.
func (in *Interpreter) stall() {
	in.after = nil
	in.state = AwaitingAdvance
	in.turn++
}

func (in *Interpreter) finish() {
	in.after = nil
	in.state = Finished
	in.turn++
	if in.track != nil {
		in.index = in.track.Len()
	}
	in.emit(Event{Kind: EventFinished})
}

func (in *Interpreter) warnLine(rec script.Record, err error) {
	in.log.WarnContext(in.logCtx(), "script warning", slog.Int("line", rec.LineNo), slog.Any("err", err))
	in.emit(Event{Kind: EventWarning, Index: in.index, Line: rec.LineNo, Err: err})
}

// check evaluates the branch condition of row i.
func (in *Interpreter) check(i int, rec script.Record) bool {
	in.diag = &diagRow{index: i, line: rec.LineNo}
	defer func() { in.diag = nil }()
	return in.ledger.Check(rec.BranchCondition)
}

// warn forwards ledger diagnostics, which the ledger has already logged.
func (in *Interpreter) warn(err error, expr string) {
	ev := Event{Kind: EventWarning, Index: in.index, Detail: expr, Err: err}
	if in.diag != nil {
		ev.Index, ev.Line = in.diag.index, in.diag.line
	}
	in.emit(ev)
}

func (in *Interpreter) emit(ev Event) {
	if in.observer == nil {
		return
	}
	if ev.Scenario == "" {
		ev.Scenario = in.ScenarioID()
	}
	in.observer(ev)
}

func (in *Interpreter) logCtx() context.Context {
	return applog.WithScenario(in.ctx, in.ScenarioID())
}

func isQuit(target string) bool { return strings.EqualFold(target, script.QuitTarget) }

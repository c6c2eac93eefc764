/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"errors"
	"log/slog"
	"strconv"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"gonovel/internal/engine"
	"gonovel/internal/history"
	"gonovel/internal/save"
)

func (m *Model) Init() tea.Cmd { return m.drain() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case revealTickMsg:
		m.handleReveal(msg)
	case countdownTickMsg:
		m.handleCountdown(msg)
	case cueDoneMsg:
		m.handleCueDone(msg)
	case savedMsg:
		m.handleSaved(msg)
	case loadedMsg:
		m.handleLoaded(msg)
	case tea.KeyMsg:
		if m.handleKey(msg) {
			return m, tea.Quit
		}
	}
	return m, m.drain()
}

func (m *Model) handleReveal(msg revealTickMsg) {
	if msg.gen != m.revealGen {
		return
	}
	if m.shown < len(m.text) {
		m.shown++
	}
	if m.shown < len(m.text) {
		m.queue(revealTick(m.revealGen, m.opts.CharsPerSecond))
		return
	}
	if cb := m.onRevealed; cb != nil {
		m.onRevealed = nil
		cb()
	}
}

func (m *Model) handleCountdown(msg countdownTickMsg) {
	if msg.gen != m.countGen || !m.counting {
		return
	}
	m.remaining = m.deadline.Sub(m.now())
	if m.remaining > 0 {
		m.queue(countdownTick(m.countGen))
		return
	}
	m.remaining = 0
	m.counting = false
	if cb := m.onElapsed; cb != nil {
		m.onElapsed = nil
		cb()
	}
}

func (m *Model) handleCueDone(msg cueDoneMsg) {
	if msg.gen != m.cueGen || !m.cueRunning {
		return
	}
	m.cueRunning = false
	m.cueLabel = ""
	m.hideBox = false
	if cb := m.onCueDone; cb != nil {
		m.onCueDone = nil
		cb()
	}
}

func (m *Model) handleSaved(msg savedMsg) {
	if msg.err != nil {
		m.log.Error("save failed", slog.Int("slot", msg.slot), slog.Any("err", msg.err))
		m.setStatus("save failed: %v", msg.err)
		return
	}
	m.setStatus("saved to slot %d", msg.slot+1)
}

func (m *Model) handleLoaded(msg loadedMsg) {
	switch {
	case msg.err != nil:
		m.log.Error("load failed", slog.Int("slot", msg.slot), slog.Any("err", msg.err))
		m.setStatus("load failed: %v", msg.err)
	case !msg.found:
		m.setStatus("slot %d is empty", msg.slot+1)
	default:
		if err := m.restore(msg.snap); err != nil {
			m.setStatus("load failed: %v", err)
			return
		}
		m.opts.Backlog.Clear()
		m.setStatus("loaded slot %d", msg.slot+1)
	}
}

// handleKey reports whether the program should quit.
func (m *Model) handleKey(k tea.KeyMsg) bool {
	if k.Type == tea.KeyCtrlC {
		return true
	}
	if m.naming {
		m.handleNameKey(k)
		return false
	}
	switch m.mode {
	case modeSave, modeLoad:
		m.handleSlotKey(k)
		return false
	case modeLog:
		m.mode = modePlay
		return false
	}

	switch k.String() {
	case "q", "esc":
		return true
	case "enter", " ":
		m.confirm()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "s":
		m.enterSlotMode(modeSave)
	case "l":
		m.enterSlotMode(modeLoad)
	case "b", "left":
		m.rollback()
	case "f", "right":
		m.redo()
	case "h":
		m.mode = modeLog
	default:
		if n, ok := digit(k); ok && len(m.choices) > 0 {
			m.choose(n - 1)
		}
	}
	return false
}

func (m *Model) confirm() {
	if len(m.choices) > 0 {
		m.choose(m.cursor)
		return
	}
	if m.game == nil {
		return
	}
	if m.game.State() == engine.AwaitingAdvance {
		m.opts.Backlog.Push(m.entry())
	}
	err := m.game.Advance()
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, engine.ErrFinished):
		m.setStatus("The End. Press q to quit.")
	case errors.Is(err, engine.ErrInputIgnored):
	default:
		m.setStatus("%v", err)
	}
}

func (m *Model) choose(i int) {
	if i < 0 || i >= len(m.choices) || m.onSelected == nil {
		return
	}
	if m.game != nil {
		m.opts.Backlog.Push(m.entry())
	}
	cb := m.onSelected
	cb(i)
}

func (m *Model) entry() history.Entry {
	text := string(m.text)
	if len(m.choices) > 0 {
		text = m.prompt
	}
	return history.Entry{Snapshot: m.game.CaptureSnapshot(), Speaker: m.speaker, Text: text}
}

func (m *Model) rollback() {
	if m.game == nil {
		return
	}
	e, ok := m.opts.Backlog.Back(m.entry())
	if !ok {
		m.setStatus("nothing to roll back")
		return
	}
	if err := m.restore(e.Snapshot); err != nil {
		m.opts.Backlog.Forward(e)
		m.setStatus("rollback failed: %v", err)
	}
}

func (m *Model) redo() {
	if m.game == nil {
		return
	}
	e, ok := m.opts.Backlog.Forward(m.entry())
	if !ok {
		return
	}
	if err := m.restore(e.Snapshot); err != nil {
		m.opts.Backlog.Back(e)
		m.setStatus("redo failed: %v", err)
	}
}

type transient struct {
	naming     bool
	input      string
	nameErr    string
	onName     func(string)
	cueRunning bool
	cueLabel   string
	onCueDone  func()
	hideBox    bool
}

// restore seeks the game to snap. Prompts and cues belonging to the old
// position are dropped, unless the game refuses the snapshot.
func (m *Model) restore(snap save.Snapshot) error {
	prev := transient{m.naming, m.input, m.nameErr, m.onName, m.cueRunning, m.cueLabel, m.onCueDone, m.hideBox}
	m.naming, m.input, m.nameErr, m.onName = false, "", "", nil
	m.cueRunning, m.cueLabel, m.onCueDone, m.hideBox = false, "", nil, false
	if err := m.game.RestoreSnapshot(m.ctx, snap); err != nil {
		m.naming, m.input, m.nameErr, m.onName = prev.naming, prev.input, prev.nameErr, prev.onName
		m.cueRunning, m.cueLabel, m.onCueDone, m.hideBox = prev.cueRunning, prev.cueLabel, prev.onCueDone, prev.hideBox
		return err
	}
	m.status = ""
	return nil
}

func (m *Model) enterSlotMode(mode inputMode) {
	if m.opts.Saves == nil {
		m.setStatus("saving is disabled")
		return
	}
	m.mode = mode
	verb := "save to"
	if mode == modeLoad {
		verb = "load from"
	}
	m.setStatus("%s slot 1-%d (esc cancels)", verb, m.opts.Saves.Slots())
}

func (m *Model) handleSlotKey(k tea.KeyMsg) {
	mode := m.mode
	m.mode = modePlay
	n, ok := digit(k)
	if !ok {
		m.status = ""
		return
	}
	slot := n - 1
	if err := save.CheckSlot(slot, m.opts.Saves.Slots()); err != nil {
		m.setStatus("%v", err)
		return
	}
	if mode == modeLoad {
		m.setStatus("loading slot %d...", n)
		m.queue(loadCmd(m.ctx, m.opts.Saves, slot))
		return
	}
	snap := m.game.CaptureSnapshot()
	if snap.ScenarioID == "" {
		m.setStatus("nothing to save yet")
		return
	}
	m.setStatus("saving slot %d...", n)
	m.queue(saveCmd(m.ctx, m.opts.Saves, slot, snap))
}

func (m *Model) handleNameKey(k tea.KeyMsg) {
	switch k.Type {
	case tea.KeyEnter:
		name, err := m.opts.Names.Validate(m.input)
		if err != nil {
			m.nameErr = err.Error()
			return
		}
		m.naming = false
		m.nameErr = ""
		m.input = ""
		if cb := m.onName; cb != nil {
			m.onName = nil
			cb(name)
		}
	case tea.KeyBackspace:
		if m.input != "" {
			_, size := utf8.DecodeLastRuneInString(m.input)
			m.input = m.input[:len(m.input)-size]
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(k.Runes)
	}
}

func digit(k tea.KeyMsg) (int, bool) {
	s := k.String()
	if len(s) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

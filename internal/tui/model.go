/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tui is the terminal host: a bubbletea model that implements
// engine.Presenter. The interpreter is only ever called from Update, so
// every presenter callback runs on the program's goroutine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gonovel/internal/engine"
	"gonovel/internal/history"
	applog "gonovel/internal/log"
	"gonovel/internal/naming"
	"gonovel/internal/save"
	"gonovel/internal/script"
)

// Game is the part of the interpreter the host drives directly. Choices and
// names go back through the callbacks handed to the presenter.
type Game interface {
	State() engine.State
	Advance() error
	CaptureSnapshot() save.Snapshot
	RestoreSnapshot(ctx context.Context, snap save.Snapshot) error
}

// Options configures the host.
type Options struct {
	CharsPerSecond float64
	BlockingCue    time.Duration
	Names          *naming.Validator
	Saves          save.Persister
	Backlog        *history.Backlog
	// Title is shown in the header.
	Title string
}

type inputMode int

const (
	modePlay inputMode = iota
	modeSave
	modeLoad
	modeLog
)

// Model is the bubbletea model. It is used through a pointer because the
// interpreter calls the presenter methods while Update is running.
type Model struct {
	ctx  context.Context
	game Game
	opts Options
	log  *slog.Logger

	width  int
	height int
	mode   inputMode
	status string

	background string
	portrait   string

	speaker    string
	text       []rune
	shown      int
	revealGen  uint64
	onRevealed func()
	hideBox    bool

	prompt     string
	choices    []engine.Choice
	cursor     int
	onSelected func(int)

	countGen  uint64
	counting  bool
	deadline  time.Time
	remaining time.Duration
	onElapsed func()

	cueGen     uint64
	cueLabel   string
	onCueDone  func()
	cueRunning bool

	naming  bool
	input   string
	nameErr string
	onName  func(string)

	now     func() time.Time
	pending []tea.Cmd
}

var _ engine.Presenter = (*Model)(nil)

// New returns a host. Attach the interpreter before running it.
func New(ctx context.Context, opts Options) *Model {
	if opts.Names == nil {
		opts.Names = naming.NewValidator(0, nil)
	}
	if opts.Backlog == nil {
		opts.Backlog = history.New(history.Config{})
	}
	if opts.BlockingCue <= 0 {
		opts.BlockingCue = time.Second
	}
	if opts.Title == "" {
		opts.Title = "gonovel"
	}
	return &Model{ctx: ctx, opts: opts, log: applog.WithComponent("tui"), now: time.Now}
}

// Attach sets the game the host drives.
func (m *Model) Attach(g Game) { m.game = g }

// Run starts the program and blocks until the player quits or ctx ends.
// A panic in the game loop restores the terminal and is re-raised, so the
// caller's crash handler sees it.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithoutCatchPanics())
	defer func() {
		if r := recover(); r != nil {
			_ = p.ReleaseTerminal()
			panic(r)
		}
	}()
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) queue(c tea.Cmd) {
	if c != nil {
		m.pending = append(m.pending, c)
	}
}

func (m *Model) drain() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	cmds := m.pending
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) PresentLine(speaker, text string, onRevealed func()) {
	m.hideBox = false
	m.speaker = speaker
	m.text = []rune(stripTags(text))
	m.shown = 0
	m.revealGen++
	m.onRevealed = onRevealed
	if m.opts.CharsPerSecond <= 0 || len(m.text) == 0 {
		m.shown = len(m.text)
		m.queue(revealNow(m.revealGen))
		return
	}
	m.queue(revealTick(m.revealGen, m.opts.CharsPerSecond))
}

func (m *Model) SkipReveal() {
	m.shown = len(m.text)
	m.revealGen++
	m.onRevealed = nil
}

func (m *Model) PresentChoices(prompt string, choices []engine.Choice, onSelected func(int)) {
	m.hideBox = false
	m.prompt = stripTags(prompt)
	m.choices = choices
	m.cursor = 0
	m.onSelected = onSelected
	m.speaker, m.text, m.shown = "", nil, 0
}

func (m *Model) HideChoices() {
	m.choices = nil
	m.prompt = ""
	m.onSelected = nil
}

func (m *Model) StartCountdown(d time.Duration, onElapsed func()) {
	m.countGen++
	m.counting = true
	m.deadline = m.now().Add(d)
	m.remaining = d
	m.onElapsed = onElapsed
	m.queue(countdownTick(m.countGen))
}

func (m *Model) CancelCountdown() {
	m.countGen++
	m.counting = false
	m.onElapsed = nil
}

func (m *Model) PlayCues(cues script.Cues) {
	m.cueLabel = cueLabel(cues)
	m.hideBox = cues.HideUI
}

func (m *Model) PlayBlockingCues(cues script.Cues, onComplete func()) {
	m.cueGen++
	m.cueRunning = true
	m.cueLabel = cueLabel(cues)
	m.hideBox = cues.HideUI
	m.onCueDone = onComplete
	m.queue(cueTimer(m.cueGen, m.opts.BlockingCue))
}

func (m *Model) PromptName(onAccepted func(string)) {
	m.naming = true
	m.input = ""
	m.nameErr = ""
	m.onName = onAccepted
}

func (m *Model) ShowBackground(id string) { m.background = id }

func (m *Model) ShowPortrait(characterID, expression string) {
	m.portrait = characterID
	if expression != "" {
		m.portrait += " (" + expression + ")"
	}
}

func cueLabel(c script.Cues) string {
	parts := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		parts = append(parts, it.Target+":"+it.Trigger)
	}
	return strings.Join(parts, ", ")
}

// stripTags removes inline markup such as <b> or <color=red> so that the
// typewriter only spends time on visible characters. Only tag-shaped tokens
// count: '<' followed by a letter or '/', closed by '>' before any other '<'.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if n := tagLen(s[i:]); n > 0 {
			i += n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// tagLen returns the byte length of the tag opening s, or 0.
func tagLen(s string) int {
	if len(s) < 3 || s[0] != '<' {
		return 0
	}
	c := s[1]
	if !(c == '/' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		return 0
	}
	end := strings.IndexAny(s[1:], "<>\n")
	if end < 0 || s[1+end] != '>' {
		return 0
	}
	return end + 2
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"errors"
	"time"

	"gonovel/internal/script"
)

// State is the interpreter's position in the play loop.
type State int

const (
	Idle State = iota
	PresentingLine
	AwaitingAdvance
	PresentingChoice
	AwaitingChoiceOrTimeout
	PlayingBlockingAnimation
	AwaitingNameInput
	Finished
)

var stateNames = [...]string{
	Idle:                     "idle",
	PresentingLine:           "presenting-line",
	AwaitingAdvance:          "awaiting-advance",
	PresentingChoice:         "presenting-choice",
	AwaitingChoiceOrTimeout:  "awaiting-choice-or-timeout",
	PlayingBlockingAnimation: "playing-blocking-animation",
	AwaitingNameInput:        "awaiting-name-input",
	Finished:                 "finished",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

var (
	// ErrFinished is returned for input after the story has ended.
	ErrFinished = errors.New("scenario finished")
	// ErrInputIgnored is returned when the input does not apply to the current state.
	ErrInputIgnored = errors.New("input ignored in current state")
	// ErrInvalidChoice is returned for a choice index outside the presented set.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrUnknownEvent is reported through the observer for rows with an
	// unrecognized event type. Play continues past them.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrLineOutOfRange is returned by LoadScenario and RestoreSnapshot for a
	// start line outside the scenario.
	ErrLineOutOfRange = errors.New("line index out of range")
	// ErrJumpLoop is reported when jumps chain without presenting anything.
	ErrJumpLoop = errors.New("jump loop")
)

// Choice is one selectable option row of a choice block.
type Choice struct {
	Index  int
	Text   string
	Target string
	Line   int // source line of the option row
}

// Presenter is the UI side of the interpreter. Methods that take a callback
// start an activity owned by the presenter; the presenter invokes the
// callback once when the activity completes. Callbacks that arrive after the
// interpreter has moved on are ignored, so presenters need not track
// cancellation themselves. All methods and callbacks run on the
// interpreter's goroutine.
type Presenter interface {
	// PresentLine reveals text for the speaker and calls onRevealed when
	// the text is fully shown.
	PresentLine(speaker, text string, onRevealed func())
	// SkipReveal shows the rest of the current line immediately.
	SkipReveal()
	PresentChoices(prompt string, choices []Choice, onSelected func(index int))
	HideChoices()
	// StartCountdown calls onElapsed after d. CancelCountdown must be safe
	// to call when no countdown is running.
	StartCountdown(d time.Duration, onElapsed func())
	CancelCountdown()
	// PlayCues fires cues without waiting.
	PlayCues(cues script.Cues)
	// PlayBlockingCues plays cues and calls onComplete when they finish.
	PlayBlockingCues(cues script.Cues, onComplete func())
	// PromptName collects a validated player name.
	PromptName(onAccepted func(name string))
	ShowBackground(id string)
	ShowPortrait(characterID, expression string)
}

// EventKind classifies observer events.
type EventKind int

const (
	EventScenarioLoaded EventKind = iota + 1
	EventLineShown
	EventChoiceSelected
	EventChoiceTimedOut
	EventNameAccepted
	EventFinished
	EventWarning
)

var eventKindNames = map[EventKind]string{
	EventScenarioLoaded: "scenario_loaded",
	EventLineShown:      "line_shown",
	EventChoiceSelected: "choice_selected",
	EventChoiceTimedOut: "choice_timed_out",
	EventNameAccepted:   "name_accepted",
	EventFinished:       "finished",
	EventWarning:        "warning",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is delivered to the observer after the interpreter changes state.
type Event struct {
	Kind     EventKind
	Scenario string
	Index    int    // record index in the scenario
	Line     int    // source line, 0 when not tied to a row
	Detail   string // choice target, accepted name, offending expression
	Err      error  // set for EventWarning
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script decodes scenario script rows.
//
// A script is a comma-separated text resource with one record per line:
//
//	characterId, expression, dialogueText, backgroundImageId, "eventType:eventValue",
//	affectionChange, branchCondition, animationDuring, animationAfter
//
// Trailing fields may be omitted. Lines starting with '#' and blank lines are
// ignored. Fields may be enclosed in double quotes; a doubled quote inside a
// quoted field is a literal quote.
package script

import (
	"fmt"
	"strings"
)

// Sentinel character ids marking rows attached to a preceding choice row.
const (
	SentinelOption  = "option"
	SentinelTimeout = "timeout"
)

// QuitTarget is the choice value that ends the game instead of jumping.
const QuitTarget = "quit"

// EventType is the kind of a record.
type EventType int

const (
	EventUnknown EventType = iota
	EventDialogue
	EventChoice
	EventJump
	EventInputName
	EventOption
	EventTimeout
)

var eventNames = map[EventType]string{
	EventUnknown:   "unknown",
	EventDialogue:  "dialogue",
	EventChoice:    "choice",
	EventJump:      "jump",
	EventInputName: "inputName",
	EventOption:    SentinelOption,
	EventTimeout:   SentinelTimeout,
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseEventType maps an event token to its type, ignoring case.
// Unrecognized tokens map to EventUnknown.
func ParseEventType(s string) EventType {
	s = strings.TrimSpace(s)
	for t, name := range eventNames {
		if t != EventUnknown && strings.EqualFold(name, s) {
			return t
		}
	}
	return EventUnknown
}

// Record is one decoded script row. Records are values and are never mutated
// after decoding.
type Record struct {
	CharacterID     string
	Expression      string
	Text            string
	Background      string
	Type            EventType
	EventName       string // event token as written; empty when the type was inferred
	EventValue      string
	AffectionChange string
	BranchCondition string
	AnimationDuring string
	AnimationAfter  string
	LineNo          int // 1-based line number in the source, 0 if decoded standalone
}

// IsSentinel reports whether the record is an option or timeout row.
func (r Record) IsSentinel() bool {
	return r.CharacterID == SentinelOption || r.CharacterID == SentinelTimeout
}

// Deltas parses the affection change of the record.
func (r Record) Deltas() ([]Delta, []error) { return ParseAffection(r.AffectionChange) }

// During parses the non-blocking animation cues.
func (r Record) During() (Cues, []error) { return ParseCues(r.AnimationDuring) }

// After parses the animation cues played on the next input.
func (r Record) After() (Cues, []error) { return ParseCues(r.AnimationAfter) }

// Error represents a decode error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Message)
}

func (e Error) Unwrap() error { return ErrMalformedRecord }

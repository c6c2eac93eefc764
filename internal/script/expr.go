/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedAffection = errors.New("malformed affection expression")
	ErrMalformedCondition = errors.New("malformed branch condition")
	ErrMalformedCue       = errors.New("malformed animation cue")
)

// Delta is one "characterId:±n" term of an affection change.
type Delta struct {
	CharacterID string
	Amount      int
}

// ParseAffection parses "a:+10,b:-5". Malformed terms are reported and left
// out; the well-formed terms are still returned.
func ParseAffection(expr string) ([]Delta, []error) {
	var (
		out  []Delta
		errs []error
	)
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		parts := strings.Split(term, ":")
		if len(parts) != 2 {
			errs = append(errs, fmt.Errorf("%w: %q: want characterId:amount", ErrMalformedAffection, term))
			continue
		}
		id := strings.TrimSpace(parts[0])
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if id == "" || err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMalformedAffection, term))
			continue
		}
		out = append(out, Delta{CharacterID: id, Amount: n})
	}
	return out, errs
}

// Operator is a comparison used by branch conditions.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Valid reports whether op is one of the six supported comparisons.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}

// Compare applies "a op b". Invalid operators compare true.
func (op Operator) Compare(a, b int) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	}
	return true
}

// Condition is a parsed "characterId:op:n" branch condition.
type Condition struct {
	CharacterID string
	Op          Operator
	Threshold   int
}

func (c Condition) String() string {
	return fmt.Sprintf("%s:%s:%d", c.CharacterID, c.Op, c.Threshold)
}

// ParseCondition parses a branch condition such as "alice:>=:50".
func ParseCondition(expr string) (Condition, error) {
	parts := strings.Split(strings.TrimSpace(expr), ":")
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("%w: %q: want characterId:operator:value", ErrMalformedCondition, expr)
	}
	c := Condition{
		CharacterID: strings.TrimSpace(parts[0]),
		Op:          Operator(strings.TrimSpace(parts[1])),
	}
	if c.CharacterID == "" {
		return Condition{}, fmt.Errorf("%w: %q: empty character id", ErrMalformedCondition, expr)
	}
	if !c.Op.Valid() {
		return Condition{}, fmt.Errorf("%w: %q: unknown operator %q", ErrMalformedCondition, expr, c.Op)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %q: %v", ErrMalformedCondition, expr, err)
	}
	c.Threshold = n
	return c, nil
}

// Cue asks the host to fire an animation trigger on a named target.
type Cue struct {
	Target  string
	Trigger string
}

// Cues is a parsed animation cue list.
type Cues struct {
	Items []Cue
	// AutoProceed advances once the cues finish instead of waiting for input.
	AutoProceed bool
	// HideUI hides the dialogue box while the cues play.
	HideUI bool
}

// Empty reports whether there is nothing to play.
func (c Cues) Empty() bool { return len(c.Items) == 0 && !c.HideUI }

// ParseCues parses "camera:shake,alice:blink,AutoProceed".
func ParseCues(expr string) (Cues, []error) {
	var (
		out  Cues
		errs []error
	)
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		target, trigger, ok := strings.Cut(tok, ":")
		if !ok {
			switch {
			case strings.EqualFold(tok, "AutoProceed"):
				out.AutoProceed = true
			case strings.EqualFold(tok, "HideUI"):
				out.HideUI = true
			default:
				errs = append(errs, fmt.Errorf("%w: %q", ErrMalformedCue, tok))
			}
			continue
		}
		target, trigger = strings.TrimSpace(target), strings.TrimSpace(trigger)
		if target == "" || trigger == "" {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMalformedCue, tok))
			continue
		}
		out.Items = append(out.Items, Cue{Target: target, Trigger: trigger})
	}
	return out, errs
}

// ParseDuration parses a choice countdown: plain numbers are seconds
// ("5", "2.5"), anything else must be a Go duration ("1500ms").
// Zero, negative and unparsable values report false.
func ParseDuration(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f <= 0 {
			return 0, false
		}
		return time.Duration(f * float64(time.Second)), true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

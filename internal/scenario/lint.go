/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gonovel/internal/script"
)

// Severity of a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one content problem reported by Lint.
type Finding struct {
	Scenario string
	Line     int
	Severity Severity
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s.csv:%d: %s: %s", f.Scenario, f.Line, f.Severity, f.Message)
}

// CastLookup answers whether character ids and expressions are known.
type CastLookup interface {
	Has(id string) bool
	HasExpression(id, expression string) bool
}

// Lint checks every scenario in the store. Runtime playback tolerates all of
// these problems; Lint exists so authors see them before players do.
// cast may be nil to skip character checks.
func Lint(ctx context.Context, s *Store, cast CastLookup) ([]Finding, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Finding
	for _, id := range ids {
		t, errs, err := s.Parse(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, e := range errs {
			out = append(out, Finding{id, e.Line, SeverityError, e.Message})
		}
		out = append(out, lintTrack(t, s, cast)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Line < out[j].Line
	})
	return out, nil
}

func lintTrack(t *Track, s *Store, cast CastLookup) []Finding {
	var out []Finding
	add := func(r script.Record, sev Severity, format string, args ...any) {
		out = append(out, Finding{t.ID(), r.LineNo, sev, fmt.Sprintf(format, args...)})
	}
	checkTarget := func(r script.Record, target string) {
		target = NormalizeID(target)
		if target == "" || strings.EqualFold(target, script.QuitTarget) {
			return
		}
		if !s.Exists(target) {
			add(r, SeverityError, "target scenario %q does not exist", target)
		}
	}

	attached := map[int]bool{}
	for i := 0; i < t.Len(); i++ {
		r, _ := t.At(i)

		if _, errs := r.Deltas(); len(errs) > 0 {
			for _, e := range errs {
				add(r, SeverityWarning, "%v", e)
			}
		}
		if strings.TrimSpace(r.BranchCondition) != "" {
			if _, err := script.ParseCondition(r.BranchCondition); err != nil {
				add(r, SeverityWarning, "%v", err)
			}
		}
		for _, cues := range []string{r.AnimationDuring, r.AnimationAfter} {
			if _, errs := script.ParseCues(cues); len(errs) > 0 {
				for _, e := range errs {
					add(r, SeverityWarning, "%v", e)
				}
			}
		}

		switch r.Type {
		case script.EventUnknown:
			add(r, SeverityWarning, "unknown event type %q", r.EventName)
		case script.EventJump:
			if r.EventValue == "" {
				add(r, SeverityError, "jump without target")
			}
			checkTarget(r, r.EventValue)
		case script.EventChoice:
			opts, end := t.ChoiceBlock(i)
			for j := i + 1; j < end; j++ {
				attached[j] = true
			}
			if len(opts) == 0 {
				add(r, SeverityWarning, "choice has no option rows")
			}
			if r.EventValue != "" {
				if _, ok := script.ParseDuration(r.EventValue); !ok {
					add(r, SeverityWarning, "choice value %q is not a countdown duration", r.EventValue)
				} else if _, ok := t.FindTimeout(i); !ok {
					add(r, SeverityWarning, "timed choice has no timeout row; expiry falls through to the next line")
				}
			}
		case script.EventOption, script.EventTimeout:
			checkTarget(r, r.EventValue)
		}

		if r.CharacterID == script.SentinelOption && !attached[i] {
			add(r, SeverityWarning, "option row is not attached to a choice")
		}
		if cast != nil && r.Type == script.EventDialogue && r.CharacterID != "" && !r.IsSentinel() {
			switch {
			case !cast.Has(r.CharacterID):
				add(r, SeverityWarning, "unknown character %q", r.CharacterID)
			case r.Expression != "" && !strings.EqualFold(r.Expression, "none") && !cast.HasExpression(r.CharacterID, r.Expression):
				add(r, SeverityWarning, "character %q has no expression %q", r.CharacterID, r.Expression)
			}
		}
	}
	return out
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"errors"

	"gonovel/internal/engine"
	"gonovel/internal/scenario"
	"gonovel/internal/script"
)

// EngineObserver turns interpreter events into telemetry events. Only the
// event kind, scenario id and line are sent; player names and script text
// never leave the machine.
func EngineObserver(c *Client) func(engine.Event) {
	return func(ev engine.Event) {
		if !c.Enabled() {
			return
		}
		props := map[string]any{"scenario": ev.Scenario}
		switch ev.Kind {
		case engine.EventLineShown, engine.EventNameAccepted:
			// too chatty or personal
			return
		case engine.EventChoiceSelected, engine.EventChoiceTimedOut:
			props["line"] = ev.Line
		case engine.EventWarning:
			props["line"] = ev.Line
			props["kind"] = warningKind(ev.Err)
		}
		c.Event("novel."+ev.Kind.String(), props)
	}
}

func warningKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, engine.ErrJumpLoop):
		return "jump_loop"
	case errors.Is(err, scenario.ErrScenarioNotFound):
		return "missing_scenario"
	case errors.Is(err, script.ErrMalformedAffection), errors.Is(err, script.ErrMalformedCondition):
		return "malformed_expression"
	case errors.Is(err, script.ErrMalformedCue):
		return "malformed_cue"
	default:
		return "other"
	}
}

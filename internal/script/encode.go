/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "strings"

// Encode renders a record back into a script row. Decoding the result yields
// the same stable fields; quoting is normalized and trailing empty fields are
// dropped. A backslash directly before a quote inside a quoted field does not
// survive the round trip.
func Encode(r Record) string {
	event := r.EventName
	if r.EventValue != "" {
		event += ":" + r.EventValue
	}
	fields := []string{
		r.CharacterID,
		r.Expression,
		r.Text,
		r.Background,
		event,
		r.AffectionChange,
		r.BranchCondition,
		r.AnimationDuring,
		r.AnimationAfter,
	}
	n := len(fields)
	for n > 1 && fields[n-1] == "" {
		n--
	}
	var b strings.Builder
	for i, f := range fields[:n] {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteField(f, i == 0))
	}
	return b.String()
}

func quoteField(f string, first bool) string {
	needs := strings.ContainsAny(f, ",\"") ||
		strings.TrimSpace(f) != f ||
		(first && strings.HasPrefix(f, "#"))
	if !needs {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

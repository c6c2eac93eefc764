/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package affection keeps per-character relationship scores.
//
// Scores default to zero and are unbounded. Malformed affection changes and
// branch conditions never stop playback: a bad delta is skipped and a bad
// condition passes. Each such input produces one Diagnostic.
package affection

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	applog "gonovel/internal/log"
	"gonovel/internal/script"
)

// Diagnostic describes malformed input that was tolerated.
type Diagnostic struct {
	Expr string
	Err  error
}

func (d Diagnostic) String() string { return fmt.Sprintf("%v (in %q)", d.Err, d.Expr) }

// Option configures a Ledger.
type Option func(*Ledger)

// WithDiagnostics installs a sink for tolerated malformed input.
func WithDiagnostics(fn func(Diagnostic)) Option { return func(l *Ledger) { l.onDiag = fn } }

// WithLogger overrides the component logger.
func WithLogger(lg *slog.Logger) Option { return func(l *Ledger) { l.log = lg } }

// Ledger maps character ids to scores. It is owned by a single interpreter
// and is not safe for concurrent use.
type Ledger struct {
	scores map[string]int
	onDiag func(Diagnostic)
	log    *slog.Logger
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{scores: map[string]int{}}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = applog.WithComponent("affection")
	}
	return l
}

// Get returns the score of id, 0 if never changed.
func (l *Ledger) Get(id string) int { return l.scores[id] }

// ApplyDelta adds delta to the score of id.
func (l *Ledger) ApplyDelta(id string, delta int) {
	l.scores[id] += delta
}

// Evaluate reports whether "score(id) op threshold" holds. An unknown
// operator is reported and evaluates to true.
func (l *Ledger) Evaluate(id string, op script.Operator, threshold int) bool {
	if !op.Valid() {
		l.diagnose(Diagnostic{
			Expr: fmt.Sprintf("%s:%s:%d", id, op, threshold),
			Err:  fmt.Errorf("%w: unknown operator %q", script.ErrMalformedCondition, op),
		})
		return true
	}
	return op.Compare(l.Get(id), threshold)
}

// ApplyExpr applies an affection change such as "alice:+10,bob:-5" and
// returns the number of terms applied. Malformed terms are skipped.
func (l *Ledger) ApplyExpr(expr string) int {
	if strings.TrimSpace(expr) == "" {
		return 0
	}
	deltas, errs := script.ParseAffection(expr)
	for _, err := range errs {
		l.diagnose(Diagnostic{Expr: expr, Err: err})
	}
	for _, d := range deltas {
		l.ApplyDelta(d.CharacterID, d.Amount)
	}
	return len(deltas)
}

// Check evaluates a branch condition such as "alice:>=:50". An empty
// condition holds; a malformed one is reported and holds as well.
func (l *Ledger) Check(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}
	c, err := script.ParseCondition(expr)
	if err != nil {
		l.diagnose(Diagnostic{Expr: expr, Err: err})
		return true
	}
	return l.Evaluate(c.CharacterID, c.Op, c.Threshold)
}

// Snapshot returns a copy of all scores.
func (l *Ledger) Snapshot() map[string]int { return maps.Clone(l.scores) }

// Restore replaces all scores with a copy of m.
func (l *Ledger) Restore(m map[string]int) {
	l.scores = make(map[string]int, len(m))
	maps.Copy(l.scores, m)
}

// Reset clears all scores.
func (l *Ledger) Reset() { clear(l.scores) }

func (l *Ledger) diagnose(d Diagnostic) {
	l.log.Warn("malformed expression ignored", slog.String("expr", d.Expr), slog.Any("err", d.Err))
	if l.onDiag != nil {
		l.onDiag(d)
	}
}

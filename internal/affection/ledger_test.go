/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package affection

import (
	"errors"
	"testing"

	"gonovel/internal/script"
)

func newTestLedger(diags *[]Diagnostic) *Ledger {
	return New(WithDiagnostics(func(d Diagnostic) { *diags = append(*diags, d) }))
}

func TestApplyDeltaThenEvaluate(t *testing.T) {
	l := New()
	l.ApplyDelta("A", 10)
	l.ApplyDelta("A", -3)
	if !l.Evaluate("A", script.OpGreaterEqual, 5) {
		t.Fatalf("A=%d should be >= 5", l.Get("A"))
	}
	if l.Get("B") != 0 {
		t.Fatalf("unseen id should default to 0")
	}
	if l.Evaluate("B", script.OpGreater, 0) {
		t.Fatalf("B > 0 should be false")
	}
}

func TestScoresAreUnbounded(t *testing.T) {
	l := New()
	l.ApplyDelta("A", -1_000_000)
	l.ApplyDelta("A", -1)
	if l.Get("A") != -1_000_001 {
		t.Fatalf("score clamped: %d", l.Get("A"))
	}
}

func TestCheckMalformedConditionFailsOpen(t *testing.T) {
	var diags []Diagnostic
	l := newTestLedger(&diags)
	if !l.Check("A:") {
		t.Fatalf("malformed condition should evaluate to true")
	}
	if len(diags) != 1 {
		t.Fatalf("want exactly one diagnostic, got %d", len(diags))
	}
	if !errors.Is(diags[0].Err, script.ErrMalformedCondition) || diags[0].Expr != "A:" {
		t.Fatalf("unexpected diagnostic: %+v", diags[0])
	}
}

func TestCheckWellFormed(t *testing.T) {
	var diags []Diagnostic
	l := newTestLedger(&diags)
	l.ApplyDelta("alice", 49)
	if l.Check("alice:>=:50") {
		t.Fatalf("49 >= 50 should be false")
	}
	l.ApplyExpr("alice:+1")
	if !l.Check("alice:>=:50") || !l.Check("") {
		t.Fatalf("condition should hold")
	}
	if len(diags) != 0 {
		t.Fatalf("no diagnostics expected, got %v", diags)
	}
}

func TestApplyExprSkipsMalformedTerms(t *testing.T) {
	var diags []Diagnostic
	l := newTestLedger(&diags)
	n := l.ApplyExpr("alice:+5,bob:lots,carol:-2,oops")
	if n != 2 {
		t.Fatalf("applied %d terms, want 2", n)
	}
	if l.Get("alice") != 5 || l.Get("carol") != -2 || l.Get("bob") != 0 {
		t.Fatalf("scores = %v", l.Snapshot())
	}
	if len(diags) != 2 {
		t.Fatalf("want one diagnostic per malformed term, got %d", len(diags))
	}
}

func TestEvaluateUnknownOperatorFailsOpen(t *testing.T) {
	var diags []Diagnostic
	l := newTestLedger(&diags)
	if !l.Evaluate("A", script.Operator("=~"), 10) {
		t.Fatalf("unknown operator should evaluate to true")
	}
	if len(diags) != 1 {
		t.Fatalf("want one diagnostic, got %d", len(diags))
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	l := New()
	l.ApplyDelta("A", 1)
	snap := l.Snapshot()
	snap["A"] = 100
	l.ApplyDelta("B", 2)
	if l.Get("A") != 1 || len(snap) != 1 {
		t.Fatalf("snapshot shares storage with ledger")
	}

	src := map[string]int{"X": 7}
	l.Restore(src)
	src["X"] = 0
	if l.Get("X") != 7 || l.Get("A") != 0 {
		t.Fatalf("Restore should replace scores with a copy: %v", l.Snapshot())
	}
	l.Reset()
	if len(l.Snapshot()) != 0 {
		t.Fatalf("Reset left scores behind")
	}
}

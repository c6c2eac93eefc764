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
	"strings"
	"testing"
	"time"
)

func TestDecodeQuotedFields(t *testing.T) {
	rec, err := Decode(`  alice , smile , "Hello, ""friend"" \"ok\"" , park.png ,jump:chapter:2`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if rec.CharacterID != "alice" || rec.Expression != "smile" || rec.Background != "park.png" {
		t.Fatalf("unexpected fields: %+v", rec)
	}
	if rec.Text != `Hello, "friend" "ok"` {
		t.Fatalf("Text = %q", rec.Text)
	}
	if rec.Type != EventJump || rec.EventName != "jump" || rec.EventValue != "chapter:2" {
		t.Fatalf("event = %v %q %q, want jump with value chapter:2", rec.Type, rec.EventName, rec.EventValue)
	}
}

func TestDecodeQuotedWhitespaceIsKept(t *testing.T) {
	rec, err := Decode(`bob,,"  padded  "`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if rec.Text != "  padded  " {
		t.Fatalf("Text = %q", rec.Text)
	}
}

func TestDecodeTrailingBackslashInQuotes(t *testing.T) {
	cases := []struct {
		line, text, bg string
	}{
		{`n,,"C:\dir\",bg`, `C:\dir\`, "bg"},
		{`n,,"C:\dir\","b g"`, `C:\dir\`, "b g"},
		{`n,,"say \"hi\"",bg`, `say "hi"`, "bg"},
	}
	for _, tc := range cases {
		rec, err := Decode(tc.line)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", tc.line, err)
		}
		if rec.Text != tc.text || rec.Background != tc.bg {
			t.Fatalf("Decode(%q) = text %q bg %q, want %q %q", tc.line, rec.Text, rec.Background, tc.text, tc.bg)
		}
	}
}

func TestDecodeInfersEventType(t *testing.T) {
	cases := []struct {
		line string
		want EventType
	}{
		{"alice,smile,hi", EventDialogue},
		{"option,,Go left,,", EventOption},
		{"timeout,,,,", EventTimeout},
		{"alice,,,,choice:5", EventChoice},
		{"alice,,,,CHOICE", EventChoice},
		{"alice,,,,inputname", EventInputName},
		{"option,,Go left,,:left_path", EventOption},
		{"alice,,,,shake:hard", EventUnknown},
		{"alice", EventDialogue},
	}
	for _, tc := range cases {
		rec, err := Decode(tc.line)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", tc.line, err)
		}
		if rec.Type != tc.want {
			t.Fatalf("Decode(%q).Type = %v, want %v", tc.line, rec.Type, tc.want)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, line := range []string{"", "   ", `alice,"unterminated`, `alice,"done" junk,x`} {
		_, err := Decode(line)
		if !errors.Is(err, ErrMalformedRecord) {
			t.Fatalf("Decode(%q) error = %v, want ErrMalformedRecord", line, err)
		}
	}
	_, err := Decode(`alice,"open`)
	var e Error
	if !errors.As(err, &e) || e.Column != 7 {
		t.Fatalf("expected column 7 for unterminated quote, got %+v", err)
	}
}

func TestParseSkipsCommentsAndReportsErrors(t *testing.T) {
	src := "\uFEFF# prologue\n\nalice,smile,Hi\n  # indented comment\nbob,\"broken\n" +
		"option,,Yes,,,\"alice:+1\"\r\n"
	recs, errs := Parse(src)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].LineNo != 3 || recs[1].LineNo != 6 {
		t.Fatalf("line numbers = %d,%d want 3,6", recs[0].LineNo, recs[1].LineNo)
	}
	if recs[1].AffectionChange != "alice:+1" {
		t.Fatalf("AffectionChange = %q", recs[1].AffectionChange)
	}
	if len(errs) != 1 || errs[0].Line != 5 {
		t.Fatalf("errors = %+v, want one on line 5", errs)
	}
	if !strings.Contains(errs[0].Error(), "line 5") {
		t.Fatalf("error text lacks position: %q", errs[0].Error())
	}
}

func TestParseKeepsGoingAfterOversizedRow(t *testing.T) {
	src := "n,,first\n" + "n,," + strings.Repeat("x", maxRecordLen+100) + "\nn,,third\n"
	recs, errs := Parse(src)
	if len(recs) != 2 || recs[0].Text != "first" || recs[1].Text != "third" {
		t.Fatalf("records = %d, want first and third", len(recs))
	}
	if recs[1].LineNo != 3 {
		t.Fatalf("third row LineNo = %d, want 3", recs[1].LineNo)
	}
	if len(errs) != 1 || errs[0].Line != 2 {
		t.Fatalf("errors = %+v, want one on line 2", errs)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	rows := []string{
		`alice,smile,"Hello, world",park.png,jump:chapter_02.csv`,
		`bob,none,"She said ""hi""",,,"alice:+10,bob:-3",alice:>=:5,camera:shake,"bob:wave,AutoProceed"`,
		`option,,Take the train,,:station,alice:+2`,
		`timeout,,,,:too_late`,
		`"#hash",,"  spaced  "`,
		`narrator,,,,,,,,HideUI`,
		`alice,,,,choice:10`,
	}
	for _, row := range rows {
		first, err := Decode(row)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", row, err)
		}
		enc := Encode(first)
		second, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) = %q error: %v", row, enc, err)
		}
		if first != second {
			t.Fatalf("round trip mismatch for %q\n enc: %q\n got: %+v\nwant: %+v", row, enc, second, first)
		}
	}
}

func TestParseAffection(t *testing.T) {
	ds, errs := ParseAffection(" alice:+10, bob:-3 ,carol:x, dave, :4")
	if len(ds) != 2 || ds[0] != (Delta{"alice", 10}) || ds[1] != (Delta{"bob", -3}) {
		t.Fatalf("deltas = %+v", ds)
	}
	if len(errs) != 3 {
		t.Fatalf("want 3 errors, got %v", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrMalformedAffection) {
			t.Fatalf("error %v does not wrap ErrMalformedAffection", err)
		}
	}
	if ds, errs := ParseAffection(""); ds != nil || errs != nil {
		t.Fatalf("empty expression should yield nothing: %v %v", ds, errs)
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition(" alice : >= : 50 ")
	if err != nil {
		t.Fatalf("ParseCondition() error: %v", err)
	}
	if c != (Condition{CharacterID: "alice", Op: OpGreaterEqual, Threshold: 50}) {
		t.Fatalf("condition = %+v", c)
	}
	for _, bad := range []string{"A:", "A:>=", "A:=>:1", "A:>:x", ":>:1", "A:>:1:2"} {
		if _, err := ParseCondition(bad); !errors.Is(err, ErrMalformedCondition) {
			t.Fatalf("ParseCondition(%q) = %v, want ErrMalformedCondition", bad, err)
		}
	}
}

func TestOperatorCompare(t *testing.T) {
	cases := []struct {
		op   Operator
		a, b int
		want bool
	}{
		{OpEqual, 3, 3, true}, {OpNotEqual, 3, 3, false}, {OpGreater, 4, 3, true},
		{OpGreaterEqual, 3, 3, true}, {OpLess, 3, 3, false}, {OpLessEqual, -1, 0, true},
		{Operator("~"), 0, 100, true},
	}
	for _, tc := range cases {
		if got := tc.op.Compare(tc.a, tc.b); got != tc.want {
			t.Fatalf("%d %s %d = %v, want %v", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestParseCues(t *testing.T) {
	c, errs := ParseCues("camera:shake, alice : blink ,autoproceed,HIDEUI,bogus,:x")
	if len(c.Items) != 2 || c.Items[1] != (Cue{"alice", "blink"}) {
		t.Fatalf("items = %+v", c.Items)
	}
	if !c.AutoProceed || !c.HideUI {
		t.Fatalf("flags not set: %+v", c)
	}
	if len(errs) != 2 {
		t.Fatalf("want 2 errors, got %v", errs)
	}
	if empty, _ := ParseCues(""); !empty.Empty() {
		t.Fatalf("empty cue list should be Empty()")
	}
	if only, _ := ParseCues("AutoProceed"); !only.Empty() || !only.AutoProceed {
		t.Fatalf("AutoProceed alone plays nothing but keeps the flag: %+v", only)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{"5": 5 * time.Second, "2.5": 2500 * time.Millisecond, "1500ms": 1500 * time.Millisecond}
	for in, want := range cases {
		if got, ok := ParseDuration(in); !ok || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "0", "-3", "soon", "sceneX"} {
		if _, ok := ParseDuration(in); ok {
			t.Fatalf("ParseDuration(%q) should fail", in)
		}
	}
}

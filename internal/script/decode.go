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
)

// ErrMalformedRecord is returned for rows that cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// Field positions of a row.
const (
	fieldCharacter = iota
	fieldExpression
	fieldText
	fieldBackground
	fieldEvent
	fieldAffection
	fieldBranch
	fieldDuring
	fieldAfter
	fieldCount
)

// Skippable reports whether a raw line is a comment or blank.
func Skippable(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

// Decode decodes one row. Errors are of type Error and wrap ErrMalformedRecord.
// Decode does not skip comments; callers check Skippable first.
func Decode(line string) (Record, error) {
	return decodeAt(line, 0)
}

func decodeAt(line string, lineNo int) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Record{}, Error{Line: lineNo, Column: 1, Message: "empty record"}
	}
	fields, col, msg := splitFields(line)
	if msg != "" {
		return Record{}, Error{Line: lineNo, Column: col, Message: msg}
	}
	for len(fields) < fieldCount {
		fields = append(fields, "")
	}
	rec := Record{
		CharacterID:     fields[fieldCharacter],
		Expression:      fields[fieldExpression],
		Text:            fields[fieldText],
		Background:      fields[fieldBackground],
		AffectionChange: fields[fieldAffection],
		BranchCondition: fields[fieldBranch],
		AnimationDuring: fields[fieldDuring],
		AnimationAfter:  fields[fieldAfter],
		LineNo:          lineNo,
	}
	name, value, _ := strings.Cut(fields[fieldEvent], ":")
	rec.EventName = strings.TrimSpace(name)
	rec.EventValue = strings.TrimSpace(value)
	rec.Type = inferType(rec.CharacterID, rec.EventName)
	return rec, nil
}

func inferType(characterID, name string) EventType {
	if name != "" {
		return ParseEventType(name)
	}
	switch characterID {
	case SentinelOption:
		return EventOption
	case SentinelTimeout:
		return EventTimeout
	default:
		return EventDialogue
	}
}

// splitFields splits a row on commas. Whitespace outside quotes is trimmed.
// Inside quotes, "" stands for a literal quote. The legacy \" escape is
// honored only when the field still closes properly with it; otherwise the
// backslash is kept and the quote ends the field. On failure it returns the
// 1-based column and a message.
func splitFields(line string) ([]string, int, string) {
	var (
		fields []string
		rs     = []rune(line)
	)
	i := 0
	for {
		for i < len(rs) && isSpace(rs[i]) {
			i++
		}
		if i < len(rs) && rs[i] == '"' {
			field, next, col, msg := quotedField(rs, i, true)
			if msg != "" {
				field, next, col, msg = quotedField(rs, i, false)
			}
			if msg != "" {
				return nil, col, msg
			}
			fields = append(fields, field)
			i = next
		} else {
			start := i
			for i < len(rs) && rs[i] != ',' {
				i++
			}
			fields = append(fields, strings.TrimRightFunc(string(rs[start:i]), isSpace))
		}
		if i >= len(rs) {
			return fields, 0, ""
		}
		i++ // comma
	}
}

// quotedField reads the quoted field opening at rs[start] and returns its
// content and the index of the following comma or end of line.
func quotedField(rs []rune, start int, backslash bool) (string, int, int, string) {
	var cur strings.Builder
	i := start + 1
	closed := false
	for i < len(rs) && !closed {
		c := rs[i]
		switch {
		case c == '"' && i+1 < len(rs) && rs[i+1] == '"':
			cur.WriteRune('"')
			i += 2
		case backslash && c == '\\' && i+1 < len(rs) && rs[i+1] == '"':
			cur.WriteRune('"')
			i += 2
		case c == '"':
			closed = true
			i++
		default:
			cur.WriteRune(c)
			i++
		}
	}
	if !closed {
		return "", 0, start + 1, "unterminated quoted field"
	}
	for i < len(rs) && isSpace(rs[i]) {
		i++
	}
	if i < len(rs) && rs[i] != ',' {
		return "", 0, i + 1, "unexpected character after closing quote"
	}
	return cur.String(), i, 0, ""
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' || r == '\uFEFF' }

// maxRecordLen bounds a single row in bytes.
const maxRecordLen = 1 << 20

// Parse decodes a whole script resource. Comment and blank lines are skipped;
// malformed or oversized rows are reported in the error slice and left out of
// the result, so one bad row never aborts the rest.
func Parse(input string) ([]Record, []Error) {
	var (
		recs []Record
		errs []Error
	)
	lineNo := 0
	for raw := range strings.Lines(input) {
		lineNo++
		raw = strings.TrimRight(raw, "\r\n")
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\uFEFF")
		}
		if Skippable(raw) {
			continue
		}
		if len(raw) > maxRecordLen {
			errs = append(errs, Error{Line: lineNo, Column: 1, Message: "record exceeds 1 MiB"})
			continue
		}
		rec, err := decodeAt(raw, lineNo)
		if err != nil {
			var e Error
			if errors.As(err, &e) {
				errs = append(errs, e)
			}
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}

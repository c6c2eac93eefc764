/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package naming validates player names entered at a name prompt.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrNameRejected wraps every validation failure.
var ErrNameRejected = errors.New("name rejected")

var (
	ErrEmpty     = fmt.Errorf("%w: empty", ErrNameRejected)
	ErrTooLong   = fmt.Errorf("%w: too long", ErrNameRejected)
	ErrForbidden = fmt.Errorf("%w: contains a forbidden word", ErrNameRejected)
	ErrControl   = fmt.Errorf("%w: contains control characters", ErrNameRejected)
)

// Validator checks names against a length bound and a forbidden-substring list.
// Comparison is done on NFKC-normalized, case-folded text, so full-width
// letters and case variants of a forbidden word are caught too. A Validator
// is not safe for concurrent use.
type Validator struct {
	maxLen    int
	forbidden []string
	fold      cases.Caser
}

// NewValidator returns a validator. maxLen <= 0 disables the length bound.
func NewValidator(maxLen int, forbidden []string) *Validator {
	v := &Validator{maxLen: maxLen, fold: cases.Fold()}
	for _, f := range forbidden {
		if k := v.key(f); k != "" {
			v.forbidden = append(v.forbidden, k)
		}
	}
	return v
}

func (v *Validator) key(s string) string {
	return v.fold.String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Validate returns the accepted (trimmed, NFC-normalized) name or an error
// wrapping ErrNameRejected.
func (v *Validator) Validate(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrEmpty
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", ErrControl
	}
	if v.maxLen > 0 && utf8.RuneCountInString(name) > v.maxLen {
		return "", fmt.Errorf("%w (max %d characters)", ErrTooLong, v.maxLen)
	}
	k := v.key(name)
	for _, f := range v.forbidden {
		if strings.Contains(k, f) {
			return "", ErrForbidden
		}
	}
	return name, nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package naming

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewValidator(8, []string{"admin", " ", "Ｂａｄ"})
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"  Mia  ", "Mia", nil},
		{"", "", ErrEmpty},
		{"   ", "", ErrEmpty},
		{"Bartholomew", "", ErrTooLong},
		{"ミアミアミアミア", "ミアミアミアミア", nil},
		{"SuperADMIN", "", ErrTooLong},
		{"xAdMinx", "", ErrForbidden},
		{"ＡＤＭＩＮ", "", ErrForbidden},
		{"BADguy", "", ErrForbidden},
		{"tab\tbed", "", ErrControl},
	}
	for _, tc := range cases {
		got, err := v.Validate(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) || !errors.Is(err, ErrNameRejected) {
				t.Fatalf("Validate(%q) error = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Validate(%q) = %q, %v want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestValidateWithoutLimits(t *testing.T) {
	v := NewValidator(0, nil)
	long := "Wolfeschlegelsteinhausenbergerdorff"
	if got, err := v.Validate(long); err != nil || got != long {
		t.Fatalf("Validate(long) = %q, %v", got, err)
	}
}

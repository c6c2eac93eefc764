/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gonovel/internal/save"
)

const countdownStep = 100 * time.Millisecond

type revealTickMsg struct{ gen uint64 }

type countdownTickMsg struct{ gen uint64 }

type cueDoneMsg struct{ gen uint64 }

type savedMsg struct {
	slot int
	err  error
}

type loadedMsg struct {
	slot  int
	snap  save.Snapshot
	found bool
	err   error
}

func revealTick(gen uint64, cps float64) tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)/cps), func(time.Time) tea.Msg {
		return revealTickMsg{gen: gen}
	})
}

func revealNow(gen uint64) tea.Cmd {
	return func() tea.Msg { return revealTickMsg{gen: gen} }
}

func countdownTick(gen uint64) tea.Cmd {
	return tea.Tick(countdownStep, func(time.Time) tea.Msg {
		return countdownTickMsg{gen: gen}
	})
}

func cueTimer(gen uint64, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return cueDoneMsg{gen: gen}
	})
}

func saveCmd(ctx context.Context, p save.Persister, slot int, snap save.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{slot: slot, err: p.Save(ctx, slot, snap)}
	}
}

func loadCmd(ctx context.Context, p save.Persister, slot int) tea.Cmd {
	return func() tea.Msg {
		snap, found, err := p.Load(ctx, slot)
		return loadedMsg{slot: slot, snap: snap, found: found, err: err}
	}
}

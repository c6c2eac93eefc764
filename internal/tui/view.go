/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gonovel/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	cueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func (m *Model) boxStyle() lipgloss.Style {
	w := m.width - 4
	if w < 20 {
		w = 60
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(w)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header()))
	b.WriteString("\n\n")

	if m.mode == modeLog {
		b.WriteString(m.boxStyle().Render(m.backlogView()))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("any key returns"))
		return b.String()
	}

	if m.cueLabel != "" {
		b.WriteString(cueStyle.Render("* " + m.cueLabel))
		b.WriteString("\n")
	}
	if !m.hideBox {
		b.WriteString(m.boxStyle().Render(m.body()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render(m.hint()))
	return b.String()
}

func (m *Model) header() string {
	parts := []string{m.opts.Title}
	if m.background != "" {
		parts = append(parts, "scene: "+m.background)
	}
	if m.portrait != "" {
		parts = append(parts, m.portrait)
	}
	return strings.Join(parts, " | ")
}

func (m *Model) body() string {
	var b strings.Builder
	switch {
	case m.naming:
		b.WriteString("What is your name?\n> ")
		b.WriteString(m.input)
		b.WriteString("_")
		if m.nameErr != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(m.nameErr))
		}
	case len(m.choices) > 0:
		if m.prompt != "" {
			b.WriteString(textStyle.Render(m.prompt))
			b.WriteString("\n")
		}
		for i, c := range m.choices {
			line := fmt.Sprintf("%d. %s", i+1, c.Text)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.counting {
			b.WriteString(errorStyle.Render(fmt.Sprintf("%.1fs", m.remaining.Seconds())))
		}
	default:
		if m.speaker != "" {
			b.WriteString(speakerStyle.Render(m.speaker))
			b.WriteString("\n")
		}
		b.WriteString(textStyle.Render(string(m.text[:m.shown])))
		if m.game != nil && m.game.State() == engine.Finished {
			b.WriteString("\n\n")
			b.WriteString(headerStyle.Render("The End"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) backlogView() string {
	entries := m.opts.Backlog.Lines(15)
	if len(entries) == 0 {
		return "(no history yet)"
	}
	var b strings.Builder
	for _, e := range entries {
		if e.Speaker != "" {
			b.WriteString(speakerStyle.Render(e.Speaker))
			b.WriteString(": ")
		}
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) hint() string {
	switch {
	case m.naming:
		return "type a name, enter to confirm"
	case len(m.choices) > 0:
		return "up/down or 1-9 to pick, enter to confirm"
	}
	return "enter next | b back | f forward | s save | l load | h history | q quit"
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders scenarios as a read-through script for authors
// and proofreaders.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gonovel/internal/cast"
	"gonovel/internal/scenario"
	"gonovel/internal/script"
)

// PDFOptions controls script export. Units are millimetres on A4 pages.
type PDFOptions struct {
	Title string
	// ShowCues prints animation cues under the lines that trigger them.
	ShowCues bool
	// ShowConditions prefixes conditional lines with their branch condition.
	ShowConditions bool
}

type blockKind int

const (
	blockHeading blockKind = iota
	blockScene
	blockSpeaker
	blockText
	blockChoice
	blockOption
	blockDirection
	blockNote
)

// block is one laid-out paragraph of the script.
type block struct {
	kind blockKind
	text string
}

// layout turns a track into script paragraphs. Option and timeout rows are
// numbered under the choice they belong to.
func layout(t *scenario.Track, c *cast.Cast, opt PDFOptions) []block {
	out := []block{{blockHeading, t.ID()}}
	scene := ""
	option := 0
	for _, r := range t.Records() {
		if bg := strings.TrimSuffix(r.Background, ".png"); bg != "" && bg != scene {
			scene = bg
			out = append(out, block{blockScene, "Scene: " + bg})
		}
		if opt.ShowConditions && strings.TrimSpace(r.BranchCondition) != "" {
			out = append(out, block{blockNote, "if " + conditionText(r.BranchCondition)})
		}
		switch r.Type {
		case script.EventDialogue:
			if r.IsSentinel() {
				break
			}
			if r.CharacterID != "" {
				name := strings.ToUpper(c.DisplayName(r.CharacterID))
				if e := r.Expression; e != "" && !strings.EqualFold(e, "none") {
					name += " (" + e + ")"
				}
				out = append(out, block{blockSpeaker, name})
			}
			out = append(out, block{blockText, r.Text})
		case script.EventChoice:
			option = 0
			head := "CHOICE"
			if d, ok := script.ParseDuration(r.EventValue); ok {
				head += fmt.Sprintf(" (%s)", d)
			}
			if r.Text != "" {
				head += ": " + r.Text
			}
			out = append(out, block{blockChoice, head})
		case script.EventOption:
			option++
			out = append(out, block{blockOption, fmt.Sprintf("%d. %s%s%s", option, r.Text, targetText(r.EventValue), affectionText(r.AffectionChange))})
		case script.EventTimeout:
			out = append(out, block{blockOption, "on timeout" + targetText(r.EventValue)})
		case script.EventInputName:
			out = append(out, block{blockDirection, "The player enters a name."})
		case script.EventJump:
			if strings.EqualFold(strings.TrimSpace(r.EventValue), script.QuitTarget) {
				out = append(out, block{blockDirection, "THE END"})
			} else {
				out = append(out, block{blockDirection, "Continue in " + scenario.NormalizeID(r.EventValue)})
			}
		default:
			out = append(out, block{blockNote, fmt.Sprintf("[%s:%s]", r.EventName, r.EventValue)})
		}
		if opt.ShowCues {
			if r.AnimationDuring != "" {
				out = append(out, block{blockNote, "during: " + r.AnimationDuring})
			}
			if r.AnimationAfter != "" {
				out = append(out, block{blockNote, "after: " + r.AnimationAfter})
			}
		}
	}
	return out
}

func targetText(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return ""
	case strings.EqualFold(v, script.QuitTarget):
		return "  -> end"
	}
	return "  -> " + scenario.NormalizeID(v)
}

func affectionText(expr string) string {
	if strings.TrimSpace(expr) == "" {
		return ""
	}
	return "  [" + expr + "]"
}

func conditionText(expr string) string {
	cond, err := script.ParseCondition(expr)
	if err != nil {
		return expr + " (malformed)"
	}
	return fmt.Sprintf("%s %s %d", cond.CharacterID, cond.Op, cond.Threshold)
}

// ScriptPDF writes the tracks as one PDF, each scenario starting on a new page.
func ScriptPDF(w io.Writer, tracks []*scenario.Track, c *cast.Cast, opt PDFOptions) error {
	if c == nil {
		c = cast.Empty()
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	title := opt.Title
	if title == "" {
		title = "Script"
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("GoNovel", false)
	pdf.SetMargins(25, 20, 25)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s - %d", tr(title), pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	for _, t := range tracks {
		pdf.AddPage()
		for _, b := range layout(t, c, opt) {
			renderBlock(pdf, tr, b)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func renderBlock(pdf *gofpdf.Fpdf, tr func(string) string, b block) {
	const width = 0
	switch b.kind {
	case blockHeading:
		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(width, 9, tr(b.text), "B", "L", false)
		pdf.Ln(4)
	case blockScene:
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(width, 6, tr(strings.ToUpper(b.text)), "", "L", false)
		pdf.Ln(1)
	case blockSpeaker:
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetX(60)
		pdf.MultiCell(width, 5, tr(b.text), "", "L", false)
	case blockText:
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetX(40)
		pdf.MultiCell(130, 5, tr(b.text), "", "L", false)
	case blockChoice:
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(0, 0, 120)
		pdf.MultiCell(width, 5, tr(b.text), "", "L", false)
	case blockOption:
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 120)
		pdf.SetX(35)
		pdf.MultiCell(width, 5, tr(b.text), "", "L", false)
	case blockDirection:
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(width, 5, tr(b.text), "", "C", false)
	case blockNote:
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetX(40)
		pdf.MultiCell(width, 4, tr(b.text), "", "L", false)
	}
}

// ScriptPDFFile is ScriptPDF into a file, creating parent directories.
func ScriptPDFFile(outPath string, tracks []*scenario.Track, c *cast.Cast, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := ScriptPDF(f, tracks, c, opt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the game loop into a crash report and an
// emergency save.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "gonovel/internal/log"
	"gonovel/internal/save"
	"gonovel/internal/telemetry"
	"gonovel/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Autosave writes an emergency save and returns its path.
type Autosave func() (string, error)

// Recover captures a panic, logs it with the stack, writes a crash report
// into dir (or the temp dir), runs autosave if set and exits with code 2.
//
// Usage: defer crash.Recover(saveDir, crash.SnapshotAutosave(saveDir, in.CaptureSnapshot))
func Recover(dir string, autosave Autosave) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dir, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if autosave != nil {
		if path, err := runAutosave(autosave); err != nil {
			l.Error("emergency save failed", slog.Any("err", err))
		} else {
			l.Info("emergency save written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your progress was saved to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// runAutosave shields the crash path from a second panic in the save hook.
func runAutosave(fn Autosave) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("autosave panicked: %v", r)
		}
	}()
	return fn()
}

// SnapshotAutosave returns an Autosave that writes capture() to
// dir/crash-<timestamp>.json, outside the numbered slots.
func SnapshotAutosave(dir string, capture func() save.Snapshot) Autosave {
	return func() (string, error) {
		if dir == "" {
			dir = os.TempDir()
		}
		snap := capture()
		if snap.ScenarioID == "" {
			return "", fmt.Errorf("no scenario loaded")
		}
		path := filepath.Join(dir, fmt.Sprintf("crash-%s.json", time.Now().Format("20060102-150405")))
		if err := save.WriteFile(path, snap); err != nil {
			return "", err
		}
		return path, nil
	}
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "GoNovel Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}

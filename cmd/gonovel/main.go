/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gonovel/internal/backend"
	"gonovel/internal/cast"
	"gonovel/internal/config"
	"gonovel/internal/content"
	"gonovel/internal/crash"
	"gonovel/internal/engine"
	"gonovel/internal/export"
	"gonovel/internal/history"
	applog "gonovel/internal/log"
	"gonovel/internal/naming"
	"gonovel/internal/observability"
	"gonovel/internal/save"
	"gonovel/internal/scenario"
	"gonovel/internal/telemetry"
	"gonovel/internal/tui"
	"gonovel/internal/version"
)

func usage() {
	fmt.Println("GoNovel - visual novel scenario player")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gonovel version|-v|--version                  Show version")
	fmt.Println("  gonovel play [-scenario id] [-slot n] [-dir d] Play (demo story unless -dir or game.scenario_dir is set)")
	fmt.Println("  gonovel lint [<dir>]                          Check scenario files and the cast")
	fmt.Println("  gonovel export [-dir d] [-o out.pdf] [id...]  Export scenarios as a read-through script PDF")
	fmt.Println("  gonovel saves [list|delete <n>]               Show or delete save slots")
	fmt.Println("  gonovel serve [-addr :8080]                   Run the save-sync server")
	fmt.Println("  gonovel token set <token>|clear               Store or remove the remote save token")
	fmt.Println("  gonovel token issue <subject> [-ttl 720h]     Sign a token with GNV_SERVER_SECRET")
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("GoNovel")
		fmt.Println(version.String())
		return
	case "play", "lint", "export", "saves", "serve", "token":
	default:
		usage()
		os.Exit(2)
	}

	cfg, tok, err := config.Load()
	if err != nil {
		fail(l, "config", err)
	}
	dataDir, err := config.DataDir()
	if err != nil {
		fail(l, "data dir", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "play":
		err = runPlay(ctx, cfg, tok, dataDir, args[2:])
	case "lint":
		err = runLint(ctx, cfg, args[2:])
	case "export":
		initLogging(cfg, "", false)
		err = runExport(ctx, cfg, args[2:])
	case "saves":
		initLogging(cfg, "", false)
		err = runSaves(ctx, cfg, tok, dataDir, args[2:])
	case "serve":
		initLogging(cfg, "", false)
		err = runServe(ctx, cfg, dataDir, args[2:])
	case "token":
		err = runToken(cfg, args[2:])
	}
	if err != nil {
		stop()
		fail(l, args[1]+" failed", err)
	}
}

// initLogging re-initializes logging from the loaded config. While the
// terminal UI owns the screen console output is off and records go to
// fallbackFile unless a log file is configured.
func initLogging(cfg config.AppConfig, fallbackFile string, quiet bool) {
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Quiet:     quiet,
	}
	if opts.File == "" && quiet {
		opts.File = fallbackFile
	}
	applog.Init(opts)
}

// scenarioSource returns the scenarios and cast to play: a directory when
// one is given, the embedded demo otherwise.
func scenarioSource(cfg config.AppConfig, dir string) (fs.FS, *cast.Cast, error) {
	if dir == "" {
		dir = cfg.Game.ScenarioDir
	}
	var (
		fsys fs.FS
		c    *cast.Cast
		err  error
	)
	if dir == "" {
		fsys = content.Scenarios()
		c, err = content.Cast()
	} else {
		fsys = os.DirFS(dir)
		c, err = cast.Load(fsys, "cast.yaml")
	}
	if err != nil {
		return nil, nil, err
	}
	if cfg.Game.CastFile != "" {
		if c, err = cast.LoadFile(cfg.Game.CastFile); err != nil {
			return nil, nil, err
		}
	}
	return fsys, c, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openSaves(ctx context.Context, cfg config.AppConfig, tok, dataDir string) (save.Persister, io.Closer, error) {
	if cfg.Saves.Backend != "remote" {
		return save.Open(ctx, cfg.Saves, dataDir)
	}
	if tok == "" {
		return nil, nil, errors.New("remote saves need a token: run 'gonovel token set <token>'")
	}
	c := backend.NewClient(cfg.Remote.BaseURL, tok, cfg.Saves.Slots, cfg.Remote.Timeout())
	return save.Traced(c, "remote"), nopCloser{}, nil
}

func runPlay(ctx context.Context, cfg config.AppConfig, tok, dataDir string, args []string) error {
	fset := flag.NewFlagSet("play", flag.ExitOnError)
	start := fset.String("scenario", "", "scenario to start (default game.start_scenario)")
	slot := fset.Int("slot", 0, "save slot to continue from, 1-based; 0 starts a new game")
	dir := fset.String("dir", "", "scenario directory")
	_ = fset.Parse(args)

	initLogging(cfg, filepath.Join(dataDir, "logs", "gonovel.log"), true)
	l := applog.WithComponent("cli")

	prov, err := observability.Init(ctx, observability.FromAppConfig(cfg.Tracing, "gonovel"))
	if err != nil {
		l.Warn("tracing disabled", slog.Any("err", err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = prov.Shutdown(sctx)
	}()

	tc := telemetry.New(telemetry.FromAppConfig(cfg.Telemetry))
	telemetry.SetDefault(tc)
	defer func() {
		fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tc.Flush(fctx)
		tc.Close()
	}()

	fsys, c, err := scenarioSource(cfg, *dir)
	if err != nil {
		return err
	}
	saves, closer, err := openSaves(ctx, cfg, tok, dataDir)
	if err != nil {
		return err
	}
	defer closer.Close()

	startID := cfg.Game.StartScenario
	if *start != "" {
		startID = *start
	}
	host := tui.New(ctx, tui.Options{
		CharsPerSecond: cfg.Game.CharsPerSecond,
		BlockingCue:    cfg.Game.BlockingCue(),
		Names:          naming.NewValidator(cfg.Game.NameMaxLength, cfg.Game.ForbiddenNames),
		Saves:          saves,
		Backlog:        history.New(history.Config{MaxEntries: cfg.Saves.RollbackMax}),
		Title:          "GoNovel " + version.Version,
	})
	eng := engine.New(scenario.NewStore(fsys), host,
		engine.WithCast(c),
		engine.WithStartScenario(startID),
		engine.WithObserver(telemetry.EngineObserver(tc)),
		engine.WithContext(ctx),
	)
	host.Attach(eng)

	crashDir := filepath.Join(dataDir, "crash")
	defer crash.Recover(crashDir, crash.SnapshotAutosave(crashDir, eng.CaptureSnapshot))

	if *slot > 0 {
		snap, found, err := saves.Load(ctx, *slot-1)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("slot %d is empty", *slot)
		}
		if err := eng.RestoreSnapshot(ctx, snap); err != nil {
			return err
		}
	} else if err := eng.NewGame(ctx); err != nil {
		return err
	}
	l.Info("play", slog.String("scenario", eng.ScenarioID()), slog.String("session", tc.Session()))
	return tui.Run(ctx, host)
}

func runLint(ctx context.Context, cfg config.AppConfig, args []string) error {
	initLogging(cfg, "", false)
	var dir string
	if len(args) > 0 {
		dir = args[0]
	}
	fsys, c, err := scenarioSource(cfg, dir)
	if err != nil {
		return err
	}
	findings, err := scenario.Lint(ctx, scenario.NewStore(fsys), c)
	if err != nil {
		return err
	}
	errs := 0
	for _, f := range findings {
		fmt.Println(f)
		if f.Severity == scenario.SeverityError {
			errs++
		}
	}
	fmt.Printf("%d finding(s), %d error(s)\n", len(findings), errs)
	if errs > 0 {
		return fmt.Errorf("%d lint error(s)", errs)
	}
	return nil
}

func runExport(ctx context.Context, cfg config.AppConfig, args []string) error {
	fset := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fset.String("dir", "", "scenario directory")
	out := fset.String("o", "script.pdf", "output file")
	cues := fset.Bool("cues", false, "include animation cues")
	conds := fset.Bool("conditions", true, "include branch conditions")
	_ = fset.Parse(args)

	fsys, c, err := scenarioSource(cfg, *dir)
	if err != nil {
		return err
	}
	store := scenario.NewStore(fsys)
	ids := fset.Args()
	if len(ids) == 0 {
		if ids, err = store.List(); err != nil {
			return err
		}
	}
	tracks := make([]*scenario.Track, 0, len(ids))
	for _, id := range ids {
		t, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		tracks = append(tracks, t)
	}
	opt := export.PDFOptions{Title: "GoNovel script", ShowCues: *cues, ShowConditions: *conds}
	if err := export.ScriptPDFFile(*out, tracks, c, opt); err != nil {
		return err
	}
	fmt.Printf("Exported %d scenario(s) to %s\n", len(tracks), *out)
	return nil
}

func runSaves(ctx context.Context, cfg config.AppConfig, tok, dataDir string, args []string) error {
	saves, closer, err := openSaves(ctx, cfg, tok, dataDir)
	if err != nil {
		return err
	}
	defer closer.Close()

	if len(args) > 0 && args[0] == "delete" {
		if len(args) < 2 {
			return errors.New("delete requires a slot number")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("slot %q: %w", args[1], err)
		}
		if err := saves.Delete(ctx, n-1); err != nil {
			return err
		}
		fmt.Printf("Deleted slot %d\n", n)
		return nil
	}

	entries, err := saves.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backend: %s, %d slot(s)\n", cfg.Saves.Backend, saves.Slots())
	byslot := map[int]save.Snapshot{}
	for _, e := range entries {
		byslot[e.Slot] = e.Snapshot
	}
	for i := 0; i < saves.Slots(); i++ {
		if s, ok := byslot[i]; ok {
			fmt.Printf("  %d  %s\n", i+1, s.Summary())
		} else {
			fmt.Printf("  %d  (empty)\n", i+1)
		}
	}
	return nil
}

func runServe(ctx context.Context, cfg config.AppConfig, dataDir string, args []string) error {
	fset := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fset.String("addr", cfg.Server.Addr, "listen address")
	_ = fset.Parse(args)
	cfg.Server.Addr = *addr

	prov, err := observability.Init(ctx, observability.FromAppConfig(cfg.Tracing, "gonovel-server"))
	if err != nil {
		applog.WithComponent("cli").Warn("tracing disabled", slog.Any("err", err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = prov.Shutdown(sctx)
	}()
	return backend.Serve(ctx, cfg.Server, cfg.Saves.Slots, dataDir)
}

func runToken(cfg config.AppConfig, args []string) error {
	if len(args) == 0 {
		return errors.New("token requires set, clear or issue")
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return errors.New("token set requires a token")
		}
		if err := config.SetToken(args[1]); err != nil {
			return err
		}
		fmt.Println("Token stored in the OS keychain.")
	case "clear":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Println("Token removed.")
	case "issue":
		fset := flag.NewFlagSet("token issue", flag.ExitOnError)
		ttl := fset.Duration("ttl", backend.MaxTokenTTL, "token lifetime")
		_ = fset.Parse(args[1:])
		if fset.NArg() < 1 {
			return errors.New("token issue requires a subject")
		}
		tok, exp, err := backend.IssueToken(cfg.Server.Secret, fset.Arg(0), *ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	default:
		return fmt.Errorf("unknown token command %q", args[0])
	}
	return nil
}

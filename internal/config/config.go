/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: defaults, then the YAML file in
// the user scope, then GNV_* environment overrides. The remote save token is
// kept in the OS keyring and never written to the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GNV_"

// EnvConfigPath points Load at an explicit config file.
const EnvConfigPath = "GNV_CONFIG"

type GameConfig struct {
	ScenarioDir    string   `yaml:"scenario_dir" env:"SCENARIO_DIR"`
	StartScenario  string   `yaml:"start_scenario" env:"START_SCENARIO"`
	CastFile       string   `yaml:"cast_file" env:"CAST_FILE"`
	CharsPerSecond float64  `yaml:"chars_per_second" env:"CHARS_PER_SECOND"`
	BlockingCueMs  int      `yaml:"blocking_cue_ms" env:"BLOCKING_CUE_MS"`
	NameMaxLength  int      `yaml:"name_max_length" env:"NAME_MAX_LENGTH"`
	ForbiddenNames []string `yaml:"forbidden_names" env:"FORBIDDEN_NAMES" envSeparator:","`
}

// SavesConfig selects the persistence backend for save slots.
// Backend is one of file, sqlite, postgres, remote.
type SavesConfig struct {
	Backend     string `yaml:"backend" env:"BACKEND"`
	Dir         string `yaml:"dir" env:"DIR"`
	Slots       int    `yaml:"slots" env:"SLOTS"`
	DSN         string `yaml:"dsn" env:"DSN"`
	Profile     string `yaml:"profile" env:"PROFILE"`
	KeepHistory int    `yaml:"keep_history" env:"KEEP_HISTORY"`
	RollbackMax int    `yaml:"rollback_max" env:"ROLLBACK_MAX"`
}

type RemoteConfig struct {
	BaseURL   string `yaml:"base_url" env:"URL"`
	TimeoutMs int    `yaml:"timeout_ms" env:"TIMEOUT_MS"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	DSN  string `yaml:"dsn" env:"DSN"`
	// Secret signs bearer tokens. Env only; never persisted by Save.
	Secret string `yaml:"-" env:"SECRET"`
	// OpenTokens lets anyone mint a token at /api/auth/token. Development only.
	OpenTokens bool `yaml:"open_tokens" env:"OPEN_TOKENS"`
	// DataDir holds per-player file stores when no DSN is set.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Source bool   `yaml:"source" env:"SOURCE"`
	File   string `yaml:"file" env:"FILE"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in" env:"OPT_IN"`
	EventsURL string `yaml:"events_url" env:"URL"`
	CrashURL  string `yaml:"crash_url" env:"CRASH_URL"`
	TimeoutMs int    `yaml:"timeout_ms" env:"TIMEOUT_MS"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// AppConfig is the user-editable configuration.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Game          GameConfig      `yaml:"game" envPrefix:"GAME_"`
	Saves         SavesConfig     `yaml:"saves" envPrefix:"SAVES_"`
	Remote        RemoteConfig    `yaml:"remote" envPrefix:"REMOTE_"`
	Server        ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Logging       LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Telemetry     TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Tracing       TracingConfig   `yaml:"tracing" envPrefix:"TRACING_"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Game: GameConfig{
			StartScenario:  "prologue",
			CharsPerSecond: 10,
			BlockingCueMs:  1000,
			NameMaxLength:  12,
		},
		Saves:     SavesConfig{Backend: "file", Slots: 5, KeepHistory: 10, RollbackMax: 100},
		Remote:    RemoteConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Server:    ServerConfig{Addr: ":8080"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Telemetry: TelemetryConfig{TimeoutMs: 1500},
		Tracing:   TracingConfig{Endpoint: "localhost:4318", Insecure: true, SampleRatio: 1},
	}
}

// Backends accepted in saves.backend.
var Backends = []string{"file", "sqlite", "postgres", "remote"}

// ConfigPath returns the per-user config file path, honoring GNV_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns the per-user data directory used for saves and crash reports.
func DataDir() (string, error) {
	if runtime.GOOS == "linux" {
		if x := os.Getenv("XDG_DATA_HOME"); x != "" {
			return filepath.Join(x, "gonovel"), nil
		}
		if h := os.Getenv("HOME"); h != "" {
			return filepath.Join(h, ".local", "share", "gonovel"), nil
		}
	}
	return appDir()
}

func appDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	if runtime.GOOS == "linux" {
		return filepath.Join(base, "gonovel"), nil
	}
	return filepath.Join(base, "GoNovel"), nil
}

// Load reads the user config file (if present) over the defaults, applies
// environment overrides and returns the remote save token from the keyring.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// LoadFile is Load for an explicit path without the keyring lookup.
// A missing file is not an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SetToken(token)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Saves.Backend = strings.ToLower(strings.TrimSpace(cfg.Saves.Backend))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Game.StartScenario = strings.TrimSuffix(strings.TrimSpace(cfg.Game.StartScenario), ".csv")
	d := Defaults()
	if cfg.Game.CharsPerSecond <= 0 {
		cfg.Game.CharsPerSecond = d.Game.CharsPerSecond
	}
	if cfg.Game.BlockingCueMs <= 0 {
		cfg.Game.BlockingCueMs = d.Game.BlockingCueMs
	}
	if cfg.Game.NameMaxLength <= 0 {
		cfg.Game.NameMaxLength = d.Game.NameMaxLength
	}
	if cfg.Remote.TimeoutMs <= 0 {
		cfg.Remote.TimeoutMs = d.Remote.TimeoutMs
	}
	if cfg.Telemetry.TimeoutMs <= 0 {
		cfg.Telemetry.TimeoutMs = d.Telemetry.TimeoutMs
	}
	if cfg.Tracing.SampleRatio <= 0 || cfg.Tracing.SampleRatio > 1 {
		cfg.Tracing.SampleRatio = d.Tracing.SampleRatio
	}
}

// Validate reports configuration values that cannot be corrected silently.
func (c AppConfig) Validate() error {
	ok := false
	for _, b := range Backends {
		if c.Saves.Backend == b {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("saves.backend %q: want one of %s", c.Saves.Backend, strings.Join(Backends, ", "))
	}
	if c.Saves.Slots < 1 {
		return fmt.Errorf("saves.slots must be at least 1, got %d", c.Saves.Slots)
	}
	if c.Saves.Backend == "postgres" && strings.TrimSpace(c.Saves.DSN) == "" {
		return errors.New("saves.dsn is required for the postgres backend")
	}
	return nil
}

// BlockingCue is the simulated duration of a blocking animation cue.
func (g GameConfig) BlockingCue() time.Duration {
	return time.Duration(g.BlockingCueMs) * time.Millisecond
}

// Timeout returns the remote client timeout.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

var envOverrides = map[string]string{
	"game.scenario_dir":     "GNV_GAME_SCENARIO_DIR",
	"game.start_scenario":   "GNV_GAME_START_SCENARIO",
	"game.chars_per_second": "GNV_GAME_CHARS_PER_SECOND",
	"saves.backend":         "GNV_SAVES_BACKEND",
	"saves.dir":             "GNV_SAVES_DIR",
	"saves.slots":           "GNV_SAVES_SLOTS",
	"saves.dsn":             "GNV_SAVES_DSN",
	"remote.base_url":       "GNV_REMOTE_URL",
	"server.addr":           "GNV_SERVER_ADDR",
	"logging.level":         "GNV_LOG_LEVEL",
	"logging.format":        "GNV_LOG_FORMAT",
	"logging.source":        "GNV_LOG_SOURCE",
	"logging.file":          "GNV_LOG_FILE",
	"telemetry.opt_in":      "GNV_TELEMETRY_OPT_IN",
	"tracing.enabled":       "GNV_TRACING_ENABLED",
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envOverrides[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

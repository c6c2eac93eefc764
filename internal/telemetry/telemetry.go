/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a small, opt-in event sender for anonymous
// play metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gonovel/internal/config"
	applog "gonovel/internal/log"
	"gonovel/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// Everything is disabled unless OptIn is set and a URL is configured.
//
// Environment variables (read by FromEnv, same names as the config file
// overrides):
//   - GNV_TELEMETRY_OPT_IN: true to enable
//   - GNV_TELEMETRY_URL: URL events are POSTed to as JSON
//   - GNV_TELEMETRY_CRASH_URL: URL crash reports are POSTed to
//   - GNV_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - GNV_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

const defaultTimeout = 1500 * time.Millisecond

// FromEnv reads Config from the environment. The crash handler uses it when
// the config file could not be loaded.
func FromEnv() Config {
	optIn, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("GNV_TELEMETRY_OPT_IN")))
	cfg := Config{
		OptIn:        optIn,
		EventsURL:    strings.TrimSpace(os.Getenv("GNV_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("GNV_TELEMETRY_CRASH_URL")),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv("GNV_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("GNV_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// FromAppConfig maps the telemetry section of the application config.
func FromAppConfig(tc config.TelemetryConfig) Config {
	cfg := Config{
		OptIn:        tc.OptIn,
		EventsURL:    strings.TrimSpace(tc.EventsURL),
		CrashURL:     strings.TrimSpace(tc.CrashURL),
		Timeout:      time.Duration(tc.TimeoutMs) * time.Millisecond,
		DebugLogging: os.Getenv("GNV_TELEMETRY_DEBUG") != "",
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// Client is an async sender with a bounded queue. Events are dropped when
// the queue is full or a send fails; the caller never blocks.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	session string
	q       chan map[string]any
	dropped atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package-level client, creating it from the
// environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package-level client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// New constructs a client with a fresh anonymous session id.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		session: uuid.NewString(),
		q:       make(chan map[string]any, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Session returns the anonymous session id attached to every event.
func (c *Client) Session() string { return c.session }

// Dropped returns how many events were discarded because the queue was full.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Event queues a small JSON event. props must not contain personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"session": c.session,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
		c.dropped.Add(1)
	}
}

// Flush waits up to 500ms for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, "application/json", buf, "telemetry event")
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash upload")
}

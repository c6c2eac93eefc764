/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend is the save-sync service: an HTTP API that stores each
// player's slots server-side, and a client that implements save.Persister
// against it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"gonovel/internal/config"
	applog "gonovel/internal/log"
	"gonovel/internal/save"
	"gonovel/internal/version"
)

const maxBody = 1 << 20

// Server serves the save API.
type Server struct {
	profiles   Profiles
	secret     string
	openTokens bool
	log        *slog.Logger
}

// NewServer returns a server signing tokens with secret. With openTokens
// anyone may mint a token at /api/auth/token.
func NewServer(profiles Profiles, secret string, openTokens bool) *Server {
	return &Server{
		profiles:   profiles,
		secret:     secret,
		openTokens: openTokens,
		log:        applog.WithComponent("backend"),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.profiles.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store not ready"))
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.handleToken)
	mux.HandleFunc("GET /api/saves", withAuth(s.secret, s.handleList))
	mux.HandleFunc("GET /api/saves/{slot}", withAuth(s.secret, s.handleGet))
	mux.HandleFunc("PUT /api/saves/{slot}", withAuth(s.secret, s.handlePut))
	mux.HandleFunc("DELETE /api/saves/{slot}", withAuth(s.secret, s.handleDelete))
	return s.logRequests(mux)
}

type tokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !s.openTokens {
		writeError(w, http.StatusForbidden, "forbidden", errors.New("token issuing is disabled"))
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	tok, exp, err := IssueToken(s.secret, req.Subject, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, ExpiresAt: exp.UTC()})
}

// persister resolves the caller's store and the {slot} path value. It
// writes the error response itself and reports false on failure.
func (s *Server) persister(w http.ResponseWriter, r *http.Request, subject string, withSlot bool) (save.Persister, int, bool) {
	p, err := s.profiles.For(r.Context(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return nil, 0, false
	}
	if !withSlot {
		return p, 0, true
	}
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err == nil {
		err = save.CheckSlot(slot, p.Slots())
	} else {
		err = fmt.Errorf("%w: %q", save.ErrInvalidSaveSlot, r.PathValue("slot"))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidSlot, err)
		return nil, 0, false
	}
	return p, slot, true
}

const (
	codeInvalidSlot = "invalid_slot"
	codeCorruptSave = "corrupt_save"
	codeNotFound    = "not_found"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, subject string) {
	p, _, ok := s.persister(w, r, subject, false)
	if !ok {
		return
	}
	entries, err := p.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if entries == nil {
		entries = []save.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, subject string) {
	p, slot, ok := s.persister(w, r, subject, true)
	if !ok {
		return
	}
	snap, found, err := p.Load(r.Context(), slot)
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
	case !found:
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Errorf("slot %d is empty", slot))
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, subject string) {
	p, slot, ok := s.persister(w, r, subject, true)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := save.Unmarshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeCorruptSave, err)
		return
	}
	if err := p.Save(r.Context(), slot, snap); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, subject string) {
	p, slot, ok := s.persister(w, r, subject, true)
	if !ok {
		return
	}
	if err := p.Delete(r.Context(), slot); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("dur", time.Since(start)))
	})
}

// Serve opens the configured store and serves until ctx is cancelled.
// Without a DSN, players are kept in per-subject file stores under the
// server data dir.
func Serve(ctx context.Context, cfg config.ServerConfig, slots int, dataDir string) error {
	l := applog.WithComponent("backend")
	var profiles Profiles
	if cfg.DSN != "" {
		pg, err := save.OpenPG(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := pg.Close(); err != nil {
				l.Warn("db close", slog.Any("err", err))
			}
		}()
		profiles = PGProfiles{PG: pg, Slots: slots}
	} else {
		root := cfg.DataDir
		if root == "" {
			root = filepath.Join(dataDir, "server")
		}
		dp, err := NewDirProfiles(root, slots)
		if err != nil {
			return err
		}
		profiles = dp
	}

	secret := cfg.Secret
	if secret == "" {
		secret = "dev-secret-change-me"
		l.Warn("GNV_SERVER_SECRET not set; using insecure dev secret")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(profiles, secret, cfg.OpenTokens).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		l.Info("save server listening", slog.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

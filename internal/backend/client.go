/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gonovel/internal/save"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("remote save: unauthorized")

// Client talks to a save server. It implements save.Persister so the
// player can use a remote profile like any local backend.
type Client struct {
	base  string
	token string
	slots int
	http  *http.Client
}

var _ save.Persister = (*Client)(nil)

// NewClient returns a client for baseURL. A non-positive timeout uses 15s.
func NewClient(baseURL, token string, slots int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		slots: slots,
		http:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Slots() int { return c.slots }

func (c *Client) do(ctx context.Context, method, path string, body []byte, auth bool) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// decodeError turns a non-2xx response into an error, mapping the API
// codes back onto the save package's sentinels.
func decodeError(resp *http.Response) error {
	var ae apiError
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if json.Unmarshal(b, &ae) != nil || ae.Error == "" {
		ae.Error = strings.TrimSpace(string(b))
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, ae.Error)
	case ae.Code == codeInvalidSlot:
		return fmt.Errorf("%w: %s", save.ErrInvalidSaveSlot, ae.Error)
	case ae.Code == codeCorruptSave:
		return fmt.Errorf("%w: %s", save.ErrCorruptSave, ae.Error)
	}
	return fmt.Errorf("remote save: %s: %s", resp.Status, ae.Error)
}

func (c *Client) Save(ctx context.Context, slot int, s save.Snapshot) error {
	if err := save.CheckSlot(slot, c.slots); err != nil {
		return err
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	b, err := save.Marshal(s)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/saves/"+strconv.Itoa(slot), b, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	return nil
}

func (c *Client) Load(ctx context.Context, slot int) (save.Snapshot, bool, error) {
	if err := save.CheckSlot(slot, c.slots); err != nil {
		return save.Snapshot{}, false, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/saves/"+strconv.Itoa(slot), nil, true)
	if err != nil {
		return save.Snapshot{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return save.Snapshot{}, false, nil
	}
	if resp.StatusCode/100 != 2 {
		return save.Snapshot{}, false, decodeError(resp)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return save.Snapshot{}, false, err
	}
	snap, err := save.Unmarshal(b)
	if err != nil {
		return save.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *Client) List(ctx context.Context) ([]save.Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/saves", nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp)
	}
	var out []save.Entry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", save.ErrCorruptSave, err)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, slot int) error {
	if err := save.CheckSlot(slot, c.slots); err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, "/api/saves/"+strconv.Itoa(slot), nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	return nil
}

// RequestToken asks a server running with open tokens to mint one.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (string, time.Time, error) {
	b, err := json.Marshal(tokenRequest{Subject: subject, TTLSeconds: int64(ttl / time.Second)})
	if err != nil {
		return "", time.Time{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/token", b, false)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", time.Time{}, decodeError(resp)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, err
	}
	return tr.Token, tr.ExpiresAt, nil
}

// Version returns the server's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/version", nil, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", decodeError(resp)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(b)), err
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Service/keys for the OS keyring.
const (
	keyringService = "GoNovel"
	keyringToken   = "remote_save_token"
)

// TokenStore abstracts the keyring so tests can run without a desktop session.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// Token returns the stored remote save token, or "" when none is stored.
func Token() (string, error) {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SetToken stores the remote save token.
func SetToken(tok string) error { return tokenStore.Set(keyringService, keyringToken, tok) }

// ClearToken removes the remote save token. Clearing a missing token is not an error.
func ClearToken() error {
	if err := tokenStore.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoToken is returned when a token source produced an empty token.
var ErrNoToken = errors.New("credentials: token source returned an empty access token")

// Silent wraps a Getter so acquisition failures degrade to "no credential".
//
// # Description
//
// The wrapped Getter never returns an error: failures are logged at warn
// level and reported as an empty token, which the transport treats as an
// unauthenticated call. This is the identity integration's contract with
// the transport, not an oversight.
//
// # Inputs
//
//   - getter: The Getter performing the real acquisition
//   - logger: Destination for the warning (nil uses slog.Default)
//
// # Outputs
//
//   - Getter: A Getter that only ever returns (token, nil) or ("", nil)
func Silent(getter Getter, logger *slog.Logger) Getter {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (string, error) {
		if getter == nil {
			return "", nil
		}
		token, err := getter(ctx)
		if err != nil {
			logger.Warn("silent token acquisition failed", "error", err)
			return "", nil
		}
		return token, nil
	}
}

// Static returns a Getter for a fixed token, e.g. COGNITOFORGE_TOKEN.
//
// # Description
//
// The token is sealed in a memguard enclave and only decrypted for the
// duration of each call. The input string can't be wiped (Go strings are
// immutable) but no long-lived plaintext copy is retained by the Getter.
// No signal handler is installed; main packages call memguard.Purge on
// exit.
//
// # Inputs
//
//   - token: Bearer token. An empty token yields a Getter that returns "".
func Static(token string) Getter {
	token = strings.TrimSpace(token)
	if token == "" {
		return func(context.Context) (string, error) { return "", nil }
	}

	enclave := memguard.NewEnclave([]byte(token))

	return func(context.Context) (string, error) {
		buf, err := enclave.Open()
		if err != nil {
			return "", fmt.Errorf("open token enclave: %w", err)
		}
		defer buf.Destroy()
		return string(buf.Bytes()), nil
	}
}

// FromTokenSource adapts an oauth2.TokenSource.
func FromTokenSource(ts oauth2.TokenSource) Getter {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("fetch access token: %w", err)
		}
		if tok == nil || tok.AccessToken == "" {
			return "", ErrNoToken
		}
		return tok.AccessToken, nil
	}
}

// ClientCredentialsConfig describes a machine-to-machine OAuth2 client.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string

	// Audience is sent as the "audience" endpoint parameter (Auth0 style
	// API identifier). Empty omits it.
	Audience string

	Scopes []string
}

// Validate checks that the mandatory fields are present.
func (c ClientCredentialsConfig) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.TokenURL == "" {
		missing = append(missing, "token_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("client credentials: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ClientCredentials returns a Getter backed by the OAuth2 client
// credentials flow.
//
// # Description
//
// The token source is created once and reused: oauth2 caches the token and
// only contacts TokenURL again when it is about to expire. ctx controls the
// HTTP client used for token requests for the lifetime of the Getter.
//
// # Outputs
//
//   - Getter: Token getter
//   - error: Non-nil when the config is incomplete
func ClientCredentials(ctx context.Context, cfg ClientCredentialsConfig) (Getter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	if cfg.Audience != "" {
		cc.EndpointParams = url.Values{"audience": {cfg.Audience}}
	}

	return FromTokenSource(cc.TokenSource(ctx)), nil
}

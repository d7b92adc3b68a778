// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package transport is the single point where CognitoForge backend calls
are made and where every outcome is normalized into a result.Result.

# Request Flow

	┌─────────────────────────────────────────────────────────────────┐
	│ Client.Do(ctx, Request)                                         │
	├─────────────────────────────────────────────────────────────────┤
	│  1. rate limiter (optional)                                     │
	│  2. Content-Type + X-Request-ID, caller headers win             │
	│  3. credential getter (IncludeCredential only)                  │
	│     └─ failure: warn + continue (FailOpen) or CREDENTIAL_ERROR  │
	│  4. W3C trace context                                           │
	│  5. http.Client.Do, no retry                                    │
	│     ├─ transport error  → Err{NETWORK_ERROR}                    │
	│     ├─ non-2xx          → Err{status, parsed message}           │
	│     ├─ bad body         → Err{PARSE_ERROR}                      │
	│     └─ 2xx              → Ok(raw JSON)                          │
	└─────────────────────────────────────────────────────────────────┘

Nothing in this package panics or returns a Go error for a failed call:
callers only ever branch on the Result tag.

# Usage

	client := transport.New(transport.DefaultConfig(), slot, logger)
	res := transport.Send[forgeapi.HealthStatus](ctx, client, transport.Request{
	    Method: http.MethodGet,
	    Path:   "/health",
	})
*/
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/SahinS14/CognitoForge/pkg/credentials"
	"github.com/SahinS14/CognitoForge/pkg/result"
	"github.com/SahinS14/CognitoForge/pkg/telemetry"
)

const (
	// BaseURLEnv overrides the backend location.
	BaseURLEnv = "COGNITOFORGE_API_URL"

	// DefaultBaseURL is used when neither config nor environment name one.
	DefaultBaseURL = "http://localhost:8000"

	// RequestIDHeader is stamped on every outgoing request.
	RequestIDHeader = "X-Request-ID"

	// HealthPath is the liveness endpoint. Requests to it without their
	// own Timeout are bounded by Config.HealthTimeout.
	HealthPath = "/health"

	// maxResponseBytes caps how much of a response body is buffered.
	maxResponseBytes = 8 << 20
)

// -----------------------------------------------------------------------------
// Request
// -----------------------------------------------------------------------------

// Request describes one backend call. It is passed by value and never
// modified by the transport.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// Path is appended to the base URL, e.g. "/reports/demo/latest".
	Path string

	// Body is JSON-encoded when non-nil.
	Body any

	// Headers are merged over the defaults; caller values win.
	Headers map[string]string

	// IncludeCredential asks for the installed credential getter to be
	// consulted.
	IncludeCredential bool

	// Timeout bounds this call when positive.
	Timeout time.Duration

	// Route is the low-cardinality name used for metrics and spans.
	// Defaults to Path.
	Route string
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}

// Doer is anything that can execute a Request. *Client implements it and
// tests substitute fakes.
type Doer interface {
	Do(ctx context.Context, req Request) result.Result[json.RawMessage]
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// Config holds transport settings. Start from DefaultConfig.
type Config struct {
	// BaseURL is the backend root, without trailing slash.
	BaseURL string

	// DefaultTimeout is advertised to callers that want a per-call budget
	// (the dashboard uses it per source). The transport does not apply it.
	DefaultTimeout time.Duration

	// HealthTimeout bounds Health.
	HealthTimeout time.Duration

	// RequestsPerSecond throttles outgoing calls. Zero disables limiting.
	RequestsPerSecond float64

	// FailOpen sends a privileged request unauthenticated when the
	// credential getter fails. When false the call returns CREDENTIAL_ERROR.
	FailOpen bool

	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// DefaultConfig returns the process defaults, reading COGNITOFORGE_API_URL.
func DefaultConfig() Config {
	return Config{
		BaseURL:        ResolveBaseURL(""),
		DefaultTimeout: DefaultTimeout,
		HealthTimeout:  HealthTimeout,
		FailOpen:       true,
	}
}

// ResolveBaseURL picks the backend root: configured value, then the
// COGNITOFORGE_API_URL environment variable, then DefaultBaseURL.
func ResolveBaseURL(configured string) string {
	base := strings.TrimSpace(configured)
	if base == "" {
		base = strings.TrimSpace(os.Getenv(BaseURLEnv))
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client executes Requests against one backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	config     Config
	httpClient *http.Client
	creds      credentials.Source
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Client.
//
// # Description
//
// The base URL is resolved once here and fixed for the Client's lifetime.
// creds may be nil, in which case privileged requests go out without an
// Authorization header.
//
// # Inputs
//
//   - config: Transport settings
//   - creds: Credential source, typically a *credentials.Slot
//   - logger: Structured logger; nil uses slog.Default()
//
// # Outputs
//
//   - *Client: Ready to use
func New(config Config, creds credentials.Source, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	config.BaseURL = ResolveBaseURL(config.BaseURL)
	config.DefaultTimeout = EnforceDefaultTimeout(config.DefaultTimeout, DefaultTimeout)
	config.HealthTimeout = EnforceMinTimeout(
		EnforceDefaultTimeout(config.HealthTimeout, HealthTimeout), MinTimeout)

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := int(config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    config.BaseURL,
		config:     config,
		httpClient: httpClient,
		creds:      creds,
		limiter:    limiter,
		logger:     logger.With("component", "transport"),
	}
}

// BaseURL returns the resolved backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DefaultTimeout returns the advertised per-request budget.
func (c *Client) DefaultTimeout() time.Duration {
	return c.config.DefaultTimeout
}

// Do executes req and normalizes the outcome.
//
// # Description
//
// Never retries. A 2xx response yields Ok with the raw JSON body (an empty
// body becomes JSON null). Every other outcome yields Err with a non-empty
// message; see the package documentation for the mapping.
//
// # Inputs
//
//   - ctx: Cancellation and trace context
//   - req: The call to make
//
// # Outputs
//
//   - result.Result[json.RawMessage]: Raw payload or Failure
func (c *Client) Do(ctx context.Context, req Request) result.Result[json.RawMessage] {
	req.Method = req.method()
	requestID := uuid.NewString()

	ctx, span := startRequestSpan(ctx, req)
	defer span.End()

	start := time.Now()
	res := c.do(ctx, req, requestID)
	duration := time.Since(start)

	failure := res.Failure()
	setRequestSpanResult(span, failure)
	recordRequestMetrics(ctx, req, duration, failure)

	if failure != nil {
		c.logger.Debug("backend request failed",
			"method", req.Method,
			"path", req.Path,
			"request_id", requestID,
			"status", failure.Status,
			"code", failure.Code,
			"error", failure.Message,
			"duration", duration)
	} else {
		c.logger.Debug("backend request completed",
			"method", req.Method,
			"path", req.Path,
			"request_id", requestID,
			"duration", duration)
	}
	return res
}

func (c *Client) do(ctx context.Context, req Request, requestID string) result.Result[json.RawMessage] {
	timeout := req.Timeout
	if timeout <= 0 && req.Path == HealthPath {
		timeout = c.config.HealthTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return result.Err[json.RawMessage](&result.Failure{
				Message: fmt.Sprintf("rate limit wait: %v", err),
				Code:    result.CodeNetwork,
			})
		}
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return result.Err[json.RawMessage](&result.Failure{
				Message: fmt.Sprintf("encode request body: %v", err),
				Code:    result.CodeParse,
			})
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return result.Err[json.RawMessage](&result.Failure{
			Message: err.Error(),
			Code:    result.CodeNetwork,
		})
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if req.IncludeCredential {
		if failure := c.attachCredential(ctx, httpReq); failure != nil {
			return result.Err[json.RawMessage](failure)
		}
	}

	httpReq = telemetry.PropagateToRequest(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return result.Err[json.RawMessage](&result.Failure{
			Message: err.Error(),
			Code:    result.CodeNetwork,
		})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return result.Err[json.RawMessage](&result.Failure{
			Message: fmt.Sprintf("read response body: %v", err),
			Status:  resp.StatusCode,
			Code:    result.CodeParse,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result.Err[json.RawMessage](failureFromResponse(resp.StatusCode, data))
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return result.Ok(json.RawMessage("null"))
	}
	if !json.Valid(data) {
		return result.Err[json.RawMessage](&result.Failure{
			Message: fmt.Sprintf("invalid JSON in response to %s %s", req.Method, req.Path),
			Status:  resp.StatusCode,
			Code:    result.CodeParse,
		})
	}
	return result.Ok(json.RawMessage(data))
}

// attachCredential sets the Authorization header when a token is
// available. It returns a Failure only when the client fails closed.
func (c *Client) attachCredential(ctx context.Context, httpReq *http.Request) *result.Failure {
	if c.creds == nil {
		return nil
	}
	getter := c.creds.Get()
	if getter == nil {
		return nil
	}

	token, err := getter(ctx)
	if err != nil {
		if !c.config.FailOpen {
			return &result.Failure{
				Message: fmt.Sprintf("acquire credential: %v", err),
				Code:    result.CodeCredential,
			}
		}
		c.logger.Warn("credential acquisition failed, sending request unauthenticated",
			"path", httpReq.URL.Path,
			"error", err)
		return nil
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// Health calls GET /health bounded by the configured health timeout.
func (c *Client) Health(ctx context.Context) result.Result[json.RawMessage] {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   HealthPath,
	})
}

// Send executes req through d and decodes the Ok payload into T.
//
// A payload that does not decode into T becomes Err{PARSE_ERROR}; an Err
// from d is propagated with the same *Failure.
func Send[T any](ctx context.Context, d Doer, req Request) result.Result[T] {
	raw := d.Do(ctx, req)
	data, ok := raw.Value()
	if !ok {
		return result.Propagate[T](raw)
	}
	return Decode[T](data)
}

// Decode unmarshals a raw payload into T.
func Decode[T any](data json.RawMessage) result.Result[T] {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return result.Err[T](&result.Failure{
			Message: fmt.Sprintf("decode response: %v", err),
			Code:    result.CodeParse,
		})
	}
	return result.Ok(out)
}

var _ Doer = (*Client)(nil)

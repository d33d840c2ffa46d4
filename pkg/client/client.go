// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client is a typed HTTP client for the logprobed API, used by
// the operator CLI and by probe agents.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

// Client talks to a logprobed daemon.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the daemon at baseURL. token is sent as a
// bearer token on every request; pass the operator secret, an operator
// JWT, or a probe key depending on which endpoints you call.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return errorFor(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errorFor rebuilds a typed error from an API error response so callers
// can match with errors.As the same way they would against the core.
func errorFor(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := http.StatusText(status)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	switch status {
	case http.StatusNotFound:
		return &errors.NotFoundError{Resource: "resource", ID: message}
	case http.StatusBadRequest:
		return &errors.ValidationError{Message: message}
	case http.StatusConflict:
		return &errors.ConflictError{Resource: "resource", Reason: message}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &errors.AuthError{Reason: message}
	default:
		return fmt.Errorf("server error (%d): %s", status, message)
	}
}

// ProbeInfo is a probe with its self-reported liveness, and the bearer
// key when returned by RegisterProbe.
type ProbeInfo struct {
	model.Probe
	Alive bool   `json:"alive"`
	Key   string `json:"key,omitempty"`
}

// ChangeLogEntry is a change entry with its per-probe delivery status.
type ChangeLogEntry struct {
	model.ChangeEntry
	Deliveries []model.DeliveryRecord `json:"deliveries"`
}

// CreateTraceSet creates a trace set under the given key.
func (c *Client) CreateTraceSet(ctx context.Context, key string) (*model.TraceSet, error) {
	var out model.TraceSet
	err := c.do(ctx, http.MethodPost, "/v1/tracesets", map[string]string{"key": key}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTraceSet fetches a trace set by key.
func (c *Client) GetTraceSet(ctx context.Context, key string) (*model.TraceSet, error) {
	var out model.TraceSet
	if err := c.do(ctx, http.MethodGet, "/v1/tracesets/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDirective adds a directive to a trace set.
func (c *Client) CreateDirective(ctx context.Context, traceSetKey, module, function, statement string) (*model.Directive, error) {
	var out model.Directive
	body := map[string]string{"module": module, "function": function, "statement": statement}
	err := c.do(ctx, http.MethodPost, "/v1/tracesets/"+url.PathEscape(traceSetKey)+"/directives", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDirectives returns the desired set, optionally filtered by a
// module glob.
func (c *Client) ListDirectives(ctx context.Context, traceSetKey, moduleGlob string) ([]model.Directive, error) {
	path := "/v1/tracesets/" + url.PathEscape(traceSetKey) + "/directives"
	if moduleGlob != "" {
		path += "?module=" + url.QueryEscape(moduleGlob)
	}
	var out []model.Directive
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDirective patches a directive's statement and/or active flag.
func (c *Client) UpdateDirective(ctx context.Context, id string, statement *string, active *bool) (*model.Directive, error) {
	body := map[string]any{}
	if statement != nil {
		body["statement"] = *statement
	}
	if active != nil {
		body["active"] = *active
	}
	var out model.Directive
	err := c.do(ctx, http.MethodPatch, "/v1/directives/"+url.PathEscape(id), body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDirective soft-deletes a directive.
func (c *Client) DeleteDirective(ctx context.Context, id string) (*model.Directive, error) {
	var out model.Directive
	err := c.do(ctx, http.MethodDelete, "/v1/directives/"+url.PathEscape(id), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeLog returns a trace set's audit trail. limit 0 means all.
func (c *Client) ChangeLog(ctx context.Context, traceSetKey string, limit int) ([]ChangeLogEntry, error) {
	path := "/v1/tracesets/" + url.PathEscape(traceSetKey) + "/changelog"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out []ChangeLogEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterProbe registers a probe; the result includes the one-time
// bearer key.
func (c *Client) RegisterProbe(ctx context.Context, traceSetKey, description string) (*ProbeInfo, error) {
	var out ProbeInfo
	body := map[string]string{"description": description}
	err := c.do(ctx, http.MethodPost, "/v1/tracesets/"+url.PathEscape(traceSetKey)+"/probes", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProbes lists a trace set's fleet.
func (c *Client) ListProbes(ctx context.Context, traceSetKey string) ([]ProbeInfo, error) {
	var out []ProbeInfo
	err := c.do(ctx, http.MethodGet, "/v1/tracesets/"+url.PathEscape(traceSetKey)+"/probes", nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFailures lists failure records across a trace set's fleet.
func (c *Client) ListFailures(ctx context.Context, traceSetKey string) ([]model.FailureRecord, error) {
	var out []model.FailureRecord
	err := c.do(ctx, http.MethodGet, "/v1/tracesets/"+url.PathEscape(traceSetKey)+"/failures", nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IssueToken mints a scoped operator token; the client must be
// authenticated with write access.
func (c *Client) IssueToken(ctx context.Context, subject, scope string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"subject": subject, "scope": scope}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/token", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Probe-side calls. The client's token must be a probe bearer key.

// Heartbeat refreshes the probe's liveness.
func (c *Client) Heartbeat(ctx context.Context) (*ProbeInfo, error) {
	var out ProbeInfo
	if err := c.do(ctx, http.MethodPost, "/v1/probe/heartbeat", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DesiredSet returns the active directives for the probe's trace set.
func (c *Client) DesiredSet(ctx context.Context) ([]model.Directive, error) {
	var out []model.Directive
	if err := c.do(ctx, http.MethodGet, "/v1/probe/desired", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingDeliveries returns the probe's unacknowledged deliveries.
func (c *Client) PendingDeliveries(ctx context.Context) ([]model.DeliveryRecord, error) {
	var out []model.DeliveryRecord
	if err := c.do(ctx, http.MethodGet, "/v1/probe/deliveries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportOutcome acknowledges a delivery with a terminal outcome.
func (c *Client) ReportOutcome(ctx context.Context, deliveryID string, outcome model.DeliveryState, message string) error {
	body := map[string]string{"outcome": string(outcome), "message": message}
	return c.do(ctx, http.MethodPost, "/v1/probe/deliveries/"+url.PathEscape(deliveryID), body, nil)
}

// ReportFailure reports a probe-side failure.
func (c *Client) ReportFailure(ctx context.Context, message string, directiveID *string) (*model.FailureRecord, error) {
	body := map[string]any{"message": message}
	if directiveID != nil {
		body["directive_id"] = *directiveID
	}
	var out model.FailureRecord
	if err := c.do(ctx, http.MethodPost, "/v1/probe/failures", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Disconnect closes the probe.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/probe", nil, nil)
}

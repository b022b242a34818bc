// SPDX-License-Identifier: MIT

// Package panopto is a typed client for the Panopto REST API.
package panopto

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token attached to every API request.
// It is satisfied by the oauth2 token sources built in internal/auth.
type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// Client interacts with a hosted Panopto server.
type Client struct {
	server    string
	http      *http.Client
	tokens    TokenSource
	userAgent string
}

// Options configures the Panopto client behavior.
type Options struct {
	Timeout     time.Duration
	InsecureTLS bool // skip TLS certificate verification
	UserAgent   string
}

// New creates a Panopto client for the given server base URL
// (e.g. "https://school.hosted.panopto.com").
func New(server string, tokens TokenSource, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opt-in for self-hosted servers
	}

	return &Client{
		server: strings.TrimRight(strings.TrimSpace(server), "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		tokens:    tokens,
		userAgent: opts.UserAgent,
	}
}

// Server returns the normalized server base URL.
func (c *Client) Server() string {
	return c.server
}

// ViewerURL derives the public viewer link for a session ID.
func ViewerURL(server, id string) string {
	return strings.TrimRight(server, "/") + "/Panopto/Pages/Viewer.aspx?id=" + url.QueryEscape(id)
}

// get issues one authenticated GET and returns the response body.
// Errors are classified into the package sentinels so callers can use
// errors.Is at the boundary.
func (c *Client) get(ctx context.Context, path string, params url.Values, operation string) ([]byte, error) {
	u := c.server + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: operation, Err: err}
	}

	tok, err := c.tokens.Token()
	if err != nil {
		metrics.IncAPIRequest(operation, "error")
		return nil, &APIError{Sentinel: ErrUnauthorized, Operation: operation, Err: err}
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)
	if err != nil {
		metrics.IncAPIRequest(operation, "error")
		sentinel := ErrUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			sentinel = ErrTimeout
		}
		return nil, &APIError{Sentinel: sentinel, Operation: operation, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.IncAPIRequest(operation, "error")
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &APIError{
			Sentinel:  sentinelForStatus(res.StatusCode),
			Operation: operation,
			Status:    res.StatusCode,
			Body:      strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.IncAPIRequest(operation, "error")
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: operation, Err: err}
	}

	metrics.IncAPIRequest(operation, "success")
	return body, nil
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUpstreamError
	}
}

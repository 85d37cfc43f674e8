// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the streaming chat backend.
//
// A prompt is submitted as a single POST whose JSON body carries the
// conversation id, the prior transcript, and the new user prompt. The
// response is a text/event-stream body decoded by the stream package.
package chatapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/vchat-tui/internal/model"
)

// Configuration constants for the chat backend.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for opening a stream.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second
)

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("chat backend URL not configured")

// sharedStreamingClient is used for streaming requests. It carries no
// client timeout; request lifetime is controlled by the caller's context.
// Connection pooling is shared across all requests.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AskRequest is the JSON body of one prompt submission.
type AskRequest struct {
	ConversationID string `json:"conversation_id"`
	Action         string `json:"action"`
	Model          string `json:"model"`
	Meta           Meta   `json:"meta"`
}

// Meta wraps the request token and content envelope.
type Meta struct {
	ID      string  `json:"id"`
	Content Content `json:"content"`
}

// Content carries the prior transcript plus the new prompt parts.
type Content struct {
	Conversation []Entry `json:"conversation"`
	ContentType  string  `json:"content_type"`
	Parts        []Part  `json:"parts"`
}

// Entry is one prior transcript item in wire form.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Part is one piece of the new prompt.
type Part struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the streaming chat backend.
type Client struct {
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for streaming requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries overrides the stream-open retry budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// NewClient creates a client for the given backend URL and model name.
func NewClient(baseURL, modelName string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		model:      modelName,
		maxRetries: DefaultMaxRetries,
		httpClient: sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether a backend URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// BuildRequest assembles the wire request for a prompt against prior
// history. Video items contribute their link list as plain text so the
// backend sees a textual transcript.
func (c *Client) BuildRequest(conversationID, prompt string, history []model.Item) AskRequest {
	entries := make([]Entry, 0, len(history))
	for _, item := range history {
		entries = append(entries, Entry{
			Role:    item.Role.String(),
			Content: item.Text(),
		})
	}
	return AskRequest{
		ConversationID: conversationID,
		Action:         "_ask",
		Model:          c.model,
		Meta: Meta{
			ID: uuid.NewString(),
			Content: Content{
				Conversation: entries,
				ContentType:  "text",
				Parts:        []Part{{Content: prompt, Role: "user"}},
			},
		},
	}
}

// OpenConversationStream builds the wire request for the prompt and
// opens the stream. This is the entry point the orchestrator uses.
func (c *Client) OpenConversationStream(ctx context.Context, conversationID, prompt string, history []model.Item) (io.ReadCloser, error) {
	return c.OpenStream(ctx, c.BuildRequest(conversationID, prompt, history))
}

// OpenStream submits the prompt and returns the response body for the
// stream decoder. Connection errors before the first byte are retried
// with exponential backoff; once a body is returned the caller owns it
// and must close it.
func (c *Client) OpenStream(ctx context.Context, req AskRequest) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.open(ctx, bodyBytes)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("open stream after %d attempts: %w", c.maxRetries, lastErr)
}

// open performs a single stream-open attempt.
func (c *Client) open(ctx context.Context, body []byte) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return resp.Body, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// StatusError reports a non-200 response from the backend.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.Code)
}

// isRetryable reports whether a stream-open error is worth retrying.
// Connection-level failures are; client errors (4xx) are not.
func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	return true
}

// backoffDelay computes the exponential backoff delay for an attempt.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

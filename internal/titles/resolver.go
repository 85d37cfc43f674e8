// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package titles resolves human-readable titles for video links.
//
// Titles come from the public oEmbed endpoint keyed by the video id
// extracted from each link. Lookups are best-effort and isolated per
// link: a failure yields a nil title, never an error for the batch.
package titles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the oEmbed endpoint queried per video.
const DefaultEndpoint = "https://www.youtube.com/oembed"

// DefaultTimeout bounds one title lookup.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps the oEmbed response body.
const maxResponseSize = 64 * 1024

// videoIDPattern extracts the 11-character video id from the URL forms
// the backend emits (watch, short link, embed, shorts).
var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/|/embed/|/shorts/)([A-Za-z0-9_-]{11})`)

// numberPrefixPattern matches the "<number> - " prefix some titles
// carry; it is stripped before display.
var numberPrefixPattern = regexp.MustCompile(`^\d+\s*-\s*`)

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver looks up video titles via oEmbed.
type Resolver struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the resolver.
type Option func(*Resolver)

// WithEndpoint overrides the oEmbed endpoint (used by tests).
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) { r.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) { r.httpClient = hc }
}

// WithRateLimit overrides the lookup rate limit (requests per second).
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Resolver) { r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewResolver creates a resolver with a 5 req/s default rate limit.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// VideoID extracts the video id from a link, or "" if none matches.
func VideoID(link string) string {
	m := videoIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// CleanTitle strips the leading "<number> - " prefix if present.
func CleanTitle(title string) string {
	return numberPrefixPattern.ReplaceAllString(title, "")
}

// Resolve looks up the title for one link.
func (r *Resolver) Resolve(ctx context.Context, link string) (string, error) {
	id := VideoID(link)
	if id == "" {
		return "", fmt.Errorf("no video id in %q", link)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := url.Values{
		"format": {"json"},
		"url":    {"https://www.youtube.com/watch?v=" + id},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode oembed response: %w", err)
	}
	return CleanTitle(payload.Title), nil
}

// ResolveAll resolves titles for all links concurrently and returns a
// slice index-aligned with links. Failed lookups yield nil entries; the
// batch itself never fails.
func (r *Resolver) ResolveAll(ctx context.Context, links []string) []*string {
	titles := make([]*string, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		go func(i int, link string) {
			defer wg.Done()
			title, err := r.Resolve(ctx, link)
			if err != nil {
				return // nil marks the failed lookup
			}
			titles[i] = &title
		}(i, link)
	}
	wg.Wait()
	return titles
}

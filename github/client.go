// Package github talks to the GitHub REST and GraphQL APIs through a
// process-wide conditional-GET cache.
//
// Every REST fetch goes through getJSON, which presents the last known
// entity tag via If-None-Match and serves the cached decode on 304. Tags
// and decoded bodies are kept in separate tables (see Cache) so the same
// machinery serves issues, comment lists, gists and issue listings.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxBodyBytes = 10 * 1024 * 1024

// Config configures a Client.
type Config struct {
	// BaseURL overrides the REST API base (for testing). Empty uses production.
	BaseURL string
	// GraphQLURL overrides the GraphQL endpoint. Empty uses production.
	GraphQLURL string
	// UserAgent sent with every request. GitHub rejects requests without one.
	UserAgent string
	// Timeout for outbound requests. Default: 30s.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.github.com"
	}
	if c.GraphQLURL == "" {
		c.GraphQLURL = "https://api.github.com/graphql"
	}
	if c.UserAgent == "" {
		c.UserAgent = "clippit/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client fetches GitHub resources with ETag-based response reuse.
type Client struct {
	http       *http.Client
	baseURL    string
	graphqlURL string
	userAgent  string

	cache    *Cache
	issues   *TagTable[Issue]
	comments *TagTable[[]Comment]
	gists    *TagTable[Gist]
	listings *TagTable[[]Issue]
}

// New creates a Client with an empty cache.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		graphqlURL: cfg.GraphQLURL,
		userAgent:  cfg.UserAgent,
		cache:      NewCache(),
		issues:     NewTagTable[Issue](),
		comments:   NewTagTable[[]Comment](),
		gists:      NewTagTable[Gist](),
		listings:   NewTagTable[[]Issue](),
	}
}

// StatusError reports a non-2xx reply from GitHub.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s replied %d", e.URL, e.Status)
}

// getJSON fetches url and decodes the body as T, honoring the client's
// entity-tag cache:
//
//   - a known tag is sent as If-None-Match, and a 304 reply is served from
//     the table;
//   - a 304 without a usable cached value is retried once unconditionally
//     (a miss, not an error);
//   - a 2xx with an ETag header refreshes the cache, evicting the previous
//     revision; without an ETag the value is returned uncached;
//   - anything else is a *StatusError. No retries, cache untouched.
func getJSON[T any](ctx context.Context, c *Client, table *TagTable[T], url, token string) (T, error) {
	var zero T

	prev, hadPrev := c.cache.Tag(url)
	conditional := hadPrev
	if conditional {
		if _, ok := table.Get(prev); !ok {
			// Tag points at nothing for this shape; don't send a validator
			// we could not honor on 304.
			conditional = false
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return zero, fmt.Errorf("github: new request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		if token != "" {
			req.Header.Set("Authorization", "bearer "+token)
		}
		if conditional {
			req.Header.Set("If-None-Match", string(prev))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return zero, fmt.Errorf("github: get %s: %w", url, err)
		}

		if resp.StatusCode == http.StatusNotModified {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if conditional {
				if v, ok := table.Get(prev); ok {
					slog.Debug("served from cache", "url", url)
					return v, nil
				}
			}
			if attempt > 0 {
				// Second 304 in a row with nothing to serve; give up.
				return zero, &StatusError{Status: resp.StatusCode, URL: url}
			}
			// A 304 we cannot satisfy is a miss, not an error: either the
			// cached entry was evicted between send and reply, or the server
			// replied 304 to an unconditional GET. Refetch for real.
			conditional = false
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return zero, &StatusError{Status: resp.StatusCode, URL: url}
		}

		var value T
		err = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&value)
		resp.Body.Close()
		if err != nil {
			return zero, fmt.Errorf("github: decode %s: %w", url, err)
		}

		if tag := resp.Header.Get("ETag"); tag != "" {
			table.store(c.cache, url, prev, hadPrev, ETag(tag), value)
			slog.Debug("cached", "url", url, "etag", tag)
		}
		return value, nil
	}
}

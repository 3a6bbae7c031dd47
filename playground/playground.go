// Package playground submits code snippets to the Rust playground and
// normalizes its replies into plain text.
package playground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Action selects which playground endpoint a snippet is submitted to.
type Action int

const (
	ActionRun Action = iota
	ActionTest
	ActionClippy
	ActionFormat
)

func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionTest:
		return "test"
	case ActionClippy:
		return "clippy"
	case ActionFormat:
		return "format"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// path maps an action to its endpoint path.
func (a Action) path() string {
	switch a {
	case ActionClippy:
		return "/clippy"
	case ActionFormat:
		return "/format"
	default:
		return "/execute"
	}
}

// Query is the request body the playground expects.
type Query struct {
	Code      string `json:"code"`
	Channel   string `json:"channel"`
	Mode      string `json:"mode"`
	CrateType string `json:"crateType"`
	Test      bool   `json:"test"`
}

// NewQuery builds the playground request for code under action. The channel,
// mode and crate type are fixed; only execute-with-tests flips the test flag.
func NewQuery(code string, action Action) Query {
	return Query{
		Code:      code,
		Channel:   "stable",
		Mode:      "debug",
		CrateType: "bin",
		Test:      action == ActionTest,
	}
}

// Response is the playground's reply. Code is only present on /format.
type Response struct {
	Success bool    `json:"success"`
	Stdout  string  `json:"stdout"`
	Stderr  string  `json:"stderr"`
	Code    *string `json:"code"`
}

// Config configures a Client.
type Config struct {
	// BaseURL overrides the playground base (for testing). Empty uses production.
	BaseURL string
	// UserAgent sent with requests.
	UserAgent string
	// Timeout for playground calls. Builds can be slow; default 30s.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://play.rust-lang.org"
	}
	if c.UserAgent == "" {
		c.UserAgent = "clippit/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client talks to one playground instance.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

// New creates a playground client.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// Ask submits code to the endpoint selected by action and returns the raw
// playground reply. Snippets without a main function are wrapped in one
// first; the playground rejects expression-only submissions outright.
func (c *Client) Ask(ctx context.Context, code string, action Action) (Response, error) {
	body, err := json.Marshal(NewQuery(wrapMain(code), action))
	if err != nil {
		return Response{}, fmt.Errorf("playground: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+action.path(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("playground: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("playground: %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return Response{}, fmt.Errorf("playground: %s replied %d", action, resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("playground: decode reply: %w", err)
	}
	return out, nil
}

// Lint submits code and reduces the reply to a single string:
//
//   - failure → stderr as-is;
//   - clippy → stderr minus the echoed command line at the top and the
//     build timing banner at the bottom;
//   - format → the rewritten code;
//   - anything else → stdout.
func (c *Client) Lint(ctx context.Context, code string, action Action) (string, error) {
	resp, err := c.Ask(ctx, code, action)
	if err != nil {
		return "", err
	}
	switch {
	case !resp.Success:
		return resp.Stderr, nil
	case action == ActionClippy:
		return trimClippy(resp.Stderr), nil
	case action == ActionFormat && resp.Code != nil:
		return *resp.Code, nil
	default:
		return resp.Stdout, nil
	}
}

// wrapMain frames a bare snippet as a program when it carries no main
// function of its own.
func wrapMain(code string) string {
	if strings.Contains(code, "fn main()") {
		return code
	}
	return "fn main() {\n" + code + "\n}"
}

// trimClippy drops the first stderr line (the echoed cargo command) and
// everything from the "Finished dev" timing line onward.
func trimClippy(stderr string) string {
	var b strings.Builder
	for _, line := range strings.Split(stderr, "\n")[1:] {
		if strings.Contains(line, "Finished dev") {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

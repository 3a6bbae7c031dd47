// Package pipeline composes the GitHub adapters, the markdown extractor and
// the playground client into the issue→snippet→clippy flows served over
// HTTP. Fan-out is internal: each stage runs its upstream calls in parallel
// and writes results into per-index slots, so output order always matches
// source order.
package pipeline

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/clippit/github"
	"github.com/hazyhaar/clippit/markdown"
	"github.com/hazyhaar/clippit/playground"
)

// rustClippyHint is the footer clippy appends to its own diagnostics. The
// pre-GraphQL flow had no fence language to go by and instead assumed a
// snippet was Rust unless it embedded this footer (i.e. someone pasted
// clippy output back into an issue). Kept as fallback for untagged fences;
// tagged fences are classified by their info-string.
const rustClippyHint = "for further information visit https://rust-lang-nursery.github.io/rust-clippy"

// Output is one linted snippet in the service's stable response schema.
type Output struct {
	From   string     `json:"from"`
	Code   string     `json:"code"`
	Clippy *string    `json:"clippy"`
	TS     *time.Time `json:"ts"`
}

// DefaultRecentDays is the recent-activity window when the request names none.
const DefaultRecentDays = 2

// Service runs the clippy pipelines.
type Service struct {
	github     *github.Client
	playground *playground.Client
	extractor  *markdown.Extractor
	now        func() time.Time
}

// New creates a Service on top of the given clients.
func New(gh *github.Client, play *playground.Client) *Service {
	return &Service{
		github:     gh,
		playground: play,
		extractor:  markdown.NewExtractor(gh),
		now:        time.Now,
	}
}

// ClippyIssue fetches one issue and its comments, extracts every code
// snippet from their bodies and runs clippy on the Rust ones. Outputs keep
// source order: the issue's snippets first, then each comment's.
func (s *Service) ClippyIssue(ctx context.Context, owner, repo string, number int, token string) ([]Output, error) {
	var (
		issue    github.Issue
		comments []github.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issue, err = s.github.GetIssue(gctx, owner, repo, number, token)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.github.GetComments(gctx, owner, repo, number, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := make([]github.TextSource, 0, 1+len(comments))
	sources = append(sources, github.TextSource{
		Origin:     issue.HTMLURL,
		Text:       issue.Body,
		LastUpdate: issue.UpdatedAt,
	})
	for _, c := range comments {
		sources = append(sources, github.TextSource{
			Origin:     c.HTMLURL,
			Text:       c.Body,
			LastUpdate: c.UpdatedAt,
		})
	}
	return s.lintSources(ctx, sources, token, false)
}

// ClippyRecent runs the pipeline over every issue and comment of the
// repository updated within the last days days (default 2). A token is
// required; the listing goes through GraphQL.
func (s *Service) ClippyRecent(ctx context.Context, owner, repo string, days int, token string) ([]Output, error) {
	if days <= 0 {
		days = DefaultRecentDays
	}
	sources, err := s.github.ListRecent(ctx, owner, repo, token)
	if err != nil {
		return nil, err
	}

	floor := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	recent := make([]github.TextSource, 0, len(sources))
	for _, src := range sources {
		if src.LastUpdate.After(floor) {
			recent = append(recent, src)
		}
	}
	return s.lintSources(ctx, recent, token, true)
}

// lintSources extracts code from every source in parallel, then runs clippy
// on the Rust snippets in parallel. Both joins write into indexed slots so
// the output sequence follows the source sequence exactly.
func (s *Service) lintSources(ctx context.Context, sources []github.TextSource, token string, withTS bool) ([]Output, error) {
	extracted := make([][]markdown.Code, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			codes, err := s.extractor.Extract(gctx, src.Text, token)
			if err != nil {
				return err
			}
			extracted[i] = codes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outputs := make([]Output, 0)
	var lintable []int
	for i, src := range sources {
		for _, code := range extracted[i] {
			out := Output{From: src.Origin, Code: code.Code}
			if withTS {
				ts := src.LastUpdate
				out.TS = &ts
			}
			outputs = append(outputs, out)
			if isRust(code) {
				lintable = append(lintable, len(outputs)-1)
			}
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, i := range lintable {
		i := i
		g.Go(func() error {
			lint, err := s.playground.Lint(gctx, outputs[i].Code, playground.ActionClippy)
			if err != nil {
				// Playground trouble belongs to the snippet, not the request.
				lint = err.Error()
			}
			outputs[i].Clippy = &lint
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// isRust decides whether a snippet goes to clippy. A fence info-string
// settles it; untagged snippets fall back to the legacy footer heuristic.
func isRust(code markdown.Code) bool {
	if code.Language != "" {
		return strings.EqualFold(code.Language, "rust")
	}
	return !strings.Contains(code.Code, rustClippyHint)
}

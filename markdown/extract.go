// Package markdown extracts code snippets from issue and comment bodies.
//
// A snippet is either a fenced/indented code block or a Rust playground
// permalink (a gist-backed share URL), found in a markdown link or as a bare
// URL in prose. Playground links are dereferenced by fetching the gist, so
// a shared permalink and a pasted block containing the same code come out
// identical.
package markdown

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"
	"mvdan.cc/xurls/v2"

	"github.com/hazyhaar/clippit/github"
)

const playgroundHost = "play.rust-lang.org"

// Code is one extracted snippet. GistID is set when the snippet was
// recovered through a playground link; Language carries the fence
// info-string when the markdown declared one.
type Code struct {
	Code     string `json:"code"`
	GistID   string `json:"gist_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// GistResolver fetches gists referenced by playground links.
// *github.Client satisfies it.
type GistResolver interface {
	GetGist(ctx context.Context, id string, token string) (github.Gist, error)
}

// Extractor walks CommonMark documents and yields their code snippets.
type Extractor struct {
	gists GistResolver
	links *regexp.Regexp
}

// NewExtractor creates an Extractor resolving playground links through gists.
func NewExtractor(gists GistResolver) *Extractor {
	return &Extractor{
		gists: gists,
		links: xurls.Strict(),
	}
}

// snippetRef is one snippet found during the walk, before gist resolution.
type snippetRef struct {
	code   Code
	gistID string
}

// Extract parses doc as CommonMark and returns its code snippets in
// document order. Gist-backed snippets are fetched concurrently; a link
// that fails to resolve is skipped, the rest of the document still yields.
func (e *Extractor) Extract(ctx context.Context, doc string, token string) ([]Code, error) {
	source := []byte(doc)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var refs []snippetRef
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.FencedCodeBlock:
			refs = append(refs, snippetRef{code: Code{
				Code:     blockText(n, source),
				Language: string(n.Language(source)),
			}})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			refs = append(refs, snippetRef{code: Code{Code: blockText(n, source)}})
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if id, ok := playgroundGist(string(n.Destination)); ok {
				refs = append(refs, snippetRef{gistID: id})
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if id, ok := playgroundGist(string(n.URL(source))); ok {
				refs = append(refs, snippetRef{gistID: id})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			for _, raw := range e.links.FindAllString(string(n.Segment.Value(source)), -1) {
				if id, ok := playgroundGist(raw); ok {
					refs = append(refs, snippetRef{gistID: id})
				}
			}
		}
		return ast.WalkContinue, nil
	})

	// Resolve gist references in parallel, keeping document order. Failed
	// slots stay nil and are dropped.
	resolved := make([]*Code, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		if ref.gistID == "" {
			c := ref.code
			resolved[i] = &c
			continue
		}
		g.Go(func() error {
			gist, err := e.gists.GetGist(gctx, ref.gistID, token)
			if err != nil {
				slog.Debug("playground link skipped", "gist", ref.gistID, "error", err)
				return nil
			}
			file, ok := gist.FirstFile()
			if !ok {
				slog.Debug("playground link skipped", "gist", ref.gistID, "error", "empty gist")
				return nil
			}
			resolved[i] = &Code{Code: file.Content, GistID: ref.gistID}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	codes := make([]Code, 0, len(resolved))
	for _, c := range resolved {
		if c != nil {
			codes = append(codes, *c)
		}
	}
	return codes, nil
}

// playgroundGist reports whether raw is a playground share link and returns
// the gist id from its query string.
func playgroundGist(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host != playgroundHost {
		return "", false
	}
	id := u.Query().Get("gist")
	return id, id != ""
}

// blockText joins the source lines of a code block into its literal text.
func blockText(n interface{ Lines() *text.Segments }, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

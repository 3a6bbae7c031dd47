package markdown

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/clippit/github"
)

// stubGists resolves gist ids from a fixed map.
type stubGists struct {
	gists map[string]github.Gist
	calls int
}

func (s *stubGists) GetGist(_ context.Context, id string, _ string) (github.Gist, error) {
	s.calls++
	g, ok := s.gists[id]
	if !ok {
		return github.Gist{}, errors.New("stub: no such gist")
	}
	return g, nil
}

func gistWith(id, filename, content string) github.Gist {
	return github.Gist{
		ID:    id,
		Files: map[string]github.GistFile{filename: {Filename: filename, Content: content}},
	}
}

func extract(t *testing.T, stub *stubGists, doc string) []Code {
	t.Helper()
	codes, err := NewExtractor(stub).Extract(context.Background(), doc, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return codes
}

func TestExtractFencedBlock(t *testing.T) {
	codes := extract(t, &stubGists{}, "intro\n\n```\nfn x(){}\n```\n\noutro\n")
	if len(codes) != 1 {
		t.Fatalf("codes: got %d, want 1", len(codes))
	}
	if codes[0].Code != "fn x(){}\n" {
		t.Errorf("code: got %q", codes[0].Code)
	}
	if codes[0].GistID != "" || codes[0].Language != "" {
		t.Errorf("plain fence must have no gist id or language: %+v", codes[0])
	}
}

func TestExtractFenceInfoString(t *testing.T) {
	codes := extract(t, &stubGists{}, "```rust\nlet x = 1;\n```\n\n```python\nprint(1)\n```\n")
	if len(codes) != 2 {
		t.Fatalf("codes: got %d, want 2", len(codes))
	}
	if codes[0].Language != "rust" || codes[1].Language != "python" {
		t.Errorf("languages: got %q, %q", codes[0].Language, codes[1].Language)
	}
}

func TestExtractIndentedBlock(t *testing.T) {
	codes := extract(t, &stubGists{}, "para\n\n    let y = 2;\n")
	if len(codes) != 1 {
		t.Fatalf("codes: got %d, want 1", len(codes))
	}
	if codes[0].Code != "let y = 2;\n" {
		t.Errorf("code: got %q", codes[0].Code)
	}
}

func TestExtractBareURLInProse(t *testing.T) {
	stub := &stubGists{gists: map[string]github.Gist{"G1": gistWith("G1", "a.rs", "fn y(){}")}}
	codes := extract(t, stub, "see https://play.rust-lang.org/?gist=G1 for details\n")
	if len(codes) != 1 {
		t.Fatalf("codes: got %d, want 1", len(codes))
	}
	if codes[0].Code != "fn y(){}" || codes[0].GistID != "G1" {
		t.Errorf("gist code: got %+v", codes[0])
	}
}

func TestExtractMarkdownLink(t *testing.T) {
	stub := &stubGists{gists: map[string]github.Gist{"G2": gistWith("G2", "b.rs", "fn z(){}")}}
	codes := extract(t, stub, "[try it](https://play.rust-lang.org/?version=stable&gist=G2)\n")
	if len(codes) != 1 {
		t.Fatalf("codes: got %d, want 1", len(codes))
	}
	if codes[0].GistID != "G2" || codes[0].Code != "fn z(){}" {
		t.Errorf("gist code: got %+v", codes[0])
	}
}

func TestExtractIgnoresOtherHosts(t *testing.T) {
	stub := &stubGists{}
	codes := extract(t, stub, "see [here](https://example.com/?gist=G9) and https://docs.rs/serde\n")
	if len(codes) != 0 {
		t.Errorf("codes: got %d, want 0", len(codes))
	}
	if stub.calls != 0 {
		t.Errorf("no gist should have been fetched, got %d calls", stub.calls)
	}
}

func TestExtractFailedGistIsSkipped(t *testing.T) {
	// WHAT: A dead playground link drops out; the rest of the doc survives.
	// WHY: One deleted gist must not hide a perfectly good fenced block.
	stub := &stubGists{gists: map[string]github.Gist{}}
	doc := "```\nfn ok(){}\n```\n\nbroken: https://play.rust-lang.org/?gist=GONE\n"
	codes := extract(t, stub, doc)
	if len(codes) != 1 {
		t.Fatalf("codes: got %d, want 1", len(codes))
	}
	if codes[0].Code != "fn ok(){}\n" {
		t.Errorf("surviving code: got %q", codes[0].Code)
	}
}

func TestExtractOrderFollowsDocument(t *testing.T) {
	stub := &stubGists{gists: map[string]github.Gist{"G1": gistWith("G1", "a.rs", "from gist")}}
	doc := "```\nfirst\n```\n\nthen https://play.rust-lang.org/?gist=G1\n\n```\nlast\n```\n"
	codes := extract(t, stub, doc)
	if len(codes) != 3 {
		t.Fatalf("codes: got %d, want 3", len(codes))
	}
	want := []string{"first\n", "from gist", "last\n"}
	for i, w := range want {
		if codes[i].Code != w {
			t.Errorf("code %d: got %q, want %q", i, codes[i].Code, w)
		}
	}
}

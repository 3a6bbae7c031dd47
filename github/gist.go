package github

import (
	"context"
	"fmt"
	"sort"
)

// GistFile is one file inside a gist.
type GistFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Gist is a GitHub gist, treated as a name-to-content mapping.
type Gist struct {
	ID      string              `json:"id"`
	HTMLURL string              `json:"html_url"`
	Files   map[string]GistFile `json:"files"`
}

// FirstFile returns the gist's first file, with "first" meaning the
// alphabetically smallest filename. The files map carries no intrinsic
// order, so this keeps extraction deterministic.
func (g Gist) FirstFile() (GistFile, bool) {
	if len(g.Files) == 0 {
		return GistFile{}, false
	}
	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return g.Files[names[0]], true
}

// GetGist fetches a gist by id.
func (c *Client) GetGist(ctx context.Context, id string, token string) (Gist, error) {
	url := fmt.Sprintf("%s/gists/%s", c.baseURL, id)
	return getJSON(ctx, c, c.gists, url, token)
}

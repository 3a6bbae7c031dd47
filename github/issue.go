package github

import (
	"context"
	"fmt"
	"time"
)

// State is the lifecycle state of an issue.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// PullRequest marks an issue as being a pull request. GitHub's issues API
// returns pull requests interleaved with issues; listings filter them out.
type PullRequest struct {
	URL string `json:"url"`
}

// Issue is a GitHub issue, reduced to the fields the service consumes.
type Issue struct {
	URL         string       `json:"url"`
	HTMLURL     string       `json:"html_url"`
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	State       State        `json:"state"`
	Comments    int          `json:"comments"`
	PullRequest *PullRequest `json:"pull_request,omitempty"`
}

// Comment is one comment on an issue.
type Comment struct {
	URL       string    `json:"url"`
	HTMLURL   string    `json:"html_url"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetIssue fetches a single issue.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int, token string) (Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, owner, repo, number)
	return getJSON(ctx, c, c.issues, url, token)
}

// GetComments fetches the comments of an issue. Pagination is not followed;
// the comment list is read as a single page.
func (c *Client) GetComments(ctx context.Context, owner, repo string, number int, token string) ([]Comment, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, number)
	return getJSON(ctx, c, c.comments, url, token)
}

// ListIssues fetches the repository's open issues, most recently updated
// first. Pull requests are filtered out.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, token string) ([]Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&sort=updated&direction=desc", c.baseURL, owner, repo)
	all, err := getJSON(ctx, c, c.listings, url, token)
	if err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(all))
	for _, issue := range all {
		if issue.PullRequest != nil {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTokenRequired is returned by ListRecent when no token is supplied.
// GitHub's GraphQL endpoint rejects anonymous requests.
var ErrTokenRequired = errors.New("github: graphql requires a token")

// TextSource is a normalized (origin, text, last-update) triple produced
// from an issue or comment body, ready for code extraction.
type TextSource struct {
	Origin     string    `json:"url"`
	Text       string    `json:"body"`
	LastUpdate time.Time `json:"last_update"`
}

// recentIssuesQuery lists the 100 most recently updated open issues with
// their last 100 comments each.
const recentIssuesQuery = `query ($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    issues(first: 100, states: OPEN, orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        number url title body lastEditedAt createdAt updatedAt
        comments(last: 100) {
          nodes { url body lastEditedAt createdAt updatedAt }
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlReply struct {
	Data struct {
		Repository struct {
			Issues struct {
				Nodes []issueNode `json:"nodes"`
			} `json:"issues"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type issueNode struct {
	Number       int        `json:"number"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	LastEditedAt *time.Time `json:"lastEditedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Comments     struct {
		Nodes []commentNode `json:"nodes"`
	} `json:"comments"`
}

type commentNode struct {
	URL          string     `json:"url"`
	Body         string     `json:"body"`
	LastEditedAt *time.Time `json:"lastEditedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListRecent lists the repository's recently updated open issues via
// GraphQL and flattens issues and comments into one TextSource sequence:
// each issue first, then its comments in API order. GraphQL replies carry
// no entity tag, so this path bypasses the cache.
func (c *Client) ListRecent(ctx context.Context, owner, repo, token string) ([]TextSource, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     recentIssuesQuery,
		Variables: map[string]any{"owner": owner, "name": repo},
	})
	if err != nil {
		return nil, fmt.Errorf("github: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("github: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: graphql: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Status: resp.StatusCode, URL: c.graphqlURL}
	}

	var reply graphqlReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("github: decode graphql reply: %w", err)
	}
	if len(reply.Errors) > 0 {
		return nil, fmt.Errorf("github: graphql: %s", reply.Errors[0].Message)
	}

	var sources []TextSource
	for _, issue := range reply.Data.Repository.Issues.Nodes {
		sources = append(sources, TextSource{
			Origin:     issue.URL,
			Text:       issue.Body,
			LastUpdate: latestDate(issue.CreatedAt, nil, issue.LastEditedAt),
		})
		for _, comment := range issue.Comments.Nodes {
			updated := comment.UpdatedAt
			sources = append(sources, TextSource{
				Origin:     comment.URL,
				Text:       comment.Body,
				LastUpdate: latestDate(comment.CreatedAt, &updated, comment.LastEditedAt),
			})
		}
	}
	return sources, nil
}

// latestDate coalesces the freshest known timestamp: an explicit edit wins,
// then the update time, then creation.
func latestDate(created time.Time, updated, edited *time.Time) time.Time {
	if edited != nil {
		return *edited
	}
	if updated != nil {
		return *updated
	}
	return created
}

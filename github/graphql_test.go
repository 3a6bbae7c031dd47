package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const graphqlFixture = `{
  "data": {
    "repository": {
      "issues": {
        "nodes": [
          {
            "number": 12,
            "url": "https://github.com/o/r/issues/12",
            "title": "newest",
            "body": "issue twelve body",
            "lastEditedAt": null,
            "createdAt": "2024-01-01T00:00:00Z",
            "updatedAt": "2024-01-06T00:00:00Z",
            "comments": {
              "nodes": [
                {
                  "url": "https://github.com/o/r/issues/12#issuecomment-1",
                  "body": "comment one",
                  "lastEditedAt": "2024-01-05T00:00:00Z",
                  "createdAt": "2024-01-02T00:00:00Z",
                  "updatedAt": "2024-01-04T00:00:00Z"
                },
                {
                  "url": "https://github.com/o/r/issues/12#issuecomment-2",
                  "body": "comment two",
                  "lastEditedAt": null,
                  "createdAt": "2024-01-03T00:00:00Z",
                  "updatedAt": "2024-01-03T12:00:00Z"
                }
              ]
            }
          },
          {
            "number": 7,
            "url": "https://github.com/o/r/issues/7",
            "title": "older",
            "body": "issue seven body",
            "lastEditedAt": "2024-01-02T06:00:00Z",
            "createdAt": "2023-12-01T00:00:00Z",
            "updatedAt": "2024-01-02T06:00:00Z",
            "comments": {"nodes": []}
          }
        ]
      }
    }
  }
}`

func TestListRecentFlattensInOrder(t *testing.T) {
	// WHAT: One TextSource per issue, then one per comment, API order kept.
	// WHY: The pipeline's output ordering guarantee starts here.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "bearer tok" {
			t.Errorf("Authorization: got %q, want %q", got, "bearer tok")
		}
		body, _ := io.ReadAll(r.Body)
		var req graphqlRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request body: %v", err)
		}
		if !strings.Contains(req.Query, "states: OPEN") || !strings.Contains(req.Query, "UPDATED_AT") {
			t.Errorf("query lost its filters: %s", req.Query)
		}
		if req.Variables["owner"] != "o" || req.Variables["name"] != "r" {
			t.Errorf("variables: got %v", req.Variables)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, graphqlFixture)
	}))
	defer srv.Close()

	c := New(Config{GraphQLURL: srv.URL})
	sources, err := c.ListRecent(context.Background(), "o", "r", "tok")
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}

	wantOrigins := []string{
		"https://github.com/o/r/issues/12",
		"https://github.com/o/r/issues/12#issuecomment-1",
		"https://github.com/o/r/issues/12#issuecomment-2",
		"https://github.com/o/r/issues/7",
	}
	if len(sources) != len(wantOrigins) {
		t.Fatalf("sources: got %d, want %d", len(sources), len(wantOrigins))
	}
	for i, want := range wantOrigins {
		if sources[i].Origin != want {
			t.Errorf("source %d origin: got %q, want %q", i, sources[i].Origin, want)
		}
	}

	// Coalescing: issue without edit → createdAt; comment with edit →
	// lastEditedAt; comment without edit → updatedAt.
	cases := []struct {
		i    int
		want string
	}{
		{0, "2024-01-01T00:00:00Z"},
		{1, "2024-01-05T00:00:00Z"},
		{2, "2024-01-03T12:00:00Z"},
		{3, "2024-01-02T06:00:00Z"},
	}
	for _, tc := range cases {
		want, _ := time.Parse(time.RFC3339, tc.want)
		if !sources[tc.i].LastUpdate.Equal(want) {
			t.Errorf("source %d last update: got %s, want %s", tc.i, sources[tc.i].LastUpdate, want)
		}
	}
}

func TestListRecentRequiresToken(t *testing.T) {
	c := New(Config{GraphQLURL: "http://127.0.0.1:0"})
	_, err := c.ListRecent(context.Background(), "o", "r", "")
	if !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("want ErrTokenRequired, got %v", err)
	}
}

func TestListRecentSurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"data": null, "errors": [{"message": "Could not resolve to a Repository"}]}`)
	}))
	defer srv.Close()

	c := New(Config{GraphQLURL: srv.URL})
	_, err := c.ListRecent(context.Background(), "o", "r", "tok")
	if err == nil || !strings.Contains(err.Error(), "Could not resolve") {
		t.Fatalf("want graphql error surfaced, got %v", err)
	}
}

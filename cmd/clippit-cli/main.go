// clippit-cli exercises the issue→snippet→clippy pipeline from the command
// line, against the same primitives the HTTP service uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/clippit/github"
	"github.com/hazyhaar/clippit/markdown"
	"github.com/hazyhaar/clippit/pipeline"
	"github.com/hazyhaar/clippit/playground"
)

const separator = "=============================="

var (
	owner string
	repo  string
	token string
)

func newClients() (*github.Client, *playground.Client) {
	return github.New(github.Config{}), playground.New(playground.Config{})
}

var rootCmd = &cobra.Command{
	Use:           "clippit-cli",
	Short:         "Run clippy on code snippets found in GitHub issues",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open issues of the repo (pull requests excluded)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gh, _ := newClients()
		issues, err := gh.ListIssues(cmd.Context(), owner, repo, token)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			fmt.Printf("#%d\t%s\t%s\n", issue.Number, issue.State, issue.Title)
		}
		return nil
	},
}

var issueCmd = &cobra.Command{
	Use:   "issue N",
	Short: "Print an issue as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := issueNumber(args[0])
		if err != nil {
			return err
		}
		gh, _ := newClients()
		issue, err := gh.GetIssue(cmd.Context(), owner, repo, number, token)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(issue, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var codesCmd = &cobra.Command{
	Use:   "codes N",
	Short: "Print the code snippets found in an issue and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := issueNumber(args[0])
		if err != nil {
			return err
		}
		gh, _ := newClients()
		codes, err := issueCodes(cmd.Context(), gh, number)
		if err != nil {
			return err
		}
		for _, code := range codes {
			fmt.Printf("%s\n%s\n", strings.TrimSpace(code.Code), separator)
		}
		return nil
	},
}

var clippyCmd = &cobra.Command{
	Use:   "clippy N",
	Short: "Run clippy on the code snippets of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := issueNumber(args[0])
		if err != nil {
			return err
		}
		gh, play := newClients()
		svc := pipeline.New(gh, play)
		outputs, err := svc.ClippyIssue(cmd.Context(), owner, repo, number, token)
		if err != nil {
			return err
		}
		for _, out := range outputs {
			lint := "not rust code"
			if out.Clippy != nil {
				lint = strings.TrimSpace(*out.Clippy)
			}
			fmt.Printf("%s\n%s\n%s\n", strings.TrimSpace(out.Code), lint, separator)
		}
		return nil
	},
}

// issueCodes gathers the snippets of the issue body and all comments, in
// order, the same way the HTTP pipeline does.
func issueCodes(ctx context.Context, gh *github.Client, number int) ([]markdown.Code, error) {
	issue, err := gh.GetIssue(ctx, owner, repo, number, token)
	if err != nil {
		return nil, err
	}
	comments, err := gh.GetComments(ctx, owner, repo, number, token)
	if err != nil {
		return nil, err
	}

	extractor := markdown.NewExtractor(gh)
	var codes []markdown.Code
	for _, body := range append([]string{issue.Body}, commentBodies(comments)...) {
		found, err := extractor.Extract(ctx, body, token)
		if err != nil {
			return nil, err
		}
		codes = append(codes, found...)
	}
	return codes, nil
}

func commentBodies(comments []github.Comment) []string {
	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		bodies = append(bodies, c.Body)
	}
	return bodies
}

func issueNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("issue number %q is not numeric", arg)
	}
	return n, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "GitHub repo owner")
	rootCmd.PersistentFlags().StringVar(&repo, "repo", "", "GitHub repo name")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GITHUB_TOKEN"), "GitHub token")
	rootCmd.MarkPersistentFlagRequired("owner")
	rootCmd.MarkPersistentFlagRequired("repo")
	rootCmd.AddCommand(listCmd, issueCmd, codesCmd, clippyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Package forge talks to the GitHub REST and GraphQL APIs: reading issues,
// commenting on them and opening discussion threads for published posts.
package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/retry"
)

const pageSize = 100

// Client is what the publish service needs from GitHub.
type Client interface {
	GetIssue(ctx context.Context, number int) (*Issue, error)
	ListApprovedIssues(ctx context.Context, label string) ([]*Issue, error)
	CommentOnIssue(ctx context.Context, number int, body string) (*Comment, error)
	CreateDiscussion(ctx context.Context, title, body string) (*Discussion, error)
}

// GitHubClient implements Client for one repository.
type GitHubClient struct {
	rest    *BaseForge
	graphql *BaseForge
	owner   string
	repo    string
	policy  retry.Policy

	discussionRepoID   string
	discussionCategory string
}

// NewGitHubClient creates a client for cfg.Repository.
func NewGitHubClient(cfg config.GitHubConfig, policy retry.Policy, httpClient *http.Client) (*GitHubClient, error) {
	owner, repo, err := config.SplitRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}
	rest := NewBaseForge(httpClient, cfg.APIURL, cfg.Token)
	rest.SetCustomHeader("Accept", "application/vnd.github+json")
	rest.SetCustomHeader("X-GitHub-Api-Version", "2022-11-28")

	return &GitHubClient{
		rest:               rest,
		graphql:            NewBaseForge(httpClient, cfg.GraphQLURL, cfg.Token),
		owner:              owner,
		repo:               repo,
		policy:             policy,
		discussionRepoID:   cfg.Discussions.RepositoryID,
		discussionCategory: cfg.Discussions.CategoryID,
	}, nil
}

// Repository returns owner/name.
func (c *GitHubClient) Repository() string {
	return c.owner + "/" + c.repo
}

func (c *GitHubClient) repoPath(parts ...string) string {
	segs := append([]string{"repos", c.owner, c.repo}, parts...)
	return strings.Join(segs, "/")
}

// GetIssue fetches a single issue.
func (c *GitHubClient) GetIssue(ctx context.Context, number int) (*Issue, error) {
	var issue Issue
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := c.rest.NewRequest(ctx, http.MethodGet, c.repoPath("issues", fmt.Sprint(number)), nil)
		if err != nil {
			return err
		}
		return c.rest.DoRequest(req, &issue)
	})
	if err != nil {
		return nil, withIssue(err, number)
	}
	return &issue, nil
}

// ListApprovedIssues lists closed issues carrying label, newest first.
// Pull requests are skipped.
func (c *GitHubClient) ListApprovedIssues(ctx context.Context, label string) ([]*Issue, error) {
	query := url.Values{}
	query.Set("state", "closed")
	query.Set("labels", label)
	query.Set("sort", "created")
	query.Set("direction", "desc")
	query.Set("per_page", fmt.Sprint(pageSize))

	var all []*Issue
	for page := 1; ; page++ {
		query.Set("page", fmt.Sprint(page))
		var batch []*Issue
		err := c.policy.Do(ctx, func(ctx context.Context) error {
			batch = nil
			req, err := c.rest.NewRequest(ctx, http.MethodGet, c.repoPath("issues")+"?"+query.Encode(), nil)
			if err != nil {
				return err
			}
			return c.rest.DoRequest(req, &batch)
		})
		if err != nil {
			return nil, err
		}
		for _, issue := range batch {
			if issue.IsPullRequest() {
				continue
			}
			all = append(all, issue)
		}
		if len(batch) < pageSize {
			break
		}
	}
	slog.Debug("Listed approved issues", logfields.Repository(c.Repository()), logfields.Count(len(all)))
	return all, nil
}

// CommentOnIssue adds a comment to an issue.
func (c *GitHubClient) CommentOnIssue(ctx context.Context, number int, body string) (*Comment, error) {
	var comment Comment
	payload := map[string]string{"body": body}
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := c.rest.NewRequest(ctx, http.MethodPost, c.repoPath("issues", fmt.Sprint(number), "comments"), payload)
		if err != nil {
			return err
		}
		return c.rest.DoRequest(req, &comment)
	})
	if err != nil {
		return nil, withIssue(err, number)
	}
	return &comment, nil
}

func withIssue(err error, number int) error {
	if c, ok := errors.AsClassified(err); ok {
		return c.WithContext("issue", number)
	}
	return err
}

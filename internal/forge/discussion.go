package forge

import (
	"context"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

const createDiscussionMutation = `mutation($repositoryId: ID!, $categoryId: ID!, $title: String!, $body: String!) {
  createDiscussion(input: {repositoryId: $repositoryId, categoryId: $categoryId, title: $title, body: $body}) {
    discussion { id number url }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type createDiscussionResponse struct {
	Data struct {
		CreateDiscussion struct {
			Discussion Discussion `json:"discussion"`
		} `json:"createDiscussion"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// CreateDiscussion opens a discussion thread in the configured category.
func (c *GitHubClient) CreateDiscussion(ctx context.Context, title, body string) (*Discussion, error) {
	if c.discussionRepoID == "" || c.discussionCategory == "" {
		return nil, errors.ConfigError("discussions are not configured").Build()
	}
	payload := graphQLRequest{
		Query: createDiscussionMutation,
		Variables: map[string]any{
			"repositoryId": c.discussionRepoID,
			"categoryId":   c.discussionCategory,
			"title":        title,
			"body":         body,
		},
	}

	var resp createDiscussionResponse
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		resp = createDiscussionResponse{}
		req, err := c.graphql.NewRequest(ctx, http.MethodPost, "", payload)
		if err != nil {
			return err
		}
		return c.graphql.DoRequest(req, &resp)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.NewError(errors.CategoryForge, "createDiscussion failed").
			WithContext("errors", strings.Join(msgs, "; ")).
			WithContext("title", title).
			Build()
	}
	d := resp.Data.CreateDiscussion.Discussion
	if d.URL == "" {
		return nil, errors.NewError(errors.CategoryForge, "createDiscussion returned no discussion").Build()
	}
	return &d, nil
}

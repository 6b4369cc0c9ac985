package forge

import (
	"strings"
	"time"
)

// Issue is the subset of a GitHub issue that becomes a blog post.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	NodeID    string    `json:"node_id"`
	User      User      `json:"user"`
	Labels    []Label   `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ClosedAt  time.Time `json:"closed_at"`

	// Set only on pull requests, which the issues API also returns.
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// User is a GitHub account.
type User struct {
	Login string `json:"login"`
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// Author returns the login of the issue author.
func (i Issue) Author() string {
	return i.User.Login
}

// LabelNames returns the issue's label names in order.
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// HasLabel reports whether the issue carries name, ignoring case.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// IsPullRequest reports whether the entry is a pull request.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// Comment is an issue comment.
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

// Discussion is a GitHub Discussions thread.
type Discussion struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	URL    string `json:"url"`
}

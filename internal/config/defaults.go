package config

import "time"

const (
	defaultSiteTitle     = "BlogHub"
	defaultApprovedLabel = "APPROVED"
	defaultOutputDir     = "docs"
	defaultPostsSubdir   = "posts"
	defaultStorePath     = ".bloghub/posts.db"
	defaultNotifySubject = "bloghub.posts"
	defaultNotifyStream  = "BLOGHUB"
	defaultHTTPAddr      = ":8080"
	defaultGitRemote     = "origin"
	defaultGitAuthor     = "bloghub"
	defaultGitEmail      = "bloghub@users.noreply.github.com"
)

func (c *Config) applyDefaults() {
	s := &c.Site
	if s.Title == "" {
		s.Title = defaultSiteTitle
	}
	if s.Description == "" {
		s.Description = "Posts published from GitHub Issues"
	}
	if s.Language == "" {
		s.Language = "en"
	}
	if s.PostsPerPage == 0 {
		s.PostsPerPage = 10
	}
	if s.FeedItems == 0 {
		s.FeedItems = 20
	}

	g := &c.GitHub
	if g.APIURL == "" {
		g.APIURL = "https://api.github.com"
	}
	if g.GraphQLURL == "" {
		g.GraphQLURL = g.APIURL + "/graphql"
	}
	if g.WebURL == "" {
		g.WebURL = "https://github.com"
	}
	if g.ApprovedLabel == "" {
		g.ApprovedLabel = defaultApprovedLabel
	}

	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.PostsSubdir == "" {
		c.Output.PostsSubdir = defaultPostsSubdir
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}

	if c.Git.RepoDir == "" {
		c.Git.RepoDir = "."
	}
	if c.Git.Remote == "" {
		c.Git.Remote = defaultGitRemote
	}
	if c.Git.AuthorName == "" {
		c.Git.AuthorName = defaultGitAuthor
	}
	if c.Git.AuthorEmail == "" {
		c.Git.AuthorEmail = defaultGitEmail
	}

	if c.Notify.Subject == "" {
		c.Notify.Subject = defaultNotifySubject
	}
	if c.Notify.Stream == "" {
		c.Notify.Stream = defaultNotifyStream
	}

	if c.Daemon.SyncInterval == 0 {
		c.Daemon.SyncInterval = 10 * time.Minute
	}
	if c.Daemon.HTTPAddr == "" {
		c.Daemon.HTTPAddr = defaultHTTPAddr
	}

	r := &c.Retry
	if r.Mode == "" {
		r.Mode = string(RetryBackoffExponential)
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 30 * time.Second
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 3
	}
}

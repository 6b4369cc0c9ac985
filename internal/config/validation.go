package config

import (
	"fmt"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateGitHub,
		c.validateSite,
		c.validateDaemon,
		c.validateRetry,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateGitHub() error {
	if c.GitHub.Repository != "" {
		if _, _, err := SplitRepository(c.GitHub.Repository); err != nil {
			return err
		}
	}
	if c.GitHub.Discussions.Enabled && (c.GitHub.Discussions.RepositoryID == "" || c.GitHub.Discussions.CategoryID == "") {
		return errors.ConfigError("github.discussions requires repository_id and category_id").Build()
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.PostsPerPage < 1 {
		return errors.ConfigError(fmt.Sprintf("site.posts_per_page must be positive, got %d", c.Site.PostsPerPage)).Build()
	}
	if c.Site.FeedItems < 1 {
		return errors.ConfigError(fmt.Sprintf("site.feed_items must be positive, got %d", c.Site.FeedItems)).Build()
	}
	if c.Site.BaseURL != "" {
		u, err := url.Parse(c.Site.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigError("site.base_url must be an absolute URL").
				WithContext("base_url", c.Site.BaseURL).
				Build()
		}
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.SyncInterval < 0 {
		return errors.ConfigError("daemon.sync_interval cannot be negative").Build()
	}
	return nil
}

func (c *Config) validateRetry() error {
	if NormalizeRetryBackoff(c.Retry.Mode) == "" {
		return errors.ConfigError(fmt.Sprintf("retry.mode must be fixed, linear or exponential, got %q", c.Retry.Mode)).Build()
	}
	if c.Retry.MaxRetries < 0 {
		return errors.ConfigError("retry.max_retries cannot be negative").Build()
	}
	return nil
}

// SplitRepository splits "owner/name".
func SplitRepository(full string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.ValidationError(fmt.Sprintf("repository must be owner/name, got %q", full)).Build()
	}
	return owner, name, nil
}

// RequireRepository reports an error when no repository is configured.
func (c *Config) RequireRepository() error {
	if c.GitHub.Repository == "" {
		return errors.ConfigError("github.repository is not set (config file or GITHUB_REPOSITORY)").Build()
	}
	return nil
}

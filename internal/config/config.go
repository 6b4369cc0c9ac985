// Package config loads bloghub's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when --config is not set.
const DefaultPath = "bloghub.yaml"

// Config is the complete bloghub configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	GitHub  GitHubConfig  `yaml:"github"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
	Git     GitConfig     `yaml:"git"`
	Notify  NotifyConfig  `yaml:"notify"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Metrics MetricsConfig `yaml:"metrics"`
	Retry   RetryConfig   `yaml:"retry"`
}

// SiteConfig holds page chrome and feed metadata.
type SiteConfig struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	BaseURL      string `yaml:"base_url"`
	Author       string `yaml:"author"`
	Language     string `yaml:"language"`
	PostsPerPage int    `yaml:"posts_per_page"`
	FeedItems    int    `yaml:"feed_items"`
	TemplatesDir string `yaml:"templates_dir"` // optional overrides for the embedded page templates
}

// GitHubConfig configures access to the repository whose issues are posts.
type GitHubConfig struct {
	Repository       string            `yaml:"repository"` // owner/name
	Token            string            `yaml:"token"`
	APIURL           string            `yaml:"api_url"`
	GraphQLURL       string            `yaml:"graphql_url"`
	WebURL           string            `yaml:"web_url"`
	ApprovedLabel    string            `yaml:"approved_label"`
	CommentOnPublish bool              `yaml:"comment_on_publish"`
	WebhookSecret    string            `yaml:"webhook_secret"`
	Discussions      DiscussionsConfig `yaml:"discussions"`
}

// DiscussionsConfig controls creation of a discussion thread per post.
type DiscussionsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RepositoryID string `yaml:"repository_id"`
	CategoryID   string `yaml:"category_id"`
}

// OutputConfig controls where the static site is written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	PostsSubdir string `yaml:"posts_subdir"`
}

// StoreConfig locates the post database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// GitConfig controls committing and pushing the generated site.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RepoDir     string `yaml:"repo_dir"`
	Remote      string `yaml:"remote"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// NotifyConfig configures NATS publication events. Empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// DaemonConfig configures the long-running sync mode.
type DaemonConfig struct {
	SyncInterval time.Duration `yaml:"sync_interval"`
	HTTPAddr     string        `yaml:"http_addr"`
}

// MetricsConfig configures metrics export for one-shot runs.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// RetryConfig configures backoff for remote calls.
type RetryConfig struct {
	Mode         string        `yaml:"mode"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxRetries   int           `yaml:"max_retries"`
}

// Load reads configPath, expanding ${VAR} references, then applies
// environment overrides and defaults and validates the result. A missing
// file at the default path is not an error: bloghub can run from the
// environment alone, as it does inside GitHub Actions.
func Load(configPath string) (*Config, error) {
	LoadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, errors.ConfigError("failed to parse configuration").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
	case os.IsNotExist(err) && configPath == DefaultPath:
	case os.IsNotExist(err):
		return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath).
			Build()
	default:
		return nil, errors.ConfigError("failed to read configuration").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a config from YAML bytes without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.ConfigError("failed to parse configuration").WithCause(err).Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"GITHUB_REPOSITORY", &c.GitHub.Repository},
		{"GITHUB_TOKEN", &c.GitHub.Token},
		{"GITHUB_API_URL", &c.GitHub.APIURL},
		{"GITHUB_GRAPHQL_URL", &c.GitHub.GraphQLURL},
		{"GITHUB_SERVER_URL", &c.GitHub.WebURL},
		{"BLOGHUB_OUTPUT_DIR", &c.Output.Dir},
		{"BLOGHUB_BASE_URL", &c.Site.BaseURL},
		{"BLOGHUB_NATS_URL", &c.Notify.NATSURL},
	}
	for _, o := range overrides {
		if v := getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  title: My Blog\n"))
	require.NoError(t, err)

	assert.Equal(t, "My Blog", cfg.Site.Title)
	assert.Equal(t, 10, cfg.Site.PostsPerPage)
	assert.Equal(t, "APPROVED", cfg.GitHub.ApprovedLabel)
	assert.Equal(t, "https://api.github.com/graphql", cfg.GitHub.GraphQLURL)
	assert.Equal(t, "docs", cfg.Output.Dir)
	assert.Equal(t, "posts", cfg.Output.PostsSubdir)
	assert.Equal(t, 10*time.Minute, cfg.Daemon.SyncInterval)
	assert.Equal(t, "exponential", cfg.Retry.Mode)
}

func TestParseDurations(t *testing.T) {
	cfg, err := Parse([]byte("daemon:\n  sync_interval: 90s\nretry:\n  mode: fixed\n  initial_delay: 250ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Daemon.SyncInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad repository", "github:\n  repository: just-a-name\n"},
		{"nested repository", "github:\n  repository: a/b/c\n"},
		{"negative page size", "site:\n  posts_per_page: -1\n"},
		{"relative base url", "site:\n  base_url: /blog\n"},
		{"unknown retry mode", "retry:\n  mode: random\n"},
		{"discussions without ids", "github:\n  discussions:\n    enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig) || errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestLoadExpandsEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("BLOG_TITLE", "From Env")
	t.Setenv("GITHUB_REPOSITORY", "octo/blog")
	t.Setenv("GITHUB_TOKEN", "")

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  title: ${BLOG_TITLE}\ngithub:\n  repository: other/repo\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Site.Title)
	assert.Equal(t, "octo/blog", cfg.GitHub.Repository)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GITHUB_REPOSITORY", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GITHUB_REPOSITORY=dot/env\n"), 0o600))
	require.NoError(t, os.Unsetenv("GITHUB_REPOSITORY"))

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "dot/env", cfg.GitHub.Repository)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestSplitRepository(t *testing.T) {
	owner, name, err := SplitRepository("octo/blog")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "blog", name)

	_, _, err = SplitRepository("/blog")
	require.Error(t, err)
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "bloghub.yaml")
	require.NoError(t, WriteSample(path, false))

	err := WriteSample(path, false)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryAlreadyExists))
	require.NoError(t, WriteSample(path, true))

	t.Setenv("GITHUB_REPOSITORY", "octo/blog")
	t.Setenv("GITHUB_TOKEN", "t")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = Parse([]byte(os.ExpandEnv(string(data))))
	require.NoError(t, err)
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffLinear, NormalizeRetryBackoff(" Linear "))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("jitter"))
}

func TestLoadEnvFilesKeepsProcessEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("BLOGHUB_DOTENV_TEST=from-file\nBLOGHUB_TOKEN_TEST=from-file\n"), 0o600))
	t.Setenv("BLOGHUB_TOKEN_TEST", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("BLOGHUB_DOTENV_TEST") })

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	LoadEnvFiles()

	assert.Equal(t, "from-file", os.Getenv("BLOGHUB_DOTENV_TEST"))
	assert.Equal(t, "from-env", os.Getenv("BLOGHUB_TOKEN_TEST"))
	assert.Contains(t, buf.String(), "path=.env")
}

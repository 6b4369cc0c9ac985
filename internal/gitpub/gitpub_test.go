package gitpub

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func gitConfig(repoDir string) config.GitConfig {
	return config.GitConfig{
		Enabled:     true,
		RepoDir:     repoDir,
		Remote:      "origin",
		AuthorName:  "bloghub",
		AuthorEmail: "bloghub@example.com",
	}
}

func TestCommitOnlyOutputDir(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "docs", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not part of the site")

	p, err := New(gitConfig(dir), "docs", "")
	require.NoError(t, err)
	p.WithoutPush()
	p.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }

	committed, err := p.CommitAndPush(t.Context(), "Publish #1")
	require.NoError(t, err)
	assert.True(t, committed)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Publish #1", commit.Message)
	assert.Equal(t, "bloghub", commit.Author.Name)

	_, err = commit.File("docs/index.html")
	require.NoError(t, err)
	_, err = commit.File("notes.txt")
	require.Error(t, err)

	committed, err = p.CommitAndPush(t.Context(), "Nothing")
	require.NoError(t, err)
	assert.False(t, committed)
}

func TestCommitStagesDeletions(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "docs", "posts", "a.html"), "a")
	writeFile(t, filepath.Join(dir, "docs", "posts", "b.html"), "b")

	p, err := New(gitConfig(dir), filepath.Join(dir, "docs"), "")
	require.NoError(t, err)
	p.WithoutPush()
	_, err = p.CommitAndPush(t.Context(), "first")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "docs", "posts", "a.html")))
	committed, err := p.CommitAndPush(t.Context(), "Unpublish a")
	require.NoError(t, err)
	assert.True(t, committed)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	_, err = commit.File("docs/posts/a.html")
	require.Error(t, err)
	_, err = commit.File("docs/posts/b.html")
	require.NoError(t, err)
}

func TestPushToBareRemote(t *testing.T) {
	tmp := t.TempDir()
	barePath := filepath.Join(tmp, "remote.git")
	bare, err := git.PlainInit(barePath, true)
	require.NoError(t, err)

	workPath := filepath.Join(tmp, "work")
	work, err := git.PlainInit(workPath, false)
	require.NoError(t, err)
	_, err = work.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{barePath}})
	require.NoError(t, err)

	writeFile(t, filepath.Join(workPath, "docs", "index.html"), "<html></html>")

	cfg := gitConfig(workPath)
	cfg.Branch = "gh-pages"
	p, err := New(cfg, "docs", "")
	require.NoError(t, err)

	committed, err := p.CommitAndPush(t.Context(), "Publish")
	require.NoError(t, err)
	assert.True(t, committed)

	ref, err := bare.Reference(plumbing.NewBranchReferenceName("gh-pages"), true)
	require.NoError(t, err)
	head, err := work.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), ref.Hash())
}

func TestNewValidation(t *testing.T) {
	dir := t.TempDir()
	_, err := New(gitConfig(dir), "docs", "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryGit))

	_, err = git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = New(gitConfig(dir), filepath.Join(filepath.Dir(dir), "elsewhere"), "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestAuth(t *testing.T) {
	p := &Publisher{}
	assert.Nil(t, p.auth())
	p.token = "secret"
	assert.NotNil(t, p.auth())
}

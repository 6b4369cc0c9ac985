package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("bloghub"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	return parser
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"publish", "--issue", "7"}, "publish"},
		{[]string{"unpublish", "-i", "7"}, "unpublish"},
		{[]string{"sync"}, "sync"},
		{[]string{"rebuild"}, "rebuild"},
		{[]string{"render"}, "render"},
		{[]string{"daemon", "--addr", ":9090"}, "daemon"},
		{[]string{"import-legacy"}, "import-legacy"},
		{[]string{"init", "--force"}, "init"},
		{[]string{"version"}, "version"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cli := &CLI{}
			kctx, err := newParser(t, cli).Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Fields(kctx.Command())[0])
			assert.Equal(t, "bloghub.yaml", cli.Config)
		})
	}
}

func TestUnpublishRequiresIssue(t *testing.T) {
	_, err := newParser(t, &CLI{}).Parse([]string{"unpublish"})
	require.Error(t, err)
}

func TestRenderFromStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := &RenderCmd{}
	require.NoError(t, cmd.render(strings.NewReader("# Title\n\nHello *world*"), &out))
	assert.Equal(t, "<h1>Title</h1>\n<p>Hello <em>world</em></p>\n", out.String())
}

func TestRenderFileStripsFrontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: x\n---\nbody"), 0o600))

	var out bytes.Buffer
	cmd := &RenderCmd{File: path, StripFrontmatter: true}
	require.NoError(t, cmd.render(nil, &out))
	assert.Equal(t, "<p>body</p>\n", out.String())
}

func TestInitWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bloghub.yaml")
	root := &CLI{Config: path}
	require.NoError(t, (&InitCmd{}).Run(nil, root))
	assert.FileExists(t, path)

	err := (&InitCmd{}).Run(nil, root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryAlreadyExists))
	require.NoError(t, (&InitCmd{Force: true}).Run(nil, root))
}

func TestPublishFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := `site:
  title: Env Blog
  base_url: https://blog.test
github:
  repository: octo/blog
output:
  dir: site
store:
  path: data/posts.db
metrics:
  textfile_path: metrics/bloghub.prom
`
	require.NoError(t, os.WriteFile("bloghub.yaml", []byte(cfg), 0o600))

	t.Setenv("GITHUB_REPOSITORY", "octo/blog")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("ISSUE_NUMBER", "5")
	t.Setenv("ISSUE_TITLE", "From Actions")
	t.Setenv("ISSUE_BODY", "Hello from **Actions**")
	t.Setenv("ISSUE_AUTHOR", "octocat")
	t.Setenv("ISSUE_CREATED_AT", "2024-03-05T10:00:00Z")
	t.Setenv("ISSUE_LABELS", "approved,news")

	root := &CLI{Config: "bloghub.yaml"}
	require.NoError(t, (&PublishCmd{}).Run(nil, root))

	page, err := os.ReadFile(filepath.Join(dir, "site", "posts", "2024-03-05-from-actions.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<strong>Actions</strong>")
	assert.FileExists(t, filepath.Join(dir, "site", "tags", "news.html"))
	assert.FileExists(t, filepath.Join(dir, "data", "posts.db"))

	prom, err := os.ReadFile(filepath.Join(dir, "metrics", "bloghub.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `bloghub_publish_outcomes_total{outcome="published"} 1`)

	require.NoError(t, (&UnpublishCmd{Issue: 5}).Run(nil, root))
	assert.NoFileExists(t, filepath.Join(dir, "site", "posts", "2024-03-05-from-actions.html"))
}

func TestPublishRejectsUnapprovedIssue(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("bloghub.yaml", []byte("github:\n  repository: octo/blog\n"), 0o600))
	t.Setenv("ISSUE_NUMBER", "5")
	t.Setenv("ISSUE_TITLE", "Nope")
	t.Setenv("ISSUE_LABELS", "question")

	err := (&PublishCmd{}).Run(nil, &CLI{Config: "bloghub.yaml"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestCheckApproved(t *testing.T) {
	approved := &forge.Issue{Number: 1, Labels: []forge.Label{{Name: "APPROVED"}}}
	other := &forge.Issue{Number: 2, Labels: []forge.Label{{Name: "question"}}}
	unlabeled := &forge.Issue{Number: 3}

	tests := []struct {
		name        string
		issue       *forge.Issue
		labelsKnown bool
		wantErr     bool
	}{
		{"approved", approved, true, false},
		{"other label", other, true, true},
		{"no labels from the API", unlabeled, true, true},
		{"labels not exported by the workflow", unlabeled, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkApproved(tt.issue, "APPROVED", tt.labelsKnown)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestPublishFromEnvironmentWithEmptyLabelsIsRejected(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("bloghub.yaml", []byte("github:\n  repository: octo/blog\n"), 0o600))
	t.Setenv("ISSUE_NUMBER", "6")
	t.Setenv("ISSUE_TITLE", "Unlabeled")
	t.Setenv("ISSUE_LABELS", "")

	err := (&PublishCmd{}).Run(nil, &CLI{Config: "bloghub.yaml"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

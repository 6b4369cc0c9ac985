// Package gitpub commits generated pages to the site repository and pushes
// them to the remote that serves GitHub Pages.
package gitpub

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
)

// Committer records a set of site changes.
type Committer interface {
	// CommitAndPush stages everything under the output directory and commits
	// it. It reports false when there was nothing to commit.
	CommitAndPush(ctx context.Context, message string) (bool, error)
}

// Publisher is a Committer backed by a local clone.
type Publisher struct {
	repoDir   string
	outputDir string
	remote    string
	branch    string
	author    object.Signature
	token     string
	push      bool
	now       func() time.Time
}

// New opens the repository at cfg.RepoDir. outputDir is the generated site
// directory and must live inside that repository.
func New(cfg config.GitConfig, outputDir, token string) (*Publisher, error) {
	repoDir, err := filepath.Abs(cfg.RepoDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve repository directory").Build()
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(repoDir, outputDir)
	}
	rel, err := filepath.Rel(repoDir, outputDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.ConfigError("output directory must be inside git.repo_dir").
			WithContext("repo_dir", repoDir).
			WithContext("output_dir", outputDir).
			Build()
	}
	if _, err := git.PlainOpen(repoDir); err != nil {
		return nil, errors.GitError("failed to open repository").
			WithCause(err).
			WithContext("repo_dir", repoDir).
			Build()
	}
	return &Publisher{
		repoDir:   repoDir,
		outputDir: filepath.ToSlash(rel),
		remote:    cfg.Remote,
		branch:    cfg.Branch,
		author:    object.Signature{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
		token:     token,
		push:      cfg.Remote != "",
		now:       time.Now,
	}, nil
}

// WithoutPush turns off pushing; commits stay local.
func (p *Publisher) WithoutPush() *Publisher {
	p.push = false
	return p
}

// CommitAndPush implements Committer.
func (p *Publisher) CommitAndPush(ctx context.Context, message string) (bool, error) {
	repo, err := git.PlainOpen(p.repoDir)
	if err != nil {
		return false, errors.GitError("failed to open repository").WithCause(err).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, errors.GitError("failed to get worktree").WithCause(err).Build()
	}

	if err := wt.AddWithOptions(&git.AddOptions{Path: p.outputDir}); err != nil {
		return false, errors.GitError("failed to stage site changes").
			WithCause(err).
			WithContext("path", p.outputDir).
			Build()
	}

	status, err := wt.Status()
	if err != nil {
		return false, errors.GitError("failed to read worktree status").WithCause(err).Build()
	}
	if removed, err := p.stageDeletions(wt, status); err != nil {
		return false, err
	} else if removed {
		if status, err = wt.Status(); err != nil {
			return false, errors.GitError("failed to read worktree status").WithCause(err).Build()
		}
	}
	if !hasStaged(status) {
		slog.Debug("No site changes to commit", logfields.Path(p.outputDir))
		return false, nil
	}

	author := p.author
	author.When = p.now()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &author})
	if err != nil {
		return false, errors.GitError("failed to commit site changes").WithCause(err).Build()
	}
	slog.Info("Committed site changes",
		slog.String("commit", hash.String()[:8]),
		slog.String("message", message))

	if !p.push {
		return true, nil
	}
	return true, p.pushTo(ctx, repo)
}

func (p *Publisher) pushTo(ctx context.Context, repo *git.Repository) error {
	opts := &git.PushOptions{RemoteName: p.remote, Auth: p.auth()}
	if p.branch != "" {
		ref := plumbing.NewBranchReferenceName(p.branch)
		opts.RefSpecs = []ggitcfg.RefSpec{ggitcfg.RefSpec(fmt.Sprintf("HEAD:%s", ref))}
	}
	err := repo.PushContext(ctx, opts)
	if stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Debug("Remote already up to date", logfields.Repository(p.remote))
		return nil
	}
	if err != nil {
		builder := errors.GitError("failed to push site changes").
			WithCause(err).
			WithContext("remote", p.remote)
		if stderrors.Is(err, transport.ErrAuthenticationRequired) || stderrors.Is(err, transport.ErrAuthorizationFailed) {
			builder = errors.AuthError("push rejected by remote").
				WithCause(err).
				WithContext("remote", p.remote)
		} else {
			builder = builder.Retryable()
		}
		return builder.Build()
	}
	slog.Info("Pushed site changes", logfields.Repository(p.remote))
	return nil
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "token", Password: p.token}
}

// stageDeletions removes pages that were deleted from disk from the index.
func (p *Publisher) stageDeletions(wt *git.Worktree, status git.Status) (bool, error) {
	prefix := p.outputDir + "/"
	removed := false
	for name, st := range status {
		if st.Worktree != git.Deleted {
			continue
		}
		if p.outputDir != "." && !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := wt.Remove(name); err != nil {
			return removed, errors.GitError("failed to stage removed page").
				WithCause(err).
				WithContext("path", name).
				Build()
		}
		removed = true
	}
	return removed, nil
}

func hasStaged(status git.Status) bool {
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true
		}
	}
	return false
}

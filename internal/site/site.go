// Package site turns stored posts into the static blog: one page per post,
// paginated index pages, tag pages, an RSS feed, a sitemap and a search
// index.
//
// Layout below the output directory:
//
//	index.html, page/<n>.html   newest posts first
//	posts/<date>-<slug>.html    one page per post
//	tags/index.html             tag cloud
//	tags/<tag>.html             posts per tag
//	feed.xml, sitemap.xml, search.json, styles.css
package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/post"
)

// Site renders and writes the blog.
type Site struct {
	cfg           config.SiteConfig
	postsDir      string
	approvedLabel string
	links         Links
	baseURL       string
	writer        *Writer
	tmpl          *template.Template
	now           func() time.Time
}

// Links are the repository URLs shown in the page footer.
type Links struct {
	Repository string
	Issues     string
	NewIssue   string
}

// New builds a Site for cfg.
func New(cfg *config.Config) (*Site, error) {
	tmpl, err := loadTemplates(cfg.Site.TemplatesDir)
	if err != nil {
		return nil, err
	}
	webURL := strings.TrimSuffix(cfg.GitHub.WebURL, "/")
	if webURL == "" {
		webURL = "https://github.com"
	}
	repoURL := webURL + "/" + cfg.GitHub.Repository
	return &Site{
		cfg:           cfg.Site,
		postsDir:      strings.Trim(cfg.Output.PostsSubdir, "/"),
		approvedLabel: cfg.GitHub.ApprovedLabel,
		links: Links{
			Repository: repoURL,
			Issues:     repoURL + "/issues",
			NewIssue:   repoURL + "/issues/new",
		},
		baseURL: siteBaseURL(cfg.Site.BaseURL, cfg.GitHub.Repository),
		writer:  NewWriter(cfg.Output.Dir),
		tmpl:    tmpl,
		now:     time.Now,
	}, nil
}

// siteBaseURL returns the configured base URL with a trailing slash, or
// the GitHub Pages project URL for the repository.
func siteBaseURL(configured, repository string) string {
	if configured != "" {
		return strings.TrimSuffix(configured, "/") + "/"
	}
	owner, name, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || name == "" {
		return "/"
	}
	return "https://" + strings.ToLower(owner) + ".github.io/" + name + "/"
}

// Writer exposes the underlying writer.
func (s *Site) Writer() *Writer { return s.writer }

// PostPath is the page location relative to the output directory.
func (s *Site) PostPath(p *post.Post) string {
	return path.Join(s.postsDir, p.FileName())
}

// PostsDir is the directory holding the post pages.
func (s *Site) PostsDir() string {
	return filepath.Join(s.writer.Root(), filepath.FromSlash(s.postsDir))
}

// PostURL is the absolute URL of a post page.
func (s *Site) PostURL(p *post.Post) string {
	return s.baseURL + s.PostPath(p)
}

// BaseURL returns the absolute site URL with a trailing slash.
func (s *Site) BaseURL() string { return s.baseURL }

// WritePost renders and writes a single post page.
func (s *Site) WritePost(p *post.Post) (string, error) {
	page, err := s.RenderPost(p)
	if err != nil {
		return "", err
	}
	full, err := s.writer.Write(s.PostPath(p), page)
	if err != nil {
		return "", err
	}
	slog.Debug("Wrote post page", logfields.Issue(p.Number), logfields.Path(full))
	return full, nil
}

// RemovePost deletes a post page.
func (s *Site) RemovePost(p *post.Post) error {
	return s.writer.Remove(s.PostPath(p))
}

// HasPost reports whether the post page exists on disk.
func (s *Site) HasPost(p *post.Post) bool {
	return s.writer.Exists(s.PostPath(p))
}

// Rebuild writes every post page in parallel and then all listings.
func (s *Site) Rebuild(ctx context.Context, posts []*post.Post) error {
	visible := Visible(posts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range visible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := s.WritePost(p)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("write post pages: %w", err)
	}
	return s.WriteListings(ctx, posts)
}

// WriteListings regenerates everything except individual post pages.
func (s *Site) WriteListings(ctx context.Context, posts []*post.Post) error {
	visible := Visible(posts)
	steps := []struct {
		name string
		fn   func([]*post.Post) error
	}{
		{"index", s.writeIndexPages},
		{"tags", s.writeTagPages},
		{"feed", s.writeFeed},
		{"sitemap", s.writeSitemap},
		{"search", s.writeSearchIndex},
		{"styles", func([]*post.Post) error {
			_, err := s.writer.Write("styles.css", stylesheet)
			return err
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.fn(visible); err != nil {
			return fmt.Errorf("write %s: %w", step.name, err)
		}
	}
	slog.Info("Site listings written", logfields.Count(len(visible)), logfields.Path(s.writer.Root()))
	return nil
}

// Visible returns the non-draft posts, newest first.
func Visible(posts []*post.Post) []*post.Post {
	out := make([]*post.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil && !p.Draft {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b *post.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.Number - a.Number
	})
	return out
}

func (s *Site) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

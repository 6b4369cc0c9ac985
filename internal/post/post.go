// Package post maps GitHub issues onto blog posts.
package post

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/excerpt"
	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/frontmatter"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/markdown"
)

const displayDateLayout = "January 2, 2006"

// Post is a published (or about to be published) blog entry.
type Post struct {
	UID           string
	Number        int
	Title         string
	Slug          string
	Author        string
	Body          string
	HTML          string
	Excerpt       string
	Tags          []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	IssueURL      string
	DiscussionURL string
	Fingerprint   string
	Draft         bool
}

// FromIssue builds a post from an issue. Frontmatter at the top of the
// issue body may override title, slug, tags, date and excerpt; a malformed
// block is logged and the whole body is treated as markdown.
//
// UID and DiscussionURL are left empty; they belong to the stored record.
func FromIssue(issue *forge.Issue, approvedLabel string) (*Post, error) {
	if issue == nil {
		return nil, fmt.Errorf("issue is nil")
	}

	doc, err := frontmatter.Split(issue.Body)
	var meta frontmatter.Meta
	if err == nil {
		meta, err = doc.Meta()
	}
	if err != nil {
		slog.Warn("Ignoring unreadable frontmatter",
			logfields.Issue(issue.Number),
			logfields.Error(err))
		doc = frontmatter.Document{Body: strings.ReplaceAll(issue.Body, "\r\n", "\n"), Fields: map[string]any{}}
		meta = frontmatter.Meta{}
	}

	p := &Post{
		Number:    issue.Number,
		Title:     strings.TrimSpace(issue.Title),
		Author:    issue.Author(),
		Body:      doc.Body,
		CreatedAt: issue.CreatedAt.UTC(),
		UpdatedAt: issue.UpdatedAt.UTC(),
		IssueURL:  issue.HTMLURL,
		Draft:     meta.Draft,
	}
	if t := strings.TrimSpace(meta.Title); t != "" {
		p.Title = t
	}
	if !meta.Date.IsZero() {
		p.CreatedAt = meta.Date.UTC()
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}

	slugSource := meta.Slug
	if strings.TrimSpace(slugSource) == "" {
		slugSource = p.Title
	}
	p.Slug = Slugify(slugSource)
	if p.Slug == "" {
		p.Slug = fmt.Sprintf("post-%d", issue.Number)
	}

	p.Tags = mergeTags(issue.LabelNames(), meta.Tags, approvedLabel)
	p.HTML = markdown.Render(p.Body)
	if e := strings.TrimSpace(meta.Excerpt); e != "" {
		p.Excerpt = e
	} else {
		p.Excerpt = excerpt.Excerpt(p.Body, excerpt.DefaultLength)
	}

	fp, err := ComputeFingerprint(p.hashFields(doc.Fields), p.Body)
	if err != nil {
		return nil, fmt.Errorf("fingerprint issue #%d: %w", issue.Number, err)
	}
	p.Fingerprint = fp
	return p, nil
}

// FileName is the page file name, e.g. 2024-03-05-hello-world.html.
func (p *Post) FileName() string {
	return p.CreatedAt.UTC().Format("2006-01-02") + "-" + p.Slug + ".html"
}

// DisplayDate is the human readable publication date.
func (p *Post) DisplayDate() string {
	return p.CreatedAt.UTC().Format(displayDateLayout)
}

// HasTag reports whether the post carries tag.
func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// hashFields is the metadata that affects the rendered page. Unknown
// frontmatter keys are included so editing them still counts as a change.
func (p *Post) hashFields(extra map[string]any) map[string]any {
	fields := make(map[string]any, len(extra)+6)
	for k, v := range extra {
		fields[k] = v
	}
	fields["title"] = p.Title
	fields["slug"] = p.Slug
	fields["author"] = p.Author
	fields["date"] = p.CreatedAt
	fields["tags"] = p.Tags
	fields["draft"] = p.Draft
	fields["excerpt"] = p.Excerpt
	return fields
}

// mergeTags lowercases labels and frontmatter tags, drops the approval
// label, and returns the sorted union.
func mergeTags(labels, extra []string, approvedLabel string) []string {
	seen := make(map[string]struct{}, len(labels)+len(extra))
	var tags []string
	add := func(raw string) {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" || strings.EqualFold(tag, approvedLabel) {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	for _, l := range labels {
		add(l)
	}
	for _, t := range extra {
		add(t)
	}
	slices.Sort(tags)
	return tags
}

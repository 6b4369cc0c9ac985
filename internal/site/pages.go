package site

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/post"
)

// pageData is shared by every template.
type pageData struct {
	Site          config.SiteConfig
	Links         Links
	ApprovedLabel string
	Root          string
	Title         string
	Description   string
}

type tagLink struct {
	Name  string
	URL   string
	Count int
}

type postView struct {
	Number        int
	Title         string
	URL           string
	Author        string
	Date          string
	ISODate       string
	Excerpt       string
	IssueURL      string
	DiscussionURL string
	Tags          []tagLink
	Content       template.HTML
}

type postPage struct {
	pageData
	Post postView
}

type listPage struct {
	pageData
	Posts   []postView
	Page    int
	Pages   int
	PrevURL string
	NextURL string
}

type tagPage struct {
	pageData
	Tag   string
	Posts []postView
}

type tagsPage struct {
	pageData
	Tags []tagLink
}

// rootFor is the relative prefix leading from a page back to the site root.
func rootFor(pagePath string) string {
	depth := strings.Count(pagePath, "/")
	return strings.Repeat("../", depth)
}

// TagPath is the tag page location relative to the output directory.
func TagPath(tag string) string {
	slug := post.Slugify(tag)
	switch slug {
	case "":
		slug = "tag"
	case "index":
		slug = "index-tag"
	}
	return "tags/" + slug + ".html"
}

func indexPath(page int) string {
	if page <= 1 {
		return "index.html"
	}
	return fmt.Sprintf("page/%d.html", page)
}

func (s *Site) base(pagePath, title, description string) pageData {
	if description == "" {
		description = s.cfg.Description
	}
	return pageData{
		Site:          s.cfg,
		Links:         s.links,
		ApprovedLabel: s.approvedLabel,
		Root:          rootFor(pagePath),
		Title:         title,
		Description:   description,
	}
}

func (s *Site) view(p *post.Post, root string) postView {
	v := postView{
		Number:        p.Number,
		Title:         p.Title,
		URL:           root + s.PostPath(p),
		Author:        p.Author,
		Date:          p.DisplayDate(),
		ISODate:       p.CreatedAt.UTC().Format("2006-01-02"),
		Excerpt:       p.Excerpt,
		IssueURL:      p.IssueURL,
		DiscussionURL: p.DiscussionURL,
		// Render escapes all author input; the fragment is trusted markup.
		Content: template.HTML(p.HTML), // #nosec G203
	}
	for _, tag := range p.Tags {
		v.Tags = append(v.Tags, tagLink{Name: tag, URL: root + TagPath(tag)})
	}
	return v
}

func (s *Site) views(posts []*post.Post, root string) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.view(p, root))
	}
	return out
}

// RenderPost returns the complete HTML page for p.
func (s *Site) RenderPost(p *post.Post) ([]byte, error) {
	pagePath := s.PostPath(p)
	data := postPage{
		pageData: s.base(pagePath, p.Title, p.Excerpt),
		Post:     s.view(p, rootFor(pagePath)),
	}
	return s.execute("post.html", data)
}

// pageCount returns how many index pages n posts need; an empty site
// still has one.
func pageCount(n, perPage int) int {
	if perPage <= 0 {
		perPage = 10
	}
	if n == 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

func (s *Site) writeIndexPages(posts []*post.Post) error {
	perPage := s.cfg.PostsPerPage
	if perPage <= 0 {
		perPage = 10
	}
	pages := pageCount(len(posts), perPage)
	for page := 1; page <= pages; page++ {
		start := (page - 1) * perPage
		end := min(start+perPage, len(posts))
		pagePath := indexPath(page)
		root := rootFor(pagePath)

		title := ""
		if page > 1 {
			title = fmt.Sprintf("Page %d", page)
		}
		data := listPage{
			pageData: s.base(pagePath, title, ""),
			Posts:    s.views(posts[start:end], root),
			Page:     page,
			Pages:    pages,
		}
		if page > 1 {
			data.PrevURL = root + indexPath(page-1)
		}
		if page < pages {
			data.NextURL = root + indexPath(page+1)
		}
		out, err := s.execute("index.html", data)
		if err != nil {
			return err
		}
		if _, err := s.writer.Write(pagePath, out); err != nil {
			return err
		}
	}
	// Drop pages left over from a site that used to be longer.
	for page := pages + 1; s.writer.Exists(indexPath(page)); page++ {
		if err := s.writer.Remove(indexPath(page)); err != nil {
			return err
		}
	}
	return nil
}

// tagIndex groups posts by tag, keeping each group newest first.
func tagIndex(posts []*post.Post) (map[string][]*post.Post, []string) {
	byTag := map[string][]*post.Post{}
	for _, p := range posts {
		for _, tag := range p.Tags {
			byTag[tag] = append(byTag[tag], p)
		}
	}
	names := make([]string, 0, len(byTag))
	for tag := range byTag {
		names = append(names, tag)
	}
	sort.Strings(names)
	return byTag, names
}

func (s *Site) writeTagPages(posts []*post.Post) error {
	if err := s.writer.RemoveDir("tags"); err != nil {
		return err
	}
	byTag, names := tagIndex(posts)

	cloudPath := "tags/index.html"
	cloudRoot := rootFor(cloudPath)
	cloud := tagsPage{pageData: s.base(cloudPath, "Tags", "")}
	for _, tag := range names {
		pagePath := TagPath(tag)
		root := rootFor(pagePath)
		data := tagPage{
			pageData: s.base(pagePath, "Posts tagged "+tag, ""),
			Tag:      tag,
			Posts:    s.views(byTag[tag], root),
		}
		out, err := s.execute("tag.html", data)
		if err != nil {
			return err
		}
		if _, err := s.writer.Write(pagePath, out); err != nil {
			return err
		}
		cloud.Tags = append(cloud.Tags, tagLink{
			Name:  tag,
			URL:   cloudRoot + pagePath,
			Count: len(byTag[tag]),
		})
	}
	out, err := s.execute("tags.html", cloud)
	if err != nil {
		return err
	}
	_, err = s.writer.Write(cloudPath, out)
	return err
}

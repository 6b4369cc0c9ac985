package site

import (
	"encoding/json"
	"encoding/xml"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/post"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Generator     string    `xml:"generator"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Author      string   `xml:"dc:creator,omitempty"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// Feed builds the RSS 2.0 document for the newest posts.
func (s *Site) Feed(posts []*post.Post) ([]byte, error) {
	limit := s.cfg.FeedItems
	if limit <= 0 {
		limit = 20
	}
	visible := Visible(posts)
	if len(visible) > limit {
		visible = visible[:limit]
	}

	lastBuild := s.now()
	if len(visible) > 0 {
		lastBuild = visible[0].UpdatedAt
		for _, p := range visible {
			if p.UpdatedAt.After(lastBuild) {
				lastBuild = p.UpdatedAt
			}
		}
	}

	doc := rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		DC:      "http://purl.org/dc/elements/1.1/",
		Channel: rssChannel{
			Title:         s.cfg.Title,
			Link:          s.baseURL,
			Description:   s.cfg.Description,
			Language:      s.cfg.Language,
			LastBuildDate: lastBuild.UTC().Format(time.RFC1123Z),
			Generator:     "bloghub",
			AtomLink:      atomLink{Href: s.baseURL + "feed.xml", Rel: "self", Type: "application/rss+xml"},
		},
	}
	for _, p := range visible {
		guid := rssGUID{Value: s.PostURL(p), IsPermaLink: true}
		if p.UID != "" {
			guid = rssGUID{Value: "urn:uuid:" + p.UID}
		}
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       p.Title,
			Link:        s.PostURL(p),
			GUID:        guid,
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			Author:      p.Author,
			Description: p.Excerpt,
			Categories:  p.Tags,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func (s *Site) writeFeed(posts []*post.Post) error {
	out, err := s.Feed(posts)
	if err != nil {
		return err
	}
	_, err = s.writer.Write("feed.xml", out)
	return err
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap builds sitemap.xml covering the index and every post.
func (s *Site) Sitemap(posts []*post.Post) ([]byte, error) {
	visible := Visible(posts)
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{Loc: s.baseURL})
	for _, p := range visible {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     s.PostURL(p),
			LastMod: p.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func (s *Site) writeSitemap(posts []*post.Post) error {
	out, err := s.Sitemap(posts)
	if err != nil {
		return err
	}
	_, err = s.writer.Write("sitemap.xml", out)
	return err
}

// SearchEntry is one record of search.json.
type SearchEntry struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Date    string   `json:"date"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

// SearchIndex returns the client-side search records, newest first. URLs
// are relative to the site root.
func (s *Site) SearchIndex(posts []*post.Post) []SearchEntry {
	visible := Visible(posts)
	entries := make([]SearchEntry, 0, len(visible))
	for _, p := range visible {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		entries = append(entries, SearchEntry{
			Title:   p.Title,
			URL:     s.PostPath(p),
			Date:    p.CreatedAt.UTC().Format("2006-01-02"),
			Excerpt: p.Excerpt,
			Tags:    tags,
		})
	}
	return entries
}

func (s *Site) writeSearchIndex(posts []*post.Post) error {
	out, err := json.MarshalIndent(s.SearchIndex(posts), "", "  ")
	if err != nil {
		return err
	}
	_, err = s.writer.Write("search.json", append(out, '\n'))
	return err
}

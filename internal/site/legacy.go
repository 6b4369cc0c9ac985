package site

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/bloghub/internal/logfields"
)

var issueLinkPattern = regexp.MustCompile(`/issues/(\d+)`)

// LegacyPost is a post page that was generated before the post database
// existed, recovered from its HTML.
type LegacyPost struct {
	FileName string
	Slug     string
	Title    string
	Author   string
	Date     time.Time
	Number   int
	IssueURL string
	HTML     string
	Text     string // article text without markup
}

// ScanLegacy reads every *.html page in dir. Pages without an <h1> are
// skipped. A missing directory yields no posts.
func ScanLegacy(dir string) ([]LegacyPost, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read legacy posts dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var posts []LegacyPost
	for _, name := range names {
		p := filepath.Join(dir, name)
		// #nosec G304 -- p is a directory entry of the scanned posts dir
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read legacy post %s: %w", p, err)
		}
		lp, ok, err := ParseLegacyPage(name, bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse legacy post %s: %w", p, err)
		}
		if !ok {
			slog.Debug("Skipping page without title", logfields.Path(p))
			continue
		}
		posts = append(posts, lp)
	}
	return posts, nil
}

// ParseLegacyPage extracts title, author, date, issue link and article
// content from one page. ok is false when the page has no <h1>.
func ParseLegacyPage(fileName string, r io.Reader) (LegacyPost, bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return LegacyPost{}, false, err
	}

	lp := LegacyPost{FileName: fileName}
	var fileDate time.Time
	lp.Slug, fileDate = splitPageName(fileName)

	var dateText string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "h1" && lp.Title == "":
				lp.Title = extractText(n)
			case n.Data == "span" && hasClass(n, "author") && lp.Author == "":
				lp.Author = strings.TrimSpace(strings.TrimPrefix(extractText(n), "By "))
			case n.Data == "span" && hasClass(n, "date") && dateText == "":
				dateText = extractText(n)
			case n.Data == "a" && lp.IssueURL == "":
				if m := issueLinkPattern.FindStringSubmatch(getAttr(n, "href")); m != nil {
					lp.IssueURL = getAttr(n, "href")
					lp.Number, _ = strconv.Atoi(m[1])
				}
			case n.Data == "div" && (hasClass(n, "post-content") || hasClass(n, "article-content")) && lp.HTML == "":
				lp.HTML = innerHTML(n)
				lp.Text = extractText(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if lp.Title == "" {
		return LegacyPost{}, false, nil
	}
	if t, err := time.Parse(displayDateLayout, dateText); err == nil {
		lp.Date = t
	} else {
		lp.Date = fileDate
	}
	return lp, true, nil
}

const displayDateLayout = "January 2, 2006"

// splitPageName turns 2024-03-05-hello.html into ("hello", 2024-03-05).
func splitPageName(name string) (string, time.Time) {
	base := strings.TrimSuffix(name, ".html")
	if len(base) > 11 && base[10] == '-' {
		if t, err := time.Parse("2006-01-02", base[:10]); err == nil {
			return base[11:], t
		}
	}
	return base, time.Time{}
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return strings.TrimSpace(buf.String())
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.Join(strings.Fields(text.String()), " ")
}

// Package excerpt derives plain-text summaries from post markdown.
//
// The markdown is parsed with goldmark and only text content is kept, so
// excerpts never contain markup or code.
package excerpt

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultLength is the excerpt length used for index pages and feeds.
const DefaultLength = 200

const ellipsis = "..."

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PlainText returns the readable text of body with block boundaries
// collapsed to single spaces. Fenced and indented code is dropped.
func PlainText(body string) string {
	src := []byte(body)
	root := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		switch node := n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock, *gmast.HTMLBlock, *gmast.RawHTML:
			return gmast.WalkSkipChildren, nil
		case *gmast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *gmast.String:
			if entering {
				b.Write(node.Value)
			}
		case *gmast.CodeSpan:
			if entering {
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					if t, ok := c.(*gmast.Text); ok {
						b.Write(t.Segment.Value(src))
					}
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *extast.TableCell:
			if !entering {
				b.WriteByte(' ')
			}
		default:
			if !entering && n.Type() == gmast.TypeBlock {
				b.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Excerpt returns at most maxRunes runes of body's plain text, cut at a
// word boundary and suffixed with "..." when shortened.
func Excerpt(body string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultLength
	}
	return Truncate(PlainText(body), maxRunes)
}

// Truncate shortens s to at most maxRunes runes including the ellipsis.
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	limit := maxRunes - len(ellipsis)
	if limit <= 0 {
		return ellipsis[:maxRunes]
	}
	runes := []rune(s)[:limit]
	cut := len(runes)
	for i := len(runes) - 1; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + ellipsis
}

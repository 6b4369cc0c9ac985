// Package markdown converts issue-body markdown into an HTML fragment.
//
// Rendering runs in three stages: fenced code blocks are extracted first,
// the remaining text is split into blank-line separated blocks which are
// classified and rendered, and every text run inside a block goes through
// the inline processor. Code content is moved into a side table and
// replaced by a placeholder token so later stages cannot reinterpret it.
// Tokens are restored by index once all blocks have been rendered.
//
// Render never fails. Malformed markup degrades to literal, escaped text.
package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	tokenOpen  = '\uE000'
	tokenClose = '\uE001'
)

var (
	tokenPattern     = regexp.MustCompile("\uE000([0-9]+)\uE001")
	loneTokenPattern = regexp.MustCompile("^\uE000[0-9]+\uE001$")

	inputSanitizer = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		string(tokenOpen), "\uFFFD",
		string(tokenClose), "\uFFFD",
	)
)

// Render converts markdown into an HTML fragment. It is safe for
// concurrent use; no state survives between calls.
func Render(src string) string {
	r := &renderer{}
	text := r.extractCodeBlocks(inputSanitizer.Replace(src))

	units := segment(text)
	out := make([]string, 0, len(units))
	for _, unit := range units {
		out = append(out, r.renderBlock(classify(unit)))
	}
	return r.restore(strings.Join(out, "\n\n"))
}

// protected is one side-table entry: finished HTML plus a plain-text
// rendition used where markup is not allowed (attribute values).
type protected struct {
	html  string
	plain string
}

type renderer struct {
	table []protected
}

// protect stores finished HTML and returns the token standing in for it.
// Entries only reference tokens created before them.
func (r *renderer) protect(html, plain string) string {
	r.table = append(r.table, protected{html: html, plain: plain})
	return string(tokenOpen) + strconv.Itoa(len(r.table)-1) + string(tokenClose)
}

func (r *renderer) restore(s string) string {
	return r.expand(s, func(p protected) string { return p.html })
}

// plain resolves tokens to their plain text, for alt and href values.
func (r *renderer) plain(s string) string {
	return r.expand(s, func(p protected) string { return p.plain })
}

func (r *renderer) expand(s string, pick func(protected) string) string {
	if !strings.ContainsRune(s, tokenOpen) {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		idx, err := strconv.Atoi(tok[len(string(tokenOpen)) : len(tok)-len(string(tokenClose))])
		if err != nil || idx < 0 || idx >= len(r.table) {
			return tok
		}
		return r.expand(pick(r.table[idx]), pick)
	})
}

func isLoneToken(s string) bool {
	return loneTokenPattern.MatchString(s)
}

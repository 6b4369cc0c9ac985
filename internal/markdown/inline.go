package markdown

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	imagePattern = regexp.MustCompile(`!\[([^\[\]]*)\]\(\s*([^\s()]+)(?:\s+"([^"]*)")?\s*\)`)
	linkPattern  = regexp.MustCompile(`\[([^\[\]]+)\]\(\s*([^\s()]+)(?:\s+"([^"]*)")?\s*\)`)
)

// emphasis passes in the order they are tried. Double markers run before
// single markers of the same character so "**x**" is never read as two
// italic spans.
var emphasisPasses = []struct {
	delim string
	tag   string
}{
	{"**", "strong"},
	{"__", "strong"},
	{"*", "em"},
	{"_", "em"},
	{"~~", "del"},
}

// inline renders one text run. Code spans are protected first so nothing
// inside them is reinterpreted, then images, then links, then emphasis.
// Whatever text remains is escaped exactly once.
func (r *renderer) inline(s string) string {
	s = r.codeSpans(s)
	s = r.images(s)
	s = r.links(s)
	return r.emphasis(s)
}

// codeSpans pairs a run of n backticks with the next run of exactly n.
func (r *renderer) codeSpans(s string) string {
	if !strings.Contains(s, "`") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '`' {
			b.WriteByte(s[i])
			i++
			continue
		}
		n := countRepeat(s[i:], '`')
		end := closingBackticks(s, i+n, n)
		if end < 0 {
			b.WriteString(s[i : i+n])
			i += n
			continue
		}
		content := s[i+n : end]
		if len(content) > 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "" {
			content = content[1 : len(content)-1]
		}
		b.WriteString(r.protect("<code>"+escapeCode(content)+"</code>", content))
		i = end + n
	}
	return b.String()
}

func closingBackticks(s string, from, n int) int {
	for j := from; j < len(s); {
		if s[j] != '`' {
			j++
			continue
		}
		run := countRepeat(s[j:], '`')
		if run == n {
			return j
		}
		j += run
	}
	return -1
}

func (r *renderer) images(s string) string {
	if !strings.Contains(s, "![") {
		return s
	}
	return imagePattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := imagePattern.FindStringSubmatch(m)
		alt := r.plain(sub[1])
		html := `<img src="` + escapeAttr(r.plain(sub[2])) + `" alt="` + escapeAttrText(alt) + `"`
		if sub[3] != "" {
			html += ` title="` + escapeAttrText(sub[3]) + `"`
		}
		html += ">"
		return r.protect(html, alt)
	})
}

func (r *renderer) links(s string) string {
	if !strings.Contains(s, "](") {
		return s
	}
	return linkPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := linkPattern.FindStringSubmatch(m)
		html := `<a href="` + escapeAttr(r.plain(sub[2])) + `"`
		if sub[3] != "" {
			html += ` title="` + escapeAttrText(sub[3]) + `"`
		}
		html += ">" + r.emphasis(sub[1]) + "</a>"
		return r.protect(html, r.plain(sub[1]))
	})
}

// emphasis applies each delimiter pass, then escapes what is left. Span
// content is rendered recursively before it is protected, so nested spans
// come out properly nested.
func (r *renderer) emphasis(s string) string {
	for _, p := range emphasisPasses {
		s = r.delimited(s, p.delim, p.tag)
	}
	return escapeText(s)
}

func (r *renderer) delimited(s, delim, tag string) string {
	if !strings.Contains(s, delim) {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		if !strings.HasPrefix(s[i:], delim) || !canOpen(s, i, delim) {
			b.WriteByte(s[i])
			i++
			continue
		}
		start := i + len(delim)
		end := findCloser(s, start, delim)
		if end < 0 {
			// Later openers only see a subset of these closers.
			b.WriteString(s[i:])
			break
		}
		inner := s[start:end]
		b.WriteString(r.protect("<"+tag+">"+r.emphasis(inner)+"</"+tag+">", r.plain(inner)))
		i = end + len(delim)
	}
	return b.String()
}

func canOpen(s string, i int, delim string) bool {
	after := i + len(delim)
	if after >= len(s) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(s[after:])
	if unicode.IsSpace(next) {
		return false
	}
	prev, hasPrev := runeBefore(s, i)
	c := rune(delim[0])
	if len(delim) == 1 && (next == c || (hasPrev && prev == c)) {
		return false
	}
	if c == '_' && hasPrev && isWordRune(prev) {
		return false
	}
	return true
}

// findCloser returns the start of the first delimiter after from that can
// close a span with non-empty content. When a double delimiter closes on a
// longer run, the last two characters of the run close it, so "***x***"
// nests an italic span inside a bold one.
func findCloser(s string, from int, delim string) int {
	c := delim[0]
	for j := from + 1; j < len(s); {
		if !strings.HasPrefix(s[j:], delim) {
			j++
			continue
		}
		run := countRepeat(s[j:], c)
		if len(delim) == 1 && run > 1 {
			j += run
			continue
		}
		end := j + run - len(delim)
		if canClose(s, end, delim) {
			return end
		}
		j += run
	}
	return -1
}

func canClose(s string, j int, delim string) bool {
	prev, hasPrev := runeBefore(s, j)
	if !hasPrev || unicode.IsSpace(prev) {
		return false
	}
	after := j + len(delim)
	if delim[0] == '_' && after < len(s) {
		next, _ := utf8.DecodeRuneInString(s[after:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func runeBefore(s string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

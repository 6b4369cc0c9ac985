package markdown

import (
	"html"
	"regexp"
	"strings"
)

var (
	codeEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	entityPattern = regexp.MustCompile(`^&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)
)

// escapeCode escapes every HTML-significant character. Used for code, where
// the author's text must come out exactly as typed.
func escapeCode(s string) string {
	return codeEscaper.Replace(s)
}

// escapeAttr makes a URL safe inside a double-quoted attribute. The URL is
// otherwise left as written.
func escapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}

// escapeText escapes prose. An ampersand that already starts a character
// reference is kept, so "&amp;" stays "&amp;". Newlines become <br>.
func escapeText(s string) string {
	return escapeKeepingEntities(s, true)
}

// escapeAttrText escapes author text placed in an attribute, such as alt and
// title. Character references are kept as in prose.
func escapeAttrText(s string) string {
	return escapeKeepingEntities(s, false)
}

func escapeKeepingEntities(s string, breaks bool) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if isEntity(s[i:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		case '\n':
			if breaks {
				b.WriteString("<br>\n")
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isEntity(s string) bool {
	m := entityPattern.FindString(s)
	if m == "" {
		return false
	}
	if m[1] == '#' {
		return true
	}
	return html.UnescapeString(m) != m
}

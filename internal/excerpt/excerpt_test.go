package excerpt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"emphasis stripped", "Some **bold** and _italic_ text", "Some bold and italic text"},
		{"header and paragraph", "# Title\n\nBody here.", "Title Body here."},
		{"link text kept", "See [the docs](https://x.test) now", "See the docs now"},
		{"code block dropped", "Before\n\n```go\nfunc main() {}\n```\n\nAfter", "Before After"},
		{"code span kept", "Run `make test` first", "Run make test first"},
		{"list items", "- one\n- two", "one two"},
		{"soft breaks", "line one\nline two", "line one line two"},
		{"autolink", "Visit <https://example.test>", "Visit https://example.test"},
		{"table cells", "a | b\n--|--\nc | d", "a b c d"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestExcerpt(t *testing.T) {
	short := "A short post."
	assert.Equal(t, short, Excerpt(short, 50))

	long := strings.Repeat("word ", 100)
	got := Excerpt(long, 40)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 40)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.False(t, strings.HasSuffix(got, " ..."))
	assert.Equal(t, "word word word word word word word...", got)
}

func TestTruncateMultibyte(t *testing.T) {
	got := Truncate("äöü äöü äöü äöü", 10)
	assert.Equal(t, "äöü äöü...", got)
	assert.Equal(t, "..", Truncate("abcdef", 2))
}

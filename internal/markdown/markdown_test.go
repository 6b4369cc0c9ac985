package markdown

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced code with language",
			in:   "```js\nconst x = 1 < 2;\n```",
			want: `<pre><code class="language-js">const x = 1 &lt; 2;</code></pre>`,
		},
		{
			name: "fenced code without language",
			in:   "```\n# not a header\n- not a list\n```",
			want: "<pre><code># not a header\n- not a list</code></pre>",
		},
		{
			name: "level six header",
			in:   "###### Deep",
			want: "<h6>Deep</h6>",
		},
		{
			name: "level one header",
			in:   "# Top",
			want: "<h1>Top</h1>",
		},
		{
			name: "seven hashes is a paragraph",
			in:   "####### Too deep",
			want: "<p>####### Too deep</p>",
		},
		{
			name: "hash without space is a paragraph",
			in:   "#hashtag",
			want: "<p>#hashtag</p>",
		},
		{
			name: "unordered list",
			in:   "- a\n- b",
			want: "<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
		},
		{
			name: "ordered list",
			in:   "1. a\n2. b",
			want: "<ol>\n<li>a</li>\n<li>b</li>\n</ol>",
		},
		{
			name: "ordered list keeps start number",
			in:   "3. c\n4. d",
			want: "<ol start=\"3\">\n<li>c</li>\n<li>d</li>\n</ol>",
		},
		{
			name: "table",
			in:   "Col1 | Col2\n---|---\nA | B",
			want: "<table>\n<thead>\n<tr><th>Col1</th><th>Col2</th></tr>\n</thead>\n<tbody>\n<tr><td>A</td><td>B</td></tr>\n</tbody>\n</table>",
		},
		{
			name: "horizontal rule",
			in:   "***",
			want: "<hr>",
		},
		{
			name: "blockquote",
			in:   "> first\n> second",
			want: "<blockquote><p>first<br>\nsecond</p></blockquote>",
		},
		{
			name: "paragraph line breaks",
			in:   "one\ntwo",
			want: "<p>one<br>\ntwo</p>",
		},
		{
			name: "nested emphasis",
			in:   "**_mixed_**",
			want: "<p><strong><em>mixed</em></strong></p>",
		},
		{
			name: "image is not a link",
			in:   "![alt](img.png)",
			want: `<p><img src="img.png" alt="alt"></p>`,
		},
		{
			name: "blocks joined in order",
			in:   "# Title\n\nBody text\n\n---",
			want: "<h1>Title</h1>\n\n<p>Body text</p>\n\n<hr>",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "blank lines only",
			in:   "\n  \n\t\n",
			want: "",
		},
		{
			name: "windows line endings",
			in:   "# T\r\n\r\nbody",
			want: "<h1>T</h1>\n\n<p>body</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRender_CodeBlockIsolation(t *testing.T) {
	in := "Intro\n```md\n**bold** | pipe\n---|---\n> quote\n```\nAfter"
	got := Render(in)

	assert.Contains(t, got, "<p>Intro</p>")
	assert.Contains(t, got, "<pre><code class=\"language-md\">**bold** | pipe\n---|---\n&gt; quote</code></pre>")
	assert.Contains(t, got, "<p>After</p>")
	assert.NotContains(t, got, "<strong>")
	assert.NotContains(t, got, "<table>")
	assert.NotContains(t, got, "<blockquote>")
}

func TestRender_UnterminatedFenceIsLiteral(t *testing.T) {
	got := Render("```go\nfmt.Println(1 < 2)")
	assert.Equal(t, "<p>```go<br>\nfmt.Println(1 &lt; 2)</p>", got)
}

func TestRender_FencesPairLeftToRight(t *testing.T) {
	got := Render("```\na\n```\n\ntext\n\n```\nb\n```")
	assert.Equal(t, "<pre><code>a</code></pre>\n\n<p>text</p>\n\n<pre><code>b</code></pre>", got)
}

func TestRender_EscapesOnce(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tom &amp; Jerry", "<p>Tom &amp; Jerry</p>"},
		{"Tom & Jerry", "<p>Tom &amp; Jerry</p>"},
		{"&copy; 2024 &#169; &#xA9;", "<p>&copy; 2024 &#169; &#xA9;</p>"},
		{"&bogus; <b>", "<p>&amp;bogus; &lt;b&gt;</p>"},
		{"say \"hi\" it's", "<p>say &quot;hi&quot; it&#39;s</p>"},
		{`![a &amp; b](i.png "x &amp; y")`, `<p><img src="i.png" alt="a &amp; b" title="x &amp; y"></p>`},
		{`[a &amp; b](u "x &amp; y & z")`, `<p><a href="u" title="x &amp; y &amp; z">a &amp; b</a></p>`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Render(tt.in), tt.in)
	}
}

func TestRender_PlaceholderCharactersCannotBeForged(t *testing.T) {
	got := Render("a \uE0000\uE001 b\n\n```\nsecret\n```")
	assert.Equal(t, 1, strings.Count(got, "secret"))
	assert.Contains(t, got, "a \uFFFD0\uFFFD b")
}

func TestRender_WellFormed(t *testing.T) {
	inputs := []string{
		"**_mixed_**",
		"***x***",
		"*a **b** c*",
		"**unclosed and *stray",
		"[link with **bold**](http://x.test) and ![img](a.png)",
		"[![badge](b.svg)](https://ci.test)",
		"- item *one*\n- item `two`\n1. mixed\nloose line",
		"| a | b |\n|:--|--:|\n| [x](y) | `|` |\n| **c** |",
		"# head *em*\ntrailing **text**",
		"> quote with ~~strike~~\nlazy line",
		"``` \nunterminated\n\n*half",
		"_a __b__ c_ and __d _e_ f__",
		"`code with ** and [x](y)`",
		"[unmatched ( bracket",
		"~~~ ~~ ~~~",
		"<script>alert(1)</script>",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assertBalanced(t, Render(in))
		})
	}
}

// assertBalanced walks the fragment with the html tokenizer and checks that
// every non-void element is closed in order.
func assertBalanced(t *testing.T, fragment string) {
	t.Helper()
	void := map[string]bool{"br": true, "hr": true, "img": true}
	var stack []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			require.ErrorIs(t, z.Err(), io.EOF)
			assert.Empty(t, stack, "unclosed tags in %q", fragment)
			return
		case html.StartTagToken:
			name, _ := z.TagName()
			if !void[string(name)] {
				stack = append(stack, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			require.NotEmpty(t, stack, "unexpected </%s> in %q", name, fragment)
			assert.Equal(t, stack[len(stack)-1], string(name), "misnested tags in %q", fragment)
			stack = stack[:len(stack)-1]
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			assert.True(t, void[string(name)], "unexpected self-closing %s", name)
		}
	}
}

func TestRender_UnclosedEmphasisIsLinear(t *testing.T) {
	inputs := map[string]string{
		"underscore": strings.Repeat("_a ", 21845),
		"star":       strings.Repeat("*a ", 21845),
		"strong":     strings.Repeat("**a ", 16384),
		"strike":     strings.Repeat("~~a ", 16384),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			got := Render(in)
			elapsed := time.Since(start)

			assert.NotContains(t, got, "<em>")
			assert.NotContains(t, got, "<strong>")
			assert.NotContains(t, got, "<del>")
			assert.Less(t, elapsed, time.Second, "render of %d bytes took %s", len(in), elapsed)
		})
	}
}

func TestRender_EmphasisAfterUnclosedOpener(t *testing.T) {
	assert.Equal(t, "<p>**open and <em>x</em></p>", Render("**open and *x*"))
	assert.Equal(t, "<p>__a <strong>b</strong> c</p>", Render("__a **b** c"))
}

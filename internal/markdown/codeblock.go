package markdown

import (
	"regexp"
	"strings"
)

const fence = "```"

var fenceOpenPattern = regexp.MustCompile("^```([A-Za-z0-9_+#.-]*)(?:\\s+.*)?$")

// extractCodeBlocks replaces every fenced region with a token for its
// finished <pre><code> fragment. Fences pair greedily from the top; an
// opening fence without a closing one is left as ordinary text.
func (r *renderer) extractCodeBlocks(src string) string {
	if !strings.Contains(src, fence) {
		return src
	}
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		m := fenceOpenPattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			out = append(out, lines[i])
			continue
		}
		end := closingFence(lines, i+1)
		if end < 0 {
			out = append(out, lines[i])
			continue
		}
		body := strings.Join(lines[i+1:end], "\n")
		tok := r.protect(codeBlockHTML(m[1], body), body)
		out = append(out, "", tok, "")
		i = end
	}
	return strings.Join(out, "\n")
}

func closingFence(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == fence {
			return j
		}
	}
	return -1
}

func codeBlockHTML(lang, body string) string {
	var b strings.Builder
	b.WriteString("<pre><code")
	if lang != "" {
		b.WriteString(` class="language-`)
		b.WriteString(escapeCode(lang))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(escapeCode(trimCodeBody(body)))
	b.WriteString("</code></pre>")
	return b.String()
}

// trimCodeBody drops blank lines around the code and trailing whitespace,
// keeping the indentation of the first code line.
func trimCodeBody(body string) string {
	lines := strings.Split(body, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n")
}

package markdown

import (
	"strings"
)

type alignment int

const (
	alignNone alignment = iota
	alignLeft
	alignCenter
	alignRight
)

func (a alignment) style() string {
	switch a {
	case alignLeft:
		return "left"
	case alignCenter:
		return "center"
	case alignRight:
		return "right"
	default:
		return ""
	}
}

type table struct {
	header []string
	align  []alignment
	rows   [][]string
}

// parseTable recognises a unit holding a pipe and a separator line below
// the first line. Line 0 is the header row; every other non-empty line
// except the separator is a body row.
func parseTable(lines []string) (*table, bool) {
	if len(lines) < 2 || !anyLine(lines, func(l string) bool { return strings.Contains(l, "|") }) {
		return nil, false
	}
	sep := -1
	for i := 1; i < len(lines); i++ {
		if looksLikeTableSeparator(lines[i]) {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, false
	}

	t := &table{
		header: splitTableRow(lines[0]),
		align:  parseTableAlignment(splitTableRow(lines[sep])),
	}
	if len(t.header) == 0 {
		return nil, false
	}
	for i := 1; i < len(lines); i++ {
		if i == sep || strings.TrimSpace(lines[i]) == "" {
			continue
		}
		t.rows = append(t.rows, normalizeRow(splitTableRow(lines[i]), len(t.header)))
	}
	return t, true
}

func looksLikeTableSeparator(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "-") {
		return false
	}
	return strings.IndexFunc(line, func(r rune) bool {
		return r != '-' && r != '|' && r != ':' && r != ' ' && r != '\t'
	}) == -1
}

func parseTableAlignment(parts []string) []alignment {
	align := make([]alignment, len(parts))
	for i, part := range parts {
		left := strings.HasPrefix(part, ":")
		right := strings.HasSuffix(part, ":")
		switch {
		case left && right:
			align[i] = alignCenter
		case right:
			align[i] = alignRight
		case left:
			align[i] = alignLeft
		}
	}
	return align
}

// splitTableRow splits on pipes that are neither escaped nor inside a code
// span, trims each cell and drops the empty cells produced by a leading or
// trailing pipe. "\|" yields a literal pipe.
func splitTableRow(line string) []string {
	var cells []string
	var buf strings.Builder
	inCode := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == '|':
			buf.WriteByte('|')
			i++
			continue
		case c == '`':
			n := countRepeat(line[i:], '`')
			switch {
			case inCode == 0:
				inCode = n
			case inCode == n:
				inCode = 0
			}
			buf.WriteString(line[i : i+n])
			i += n - 1
			continue
		case c == '|' && inCode == 0:
			cells = append(cells, strings.TrimSpace(buf.String()))
			buf.Reset()
			continue
		}
		buf.WriteByte(c)
	}
	cells = append(cells, strings.TrimSpace(buf.String()))

	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func countRepeat(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// normalizeRow pads short rows and cuts long ones to the header width.
func normalizeRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells[:width]
	}
	return append(cells, make([]string, width-len(cells))...)
}

func (r *renderer) renderTable(t *table) string {
	var b strings.Builder
	b.WriteString("<table>\n<thead>\n<tr>")
	for i, cell := range t.header {
		r.writeCell(&b, "th", cell, t.alignAt(i))
	}
	b.WriteString("</tr>\n</thead>")
	if len(t.rows) > 0 {
		b.WriteString("\n<tbody>\n")
		for _, row := range t.rows {
			b.WriteString("<tr>")
			for i, cell := range row {
				r.writeCell(&b, "td", cell, t.alignAt(i))
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</tbody>")
	}
	b.WriteString("\n</table>")
	return b.String()
}

func (t *table) alignAt(i int) alignment {
	if i < len(t.align) {
		return t.align[i]
	}
	return alignNone
}

func (r *renderer) writeCell(b *strings.Builder, tag, cell string, a alignment) {
	b.WriteString("<" + tag)
	if s := a.style(); s != "" {
		b.WriteString(` style="text-align: ` + s + `"`)
	}
	b.WriteString(">")
	b.WriteString(r.inline(cell))
	b.WriteString("</" + tag + ">")
}

package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// blockKind tags a classified block. The order of the tests in classify,
// not the order of these constants, decides which kind wins.
type blockKind int

const (
	kindParagraph blockKind = iota
	kindCode
	kindHeader
	kindBlockquote
	kindTable
	kindHorizontalRule
	kindUnorderedList
	kindOrderedList
)

func (k blockKind) String() string {
	switch k {
	case kindCode:
		return "code"
	case kindHeader:
		return "header"
	case kindBlockquote:
		return "blockquote"
	case kindTable:
		return "table"
	case kindHorizontalRule:
		return "hr"
	case kindUnorderedList:
		return "ul"
	case kindOrderedList:
		return "ol"
	default:
		return "paragraph"
	}
}

// block is one classified unit and its kind-specific payload.
type block struct {
	kind blockKind
	raw  string

	// header level (1..6)
	level int
	// header text, blockquote text, paragraph text, or the code token
	text string
	// lines following a header line
	rest string

	// list payload
	lead  []string
	items []listItem
	start int

	table *table
}

type listItem struct {
	text         string
	continuation []string
}

var (
	unorderedItemPattern = regexp.MustCompile(`^[-*+] (.*)$`)
	orderedItemPattern   = regexp.MustCompile(`^([0-9]+)\. (.*)$`)
	rulePattern          = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
)

// segment splits text into units separated by one or more blank lines.
// A line holding only whitespace counts as blank.
func segment(text string) []string {
	var units []string
	var cur []string
	flush := func() {
		if unit := strings.TrimSpace(strings.Join(cur, "\n")); unit != "" {
			units = append(units, unit)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return units
}

// classify assigns exactly one kind to a unit. First match wins:
// code, header, blockquote, table, rule, unordered list, ordered list,
// paragraph.
func classify(unit string) block {
	lines := strings.Split(unit, "\n")

	if isLoneToken(unit) {
		return block{kind: kindCode, raw: unit, text: unit}
	}
	if level, text, ok := headerLine(lines[0]); ok {
		return block{
			kind:  kindHeader,
			raw:   unit,
			level: level,
			text:  text,
			rest:  strings.TrimSpace(strings.Join(lines[1:], "\n")),
		}
	}
	if anyLine(lines, func(l string) bool { return strings.HasPrefix(l, ">") }) {
		return block{kind: kindBlockquote, raw: unit, text: blockquoteText(lines)}
	}
	if t, ok := parseTable(lines); ok {
		return block{kind: kindTable, raw: unit, table: t}
	}
	if rulePattern.MatchString(unit) {
		return block{kind: kindHorizontalRule, raw: unit}
	}
	if anyLine(lines, isUnorderedItem) {
		b := block{kind: kindUnorderedList, raw: unit}
		b.lead, b.items = collectItems(lines, unorderedItemText)
		return b
	}
	if anyLine(lines, isOrderedItem) {
		b := block{kind: kindOrderedList, raw: unit}
		b.lead, b.items = collectItems(lines, orderedItemText)
		if m := orderedItemPattern.FindStringSubmatch(firstItemLine(lines)); m != nil {
			b.start, _ = strconv.Atoi(m[1])
		}
		return b
	}
	return block{kind: kindParagraph, raw: unit, text: unit}
}

// headerLine tests the deepest level first so that "###### x" is a level 6
// header and never a level 1 header whose text starts with "#####".
func headerLine(line string) (int, string, bool) {
	for level := 6; level >= 1; level-- {
		prefix := strings.Repeat("#", level) + " "
		if strings.HasPrefix(line, prefix) {
			return level, strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return 0, "", false
}

func blockquoteText(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if rest, ok := strings.CutPrefix(l, ">"); ok {
			l = strings.TrimPrefix(rest, " ")
		}
		out[i] = l
	}
	return strings.Join(out, "\n")
}

func anyLine(lines []string, pred func(string) bool) bool {
	for _, l := range lines {
		if pred(l) {
			return true
		}
	}
	return false
}

func isUnorderedItem(line string) bool {
	return unorderedItemPattern.MatchString(strings.TrimLeft(line, " \t"))
}

func isOrderedItem(line string) bool {
	return orderedItemPattern.MatchString(strings.TrimLeft(line, " \t"))
}

func unorderedItemText(line string) (string, bool) {
	m := unorderedItemPattern.FindStringSubmatch(strings.TrimLeft(line, " \t"))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func orderedItemText(line string) (string, bool) {
	m := orderedItemPattern.FindStringSubmatch(strings.TrimLeft(line, " \t"))
	if m == nil {
		return "", false
	}
	return m[2], true
}

func firstItemLine(lines []string) string {
	for _, l := range lines {
		if isOrderedItem(l) {
			return strings.TrimLeft(l, " \t")
		}
	}
	return ""
}

// collectItems turns marker lines into items. Other lines attach to the
// item before them, or to the lead paragraph when no item has started.
func collectItems(lines []string, itemText func(string) (string, bool)) ([]string, []listItem) {
	var lead []string
	var items []listItem
	for _, l := range lines {
		if text, ok := itemText(l); ok {
			items = append(items, listItem{text: text})
			continue
		}
		l = strings.TrimSpace(l)
		if len(items) == 0 {
			lead = append(lead, l)
			continue
		}
		last := &items[len(items)-1]
		last.continuation = append(last.continuation, l)
	}
	return lead, items
}

func (r *renderer) renderBlock(b block) string {
	switch b.kind {
	case kindCode:
		return b.text
	case kindHeader:
		tag := "h" + strconv.Itoa(b.level)
		out := "<" + tag + ">" + r.inline(b.text) + "</" + tag + ">"
		if b.rest != "" {
			out += "\n<p>" + r.inline(b.rest) + "</p>"
		}
		return out
	case kindBlockquote:
		return "<blockquote><p>" + r.inline(b.text) + "</p></blockquote>"
	case kindTable:
		return r.renderTable(b.table)
	case kindHorizontalRule:
		return "<hr>"
	case kindUnorderedList:
		return r.renderList("ul", b)
	case kindOrderedList:
		return r.renderList("ol", b)
	default:
		return "<p>" + r.inline(b.text) + "</p>"
	}
}

func (r *renderer) renderList(tag string, b block) string {
	var sb strings.Builder
	if len(b.lead) > 0 {
		sb.WriteString("<p>")
		sb.WriteString(r.inline(strings.Join(b.lead, "\n")))
		sb.WriteString("</p>\n")
	}
	sb.WriteString("<" + tag)
	if tag == "ol" && b.start != 1 {
		sb.WriteString(` start="` + strconv.Itoa(b.start) + `"`)
	}
	sb.WriteString(">\n")
	for _, item := range b.items {
		sb.WriteString("<li>")
		sb.WriteString(r.inline(item.text))
		for _, c := range item.continuation {
			sb.WriteString("<br>\n")
			sb.WriteString(escapeText(c))
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

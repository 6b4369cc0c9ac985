// Package frontmatter reads the optional YAML block at the top of an issue
// body. Authors use it to override the title, slug, tags or date of a post.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrMissingClosingDelimiter indicates the body started with a frontmatter
// delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is an issue body split into frontmatter and markdown.
type Document struct {
	Had    bool
	Raw    string
	Fields map[string]any
	Body   string
}

// Split separates YAML frontmatter from the markdown body. Line endings are
// normalised to \n. A body without a leading delimiter is returned whole.
func Split(content string) (Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, delimiter+"\n") {
		return Document{Body: content, Fields: map[string]any{}}, nil
	}

	rest := trimmed[len(delimiter)+1:]
	var raw, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n"):
		body = rest[len(delimiter)+1:]
	case rest == delimiter:
		body = ""
	default:
		idx := strings.Index(rest, "\n"+delimiter+"\n")
		switch {
		case idx >= 0:
			raw, body = rest[:idx+1], rest[idx+len(delimiter)+2:]
		case strings.HasSuffix(rest, "\n"+delimiter):
			raw, body = rest[:len(rest)-len(delimiter)], ""
		default:
			return Document{}, ErrMissingClosingDelimiter
		}
	}

	fields, err := ParseYAML(raw)
	if err != nil {
		return Document{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	return Document{Had: true, Raw: raw, Fields: fields, Body: body}, nil
}

// ParseYAML parses raw YAML frontmatter (without delimiters) into a map.
func ParseYAML(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return fields, nil
	}
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Meta holds the frontmatter keys bloghub understands.
type Meta struct {
	Title   string    `yaml:"title"`
	Slug    string    `yaml:"slug"`
	Tags    TagList   `yaml:"tags"`
	Date    time.Time `yaml:"date"`
	Draft   bool      `yaml:"draft"`
	Excerpt string    `yaml:"excerpt"`
}

// Meta decodes the known keys. Unknown keys are ignored.
func (d Document) Meta() (Meta, error) {
	var m Meta
	if strings.TrimSpace(d.Raw) == "" {
		return m, nil
	}
	if err := yaml.Unmarshal([]byte(d.Raw), &m); err != nil {
		return m, fmt.Errorf("decode frontmatter: %w", err)
	}
	return m, nil
}

// TagList accepts either a YAML sequence or a comma separated string.
type TagList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TagList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var out []string
		for _, tag := range strings.Split(value.Value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
		*t = out
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

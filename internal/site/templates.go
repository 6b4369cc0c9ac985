package site

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bloghub/internal/logfields"
)

//go:embed assets/templates/*.html
var embeddedTemplates embed.FS

//go:embed assets/styles.css
var stylesheet []byte

// Page templates that may be overridden from site.templates_dir.
var pageTemplates = []string{"post.html", "index.html", "tag.html", "tags.html", "layout.html"}

// loadTemplates parses the embedded defaults, then replaces any template
// for which overrideDir holds a file of the same name.
func loadTemplates(overrideDir string) (*template.Template, error) {
	t, err := template.ParseFS(embeddedTemplates, "assets/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded templates: %w", err)
	}
	if overrideDir == "" {
		return t, nil
	}
	for _, name := range pageTemplates {
		p := filepath.Join(overrideDir, name)
		// #nosec G304 -- p is a fixed template name under the configured directory
		raw, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read template override %s: %w", p, err)
		}
		if _, err := t.New(name).Parse(string(raw)); err != nil {
			return nil, fmt.Errorf("parse template override %s: %w", p, err)
		}
		slog.Debug("Loaded page template override", slog.String("template", name), logfields.Path(p))
	}
	return t, nil
}

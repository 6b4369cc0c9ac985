// Package preview renders a local markdown file the way it would appear as
// a post and re-renders it whenever the file changes.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/post"
	"git.home.luguber.info/inful/bloghub/internal/site"
)

const defaultDebounce = 200 * time.Millisecond

// Previewer turns one markdown file into one HTML page.
type Previewer struct {
	source   string
	output   string
	site     *site.Site
	label    string
	debounce time.Duration

	// rendered is called after every successful render.
	rendered func(path string)
}

// New previews source into output. An empty output writes next to the
// source with an .html extension.
func New(source, output string, s *site.Site, approvedLabel string) (*Previewer, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", source, err)
	}
	if output == "" {
		output = strings.TrimSuffix(abs, filepath.Ext(abs)) + ".html"
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", output, err)
	}
	if out == abs {
		return nil, fmt.Errorf("preview output would overwrite %s", abs)
	}
	return &Previewer{
		source:   abs,
		output:   out,
		site:     s,
		label:    approvedLabel,
		debounce: defaultDebounce,
	}, nil
}

// Output is the path of the generated page.
func (p *Previewer) Output() string { return p.output }

// Render reads the source once and writes the page.
func (p *Previewer) Render() error {
	info, err := os.Stat(p.source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", p.source, err)
	}
	// #nosec G304 -- previewing a user-named file is the purpose
	raw, err := os.ReadFile(p.source)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.source, err)
	}

	issue := &forge.Issue{
		Title:     titleFromFile(p.source),
		Body:      string(raw),
		State:     "closed",
		HTMLURL:   "file://" + filepath.ToSlash(p.source),
		User:      forge.User{Login: currentUser()},
		CreatedAt: info.ModTime().UTC(),
		UpdatedAt: info.ModTime().UTC(),
	}
	pst, err := post.FromIssue(issue, p.label)
	if err != nil {
		return err
	}
	page, err := p.site.RenderPost(pst)
	if err != nil {
		return err
	}
	if _, err := site.NewWriter(filepath.Dir(p.output)).Write(filepath.Base(p.output), page); err != nil {
		return err
	}
	slog.Info("Preview rendered", logfields.Path(p.output))
	if p.rendered != nil {
		p.rendered(p.output)
	}
	return nil
}

// Watch renders once and then again after every change to the source,
// until ctx is canceled. Render errors are logged and watching continues.
func (p *Previewer) Watch(ctx context.Context) error {
	if err := p.Render(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(p.source)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.source), err)
	}
	slog.Info("Watching for changes", logfields.Path(p.source))

	renderReq, trigger, stop := debouncer(p.debounce)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if p.relevant(ev) {
				slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-renderReq:
			if err := p.Render(); err != nil {
				slog.Warn("Preview render failed", logfields.Error(err))
			}
		}
	}
}

func (p *Previewer) relevant(ev fsnotify.Event) bool {
	if shouldIgnoreEvent(ev.Name) || filepath.Clean(ev.Name) != p.source {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// debouncer coalesces bursts of triggers into one request on the returned
// channel.
func debouncer(delay time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return req, trigger, stop
}

// shouldIgnoreEvent filters editor swap, backup and hidden files.
func shouldIgnoreEvent(name string) bool {
	base := filepath.Base(name)
	switch {
	case strings.HasPrefix(base, "."),
		strings.HasPrefix(base, "#"),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	}
	return false
}

// titleFromFile turns my-first_post.md into "my first post".
func titleFromFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}

func currentUser() string {
	for _, key := range []string{"GITHUB_ACTOR", "USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "preview"
}

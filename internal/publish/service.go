// Package publish turns approved issues into pages. It owns the order of
// operations: render, store, write the page, refresh the listings, notify,
// and commit.
package publish

import (
	"context"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/gitpub"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/notify"
	"git.home.luguber.info/inful/bloghub/internal/observability"
	"git.home.luguber.info/inful/bloghub/internal/post"
	"git.home.luguber.info/inful/bloghub/internal/site"
	"git.home.luguber.info/inful/bloghub/internal/store"
)

// Result describes what happened to one issue.
type Result struct {
	Number  int
	Slug    string
	URL     string
	Path    string
	Outcome metrics.OutcomeLabel
}

// Service publishes, unpublishes and rebuilds posts.
type Service struct {
	github    config.GitHubConfig
	forge     forge.Client
	store     store.Store
	site      *site.Site
	notifier  notify.Notifier
	committer gitpub.Committer
	recorder  metrics.Recorder
	now       func() time.Time
}

// NewService wires the required collaborators. Notifications, commits and
// metrics are off until set with the With* methods.
func NewService(cfg *config.Config, client forge.Client, st store.Store, s *site.Site) *Service {
	return &Service{
		github:   cfg.GitHub,
		forge:    client,
		store:    st,
		site:     s,
		notifier: notify.Noop{},
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
}

// WithNotifier sets where publication events go.
func (s *Service) WithNotifier(n notify.Notifier) *Service {
	if n != nil {
		s.notifier = n
	}
	return s
}

// WithCommitter enables committing the output directory after each change.
func (s *Service) WithCommitter(c gitpub.Committer) *Service {
	s.committer = c
	return s
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// runContext tags ctx with a run id unless the caller already did.
func (s *Service) runContext(ctx context.Context, kind string) context.Context {
	if observability.GetContext(ctx).RunID != "" {
		return ctx
	}
	return observability.WithRunID(ctx, kind+"-"+s.now().UTC().Format("20060102-150405"))
}

// stage runs fn as a named stage, recording its duration and result.
func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(observability.WithStage(ctx, name))
	s.recorder.ObserveStageDuration(name, time.Since(start))
	switch {
	case err == nil:
		s.recorder.IncStageResult(name, metrics.ResultSuccess)
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		s.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		s.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

// refreshListings rewrites index, tag, feed, sitemap and search pages from
// the store.
func (s *Service) refreshListings(ctx context.Context) error {
	return s.stage(ctx, "listings", func(ctx context.Context) error {
		posts, err := s.store.List(ctx)
		if err != nil {
			return err
		}
		if err := s.site.WriteListings(ctx, posts); err != nil {
			return err
		}
		s.recorder.SetPostsTotal(len(site.Visible(posts)))
		return nil
	})
}

// commit records the output directory in git when a committer is set.
func (s *Service) commit(ctx context.Context, message string) error {
	if s.committer == nil {
		return nil
	}
	return s.stage(ctx, "git", func(ctx context.Context) error {
		_, err := s.committer.CommitAndPush(ctx, message)
		return err
	})
}

// announce sends ev. Delivery failures are logged, never returned.
func (s *Service) announce(ctx context.Context, typ notify.EventType, p *post.Post) {
	_ = s.stage(ctx, "notify", func(ctx context.Context) error {
		err := s.notifier.Notify(ctx, notify.Event{
			Type:        typ,
			Number:      p.Number,
			UID:         p.UID,
			Slug:        p.Slug,
			Title:       p.Title,
			URL:         s.site.PostURL(p),
			Tags:        p.Tags,
			Fingerprint: p.Fingerprint,
		})
		if err != nil {
			observability.WarnContext(ctx, "Failed to send publication event", logfields.Error(err))
		}
		return err
	})
}

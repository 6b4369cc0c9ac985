package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/excerpt"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/notify"
	"git.home.luguber.info/inful/bloghub/internal/observability"
	"git.home.luguber.info/inful/bloghub/internal/post"
	"git.home.luguber.info/inful/bloghub/internal/site"
	"git.home.luguber.info/inful/bloghub/internal/store"
)

// SyncReport summarizes one Sync run.
type SyncReport struct {
	Issues    int
	Published int
	Updated   int
	Skipped   int
	Failed    int
	Errors    []error
	Duration  time.Duration
}

// Changed reports whether any page was written.
func (r *SyncReport) Changed() bool {
	return r.Published+r.Updated > 0
}

// Sync publishes every closed issue that carries the approval label. A
// failing issue is logged and counted; the others still go out. Listings
// are refreshed and committed once at the end.
func (s *Service) Sync(ctx context.Context) (*SyncReport, error) {
	ctx = s.runContext(ctx, "sync")
	start := time.Now()
	report := &SyncReport{}
	defer func() {
		report.Duration = time.Since(start)
		s.recorder.ObserveSyncDuration(report.Duration)
	}()

	issues, err := s.forge.ListApprovedIssues(ctx, s.github.ApprovedLabel)
	if err != nil {
		return report, err
	}
	report.Issues = len(issues)
	observability.InfoContext(ctx, "Syncing approved issues", logfields.Count(len(issues)))

	var changed []*post.Post
	var outcomes []metrics.OutcomeLabel
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ictx := observability.WithIssue(ctx, issue.Number)
		res, p, err := s.publishOne(ictx, issue)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err)
			s.recorder.IncPublishOutcome(metrics.OutcomeFailed)
			observability.ErrorContext(ictx, "Failed to publish issue", logfields.Error(err))
			continue
		}
		s.recorder.IncPublishOutcome(res.Outcome)
		switch res.Outcome {
		case metrics.OutcomePublished:
			report.Published++
		case metrics.OutcomeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
		if p != nil {
			changed = append(changed, p)
			outcomes = append(outcomes, res.Outcome)
		}
	}

	if len(changed) == 0 {
		observability.InfoContext(ctx, "Sync finished without changes", logfields.Count(report.Skipped))
		return report, nil
	}

	if err := s.refreshListings(ctx); err != nil {
		return report, errors.PublishError("failed to refresh listings").WithCause(err).Build()
	}
	for i, p := range changed {
		if p.Draft {
			continue
		}
		typ := notify.EventPublished
		if outcomes[i] == metrics.OutcomeUpdated {
			typ = notify.EventUpdated
		}
		s.announce(observability.WithIssue(ctx, p.Number), typ, p)
	}

	observability.InfoContext(ctx, "Sync finished",
		slog.Int("published", report.Published),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		logfields.Since(start))

	msg := fmt.Sprintf("Sync: %d published, %d updated", report.Published, report.Updated)
	if err := s.commit(ctx, msg); err != nil {
		return report, err
	}
	return report, nil
}

// Rebuild regenerates every page from the store.
func (s *Service) Rebuild(ctx context.Context) error {
	ctx = s.runContext(ctx, "rebuild")
	start := time.Now()

	var posts []*post.Post
	err := s.stage(ctx, "rebuild", func(ctx context.Context) error {
		var err error
		if posts, err = s.store.List(ctx); err != nil {
			return err
		}
		return s.site.Rebuild(ctx, posts)
	})
	if err != nil {
		return errors.PublishError("failed to rebuild site").WithCause(err).Build()
	}
	s.recorder.SetPostsTotal(len(site.Visible(posts)))
	observability.InfoContext(ctx, "Site rebuilt", logfields.Count(len(posts)), logfields.Since(start))

	return s.commit(ctx, "Rebuild site")
}

// ImportLegacy seeds the store from post pages that were generated before
// the database existed. dir defaults to the posts directory of the site.
// Pages without an issue link and issues already in the store are skipped.
func (s *Service) ImportLegacy(ctx context.Context, dir string) (int, error) {
	ctx = s.runContext(ctx, "import")
	if dir == "" {
		dir = s.site.PostsDir()
	}

	legacy, err := site.ScanLegacy(dir)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan legacy posts").
			WithContext("path", dir).
			Build()
	}

	imported := 0
	for _, lp := range legacy {
		if lp.Number == 0 {
			observability.WarnContext(ctx, "Skipping legacy page without issue link", logfields.Path(lp.FileName))
			continue
		}
		if _, err := s.store.Get(ctx, lp.Number); err == nil {
			observability.DebugContext(ctx, "Legacy post already stored", logfields.Issue(lp.Number))
			continue
		}
		p := &post.Post{
			Number:    lp.Number,
			Title:     lp.Title,
			Slug:      lp.Slug,
			Author:    lp.Author,
			HTML:      lp.HTML,
			Excerpt:   excerpt.Truncate(lp.Text, excerpt.DefaultLength),
			CreatedAt: lp.Date,
			UpdatedAt: lp.Date,
			IssueURL:  lp.IssueURL,
		}
		if p.Slug == "" {
			p.Slug = post.Slugify(p.Title)
		}
		p.EnsureUID("")
		if err := s.store.Upsert(ctx, p); err != nil {
			return imported, errors.WrapError(err, errors.CategoryStore, "failed to store legacy post").
				WithContext("issue", lp.Number).
				Build()
		}
		if err := s.store.Record(ctx, p.Number, store.ActionImported, ""); err != nil {
			return imported, errors.WrapError(err, errors.CategoryStore, "failed to record import").Build()
		}
		imported++
	}
	observability.InfoContext(ctx, "Imported legacy posts", logfields.Count(imported), logfields.Path(dir))
	if imported == 0 {
		return 0, nil
	}

	if err := s.refreshListings(ctx); err != nil {
		return imported, errors.PublishError("failed to refresh listings").WithCause(err).Build()
	}
	return imported, s.commit(ctx, fmt.Sprintf("Import %d legacy posts", imported))
}

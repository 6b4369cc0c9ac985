package publish

import (
	"context"
	stderrors "errors"
	"fmt"

	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/notify"
	"git.home.luguber.info/inful/bloghub/internal/observability"
	"git.home.luguber.info/inful/bloghub/internal/post"
	"git.home.luguber.info/inful/bloghub/internal/store"
)

// Publish renders issue and makes it live. An issue whose content and page
// are unchanged since the last publish is skipped.
func (s *Service) Publish(ctx context.Context, issue *forge.Issue) (*Result, error) {
	if issue == nil {
		return nil, errors.ValidationError("issue is required").Build()
	}
	ctx = observability.WithIssue(s.runContext(ctx, "publish"), issue.Number)

	res, p, err := s.publishOne(ctx, issue)
	if err != nil {
		s.recorder.IncPublishOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	s.recorder.IncPublishOutcome(res.Outcome)
	if res.Outcome == metrics.OutcomeSkipped {
		return res, nil
	}

	if err := s.refreshListings(ctx); err != nil {
		return res, errors.PublishError("failed to refresh listings").
			WithCause(err).
			WithContext("issue", issue.Number).
			Build()
	}

	if !p.Draft {
		typ := notify.EventPublished
		if res.Outcome == metrics.OutcomeUpdated {
			typ = notify.EventUpdated
		}
		s.announce(ctx, typ, p)
	}

	if err := s.commit(ctx, fmt.Sprintf("Publish #%d: %s", p.Number, p.Title)); err != nil {
		return res, err
	}
	return res, nil
}

// publishOne stores and writes a single post without touching listings.
// The returned post is nil when the issue was skipped.
func (s *Service) publishOne(ctx context.Context, issue *forge.Issue) (*Result, *post.Post, error) {
	if issue.IsPullRequest() {
		return nil, nil, errors.ValidationError("pull requests cannot be published").
			WithContext("issue", issue.Number).
			Build()
	}

	var p *post.Post
	err := s.stage(ctx, "render", func(context.Context) error {
		var err error
		p, err = post.FromIssue(issue, s.github.ApprovedLabel)
		return err
	})
	if err != nil {
		return nil, nil, errors.PublishError("failed to build post").
			WithCause(err).
			WithContext("issue", issue.Number).
			Build()
	}

	existing, err := s.store.Get(ctx, p.Number)
	if err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return nil, nil, errors.WrapError(err, errors.CategoryStore, "failed to load stored post").
			WithContext("issue", p.Number).
			Build()
	}

	if err := s.assignSlug(ctx, p); err != nil {
		return nil, nil, err
	}

	res := &Result{Number: p.Number, Slug: p.Slug, URL: s.site.PostURL(p), Path: s.site.PostPath(p)}
	if existing != nil && existing.Fingerprint == p.Fingerprint && existing.Slug == p.Slug &&
		existing.Draft == p.Draft && (p.Draft || s.site.HasPost(existing)) {
		observability.InfoContext(ctx, "Post unchanged, skipping", logfields.Slug(p.Slug))
		res.Outcome = metrics.OutcomeSkipped
		return res, nil, nil
	}

	res.Outcome = metrics.OutcomePublished
	if existing != nil {
		res.Outcome = metrics.OutcomeUpdated
		p.EnsureUID(existing.UID)
		p.DiscussionURL = existing.DiscussionURL
	} else {
		p.EnsureUID("")
	}
	firstPublish := existing == nil || existing.Draft
	if firstPublish && !p.Draft {
		s.openDiscussion(ctx, p)
	}

	action := store.ActionPublished
	if existing != nil {
		action = store.ActionUpdated
	}
	err = s.stage(ctx, "store", func(ctx context.Context) error {
		if err := s.store.Upsert(ctx, p); err != nil {
			return err
		}
		return s.store.Record(ctx, p.Number, action, p.Fingerprint)
	})
	if err != nil {
		return nil, nil, errors.WrapError(err, errors.CategoryStore, "failed to store post").
			WithContext("issue", p.Number).
			Build()
	}

	err = s.stage(ctx, "write", func(context.Context) error {
		if existing != nil && existing.FileName() != p.FileName() {
			if err := s.site.RemovePost(existing); err != nil {
				return err
			}
		}
		if p.Draft {
			return s.site.RemovePost(p)
		}
		_, err := s.site.WritePost(p)
		return err
	})
	if err != nil {
		return nil, nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to write post page").
			WithContext("issue", p.Number).
			WithContext("path", res.Path).
			Build()
	}

	if firstPublish && !p.Draft && s.github.CommentOnPublish {
		s.commentBack(ctx, p)
	}

	observability.InfoContext(ctx, "Post "+string(res.Outcome),
		logfields.Slug(p.Slug),
		logfields.URL(res.URL))
	return res, p, nil
}

// assignSlug keeps slugs unique across issues by appending -2, -3, ...
func (s *Service) assignSlug(ctx context.Context, p *post.Post) error {
	base := p.Slug
	for i := 2; ; i++ {
		other, err := s.store.GetBySlug(ctx, p.Slug)
		if stderrors.Is(err, store.ErrNotFound) || (err == nil && other.Number == p.Number) {
			return nil
		}
		if err != nil {
			return errors.WrapError(err, errors.CategoryStore, "failed to check slug").
				WithContext("slug", p.Slug).
				Build()
		}
		p.Slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// openDiscussion creates the comment thread for a new post. Failure leaves
// the post without a discussion link.
func (s *Service) openDiscussion(ctx context.Context, p *post.Post) {
	if !s.github.Discussions.Enabled || p.DiscussionURL != "" {
		return
	}
	body := fmt.Sprintf("Discussion for [%s](%s)\n\n%s", p.Title, s.site.PostURL(p), p.Excerpt)
	d, err := s.forge.CreateDiscussion(ctx, p.Title, body)
	if err != nil {
		observability.WarnContext(ctx, "Failed to create discussion", logfields.Error(err))
		return
	}
	p.DiscussionURL = d.URL
}

func (s *Service) commentBack(ctx context.Context, p *post.Post) {
	body := fmt.Sprintf("Published as %s", s.site.PostURL(p))
	if _, err := s.forge.CommentOnIssue(ctx, p.Number, body); err != nil {
		observability.WarnContext(ctx, "Failed to comment on issue", logfields.Error(err))
	}
}

// Unpublish takes a post offline. Unknown issues are reported as skipped.
func (s *Service) Unpublish(ctx context.Context, number int) (*Result, error) {
	ctx = observability.WithIssue(s.runContext(ctx, "unpublish"), number)

	existing, err := s.store.Get(ctx, number)
	if stderrors.Is(err, store.ErrNotFound) {
		observability.InfoContext(ctx, "Issue was never published, nothing to remove")
		return &Result{Number: number, Outcome: metrics.OutcomeSkipped}, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStore, "failed to load stored post").
			WithContext("issue", number).
			Build()
	}

	res := &Result{
		Number:  number,
		Slug:    existing.Slug,
		URL:     s.site.PostURL(existing),
		Path:    s.site.PostPath(existing),
		Outcome: metrics.OutcomeUnpublished,
	}

	err = s.stage(ctx, "store", func(ctx context.Context) error {
		if _, err := s.store.Delete(ctx, number); err != nil {
			return err
		}
		return s.store.Record(ctx, number, store.ActionUnpublished, existing.Fingerprint)
	})
	if err != nil {
		s.recorder.IncPublishOutcome(metrics.OutcomeFailed)
		return nil, errors.WrapError(err, errors.CategoryStore, "failed to delete stored post").
			WithContext("issue", number).
			Build()
	}

	if err := s.stage(ctx, "write", func(context.Context) error { return s.site.RemovePost(existing) }); err != nil {
		s.recorder.IncPublishOutcome(metrics.OutcomeFailed)
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to remove post page").
			WithContext("path", res.Path).
			Build()
	}
	s.recorder.IncPublishOutcome(metrics.OutcomeUnpublished)

	if err := s.refreshListings(ctx); err != nil {
		return res, errors.PublishError("failed to refresh listings").WithCause(err).Build()
	}
	if !existing.Draft {
		s.announce(ctx, notify.EventUnpublished, existing)
	}
	observability.InfoContext(ctx, "Post unpublished", logfields.Slug(existing.Slug))

	if err := s.commit(ctx, fmt.Sprintf("Unpublish #%d: %s", number, existing.Title)); err != nil {
		return res, err
	}
	return res, nil
}

package publish

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/notify"
	"git.home.luguber.info/inful/bloghub/internal/site"
	"git.home.luguber.info/inful/bloghub/internal/store"
)

type fakeForge struct {
	mu          sync.Mutex
	issues      []*forge.Issue
	listErr     error
	comments    map[int][]string
	discussions []string
}

func (f *fakeForge) GetIssue(_ context.Context, number int) (*forge.Issue, error) {
	for _, i := range f.issues {
		if i.Number == number {
			return i, nil
		}
	}
	return nil, errors.NotFoundError("issue not found").Build()
}

func (f *fakeForge) ListApprovedIssues(context.Context, string) ([]*forge.Issue, error) {
	return f.issues, f.listErr
}

func (f *fakeForge) CommentOnIssue(_ context.Context, number int, body string) (*forge.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.comments == nil {
		f.comments = map[int][]string{}
	}
	f.comments[number] = append(f.comments[number], body)
	return &forge.Comment{ID: 1, Body: body}, nil
}

func (f *fakeForge) CreateDiscussion(_ context.Context, title, _ string) (*forge.Discussion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discussions = append(f.discussions, title)
	return &forge.Discussion{ID: "D_1", Number: len(f.discussions), URL: "https://github.com/octo/blog/discussions/1"}, nil
}

type fakeNotifier struct {
	events []notify.Event
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) Close() error { return nil }

type fakeCommitter struct {
	messages []string
	err      error
}

func (c *fakeCommitter) CommitAndPush(_ context.Context, message string) (bool, error) {
	c.messages = append(c.messages, message)
	return true, c.err
}

type countingRecorder struct {
	metrics.NoopRecorder
	outcomes map[metrics.OutcomeLabel]int
	posts    int
}

func (r *countingRecorder) IncPublishOutcome(o metrics.OutcomeLabel) {
	if r.outcomes == nil {
		r.outcomes = map[metrics.OutcomeLabel]int{}
	}
	r.outcomes[o]++
}

func (r *countingRecorder) SetPostsTotal(n int) { r.posts = n }

type fixture struct {
	svc       *Service
	forge     *fakeForge
	notifier  *fakeNotifier
	committer *fakeCommitter
	recorder  *countingRecorder
	store     store.Store
	outDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	out := t.TempDir()
	cfg := &config.Config{
		Site: config.SiteConfig{
			Title:        "Test Blog",
			BaseURL:      "https://blog.test",
			Language:     "en",
			PostsPerPage: 10,
			FeedItems:    20,
		},
		GitHub: config.GitHubConfig{
			Repository:       "octo/blog",
			WebURL:           "https://github.com",
			ApprovedLabel:    "approved",
			CommentOnPublish: true,
			Discussions:      config.DiscussionsConfig{Enabled: true, RepositoryID: "R_1", CategoryID: "C_1"},
		},
		Output: config.OutputConfig{Dir: out, PostsSubdir: "posts"},
	}
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	s, err := site.New(cfg)
	require.NoError(t, err)

	f := &fixture{
		forge:     &fakeForge{},
		notifier:  &fakeNotifier{},
		committer: &fakeCommitter{},
		recorder:  &countingRecorder{},
		store:     st,
		outDir:    out,
	}
	f.svc = NewService(cfg, f.forge, st, s).
		WithNotifier(f.notifier).
		WithCommitter(f.committer).
		WithRecorder(f.recorder)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC) }
	return f
}

func approvedIssue(number int, title, body string) *forge.Issue {
	created := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return &forge.Issue{
		Number:    number,
		Title:     title,
		Body:      body,
		State:     "closed",
		HTMLURL:   "https://github.com/octo/blog/issues/" + strconv.Itoa(number),
		User:      forge.User{Login: "alice"},
		Labels:    []forge.Label{{Name: "approved"}, {Name: "Go"}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestPublishNewPost(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello World", "Some **bold** text"))
	require.NoError(t, err)

	assert.Equal(t, metrics.OutcomePublished, res.Outcome)
	assert.Equal(t, "hello-world", res.Slug)
	assert.Equal(t, "posts/2024-03-05-hello-world.html", res.Path)
	assert.Equal(t, "https://blog.test/posts/2024-03-05-hello-world.html", res.URL)

	page, err := os.ReadFile(filepath.Join(f.outDir, "posts", "2024-03-05-hello-world.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<strong>bold</strong>")
	assert.Contains(t, string(page), "discussions/1")
	assert.FileExists(t, filepath.Join(f.outDir, "index.html"))
	assert.FileExists(t, filepath.Join(f.outDir, "feed.xml"))

	stored, err := f.store.Get(t.Context(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.UID)
	assert.Equal(t, []string{"go"}, stored.Tags)
	assert.Equal(t, "https://github.com/octo/blog/discussions/1", stored.DiscussionURL)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notify.EventPublished, f.notifier.events[0].Type)
	assert.Equal(t, stored.UID, f.notifier.events[0].UID)
	assert.Equal(t, []string{"Publish #7: Hello World"}, f.committer.messages)
	assert.Equal(t, []string{"Published as https://blog.test/posts/2024-03-05-hello-world.html"}, f.forge.comments[7])
	assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomePublished])
	assert.Equal(t, 1, f.recorder.posts)

	history, err := f.store.History(t.Context(), 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, store.ActionPublished, history[0].Action)
}

func TestPublishUnchangedIsSkipped(t *testing.T) {
	f := newFixture(t)
	issue := approvedIssue(7, "Hello World", "text")
	_, err := f.svc.Publish(t.Context(), issue)
	require.NoError(t, err)

	res, err := f.svc.Publish(t.Context(), issue)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSkipped, res.Outcome)
	assert.Len(t, f.notifier.events, 1)
	assert.Len(t, f.committer.messages, 1)
	assert.Len(t, f.forge.discussions, 1)
}

func TestPublishRewritesDeletedPage(t *testing.T) {
	f := newFixture(t)
	issue := approvedIssue(7, "Hello World", "text")
	res, err := f.svc.Publish(t.Context(), issue)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.outDir, filepath.FromSlash(res.Path))))

	res, err = f.svc.Publish(t.Context(), issue)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeUpdated, res.Outcome)
	assert.FileExists(t, filepath.Join(f.outDir, filepath.FromSlash(res.Path)))
}

func TestPublishUpdateKeepsUIDAndMovesPage(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello World", "text"))
	require.NoError(t, err)
	before, err := f.store.Get(t.Context(), 7)
	require.NoError(t, err)

	second, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello Again", "new text"))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeUpdated, second.Outcome)
	assert.NoFileExists(t, filepath.Join(f.outDir, filepath.FromSlash(first.Path)))
	assert.FileExists(t, filepath.Join(f.outDir, filepath.FromSlash(second.Path)))

	after, err := f.store.Get(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, before.UID, after.UID)
	assert.Equal(t, before.DiscussionURL, after.DiscussionURL)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notify.EventUpdated, f.notifier.events[1].Type)
	assert.Len(t, f.forge.comments[7], 1, "only the first publish comments back")
	assert.Len(t, f.forge.discussions, 1)
}

func TestPublishSlugCollision(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Publish(t.Context(), approvedIssue(7, "Same Title", "a"))
	require.NoError(t, err)
	res, err := f.svc.Publish(t.Context(), approvedIssue(8, "Same Title", "b"))
	require.NoError(t, err)
	assert.Equal(t, "same-title-2", res.Slug)

	// Republishing the second issue keeps its suffixed slug.
	res, err = f.svc.Publish(t.Context(), approvedIssue(8, "Same Title", "b"))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSkipped, res.Outcome)
	assert.Equal(t, "same-title-2", res.Slug)
}

func TestPublishDraftIsStoredButNotListed(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Publish(t.Context(), approvedIssue(7, "Draft", "---\ndraft: true\n---\nwip"))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomePublished, res.Outcome)
	assert.NoFileExists(t, filepath.Join(f.outDir, filepath.FromSlash(res.Path)))
	assert.Empty(t, f.notifier.events)
	assert.Empty(t, f.forge.discussions)
	assert.Equal(t, 0, f.recorder.posts)

	stored, err := f.store.Get(t.Context(), 7)
	require.NoError(t, err)
	assert.True(t, stored.Draft)
}

func TestPublishRejectsPullRequests(t *testing.T) {
	f := newFixture(t)
	issue := approvedIssue(7, "PR", "x")
	issue.PullRequest = &struct {
		URL string `json:"url"`
	}{URL: "https://api.github.com/pulls/7"}
	_, err := f.svc.Publish(t.Context(), issue)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 1, f.recorder.outcomes[metrics.OutcomeFailed])
}

func TestPublishNotifyFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.NotifyError("down").Build()
	res, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello", "x"))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomePublished, res.Outcome)
}

func TestPublishReturnsGitFailure(t *testing.T) {
	f := newFixture(t)
	f.committer.err = errors.GitError("push rejected").Build()
	res, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello", "x"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryGit))
	require.NotNil(t, res)
	assert.FileExists(t, filepath.Join(f.outDir, filepath.FromSlash(res.Path)))
}

func TestUnpublish(t *testing.T) {
	f := newFixture(t)
	pub, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello", "x"))
	require.NoError(t, err)

	res, err := f.svc.Unpublish(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeUnpublished, res.Outcome)
	assert.NoFileExists(t, filepath.Join(f.outDir, filepath.FromSlash(pub.Path)))

	_, err = f.store.Get(t.Context(), 7)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notify.EventUnpublished, f.notifier.events[1].Type)
	assert.Equal(t, "Unpublish #7: Hello", f.committer.messages[1])
	assert.Equal(t, 0, f.recorder.posts)

	res, err = f.svc.Unpublish(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSkipped, res.Outcome)
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	bad := approvedIssue(9, "Broken", "x")
	bad.PullRequest = &struct {
		URL string `json:"url"`
	}{}
	f.forge.issues = []*forge.Issue{
		approvedIssue(7, "First", "one"),
		approvedIssue(8, "Second", "two"),
		bad,
	}

	report, err := f.svc.Sync(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Issues)
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Errors, 1)
	assert.True(t, report.Changed())
	assert.Len(t, f.notifier.events, 2)
	assert.Equal(t, []string{"Sync: 2 published, 0 updated"}, f.committer.messages)

	report, err = f.svc.Sync(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.False(t, report.Changed())
	assert.Len(t, f.committer.messages, 1)
}

func TestSyncListFailure(t *testing.T) {
	f := newFixture(t)
	f.forge.listErr = errors.NetworkError("unreachable").Build()
	_, err := f.svc.Sync(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestRebuild(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Publish(t.Context(), approvedIssue(7, "Hello", "x"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(f.outDir, "posts")))

	require.NoError(t, f.svc.Rebuild(t.Context()))
	assert.FileExists(t, filepath.Join(f.outDir, filepath.FromSlash(res.Path)))
	assert.Equal(t, "Rebuild site", f.committer.messages[len(f.committer.messages)-1])
}

const legacyPage = `<html><body>
<h1>Old Post</h1>
<span class="author">By bob</span>
<span class="date">January 15, 2024</span>
<a href="https://github.com/octo/blog/issues/3">View Original Issue #3</a>
<div class="post-content"><p>Legacy body</p></div>
</body></html>`

func TestImportLegacy(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.outDir, "posts")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-15-old-post.html"), []byte(legacyPage), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-16-orphan.html"), []byte("<h1>Orphan</h1>"), 0o600))

	n, err := f.svc.ImportLegacy(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := f.store.Get(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, "old-post", p.Slug)
	assert.Equal(t, "bob", p.Author)
	assert.Equal(t, "Legacy body", p.Excerpt)
	assert.Equal(t, "<p>Legacy body</p>", p.HTML)
	assert.NotEmpty(t, p.UID)

	index, err := os.ReadFile(filepath.Join(f.outDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Old Post")

	n, err = f.svc.ImportLegacy(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStageRecordsCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := f.svc.stage(ctx, "x", func(ctx context.Context) error { return ctx.Err() })
	assert.True(t, stderrors.Is(err, context.Canceled))
}

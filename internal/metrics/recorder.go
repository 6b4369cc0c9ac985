package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel is the final result of handling one issue.
type OutcomeLabel string

const (
	OutcomePublished   OutcomeLabel = "published"
	OutcomeUpdated     OutcomeLabel = "updated"
	OutcomeSkipped     OutcomeLabel = "skipped"
	OutcomeUnpublished OutcomeLabel = "unpublished"
	OutcomeFailed      OutcomeLabel = "failed"
)

// Recorder defines observability hooks for publishing. Implementations may
// forward to Prometheus; NoopRecorder is used when metrics are not
// configured.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncPublishOutcome(outcome OutcomeLabel)
	ObserveSyncDuration(d time.Duration)
	SetPostsTotal(n int)
	IncWebhookEvent(action string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncPublishOutcome(OutcomeLabel)             {}
func (NoopRecorder) ObserveSyncDuration(time.Duration)          {}
func (NoopRecorder) SetPostsTotal(int)                          {}
func (NoopRecorder) IncWebhookEvent(string)                     {}

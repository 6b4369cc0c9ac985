package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := WrapError(cause, CategoryForge, "list issues failed").
		WithContext("repository", "octo/blog").
		Retryable().
		Build()

	assert.Equal(t, CategoryForge, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.True(t, err.CanRetry())
	assert.True(t, err.IsTransient())
	assert.Same(t, cause, err.Cause())
	assert.ErrorIs(t, err, cause)

	repo, ok := err.Context().GetString("repository")
	require.True(t, ok)
	assert.Equal(t, "octo/blog", repo)
	assert.Contains(t, err.Error(), "[forge:error] list issues failed: connection reset")
}

func TestAsClassifiedFollowsWrapChain(t *testing.T) {
	inner := ValidationError("missing ISSUE_NUMBER").Build()
	wrapped := fmt.Errorf("publish: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCategory(wrapped, CategoryValidation))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsRetryable(NetworkError("timeout").Build()))
}

func TestUserActionIsNotRetryable(t *testing.T) {
	err := AuthError("bad token").Build()
	assert.False(t, err.CanRetry())
	assert.False(t, err.IsTransient())
}

func TestContextMerge(t *testing.T) {
	var empty ErrorContext
	other := ErrorContext{"a": 1}
	assert.Equal(t, other, empty.Merge(other))

	merged := ErrorContext{"a": 1, "b": 2}.Merge(ErrorContext{"b": 3})
	assert.Equal(t, ErrorContext{"a": 1, "b": 3}, merged)
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad input").Build(), 2},
		{"not found", NotFoundError("no issue").Build(), 4},
		{"auth", AuthError("unauthorized").Build(), 5},
		{"config", ConfigError("bad config").Build(), 7},
		{"forge", ForgeError("api down").Build(), 8},
		{"internal", InternalError("bug").Build(), 10},
		{"filesystem", FileSystemError("disk full").Build(), 11},
		{"daemon", DaemonError("scheduler").Build(), 12},
		{"wrapped", fmt.Errorf("ctx: %w", StoreError("locked").Build()), 11},
		{"unclassified", stderrors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_Handle(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out

	code := adapter.Handle(ConfigError("config file not found").WithContext("path", "bloghub.yaml").Build())

	assert.Equal(t, 7, code)
	assert.Equal(t, "Error: config file not found\n", out.String())
	assert.Contains(t, logs.String(), "path=bloghub.yaml")
	assert.Equal(t, 0, adapter.Handle(nil))
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	loud := NewCLIErrorAdapter(true, nil)
	err := InternalError("nil store").Build()

	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(err))
	assert.Equal(t, err.Error(), loud.FormatError(err))
	assert.Contains(t, quiet.FormatError(AuthError("401").Build()), "GITHUB_TOKEN")
	assert.Equal(t, "Error: boom", quiet.FormatError(stderrors.New("boom")))
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	adapter.WriteErrorResponse(rec, req, NetworkError("github unavailable").WithContext("status", 503).Build())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"github unavailable","code":"network","details":{"status":503},"retryable":true}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, adapter.StatusCodeFor(NotFoundError("post").Build()))
	assert.Equal(t, http.StatusInternalServerError, adapter.StatusCodeFor(stderrors.New("x")))
}

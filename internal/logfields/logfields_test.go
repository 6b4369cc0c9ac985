package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHelpers(t *testing.T) {
	assert.Equal(t, slog.Int("issue", 7), Issue(7))
	assert.Equal(t, slog.String("slug", "hello-world"), Slug("hello-world"))
	assert.Equal(t, slog.String("error", "boom"), Error(errors.New("boom")))
	assert.Equal(t, slog.String("error", ""), Error(nil))

	d := Since(time.Now().Add(-50 * time.Millisecond))
	assert.Equal(t, KeyDurationMS, d.Key)
	assert.GreaterOrEqual(t, d.Value.Float64(), 50.0)
}

package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyClampsInitial(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{Mode: "Exponential", InitialDelay: 10 * time.Millisecond, MaxRetries: 4})
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 10*time.Millisecond, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 4, p.MaxRetries)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	fixed := NewPolicy(config.RetryBackoffFixed, 100*ms, 500*ms, 3)
	linear := NewPolicy(config.RetryBackoffLinear, 100*ms, 250*ms, 5)
	exp := NewPolicy(config.RetryBackoffExponential, 100*ms, 350*ms, 5)

	tests := []struct {
		name    string
		p       Policy
		attempt int
		want    time.Duration
	}{
		{"fixed first", fixed, 1, 100 * ms},
		{"fixed third", fixed, 3, 100 * ms},
		{"linear first", linear, 1, 100 * ms},
		{"linear second", linear, 2, 200 * ms},
		{"linear capped", linear, 3, 250 * ms},
		{"exp first", exp, 1, 100 * ms},
		{"exp second", exp, 2, 200 * ms},
		{"exp capped", exp, 3, 350 * ms},
		{"exp huge attempt", exp, 80, 350 * ms},
		{"zero attempt", exp, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Delay(tt.attempt))
		})
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NetworkError("flaky").Build()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	permanent := errors.AuthError("bad token").Build()
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.NetworkError("down").Build()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.NetworkError("down").Build()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.False(t, stderrors.Is(err, context.DeadlineExceeded))
}

package config

import "strings"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts user input (case-insensitive) into a typed
// mode, returning "" for unknown values.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch mode := RetryBackoffMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		return mode
	default:
		return ""
	}
}

// Package errors provides classified error primitives used across bloghub.
//
// A ClassifiedError carries a category, a severity, a retry strategy and a
// context map. The CLI and HTTP adapters turn them into exit codes and
// JSON responses.
//
//	err := errors.NewError(errors.CategoryForge, "create discussion failed").
//		WithContext("issue", 42).
//		WithCause(originalErr).
//		Retryable().
//		Build()
package errors

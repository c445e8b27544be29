// Package apierr provides shared error sentinels and the bounded retry
// policy used by HTTP-based API clients. Provider-specific error types are
// classified into these sentinels at the adapter boundary with
// fmt.Errorf("%s: %w", msg, sentinel); callers check with
// errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrServerError indicates a 5xx-equivalent provider failure (retryable).
	ErrServerError = errors.New("provider server error")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// IsTransient reports whether err is one of the retryable sentinels.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError)
}

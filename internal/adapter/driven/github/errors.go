package github

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by Client operations. Callers use errors.Is to
// classify a failure instead of matching on *github.ErrorResponse directly,
// the way the application layer expects a small closed set of outcomes
// rather than the full breadth of errors go-github can surface.
var (
	// ErrTransient marks a failure worth retrying later: a 5xx response.
	// Network errors that carry no response are not mapped to it.
	ErrTransient = errors.New("github: transient error")

	// ErrRateLimited marks a 403/429 the governor could not absorb.
	ErrRateLimited = errors.New("github: rate limited")

	// ErrNotFound marks a 404: the repository, pull request, or branch no
	// longer exists on the server.
	ErrNotFound = errors.New("github: not found")

	// ErrForbidden marks a 403 that is not a rate-limit response: typically
	// an authentication or permission failure.
	ErrForbidden = errors.New("github: forbidden")

	// ErrBranchProtected marks a delete or force-push blocked by a branch
	// protection rule.
	ErrBranchProtected = errors.New("github: branch is protected")
)

// classifyStatus maps an HTTP status code to one of the sentinel errors
// above, wrapping it with enough context for logs. A 2xx status returns nil.
func classifyStatus(op string, statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	case statusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	case statusCode >= 500:
		return fmt.Errorf("%s: %w (status %d)", op, ErrTransient, statusCode)
	default:
		return fmt.Errorf("%s: unexpected status %d", op, statusCode)
	}
}

// isTransient reports whether err should be retried by the backoff policy
// wrapping a Client operation: transient server errors and rate limiting the
// governor already waited out once. Raw network errors are not wrapped in
// either sentinel, so they are not treated as transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// Package websearch wraps the paid web-search API. It exposes the
// Searcher interface the scheduler drives, and classifies API failures
// into the terminal and transient categories the run loop distinguishes.
package websearch

import (
	"context"
	"errors"
	"fmt"
)

// Result is one ranked search hit.
type Result struct {
	Title   string
	Snippet string
}

// Searcher performs one search per call. An empty, nil-error result set
// means the search ran and found nothing.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// AuthError means the API rejected our credentials. Terminal: retrying
// within the run cannot succeed.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("search authentication rejected (status %d)", e.StatusCode)
}

// QuotaError means the paid quota is exhausted. Terminal for the run.
type QuotaError struct {
	StatusCode int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("search quota exhausted (status %d)", e.StatusCode)
}

// TransientError covers network failures and server-side errors. The item
// stays eligible and is retried on a future run.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient search failure: %v", e.Err)
	}
	return fmt.Sprintf("transient search failure (status %d)", e.StatusCode)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTerminal reports whether the error must abort the remaining queue.
func IsTerminal(err error) bool {
	var authErr *AuthError
	var quotaErr *QuotaError
	return errors.As(err, &authErr) || errors.As(err, &quotaErr)
}

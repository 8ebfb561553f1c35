// Package history defines the search-history ledger: which certification
// numbers were searched, when, and with what outcome. The ledger keeps at
// most one entry per certification number; a new search replaces the prior
// entry for that key.
package history

import (
	"context"
	"errors"
	"time"
)

// Status records the outcome of one search attempt.
type Status string

// Search outcomes.
const (
	StatusSuccess   Status = "SUCCESS"
	StatusNoResults Status = "NO_RESULTS"
	StatusFailed    Status = "FAILED"
)

// Entry is the durable record of the most recent search for one
// certification number. ResultDigest references the stored raw search
// payload and is empty for failed attempts.
type Entry struct {
	CertNumber   string    `json:"cert_number"`
	SearchedAt   time.Time `json:"searched_at"`
	Status       Status    `json:"status"`
	ResultDigest string    `json:"result_digest,omitempty"`
}

// ErrNotFound is returned by Store.Get when no entry exists for the key.
var ErrNotFound = errors.New("history: entry not found")

// Store persists search-history entries. Implementations must make each
// Upsert a single durable write so a crash between items loses at most the
// in-flight item.
type Store interface {
	// Has reports whether an entry exists for the certification number.
	Has(ctx context.Context, certNumber string) (bool, error)

	// Get returns the entry for the certification number, or ErrNotFound.
	Get(ctx context.Context, certNumber string) (Entry, error)

	// Upsert atomically replaces any existing entry for the same key.
	Upsert(ctx context.Context, entry Entry) error
}

// EligibilityPolicy decides when a certification number may be searched
// again. Successful searches (with or without results) wait out the full
// grace period; failed attempts use the shorter failure cool-down so a
// transient error does not park an item for months.
type EligibilityPolicy struct {
	GracePeriod     time.Duration
	FailureCooldown time.Duration
}

// EntryEligible reports whether an existing entry has aged past its
// re-search threshold at the given instant.
func (p EligibilityPolicy) EntryEligible(entry Entry, now time.Time) bool {
	threshold := p.GracePeriod
	if entry.Status == StatusFailed {
		threshold = p.FailureCooldown
	}
	return !now.Before(entry.SearchedAt.Add(threshold))
}

// Eligible reports whether the certification number may be searched now:
// true when the store has no entry for it, or when the existing entry has
// aged past the policy threshold.
func Eligible(ctx context.Context, store Store, certNumber string, now time.Time, policy EligibilityPolicy) (bool, error) {
	entry, err := store.Get(ctx, certNumber)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return policy.EntryEligible(entry, now), nil
}

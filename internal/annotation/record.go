// Package annotation models the consolidated search outcome attached to a
// certification number: the weighted terms extracted from its search
// results plus the metadata needed to merge annotations produced by
// independent participants.
package annotation

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Source names the search engine that produced an annotation.
const SourceGoogle = "google"

// Origin tells which side of the shared folder produced a record.
type Origin string

// Record origins.
const (
	OriginLocal Origin = "local"
	OriginCloud Origin = "cloud"
)

// Term is one extracted keyword and its occurrence count.
type Term struct {
	Text   string `json:"text"`
	Weight int    `json:"weight"`
}

// Record is the durable unit of output: one certification number's search
// outcome. An empty Terms slice marks a null annotation, the explicit
// "searched, nothing usable found" state. Version increases monotonically
// per certification number and drives merge tie-breaks.
type Record struct {
	ID         string    `json:"id"`
	CertNumber string    `json:"cert_number"`
	Terms      []Term    `json:"terms,omitempty"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	Origin     Origin    `json:"origin"`
	Version    int64     `json:"version"`
}

// IsNull reports whether the record is a null annotation.
func (r Record) IsNull() bool { return len(r.Terms) == 0 }

// ErrNotFound is returned by Store.Get when no record exists for the key.
var ErrNotFound = errors.New("annotation: record not found")

// Store is the local persistent table of annotation records, keyed by
// certification number.
type Store interface {
	// Get returns the record for the certification number, or ErrNotFound.
	Get(ctx context.Context, certNumber string) (Record, error)

	// Put atomically replaces any existing record for the same key.
	Put(ctx context.Context, record Record) error

	// All returns every record ordered by certification number.
	All(ctx context.Context) ([]Record, error)

	// Replace swaps the whole table for the given records in one
	// transaction. Used after consolidation.
	Replace(ctx context.Context, records []Record) error
}

// FormatCertNumber renders a raw certification number in the dashed
// XXXXX-XX-XXXXX layout used by annotation tables. Numbers that already
// carry dashes or are too short pass through unchanged.
func FormatCertNumber(raw string) string {
	if strings.Contains(raw, "-") || len(raw) < 8 {
		return raw
	}
	return raw[:5] + "-" + raw[5:7] + "-" + raw[7:]
}

// StripCertNumber removes the dashes, yielding the catalog key.
func StripCertNumber(formatted string) string {
	return strings.ReplaceAll(formatted, "-", "")
}

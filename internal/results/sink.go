// Package results persists the raw search payloads so annotations can be
// audited or re-derived without paying for the search again. Payloads are
// appended to a JSON-lines file; the history ledger references them by
// content digest.
package results

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
)

// FileName is the append-only payload log inside the results directory.
const FileName = "search_results.jsonl"

// Payload is one raw search outcome.
type Payload struct {
	Query      string             `json:"query"`
	SearchedAt time.Time          `json:"searched_at"`
	Results    []websearch.Result `json:"results"`
}

// Sink appends payloads to the results file.
type Sink struct {
	path string
}

// NewSink ensures the results directory exists and returns a sink over it.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Sink{path: filepath.Join(dir, FileName)}, nil
}

// Append writes the payload as one JSON line and returns its SHA-256 hex
// digest. Each call is a single durable write.
func (s *Sink) Append(payload Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal search payload: %w", err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("open results file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close() //nolint:errcheck
		return "", fmt.Errorf("append search payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close results file: %w", err)
	}
	return digest, nil
}

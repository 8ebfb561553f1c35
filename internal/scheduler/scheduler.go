// Package scheduler decides which certification numbers to search, in
// what order, and drives the search collaborator, recording outcomes in
// the history ledger and the annotation store. A run is sequential: the
// search API is rate-limited and per-item durability is simplest to
// reason about without interleaving.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/catalog"
	"github.com/maxwelfreitas/schwordcloud/internal/history"
	"github.com/maxwelfreitas/schwordcloud/internal/metrics"
	"github.com/maxwelfreitas/schwordcloud/internal/results"
	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
	"github.com/maxwelfreitas/schwordcloud/internal/wordcloud"
)

// Config tunes one scheduler run.
type Config struct {
	GracePeriod     time.Duration
	FailureCooldown time.Duration
	// Category restricts the queue to one product category; zero means no
	// filter.
	Category int
	// Shuffle applies a fresh uniform permutation to the queue so an
	// interrupted run does not always hammer the same prefix.
	Shuffle bool
	// MaxSearches caps the number of items attempted per run; zero means
	// no cap. A budget guard for the paid API.
	MaxSearches int
	TermCount   int
}

// Summary is the run-level report: per-item failures are swallowed into
// counts, never surfaced individually.
type Summary struct {
	Queued    int
	Searched  int
	NoResults int
	Failed    int
}

// PayloadSink persists raw search payloads and returns their digest.
type PayloadSink interface {
	Append(payload results.Payload) (string, error)
}

// Scheduler computes the work queue and executes it.
type Scheduler struct {
	catalog     *catalog.Catalog
	history     history.Store
	annotations annotation.Store
	searcher    websearch.Searcher
	sink        PayloadSink
	metrics     *metrics.Metrics
	logger      *zap.Logger
	cfg         Config

	now func() time.Time
}

// New wires a scheduler. All collaborators are required.
func New(
	cat *catalog.Catalog,
	hist history.Store,
	annotations annotation.Store,
	searcher websearch.Searcher,
	sink PayloadSink,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		catalog:     cat,
		history:     hist,
		annotations: annotations,
		searcher:    searcher,
		sink:        sink,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// BuildQueue returns the certification numbers eligible for search, in
// catalog order (or shuffled when configured).
func (s *Scheduler) BuildQueue(ctx context.Context) ([]string, error) {
	policy := history.EligibilityPolicy{
		GracePeriod:     s.cfg.GracePeriod,
		FailureCooldown: s.cfg.FailureCooldown,
	}
	now := s.now()

	var queue []string
	for _, record := range s.catalog.Records() {
		if s.cfg.Category != 0 && record.Category != s.cfg.Category {
			continue
		}
		if record.HomologationDate.IsZero() {
			continue
		}
		if now.Sub(record.HomologationDate) <= s.cfg.GracePeriod {
			continue
		}
		eligible, err := history.Eligible(ctx, s.history, record.CertNumber, now, policy)
		if err != nil {
			return nil, fmt.Errorf("check eligibility of %s: %w", record.CertNumber, err)
		}
		if eligible {
			queue = append(queue, record.CertNumber)
		}
	}

	if s.cfg.Shuffle {
		rand.Shuffle(len(queue), func(i, j int) {
			queue[i], queue[j] = queue[j], queue[i]
		})
	}
	return queue, nil
}

// Run executes the queue. Transient per-item failures are recorded and
// skipped; the run aborts early only on a terminal collaborator failure
// or context cancellation. Progress already committed is never rolled
// back.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	queue, err := s.BuildQueue(ctx)
	if err != nil {
		return Summary{}, err
	}
	if s.cfg.MaxSearches > 0 && len(queue) > s.cfg.MaxSearches {
		queue = queue[:s.cfg.MaxSearches]
	}

	summary := Summary{Queued: len(queue)}
	s.metrics.QueueSize.Set(float64(len(queue)))
	s.logger.Info("scheduler run starting",
		zap.Int("queue_size", len(queue)),
		zap.Bool("shuffle", s.cfg.Shuffle))

	for _, certNumber := range queue {
		if err := ctx.Err(); err != nil {
			s.logger.Info("run interrupted, durable progress retained",
				zap.Int("searched", summary.Searched))
			return summary, err
		}
		if err := s.processItem(ctx, certNumber, &summary); err != nil {
			return summary, err
		}
	}

	s.logger.Info("scheduler run finished",
		zap.Int("searched", summary.Searched),
		zap.Int("no_results", summary.NoResults),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// processItem performs one search and commits its outcome. The annotation
// is written before the history entry: a crash between the two leaves an
// orphaned annotation, which consolidation tolerates, instead of a
// "searched" flag silently hiding a result.
func (s *Scheduler) processItem(ctx context.Context, certNumber string, summary *Summary) error {
	start := s.now()
	found, err := s.searcher.Search(ctx, certNumber)
	s.metrics.SearchDuration.Observe(s.now().Sub(start).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if websearch.IsTerminal(err) {
			s.logger.Error("terminal search failure, aborting run",
				zap.String("cert_number", certNumber),
				zap.Error(err))
			return err
		}

		summary.Failed++
		s.metrics.SearchesTotal.WithLabelValues(string(history.StatusFailed)).Inc()
		s.logger.Warn("transient search failure, item stays eligible",
			zap.String("cert_number", certNumber),
			zap.Error(err))
		entry := history.Entry{
			CertNumber: certNumber,
			SearchedAt: s.now(),
			Status:     history.StatusFailed,
		}
		if err := s.history.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("record failed search for %s: %w", certNumber, err)
		}
		return nil
	}

	searchedAt := s.now()
	digest, err := s.sink.Append(results.Payload{
		Query:      certNumber,
		SearchedAt: searchedAt,
		Results:    found,
	})
	if err != nil {
		// Item stays eligible; no history advance without a stored payload.
		summary.Failed++
		s.logger.Error("persist raw payload failed, item skipped",
			zap.String("cert_number", certNumber),
			zap.Error(err))
		return nil
	}

	terms := wordcloud.ExtractTerms(found, s.cfg.TermCount)
	record, err := s.buildRecord(ctx, certNumber, terms, searchedAt)
	if err != nil {
		return err
	}
	if err := s.annotations.Put(ctx, record); err != nil {
		return fmt.Errorf("store annotation for %s: %w", certNumber, err)
	}

	status := history.StatusSuccess
	if record.IsNull() {
		status = history.StatusNoResults
		summary.NoResults++
	} else {
		summary.Searched++
	}
	s.metrics.SearchesTotal.WithLabelValues(string(status)).Inc()

	entry := history.Entry{
		CertNumber:   certNumber,
		SearchedAt:   searchedAt,
		Status:       status,
		ResultDigest: digest,
	}
	if err := s.history.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("record search for %s: %w", certNumber, err)
	}

	s.logger.Debug("item committed",
		zap.String("cert_number", certNumber),
		zap.String("status", string(status)),
		zap.Int("terms", len(record.Terms)))
	return nil
}

// buildRecord carries the stable annotation ID and the version counter
// forward from any prior record for the same key.
func (s *Scheduler) buildRecord(ctx context.Context, certNumber string, terms []annotation.Term, searchedAt time.Time) (annotation.Record, error) {
	formatted := annotation.FormatCertNumber(certNumber)

	id := uuid.New().String()
	var version int64 = 1
	prev, err := s.annotations.Get(ctx, formatted)
	switch {
	case err == nil:
		id = prev.ID
		version = prev.Version + 1
	case errors.Is(err, annotation.ErrNotFound):
		// first annotation for this key
	default:
		return annotation.Record{}, fmt.Errorf("load prior annotation for %s: %w", certNumber, err)
	}

	return annotation.Record{
		ID:         id,
		CertNumber: formatted,
		Terms:      terms,
		Source:     annotation.SourceGoogle,
		CreatedAt:  searchedAt,
		Origin:     annotation.OriginLocal,
		Version:    version,
	}, nil
}

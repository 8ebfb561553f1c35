// Package consolidator reconciles the local annotation store with the
// snapshots other participants drop in the shared folder, producing one
// authoritative table and republishing it. The shared folder has no lock:
// everything we did not just write is read-only input, and our output
// name is namespaced so concurrent writers cannot collide.
package consolidator

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/metrics"
	"github.com/maxwelfreitas/schwordcloud/internal/snapshot"
)

// Notifier announces a freshly published snapshot to other participants.
type Notifier interface {
	Publish(ctx context.Context, objectName string) error
}

// Config tunes a consolidation run.
type Config struct {
	Participant string
}

// Result summarizes one consolidation run.
type Result struct {
	Keys          int
	SnapshotsRead int
	SnapshotName  string
}

// Consolidator merges local and shared annotation tables.
type Consolidator struct {
	store      annotation.Store
	getFolder  snapshot.Folder
	postFolder snapshot.Folder
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	cfg        Config

	now func() time.Time
}

// New wires a consolidator. notifier may be nil.
func New(
	store annotation.Store,
	getFolder snapshot.Folder,
	postFolder snapshot.Folder,
	notifier Notifier,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Consolidator {
	return &Consolidator{
		store:      store,
		getFolder:  getFolder,
		postFolder: postFolder,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run collects every record across the local store and the shared get
// folder, resolves one winner per certification number, swaps the local
// table for the merged set and publishes it as a new snapshot in the post
// folder. Incoming snapshots are never modified or deleted.
func (c *Consolidator) Run(ctx context.Context) (Result, error) {
	local, err := c.store.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load local annotations: %w", err)
	}

	sources := [][]annotation.Record{local}
	names, err := c.getFolder.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list shared snapshots: %w", err)
	}

	read := 0
	for _, name := range names {
		records, err := c.readSnapshot(ctx, name)
		if err != nil {
			// A corrupt drop from another participant must not block the
			// merge of everything else.
			c.logger.Warn("skipping unreadable snapshot",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		sources = append(sources, records)
		read++
		c.metrics.SnapshotsReadTotal.Inc()
	}

	merged := Merge(sources...)
	for _, record := range merged {
		c.metrics.MergeWinnersTotal.WithLabelValues(string(record.Origin)).Inc()
	}

	if err := c.store.Replace(ctx, merged); err != nil {
		return Result{}, fmt.Errorf("replace local annotations: %w", err)
	}

	name, err := c.publish(ctx, merged)
	if err != nil {
		return Result{}, err
	}

	c.logger.Info("consolidation finished",
		zap.Int("keys", len(merged)),
		zap.Int("snapshots_read", read),
		zap.String("published", name))
	return Result{Keys: len(merged), SnapshotsRead: read, SnapshotName: name}, nil
}

// readSnapshot decodes one shared drop. Records from other participants
// are re-tagged as cloud-origin; our own earlier drops keep their origin.
func (c *Consolidator) readSnapshot(ctx context.Context, name string) ([]annotation.Record, error) {
	data, err := c.getFolder.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	snap, err := annotation.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if snap.Participant != c.cfg.Participant {
		for i := range snap.Records {
			snap.Records[i].Origin = annotation.OriginCloud
		}
	}
	return snap.Records, nil
}

func (c *Consolidator) publish(ctx context.Context, merged []annotation.Record) (string, error) {
	postNames, err := c.postFolder.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list post folder: %w", err)
	}
	seq := snapshot.NextSequence(postNames, c.cfg.Participant)
	name := snapshot.Name(c.cfg.Participant, seq, c.now())

	data, err := annotation.EncodeSnapshot(annotation.Snapshot{
		Participant: c.cfg.Participant,
		Sequence:    seq,
		Records:     merged,
	})
	if err != nil {
		return "", err
	}
	if err := c.postFolder.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("publish snapshot: %w", err)
	}

	if c.notifier != nil {
		if err := c.notifier.Publish(ctx, name); err != nil {
			// Announcement is best-effort; the snapshot is already durable.
			c.logger.Warn("snapshot notification failed", zap.Error(err))
		}
	}
	return name, nil
}

// ExportCSV writes the current consolidated table as a
// spreadsheet-compatible file for human review.
func (c *Consolidator) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := c.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load annotations for export: %w", err)
	}
	return annotation.WriteCSV(w, records)
}

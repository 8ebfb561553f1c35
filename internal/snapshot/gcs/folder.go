// Package gcs implements the shared snapshot folder on a Google Cloud
// Storage bucket, for installations whose participants share a bucket
// instead of a synced directory.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Config captures the parameters required to address the shared folder.
type Config struct {
	Bucket string
	Prefix string
}

// Folder reads and writes snapshot objects under a bucket prefix.
type Folder struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed snapshot folder.
func New(client *storage.Client, cfg Config) (*Folder, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Folder{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// List returns the snapshot object names under the prefix.
func (f *Folder) List(ctx context.Context) ([]string, error) {
	it := f.client.Bucket(f.bucket).Objects(ctx, &storage.Query{Prefix: f.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, f.prefix)
		if strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	return names, nil
}

// Read returns the contents of the named snapshot object.
func (f *Folder) Read(ctx context.Context, name string) ([]byte, error) {
	reader, err := f.client.Bucket(f.bucket).Object(f.prefix + name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", name, err)
	}
	defer reader.Close() //nolint:errcheck

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

// Write uploads a snapshot object. GCS object writes are already atomic:
// the object becomes visible only when the writer closes cleanly.
func (f *Folder) Write(ctx context.Context, name string, data []byte) error {
	writer := f.client.Bucket(f.bucket).Object(f.prefix + name).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write snapshot %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close snapshot writer %s: %w", name, err)
	}
	return nil
}

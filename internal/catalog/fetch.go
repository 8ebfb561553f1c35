package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultURL is the public location of the certification dump.
const DefaultURL = "https://www.anatel.gov.br/dadosabertos/paineis_de_dados/certificacao_de_produtos/produtos_certificados.zip"

// LocalFileName is the name the dump keeps on disk.
const LocalFileName = "produtos_certificados.zip"

// FetchOptions controls catalog refresh behavior.
type FetchOptions struct {
	URL string
	// Dir is where the local copy lives.
	Dir string
	// RefreshAfter re-downloads a local copy older than this.
	RefreshAfter time.Duration
	Force        bool
	Retries      int
	RetryDelay   time.Duration
	Timeout      time.Duration
}

// Fetch returns the parsed catalog, downloading or refreshing the local
// copy as needed. A failed refresh falls back to the stale local copy; the
// error is terminal only when no usable local copy exists.
func Fetch(ctx context.Context, opts FetchOptions, logger *zap.Logger) (*Catalog, error) {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	localPath := filepath.Join(opts.Dir, LocalFileName)

	needDownload := opts.Force
	info, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		needDownload = true
	case err != nil:
		return nil, fmt.Errorf("stat catalog file: %w", err)
	case opts.RefreshAfter > 0 && time.Since(info.ModTime()) > opts.RefreshAfter:
		logger.Info("catalog copy is stale, refreshing",
			zap.String("path", localPath),
			zap.Duration("age", time.Since(info.ModTime())))
		needDownload = true
	}

	if needDownload {
		if err := download(ctx, opts, localPath, logger); err != nil {
			if _, statErr := os.Stat(localPath); statErr != nil {
				return nil, fmt.Errorf("refresh catalog: %w", err)
			}
			logger.Warn("catalog refresh failed, using stale local copy", zap.Error(err))
		}
	}

	return ParseZip(localPath)
}

// download fetches the dump to a temp file and renames it into place, so a
// crash mid-download never corrupts the local copy.
func download(ctx context.Context, opts FetchOptions, localPath string, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o750); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = 3
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client := &http.Client{Timeout: timeout}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("downloading catalog",
			zap.String("url", opts.URL),
			zap.Int("attempt", attempt))
		if lastErr = downloadOnce(ctx, client, opts.URL, localPath); lastErr == nil {
			return nil
		}
		logger.Warn("catalog download attempt failed", zap.Error(lastErr))
		if attempt < retries {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func downloadOnce(ctx context.Context, client *http.Client, url, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download catalog: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download catalog: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), LocalFileName+".part_")
	if err != nil {
		return fmt.Errorf("create catalog temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("write catalog temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close catalog temp file: %w", err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}

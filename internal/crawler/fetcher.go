package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads NHANES data files to local paths.
// It skips files already present, retries transient failures, and delays
// between requests as a politeness setting.
//
// Design decision: We require an external *http.Client rather than building
// one internally because:
//  1. Timeout configuration is handled by the caller
//  2. Tests can inject a client pointed at a local server
type Fetcher struct {
	// client is the HTTP client used for all requests.
	client *http.Client

	// retries is the number of additional attempts after a failed download.
	retries int

	// delay is the time to wait between download requests.
	delay time.Duration

	// backoff is the base wait between retry attempts. The wait grows
	// linearly with the attempt number.
	backoff time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRetries sets the number of additional attempts per download.
// 0 means a single attempt.
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithDelay sets the politeness delay between download requests.
func WithDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.delay = d
	}
}

// WithBackoff sets the base wait between retry attempts.
func WithBackoff(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher with the given HTTP client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    client,
		retries:   3,
		delay:     500 * time.Millisecond,
		backoff:   2 * time.Second,
		userAgent: "nhaneskit/1.0",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FetchPage downloads an HTML page and returns its body.
// Used for component listing and documentation pages.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", pageURL, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// FetchFile downloads fileURL to destPath.
//
// The destination directory is created if needed. If the destination
// already exists with non-zero size, the download is skipped and
// (false, nil) is returned. The file is written through a temp file in the
// same directory and renamed into place, so an interrupted download never
// leaves a truncated file at destPath.
//
// Failed attempts are retried with linearly growing backoff. The returned
// bool reports whether a download actually happened.
func (f *Fetcher) FetchFile(ctx context.Context, fileURL, destPath string) (bool, error) {
	if fi, err := os.Stat(destPath); err == nil && fi.Size() > 0 {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.backoff
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := f.downloadOnce(ctx, fileURL, destPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			continue
		}
		return true, nil
	}

	return false, fmt.Errorf("download failed after %d attempts: %w", f.retries+1, lastErr)
}

// Delay blocks for the politeness delay or until the context is cancelled.
func (f *Fetcher) Delay(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}

// downloadOnce performs a single download attempt through a temp file.
func (f *Fetcher) downloadOnce(ctx context.Context, fileURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", fileURL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), destPath)
}

package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// TestFetchFile tests downloading a file to disk.
func TestFetchFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("transport bytes"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), WithDelay(0), WithBackoff(time.Millisecond))
	dest := filepath.Join(t.TempDir(), "raw", "2017-2018", "Demographics", "DEMO_J.XPT")

	downloaded, err := f.FetchFile(context.Background(), srv.URL+"/DEMO_J.XPT", dest)
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if !downloaded {
		t.Error("expected download to happen")
	}

	data, err := os.ReadFile(dest) //nolint:gosec // Test-owned path
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "transport bytes" {
		t.Errorf("content = %q", data)
	}
}

// TestFetchFileSkipsExisting tests that present files are not re-downloaded.
func TestFetchFileSkipsExisting(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("new bytes"))
	}))
	t.Cleanup(srv.Close)

	dest := filepath.Join(t.TempDir(), "DEMO_J.XPT")
	if err := os.WriteFile(dest, []byte("already here"), 0600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(srv.Client(), WithDelay(0))
	downloaded, err := f.FetchFile(context.Background(), srv.URL+"/DEMO_J.XPT", dest)
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if downloaded {
		t.Error("expected existing file to be skipped")
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times, want 0", hits.Load())
	}

	data, _ := os.ReadFile(dest) //nolint:gosec // Test-owned path
	if string(data) != "already here" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

// TestFetchFileRetries tests retry on transient server errors.
func TestFetchFileRetries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), WithRetries(3), WithDelay(0), WithBackoff(time.Millisecond))
	dest := filepath.Join(t.TempDir(), "BPX_J.XPT")

	downloaded, err := f.FetchFile(context.Background(), srv.URL+"/BPX_J.XPT", dest)
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if !downloaded {
		t.Error("expected download to eventually succeed")
	}
	if hits.Load() != 3 {
		t.Errorf("server hit %d times, want 3", hits.Load())
	}
}

// TestFetchFileExhaustsRetries tests failure after all attempts.
func TestFetchFileExhaustsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), WithRetries(1), WithDelay(0), WithBackoff(time.Millisecond))
	dest := filepath.Join(t.TempDir(), "GONE.XPT")

	if _, err := f.FetchFile(context.Background(), srv.URL+"/GONE.XPT", dest); err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	// No truncated or partial file should be left behind.
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("expected no file at destination after failure")
	}
}

// TestFetchPage tests HTML page fetching.
func TestFetchPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "nhaneskit-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), WithUserAgent("nhaneskit-test"))
	body, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if string(body) != "<html></html>" {
		t.Errorf("body = %q", body)
	}
}

// TestFetchFileCancelled tests context cancellation during retry wait.
func TestFetchFileCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(srv.Client(), WithRetries(5), WithBackoff(time.Minute))
	_, err := f.FetchFile(ctx, srv.URL+"/X.XPT", filepath.Join(t.TempDir(), "X.XPT"))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// Package fetch is the single-file HTTP downloader the bootstrap engine
// drives for every descriptor, asset index, client jar, library, native, and
// asset fetch (the version manifest is fetched by internal/catalog instead).
// Downloads are existence-gated, not hash-gated (spec.md §4.4/§9): SHA1 is
// exposed for callers that want to verify explicitly, but the download path
// never blocks on it.
package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sammwyy/minilaunch/internal/layout"
)

// Fetcher issues single-file downloads over a retrying HTTP client, the
// same client shape internal/download/manager.go built for the teacher's
// parallel downloader.
type Fetcher struct {
	httpClient *http.Client
}

// New builds a Fetcher with bounded retries and a generous per-request
// timeout; there is no resume/range support (spec.md §4.4, explicit
// non-goal).
func New() *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	retryClient.HTTPClient.Transport = &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	retryClient.HTTPClient.Timeout = 5 * time.Minute

	return &Fetcher{httpClient: retryClient.StandardClient()}
}

// DownloadTo issues a GET for url and streams the body into target,
// creating target's parent directory first and replacing any existing file.
// A non-2xx response is a failure; redirects (including scheme-changing
// ones) are followed by the underlying client's default policy.
func (f *Fetcher) DownloadTo(ctx context.Context, url, target string) error {
	if err := layout.EnsureParents(target); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp := target + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing %s: %w", target, err)
	}

	return nil
}

// SHA1 streams path through a SHA-1 hash and returns its lowercase hex
// digest. It is only ever called by explicit validators — the download
// pipeline itself does not gate on it.
func SHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CloseIdleConnections releases pooled connections held by the Fetcher's
// underlying transport.
func (f *Fetcher) CloseIdleConnections() {
	f.httpClient.CloseIdleConnections()
}

// Exists reports whether path names an existing entry that is not a
// directory (readability is not checked) — the
// existence check the engine's diff phase uses to decide what's missing.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appLog "madcal/internal/log"
)

// ErrNotModifiedNoCache is returned when the server answers 304 but nothing
// is cached locally.
var ErrNotModifiedNoCache = errors.New("received 304 Not Modified but no cached body available")

// Source is one raw input: the events array, the exclusions document or
// the tracked items array.
type Source struct {
	// ID names the source in logs ("events", "exclusions", "items").
	ID string
	// URL is an http(s) endpoint, a file:// URL or a plain file path.
	URL string
}

// FetchResult contains the outcome of fetching a single source.
type FetchResult struct {
	Source    Source
	Body      []byte // payload, either freshly fetched or from cache
	FromCache bool   // true if the body came from the disk cache
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher reads sources with HTTP caching (ETag / Last-Modified) backed by
// a disk cache. Outbound requests share one rate limiter.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir, one subdirectory
// per URL.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		cacheDir: cacheDir,
	}
}

// SetLimiter replaces the outbound request limiter.
func (f *Fetcher) SetLimiter(l *rate.Limiter) {
	if l != nil {
		f.limiter = l
	}
}

// FetchAll fetches all sources. Failures are logged and collected; results
// only hold sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	errs := make([]error, 0)

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// FetchOne reads a single source. Local paths are read directly; remote
// URLs go through the conditional-request cache and fall back to the cached
// body on network errors and non-OK statuses.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if strings.TrimSpace(src.URL) == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	if path, ok := localPath(src.URL); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return FetchResult{}, err
		}
		appLog.Debug("feed read local file", "id", src.ID, "path", path, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	if err := f.limiter.Wait(ctx); err != nil {
		return FetchResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json, text/calendar;q=0.9, */*;q=0.5")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("feed cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}

		appLog.Info("feed fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		appLog.Debug("feed not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

// localPath reports whether raw names a file on disk.
func localPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw, true
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return u.Path, true
	case "http", "https":
		return "", false
	default:
		// Windows drive letters parse as a one-letter scheme.
		if len(u.Scheme) == 1 {
			return raw, true
		}
		return "", false
	}
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// First 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of u for logging.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "feed://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}

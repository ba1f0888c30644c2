// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example42/saigen-repos/internal/cache"
	"github.com/example42/saigen-repos/internal/httpx"
	"github.com/example42/saigen-repos/internal/ratex"
	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

const (
	defaultAPICacheTTLSeconds = 3600
	defaultMaxRetries         = 3
	defaultRetryDelaySeconds  = 1
	defaultConcurrentRequests = 5
)

// APIDownloader fetches one repository's data through a per-package query
// endpoint, adding rate limiting, a short-lived response cache and retry
// with backoff on top of BulkDownloader's fetch/decompress/parse pipeline
// (spec section 4.4).
type APIDownloader struct {
	*BulkDownloader
	limiter      *ratex.Limiter
	responseHTTP httpx.BasicClient // raw client, wrapped per-request with the response cache
	respCache    cache.Cache
}

// NewAPIDownloader builds an APIDownloader for info.
func NewAPIDownloader(info *repository.RepositoryInfo, client httpx.BasicClient) *APIDownloader {
	concurrency := info.Limits.ConcurrentRequests
	if concurrency == 0 {
		concurrency = defaultConcurrentRequests
	}
	ttlSecs := info.Cache.APICacheTTLSecs
	if ttlSecs == 0 {
		ttlSecs = defaultAPICacheTTLSeconds
	}

	respCache := cache.NewTTLMemoryCache(time.Duration(ttlSecs) * time.Second)
	bulk := &BulkDownloader{
		Info:   info,
		Client: withRepositoryTransport(info, httpx.NewCachedClient(client, respCache)),
	}
	return &APIDownloader{
		BulkDownloader: bulk,
		limiter:        ratex.NewLimiter(info.Limits.RequestsPerMinute, concurrency),
		responseHTTP:   withRepositoryTransport(info, client),
		respCache:      respCache,
	}
}

// makeAPIRequest implements spec section 4.4's makeAPIRequest: rate
// limiting plus retry with backoff on 429/5xx/transport errors. useCache
// selects the CachedClient path (bypassed entirely on retries).
func (d *APIDownloader) makeAPIRequest(ctx context.Context, url string, useCache bool) ([]byte, http.Header, error) {
	maxRetries := d.Info.Limits.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelaySecs := d.Info.Limits.RetryDelaySeconds
	if retryDelaySecs == 0 {
		retryDelaySecs = defaultRetryDelaySeconds
	}
	base := time.Duration(retryDelaySecs) * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		release, err := d.limiter.Acquire(ctx)
		if err != nil {
			return nil, nil, errs.NewRepositoryError(d.Info.Name, "rate limiter wait canceled", err)
		}

		client := d.responseHTTP
		if useCache && attempt == 0 {
			client = d.BulkDownloader.Client
		}
		data, header, status, err := d.doRequest(ctx, client, url)
		release()

		if err == nil && status != http.StatusTooManyRequests && status < 500 {
			return data, header, nil
		}

		lastErr = err
		if err == nil {
			var cause error
			if status == http.StatusTooManyRequests {
				cause = errs.ErrRateLimited
			}
			lastErr = errs.NewRepositoryError(d.Info.Name, "HTTP "+http.StatusText(status)+" from "+url, cause)
		}
		if attempt == maxRetries {
			break
		}
		delay := ratex.BackoffDelay(attempt, base, d.Info.Limits.ExponentialBackoff)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, nil, ctx.Err()
		}
	}
	return nil, nil, errs.NewRepositoryError(d.Info.Name, "exhausted retries for "+url, lastErr)
}

func (d *APIDownloader) doRequest(ctx context.Context, client httpx.BasicClient, url string) (data []byte, header http.Header, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, d.maxResponseBytes()+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, nil, resp.StatusCode, err
	}
	if int64(len(body)) > d.maxResponseBytes() {
		return nil, nil, resp.StatusCode, errs.NewRepositoryError(d.Info.Name, "response exceeds max_response_size_mb", nil)
	}
	return body, resp.Header, resp.StatusCode, nil
}

// QueryPackage implements spec section 4.4's QueryPackage: never returns an
// error, logging diagnostics and returning nil on any failure instead.
func (d *APIDownloader) QueryPackage(ctx context.Context, name string, useCache bool) *repository.Package {
	if d.Info.Endpoints.Info == "" {
		log.Printf("repository %s: query_package: no endpoints.info configured", d.Info.Name)
		return nil
	}
	url := resolveURL(d.Info.Endpoints.Info, d.Info)
	url = strings.NewReplacer("{package}", name, "{query}", name).Replace(url)

	data, header, err := d.makeAPIRequest(ctx, url, useCache)
	if err != nil {
		log.Printf("repository %s: query_package(%s): %v", d.Info.Name, name, err)
		return nil
	}
	packages, err := d.decompressAndParse(data, header)
	if err != nil {
		log.Printf("repository %s: query_package(%s): %v", d.Info.Name, name, err)
		return nil
	}
	for i := range packages {
		if strings.EqualFold(packages[i].Name, name) {
			return &packages[i]
		}
	}
	if len(packages) > 0 {
		return &packages[0]
	}
	return nil
}

// QueryBatch implements spec section 4.4's QueryBatch: concurrent
// QueryPackage calls, bounded by the rate limiter's own concurrency gate,
// with every input name present in the result map.
func (d *APIDownloader) QueryBatch(ctx context.Context, names []string, useCache bool) map[string]*repository.Package {
	results := make(map[string]*repository.Package, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			pkg := d.QueryPackage(ctx, name, useCache)
			mu.Lock()
			results[name] = pkg
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// DownloadPackageList implements spec section 4.4's override: a single
// cached fetch against endpoints.packages if configured, else failure.
// Manager-level bulk refresh deliberately skips API downloaders (see
// IsBulkFetchable).
func (d *APIDownloader) DownloadPackageList(ctx context.Context) ([]repository.Package, error) {
	log.Printf("repository %s: bulk download requested on an API-backed repository", d.Info.Name)
	if d.Info.Endpoints.Packages == "" {
		return nil, errs.NewRepositoryError(d.Info.Name, "no endpoints.packages configured for API downloader", nil)
	}
	url := resolveURL(d.Info.Endpoints.Packages, d.Info)
	data, header, err := d.makeAPIRequest(ctx, url, true)
	if err != nil {
		return nil, err
	}
	return d.decompressAndParse(data, header)
}

// IsBulkFetchable reports whether the persistent cache's GetOrFetch may
// bulk-fetch this downloader; API downloaders are always queried on demand
// via QueryPackage/QueryBatch instead.
func (d *APIDownloader) IsBulkFetchable() bool { return false }

var _ Downloader = &APIDownloader{}

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package downloader implements the bulk and API downloader components
// (spec sections 4.3 and 4.4): fetching, decompressing and parsing one
// repository's payload into normalized packages.
package downloader

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example42/saigen-repos/internal/httpx"
	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/decompress"
	"github.com/example42/saigen-repos/pkg/repository/errs"
	"github.com/example42/saigen-repos/pkg/repository/parsers"
)

const (
	defaultTimeoutSeconds    = 300
	defaultMaxResponseSizeMB = 200
	defaultCacheTTLHours     = 24
)

// Downloader is the contract the manager drives every repository through,
// regardless of whether it's backed by BulkDownloader or APIDownloader.
type Downloader interface {
	DownloadPackageList(ctx context.Context) ([]repository.Package, error)
	SearchPackage(ctx context.Context, name string) ([]repository.Package, error)
	GetPackageDetails(ctx context.Context, name, version string) (*repository.Package, error)
	CacheKey() string
	CacheTTL() time.Duration
	RepositoryName() string
	IsAvailable(ctx context.Context) bool
	IsBulkFetchable() bool
}

// BulkDownloader fetches and parses one repository's complete package list
// from a single static endpoint (spec section 4.3).
type BulkDownloader struct {
	Info   *repository.RepositoryInfo
	Client httpx.BasicClient
}

// NewBulkDownloader builds a BulkDownloader for info, wrapping client with
// the repository's configured User-Agent and auth.
func NewBulkDownloader(info *repository.RepositoryInfo, client httpx.BasicClient) *BulkDownloader {
	return &BulkDownloader{Info: info, Client: withRepositoryTransport(info, client)}
}

func withRepositoryTransport(info *repository.RepositoryInfo, client httpx.BasicClient) httpx.BasicClient {
	client = &httpx.WithUserAgent{BasicClient: client, UserAgent: "saigen-repos/1.0"}
	header, value := authHeader(info)
	if header != "" {
		client = &httpx.WithAuth{BasicClient: client, Header: header, Value: value}
	}
	return client
}

func authHeader(info *repository.RepositoryInfo) (header, value string) {
	switch info.Auth.Type {
	case repository.AuthBearer:
		return "Authorization", "Bearer " + info.Auth.Token
	case repository.AuthAPIKey:
		h := info.Auth.APIKeyHeader
		if h == "" {
			h = "X-API-Key"
		}
		return h, info.Auth.APIKey
	default:
		return "", ""
	}
}

// resolveURL substitutes {arch}/{architecture} and {release}/{distribution}
// placeholders, per spec section 4.3 step 1.
func resolveURL(tmpl string, info *repository.RepositoryInfo) string {
	r := strings.NewReplacer(
		"{arch}", info.Arch(),
		"{architecture}", info.Arch(),
		"{release}", info.Release(),
		"{distribution}", info.Release(),
	)
	return r.Replace(tmpl)
}

func validateScheme(url, repoName string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errs.NewRepositoryError(repoName, "unsupported URL scheme in "+url, nil)
	}
	return nil
}

func (d *BulkDownloader) timeout() time.Duration {
	secs := d.Info.Limits.TimeoutSeconds
	if secs == 0 {
		secs = defaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

func (d *BulkDownloader) maxResponseBytes() int64 {
	mb := d.Info.Limits.MaxResponseSizeMB
	if mb == 0 {
		mb = defaultMaxResponseSizeMB
	}
	return int64(mb) * 1024 * 1024
}

// fetch performs steps 2-4 of spec section 4.3: scheme validation, the GET
// request (bounded by ctx and the repository's configured timeout), and
// Content-Length enforcement.
func (d *BulkDownloader) fetch(ctx context.Context, url string) ([]byte, http.Header, error) {
	if err := validateScheme(url, d.Info.Name); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, errs.NewRepositoryError(d.Info.Name, "building request", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, nil, errs.NewRepositoryError(d.Info.Name, "fetching "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errs.NewRepositoryError(d.Info.Name, "unexpected status "+resp.Status+" from "+url, nil)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > d.maxResponseBytes() {
			return nil, nil, errs.NewRepositoryError(d.Info.Name, "response exceeds max_response_size_mb", nil)
		}
	}

	limited := io.LimitReader(resp.Body, d.maxResponseBytes()+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, nil, errs.NewRepositoryError(d.Info.Name, "reading response body", err)
	}
	if int64(len(data)) > d.maxResponseBytes() {
		return nil, nil, errs.NewRepositoryError(d.Info.Name, "response exceeds max_response_size_mb", nil)
	}
	return data, resp.Header, nil
}

// decompressAndParse performs steps 5-6 of spec section 4.3.
func (d *BulkDownloader) decompressAndParse(data []byte, header http.Header) ([]repository.Package, error) {
	algo := decompress.Algorithm(d.Info.Parsing.Compression)
	if algo == "" || algo == decompress.None {
		algo = decompress.DetectContentEncoding(header.Get("Content-Encoding"))
	}
	decompressed, err := decompress.Decompress(data, algo)
	if err != nil {
		return nil, errs.NewRepositoryError(d.Info.Name, "decompressing response", err)
	}

	packages, err := parsers.Parse(decompressed, d.Info)
	if err != nil {
		return nil, errs.NewRepositoryError(d.Info.Name, "parsing response", err)
	}
	return packages, nil
}

// DownloadPackageList implements spec section 4.3's DownloadPackageList.
func (d *BulkDownloader) DownloadPackageList(ctx context.Context) ([]repository.Package, error) {
	url := resolveURL(d.Info.Endpoints.Packages, d.Info)
	data, header, err := d.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return d.decompressAndParse(data, header)
}

// SearchPackage implements spec section 4.3's SearchPackage.
func (d *BulkDownloader) SearchPackage(ctx context.Context, name string) ([]repository.Package, error) {
	var packages []repository.Package
	if d.Info.Endpoints.Search != "" {
		url := resolveURL(d.Info.Endpoints.Search, d.Info)
		url = strings.NewReplacer("{query}", name, "{package}", name).Replace(url)
		data, header, err := d.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		packages, err = d.decompressAndParse(data, header)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		packages, err = d.DownloadPackageList(ctx)
		if err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(name)
	var results []repository.Package
	for _, pkg := range packages {
		if strings.Contains(strings.ToLower(pkg.Name), needle) || strings.Contains(strings.ToLower(pkg.Description), needle) {
			results = append(results, pkg)
		}
	}
	return results, nil
}

// GetPackageDetails implements spec section 4.3's GetPackageDetails.
func (d *BulkDownloader) GetPackageDetails(ctx context.Context, name, version string) (*repository.Package, error) {
	var candidates []repository.Package
	if d.Info.Endpoints.Info != "" {
		url := resolveURL(d.Info.Endpoints.Info, d.Info)
		url = strings.NewReplacer("{package}", name, "{version}", version).Replace(url)
		data, header, err := d.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		candidates, err = d.decompressAndParse(data, header)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			if strings.EqualFold(candidates[i].Name, name) && (version == "" || candidates[i].Version == version) {
				return &candidates[i], nil
			}
		}
		if len(candidates) > 0 {
			return &candidates[0], nil
		}
		return nil, nil
	}

	results, err := d.SearchPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if strings.EqualFold(results[i].Name, name) {
			return &results[i], nil
		}
	}
	if len(results) > 0 {
		return &results[0], nil
	}
	return nil, nil
}

// IsAvailable implements spec section 4.3's availability probe: a HEAD on
// the resolved packages URL, capped at 10 seconds.
func (d *BulkDownloader) IsAvailable(ctx context.Context) bool {
	ceiling := 10 * time.Second
	if t := d.timeout(); t < ceiling {
		ceiling = t
	}
	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	url := resolveURL(d.Info.Endpoints.Packages, d.Info)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// CacheKey returns the persistent-cache key for this repository: SHA-256
// over canonical JSON of its identity fields, per spec section 4.6.
func (d *BulkDownloader) CacheKey() string {
	return repositoryCacheKey(d.Info)
}

// CacheTTL returns the repository's configured persistent-cache TTL.
func (d *BulkDownloader) CacheTTL() time.Duration {
	hours := d.Info.Cache.TTLHours
	if hours == 0 {
		hours = defaultCacheTTLHours
	}
	return time.Duration(hours) * time.Hour
}

// RepositoryName returns the repository's configured name.
func (d *BulkDownloader) RepositoryName() string { return d.Info.Name }

// IsBulkFetchable reports whether this downloader may be bulk-fetched
// through the persistent cache's GetOrFetch. BulkDownloader always is.
func (d *BulkDownloader) IsBulkFetchable() bool { return true }

var _ Downloader = &BulkDownloader{}

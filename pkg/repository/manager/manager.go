// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package manager implements the Repository Manager (spec section 4.1):
// the single entry point that owns every configured repository's identity,
// downloader and the shared persistent cache.
package manager

import (
	"context"
	"log"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example42/saigen-repos/internal/httpx"
	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/config"
	"github.com/example42/saigen-repos/pkg/repository/diskcache"
	"github.com/example42/saigen-repos/pkg/repository/downloader"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

// rangeParallel runs f over every input concurrently, bounded by the host's
// CPU count, and waits for all to finish. f's own errors are handled by the
// caller (typically logged per-repository); rangeParallel itself never
// fails, since a single repository's problem must never abort the others.
func rangeParallel[I any](ctx context.Context, inputs []I, f func(context.Context, I)) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for _, input := range inputs {
		eg.Go(func() error {
			f(egCtx, input)
			return nil
		})
	}
	eg.Wait()
}

// Downloader is the capability set a Manager drives every repository
// through, regardless of whether it's bulk- or API-backed (spec section
// 4.1/4.3/4.4).
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

// queryable is implemented by API-backed downloaders only.
type queryable interface {
	QueryPackage(ctx context.Context, name string, useCache bool) *repository.Package
	QueryBatch(ctx context.Context, names []string, useCache bool) map[string]*repository.Package
}

// Manager owns every configured repository's identity, downloader and the
// shared persistent cache, and is the single entry point collaborators
// outside this module drive (spec section 4.1).
type Manager struct {
	mu          sync.RWMutex
	configs     map[string]*repository.RepositoryInfo
	downloaders map[string]Downloader

	cache       *diskcache.Cache
	configDirs  []string
	httpFactory func(*repository.RepositoryInfo) httpx.BasicClient
	logger      *log.Logger

	initialized bool
}

// Option customizes a Manager at construction.
type Option func(*Manager)

// WithHTTPFactory overrides how a Downloader's transport is built, for tests.
func WithHTTPFactory(f func(*repository.RepositoryInfo) httpx.BasicClient) Option {
	return func(m *Manager) { m.httpFactory = f }
}

// WithLogger overrides the logger used for load-skip warnings, EOL notices
// and aggregate per-repo failures. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager that loads repository configs from configDirs and
// caches fetched package lists under cacheDir.
func New(cacheDir string, configDirs []string, opts ...Option) (*Manager, error) {
	c, err := diskcache.New(cacheDir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		configs:     make(map[string]*repository.RepositoryInfo),
		downloaders: make(map[string]Downloader),
		cache:       c,
		configDirs:  configDirs,
		httpFactory: func(*repository.RepositoryInfo) httpx.BasicClient { return http.DefaultClient },
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Initialize loads all configured repositories, validates them and
// constructs a downloader for every enabled one. Idempotent: a second call
// reloads configs and rebuilds downloaders from scratch.
func (m *Manager) Initialize(ctx context.Context) error {
	repos := config.Load(m.configDirs...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = make(map[string]*repository.RepositoryInfo, len(repos))
	m.downloaders = make(map[string]Downloader, len(repos))
	for _, info := range repos {
		if !info.Enabled {
			continue
		}
		m.configs[info.Name] = info
		m.downloaders[info.Name] = m.buildDownloader(info)
	}
	m.initialized = true
	return nil
}

func (m *Manager) buildDownloader(info *repository.RepositoryInfo) Downloader {
	client := m.httpFactory(info)
	if info.EffectiveQueryType() == repository.QueryTypeAPI {
		return downloader.NewAPIDownloader(info, client)
	}
	return downloader.NewBulkDownloader(info, client)
}

func (m *Manager) downloaderFor(repo string) (Downloader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.downloaders[repo]
	if !ok {
		return nil, errs.NewRepositoryError(repo, "unknown repository", nil)
	}
	return d, nil
}

// cacheFetcher adapts a Downloader to diskcache.Fetcher.
type cacheFetcher struct{ Downloader }

func (f cacheFetcher) DownloadPackageList(ctx context.Context) ([]repository.Package, error) {
	return f.Downloader.DownloadPackageList(ctx)
}

// GetPackages returns repo's normalized packages, served from the
// persistent cache when useCache is true and the entry is fresh.
func (m *Manager) GetPackages(ctx context.Context, repo string, useCache bool) ([]repository.Package, error) {
	d, err := m.downloaderFor(repo)
	if err != nil {
		return nil, err
	}
	if !useCache {
		return d.DownloadPackageList(ctx)
	}
	return m.cache.GetOrFetch(ctx, cacheFetcher{d})
}

// selected filters the manager's configured repositories by platform and
// type, both optional, preserving no particular order (callers sort as
// their operation requires).
func (m *Manager) selected(platform repository.Platform, typ string) []*repository.RepositoryInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*repository.RepositoryInfo
	for _, info := range m.configs {
		if !info.Platform.Matches(platform) {
			continue
		}
		if typ != "" && info.Type != typ {
			continue
		}
		out = append(out, info)
	}
	return out
}

func sortByPriorityThenName(repos []*repository.RepositoryInfo) {
	sort.SliceStable(repos, func(i, j int) bool {
		if repos[i].Priority != repos[j].Priority {
			return repos[i].Priority > repos[j].Priority
		}
		return repos[i].Name < repos[j].Name
	})
}

// GetAllPackages fans out GetPackages across every matching repository,
// skipping api-typed repos (spec section 4.1/invariant 7). A single
// repository's failure is logged and yields an empty slice for that
// repository; the call itself never fails.
func (m *Manager) GetAllPackages(ctx context.Context, platform repository.Platform, typ string, useCache bool) map[string][]repository.Package {
	var targets []*repository.RepositoryInfo
	for _, info := range m.selected(platform, typ) {
		if d, err := m.downloaderFor(info.Name); err == nil && d.IsBulkFetchable() {
			targets = append(targets, info)
		}
	}

	results := make(map[string][]repository.Package, len(targets))
	var mu sync.Mutex
	rangeParallel(ctx, targets, func(ctx context.Context, info *repository.RepositoryInfo) {
		d, _ := m.downloaderFor(info.Name)
		var packages []repository.Package
		var err error
		if useCache {
			packages, err = m.cache.GetOrFetch(ctx, cacheFetcher{d})
		} else {
			packages, err = d.DownloadPackageList(ctx)
		}
		if err != nil {
			m.logger.Printf("repository %s: GetAllPackages: %v", info.Name, err)
			packages = nil
		}
		mu.Lock()
		results[info.Name] = packages
		mu.Unlock()
	})
	return results
}

// SearchPackages fans out SearchPackage(query) over every matching
// repository, concatenating results in priority-descending order and
// applying a per-repository then global limit. Per-repo failures are
// logged; the aggregate call never aborts.
func (m *Manager) SearchPackages(ctx context.Context, query string, platform repository.Platform, typ string, limit int) *repository.SearchResult {
	repos := m.selected(platform, typ)
	sortByPriorityThenName(repos)

	byName := make(map[string][]repository.Package, len(repos))
	var mu sync.Mutex
	rangeParallel(ctx, repos, func(ctx context.Context, info *repository.RepositoryInfo) {
		d, err := m.downloaderFor(info.Name)
		if err != nil {
			return
		}
		packages, err := d.SearchPackage(ctx, query)
		if err != nil {
			m.logger.Printf("repository %s: SearchPackages: %v", info.Name, err)
			packages = nil
		}
		mu.Lock()
		byName[info.Name] = packages
		mu.Unlock()
	})

	result := &repository.SearchResult{Query: query, RepositorySources: make(map[string]int)}
	for _, info := range repos {
		packages := byName[info.Name]
		if limit > 0 && len(packages) > limit {
			packages = packages[:limit]
		}
		if len(packages) == 0 {
			continue
		}
		result.RepositorySources[info.Name] = len(packages)
		result.Packages = append(result.Packages, packages...)
		if limit > 0 && len(result.Packages) >= limit {
			result.Packages = result.Packages[:limit]
			break
		}
	}
	result.TotalResults = len(result.Packages)
	return result
}

// GetPackageDetails iterates downloaders in descending priority and returns
// the first non-nil exact-name match (spec section 4.1/invariant 7).
func (m *Manager) GetPackageDetails(ctx context.Context, name string, version string, platform repository.Platform, typ string) *repository.Package {
	repos := m.selected(platform, typ)
	sortByPriorityThenName(repos)

	for _, info := range repos {
		d, err := m.downloaderFor(info.Name)
		if err != nil {
			continue
		}
		pkg, err := d.GetPackageDetails(ctx, name, version)
		if err != nil {
			m.logger.Printf("repository %s: GetPackageDetails: %v", info.Name, err)
			continue
		}
		if pkg != nil && strings.EqualFold(pkg.Name, name) {
			return pkg
		}
	}
	return nil
}

// QueryPackage is the fast path for api-typed repos via the info endpoint;
// for bulk_download repos it falls back to GetPackageDetails.
func (m *Manager) QueryPackage(ctx context.Context, repo, name string, useCache bool) *repository.Package {
	d, err := m.downloaderFor(repo)
	if err != nil {
		m.logger.Printf("QueryPackage: %v", err)
		return nil
	}
	if q, ok := d.(queryable); ok {
		return q.QueryPackage(ctx, name, useCache)
	}
	pkg, err := d.GetPackageDetails(ctx, name, "")
	if err != nil {
		m.logger.Printf("repository %s: QueryPackage: %v", repo, err)
		return nil
	}
	return pkg
}

// QueryBatch runs concurrent per-name queries against repo, bounded by that
// repository's own rate limiter when it is api-typed. Every input name is
// present in the result map (spec section 5).
func (m *Manager) QueryBatch(ctx context.Context, repo string, names []string, useCache bool) map[string]*repository.Package {
	d, err := m.downloaderFor(repo)
	if err != nil {
		m.logger.Printf("QueryBatch: %v", err)
		results := make(map[string]*repository.Package, len(names))
		for _, n := range names {
			results[n] = nil
		}
		return results
	}
	if q, ok := d.(queryable); ok {
		return q.QueryBatch(ctx, names, useCache)
	}

	results := make(map[string]*repository.Package, len(names))
	var mu sync.Mutex
	rangeParallel(ctx, names, func(ctx context.Context, name string) {
		pkg, err := d.GetPackageDetails(ctx, name, "")
		if err != nil {
			m.logger.Printf("repository %s: QueryBatch(%s): %v", repo, name, err)
			pkg = nil
		}
		mu.Lock()
		results[name] = pkg
		mu.Unlock()
	})
	return results
}

// UpdateCache refreshes the persistent cache entry for each named
// repository (or every configured repository when names is empty): with
// force the entry is invalidated first, otherwise it is refetched only when
// missing or expired. Api-typed repos are never fetched and are reported as
// false (spec section 4.1/invariant 6). Returns a map of repository name to
// whether the refresh succeeded.
func (m *Manager) UpdateCache(ctx context.Context, names []string, force bool) map[string]bool {
	targets := names
	if len(targets) == 0 {
		m.mu.RLock()
		for name := range m.configs {
			targets = append(targets, name)
		}
		m.mu.RUnlock()
	}

	results := make(map[string]bool, len(targets))
	var mu sync.Mutex
	rangeParallel(ctx, targets, func(ctx context.Context, name string) {
		ok := m.updateOne(ctx, name, force)
		mu.Lock()
		results[name] = ok
		mu.Unlock()
	})
	return results
}

func (m *Manager) updateOne(ctx context.Context, name string, force bool) bool {
	d, err := m.downloaderFor(name)
	if err != nil {
		m.logger.Printf("UpdateCache: %v", err)
		return false
	}
	if !d.IsBulkFetchable() {
		return false
	}
	if force {
		m.cache.Invalidate(d.CacheKey())
	}
	if _, err := m.cache.GetOrFetch(ctx, cacheFetcher{d}); err != nil {
		m.logger.Printf("repository %s: UpdateCache: %v", name, err)
		return false
	}
	return true
}

// ResolveRepositoryName implements spec section 4.7's codename resolution.
func (m *Manager) ResolveRepositoryName(provider, os, version string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	repos := make([]*repository.RepositoryInfo, 0, len(m.configs))
	for _, info := range m.configs {
		repos = append(repos, info)
	}
	return repository.ResolveRepositoryName(provider, os, version, repos)
}

// Stats returns the persistent cache's aggregate statistics.
func (m *Manager) Stats() diskcache.Stats {
	return m.cache.Stats()
}

// IsAvailable probes repo's availability without mutating any state. A
// repository configured with metadata.test_availability: false is assumed
// available and is never actually probed.
func (m *Manager) IsAvailable(ctx context.Context, repo string) bool {
	m.mu.RLock()
	info, known := m.configs[repo]
	m.mu.RUnlock()
	if known && !info.TestAvailability {
		return true
	}

	d, err := m.downloaderFor(repo)
	if err != nil {
		return false
	}
	return d.IsAvailable(ctx)
}

// Close releases any resources held by the Manager. Currently a no-op: the
// disk cache and HTTP clients hold no long-lived handles.
func (m *Manager) Close() error { return nil }

var _ Downloader = (*downloader.BulkDownloader)(nil)
var _ Downloader = (*downloader.APIDownloader)(nil)

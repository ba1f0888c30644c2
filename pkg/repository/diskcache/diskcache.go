// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package diskcache implements the persistent, TTL-bound repository package
// cache (spec section 4.6): one <key>.data/<key>.meta file pair per cache
// key, atomic writes, per-key locking, and scan-based stats/cleanup.
package diskcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

const cacheSchemaVersion = "1"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeKey collapses every character outside [A-Za-z0-9_-] to '_' and
// caps the result at 200 bytes, so no cache key can escape the cache
// directory (spec section 3.2 invariant 4).
func SanitizeKey(key string) string {
	safe := unsafeKeyChars.ReplaceAllString(key, "_")
	if len(safe) > 200 {
		safe = safe[:200]
	}
	return safe
}

// Meta is the JSON sidecar persisted alongside a cache entry's data file.
type Meta struct {
	RepositoryName   string            `json:"repository_name"`
	Timestamp        time.Time         `json:"timestamp"`
	ExpiresAt        time.Time         `json:"expires_at"`
	Checksum         string            `json:"checksum"`
	PackageCount   int               `json:"package_count"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CacheSchemaVer string            `json:"cache_schema_version"`
}

// Entry is one cache read result.
type Entry struct {
	RepositoryName string
	Data           []repository.Package
	Timestamp      time.Time
	ExpiresAt      time.Time
	Checksum       string
	Metadata       map[string]string
}

// Fetcher is the contract diskcache needs from a downloader for GetOrFetch:
// the Downloader interface (package downloader) satisfies this directly.
type Fetcher interface {
	DownloadPackageList(ctx context.Context) ([]repository.Package, error)
	CacheKey() string
	CacheTTL() time.Duration
	RepositoryName() string
	// IsBulkFetchable distinguishes API-backed downloaders, which are never
	// bulk-fetched through GetOrFetch (spec section 4.6's GetOrFetch policy).
	IsBulkFetchable() bool
}

// Cache is a directory-backed, per-key-locked TTL cache of repository
// package lists.
type Cache struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.NewCacheError(dir, "creating cache directory", err)
	}
	return &Cache{dir: dir, locks: map[string]*sync.Mutex{}}, nil
}

func (c *Cache) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *Cache) dataPath(key string) string {
	return filepath.Join(c.dir, SanitizeKey(key)+".data")
}

func (c *Cache) metaPath(key string) string {
	return filepath.Join(c.dir, SanitizeKey(key)+".meta")
}

// Get returns the cache entry for key, or (nil, nil) on a clean miss. An
// expired or corrupt entry is evicted and also reported as a miss.
func (c *Cache) Get(key string) (*Entry, error) {
	l := c.lockFor(key)
	l.Lock()
	defer l.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) (*Entry, error) {
	metaRaw, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return nil, nil
	}
	var meta Meta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		c.removeLocked(key)
		return nil, nil
	}
	if time.Now().After(meta.ExpiresAt) {
		c.removeLocked(key)
		return nil, nil
	}

	dataRaw, err := os.ReadFile(c.dataPath(key))
	if err != nil {
		c.removeLocked(key)
		return nil, nil
	}
	var packages []repository.Package
	if err := json.Unmarshal(dataRaw, &packages); err != nil {
		c.removeLocked(key)
		return nil, nil
	}
	if checksum(packages) != meta.Checksum {
		c.removeLocked(key)
		return nil, nil
	}

	return &Entry{
		RepositoryName: meta.RepositoryName,
		Data:           packages,
		Timestamp:      meta.Timestamp,
		ExpiresAt:      meta.ExpiresAt,
		Checksum:       meta.Checksum,
		Metadata:       meta.Metadata,
	}, nil
}

// Set writes packages under key with the given TTL and metadata, replacing
// any existing entry atomically.
func (c *Cache) Set(key string, packages []repository.Package, repositoryName string, ttl time.Duration, metadata map[string]string) error {
	l := c.lockFor(key)
	l.Lock()
	defer l.Unlock()

	md := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	md["cache_schema_version"] = cacheSchemaVersion

	now := time.Now().UTC()
	meta := Meta{
		RepositoryName: repositoryName,
		Timestamp:      now,
		ExpiresAt:      now.Add(ttl),
		Checksum:       checksum(packages),
		PackageCount:   len(packages),
		Metadata:       md,
		CacheSchemaVer: cacheSchemaVersion,
	}

	dataRaw, err := json.Marshal(packages)
	if err != nil {
		return errs.NewCacheError(key, "encoding cache data", err)
	}
	metaRaw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.NewCacheError(key, "encoding cache metadata", err)
	}

	if err := atomicWrite(c.dataPath(key), dataRaw); err != nil {
		c.removeLocked(key)
		return errs.NewCacheError(key, "writing cache data", err)
	}
	if err := atomicWrite(c.metaPath(key), metaRaw); err != nil {
		c.removeLocked(key)
		return errs.NewCacheError(key, "writing cache metadata", err)
	}
	return nil
}

// atomicWrite writes data to path via a uniquely-named temp file in the same
// directory followed by an atomic rename, so readers never observe a
// partial write and concurrent writers to the same key never collide on
// the temp name.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpName := filepath.Join(dir, ".tmp-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// GetOrFetch returns the cached package list for f, fetching and storing it
// on a cache miss. API-backed downloaders are never bulk-fetched through
// this path: they return an empty slice immediately.
func (c *Cache) GetOrFetch(ctx context.Context, f Fetcher) ([]repository.Package, error) {
	key := f.CacheKey()
	if entry, err := c.Get(key); err != nil {
		return nil, err
	} else if entry != nil {
		return entry.Data, nil
	}

	if !f.IsBulkFetchable() {
		log.Printf("repository %s: GetOrFetch: not bulk-fetchable, skipping", f.RepositoryName())
		return nil, nil
	}

	packages, err := f.DownloadPackageList(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(key, packages, f.RepositoryName(), f.CacheTTL(), nil); err != nil {
		return nil, err
	}
	return packages, nil
}

// Invalidate deletes the cache entry for key, reporting whether one existed.
func (c *Cache) Invalidate(key string) bool {
	l := c.lockFor(key)
	l.Lock()
	defer l.Unlock()
	return c.removeLocked(key)
}

func (c *Cache) removeLocked(key string) bool {
	dataErr := os.Remove(c.dataPath(key))
	metaErr := os.Remove(c.metaPath(key))
	return dataErr == nil || metaErr == nil
}

// InvalidateRepository deletes every cache entry whose repositoryName
// matches, returning the count removed.
func (c *Cache) InvalidateRepository(repositoryName string) int {
	removed := 0
	c.forEachMeta(func(key string, meta *Meta) {
		if meta != nil && meta.RepositoryName == repositoryName {
			if c.Invalidate(key) {
				removed++
			}
		}
	})
	return removed
}

// CleanupExpired deletes every cache entry whose expiresAt has passed, and
// any entry with an unreadable or corrupt meta file.
func (c *Cache) CleanupExpired() int {
	removed := 0
	now := time.Now()
	c.forEachMeta(func(key string, meta *Meta) {
		if meta == nil || now.After(meta.ExpiresAt) {
			if c.Invalidate(key) {
				removed++
			}
		}
	})
	return removed
}

// RepositoryStats summarizes one repository's cache footprint.
type RepositoryStats struct {
	Entries  int `json:"entries"`
	Packages int `json:"packages"`
	Expired  int `json:"expired"`
}

// Stats summarizes the whole cache directory.
type Stats struct {
	TotalEntries   int                         `json:"total_entries"`
	ExpiredEntries int                         `json:"expired_entries"`
	TotalPackages  int                         `json:"total_packages"`
	TotalSizeBytes int64                       `json:"total_size_bytes"`
	Repositories   map[string]*RepositoryStats `json:"repositories"`
	OldestEntry    *time.Time                  `json:"oldest_entry,omitempty"`
	NewestEntry    *time.Time                  `json:"newest_entry,omitempty"`
}

// Stats scans the cache directory and summarizes its contents.
func (c *Cache) Stats() Stats {
	stats := Stats{Repositories: map[string]*RepositoryStats{}}
	now := time.Now()

	c.forEachMeta(func(key string, meta *Meta) {
		if meta == nil {
			return
		}
		stats.TotalEntries++
		expired := now.After(meta.ExpiresAt)
		if expired {
			stats.ExpiredEntries++
		}
		stats.TotalPackages += meta.PackageCount

		if info, err := os.Stat(c.dataPath(key)); err == nil {
			stats.TotalSizeBytes += info.Size()
		}

		repoStats, ok := stats.Repositories[meta.RepositoryName]
		if !ok {
			repoStats = &RepositoryStats{}
			stats.Repositories[meta.RepositoryName] = repoStats
		}
		repoStats.Entries++
		repoStats.Packages += meta.PackageCount
		if expired {
			repoStats.Expired++
		}

		if stats.OldestEntry == nil || meta.Timestamp.Before(*stats.OldestEntry) {
			t := meta.Timestamp
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || meta.Timestamp.After(*stats.NewestEntry) {
			t := meta.Timestamp
			stats.NewestEntry = &t
		}
	})
	return stats
}

// ClearAll removes every cache entry, returning the count removed.
func (c *Cache) ClearAll() int {
	removed := 0
	c.forEachMeta(func(key string, meta *Meta) {
		if c.Invalidate(key) {
			removed++
		}
	})
	return removed
}

// forEachMeta scans *.meta files in the cache directory, calling fn with the
// sanitized key (file stem) and the decoded Meta, or a nil Meta if the file
// could not be read/parsed.
func (c *Cache) forEachMeta(fn func(key string, meta *Meta)) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".meta") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		key := strings.TrimSuffix(name, ".meta")
		raw, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			fn(key, nil)
			continue
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			fn(key, nil)
			continue
		}
		fn(key, &meta)
	}
}

// checksum computes SHA-256 over the canonical (sorted-key) JSON encoding
// of packages, per spec section 3.2 invariant 3. The struct encoding is
// decoded into generic values and re-encoded, and encoding/json writes map
// keys in sorted order, so every object's keys appear sorted.
func checksum(packages []repository.Package) string {
	raw, err := json.Marshal(packages)
	if err != nil {
		return ""
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return ""
	}
	if raw, err = json.Marshal(generic); err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

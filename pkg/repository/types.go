// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package repository implements the saigen repository aggregation core: a
// disk-cached, rate-limited facade over dozens of package-repository
// formats (APT, DNF, Homebrew, npm, PyPI, winget, ...).
package repository

import "time"

// Platform is the set of operating-system targets a repository serves.
type Platform string

const (
	PlatformLinux     Platform = "linux"
	PlatformMacOS     Platform = "macos"
	PlatformWindows   Platform = "windows"
	PlatformUniversal Platform = "universal"
)

// Matches reports whether a repository declaring Platform p should be
// included when a caller filters by want. An empty want matches everything;
// "linux"/"macos"/"windows" also match repositories declared "universal".
func (p Platform) Matches(want Platform) bool {
	if want == "" {
		return true
	}
	if p == want {
		return true
	}
	return p == PlatformUniversal
}

// QueryType selects which Downloader variant serves a repository.
type QueryType string

const (
	QueryTypeBulkDownload QueryType = "bulk_download"
	QueryTypeAPI          QueryType = "api"
)

// Endpoints holds the templated URLs a repository exposes.
type Endpoints struct {
	Packages string `yaml:"packages"`
	Search   string `yaml:"search,omitempty"`
	Info     string `yaml:"info,omitempty"`
}

// Patterns configures format-specific extraction hints used by parsers.
type Patterns struct {
	JSONPath     string `yaml:"json_path,omitempty"`
	LinePattern  string `yaml:"line_pattern,omitempty"`
	PackageXPath string `yaml:"package_xpath,omitempty"`
	FileExt      string `yaml:"file_extension,omitempty"`
}

// FieldMap maps logical Package fields to source-document locators; the
// interpretation of each value (dot path, XPath-lite, regex group index) is
// format-specific — see package parsers.
type FieldMap map[string]string

// Parsing configures how a repository's raw payload becomes []Package.
type Parsing struct {
	Format      string   `yaml:"format"`
	Compression string   `yaml:"compression,omitempty"` // none|gzip|bzip2|xz|brotli
	Encoding    string   `yaml:"encoding,omitempty"`
	Patterns    Patterns `yaml:"patterns,omitempty"`
	Fields      FieldMap `yaml:"fields,omitempty"`

	// NameGroup/VersionGroup/DescriptionGroup are regex capture-group
	// indices used by the "text" format's line_pattern.
	NameGroup        int `yaml:"name_group,omitempty"`
	VersionGroup     int `yaml:"version_group,omitempty"`
	DescriptionGroup int `yaml:"description_group,omitempty"`
}

// CacheLimits configures TTLs for both the persistent and in-memory caches.
type CacheLimits struct {
	TTLHours        int `yaml:"ttl_hours,omitempty"`
	APICacheTTLSecs int `yaml:"api_cache_ttl_seconds,omitempty"`
}

// Limits bounds a repository's HTTP and concurrency behavior.
type Limits struct {
	RequestsPerMinute  int  `yaml:"requests_per_minute,omitempty"`
	ConcurrentRequests int  `yaml:"concurrent_requests,omitempty"`
	TimeoutSeconds     int  `yaml:"timeout_seconds,omitempty"`
	MaxResponseSizeMB  int  `yaml:"max_response_size_mb,omitempty"`
	MaxRetries         int  `yaml:"max_retries,omitempty"`
	RetryDelaySeconds  int  `yaml:"retry_delay_seconds,omitempty"`
	ExponentialBackoff bool `yaml:"exponential_backoff,omitempty"`
}

// AuthType selects which credential a downloader attaches to requests.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
)

// Auth configures outbound request credentials.
type Auth struct {
	Type         AuthType `yaml:"type,omitempty"`
	Token        string   `yaml:"token,omitempty"`
	APIKey       string   `yaml:"api_key,omitempty"`
	APIKeyHeader string   `yaml:"api_key_header,omitempty"`
}

// RepositoryInfo is the identity and policy of one configured repository.
// It is the Go-native shape of spec section 3.1's RepositoryInfo entity.
type RepositoryInfo struct {
	Name           string            `yaml:"name"`
	Type           string            `yaml:"type"`
	Platform       Platform          `yaml:"platform"`
	Architecture   []string          `yaml:"architecture,omitempty"`
	Distribution   []string          `yaml:"distribution,omitempty"`
	Enabled        bool              `yaml:"-"`
	Priority       int               `yaml:"-"`
	QueryType      QueryType         `yaml:"query_type,omitempty"`
	VersionMapping map[string]string `yaml:"version_mapping,omitempty"`
	EOL            bool              `yaml:"eol,omitempty"`

	// Descriptive fields and the availability-probe flag, read like Enabled
	// and Priority from the "metadata" block (or from top-level keys).
	Description      string `yaml:"-"`
	Maintainer       string `yaml:"-"`
	TestAvailability bool   `yaml:"-"`

	Endpoints Endpoints   `yaml:"endpoints"`
	Parsing   Parsing     `yaml:"parsing"`
	Cache     CacheLimits `yaml:"cache,omitempty"`
	Limits    Limits      `yaml:"limits,omitempty"`
	Auth      Auth        `yaml:"auth,omitempty"`

	// SourceFile records where this entry was loaded from, for diagnostics.
	SourceFile string `yaml:"-"`
}

// EffectiveQueryType returns QueryType, defaulting to bulk_download.
func (r *RepositoryInfo) EffectiveQueryType() QueryType {
	if r.QueryType == "" {
		return QueryTypeBulkDownload
	}
	return r.QueryType
}

// Arch returns the first configured architecture, defaulting to "amd64".
func (r *RepositoryInfo) Arch() string {
	if len(r.Architecture) == 0 {
		return "amd64"
	}
	return r.Architecture[0]
}

// Release returns the first configured distribution codename, or "".
func (r *RepositoryInfo) Release() string {
	if len(r.Distribution) == 0 {
		return ""
	}
	return r.Distribution[0]
}

// HasDistribution reports whether os appears in the repository's
// configured distribution list.
func (r *RepositoryInfo) HasDistribution(os string) bool {
	for _, d := range r.Distribution {
		if d == os {
			return true
		}
	}
	return false
}

// Package is the normalized record describing one software artifact from
// one repository (spec section 3.1's RepositoryPackage entity).
type Package struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Homepage        string            `json:"homepage,omitempty"`
	License         string            `json:"license,omitempty"`
	Maintainer      string            `json:"maintainer,omitempty"`
	DownloadURL     string            `json:"download_url,omitempty"`
	Size            int64             `json:"size,omitempty"`
	Category        string            `json:"category,omitempty"`
	Dependencies    []string          `json:"dependencies,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	RepositoryName  string            `json:"repository_name"`
	Platform        Platform          `json:"platform"`
	LastUpdated     time.Time         `json:"last_updated"`
	ExtraAttributes map[string]string `json:"extra_attributes,omitempty"`
}

// SearchResult aggregates SearchPackages contributions across repositories.
type SearchResult struct {
	Query              string             `json:"query"`
	Packages           []Package          `json:"packages"`
	TotalResults       int                `json:"total_results"`
	SearchTimeSeconds  float64            `json:"search_time_seconds"`
	RepositorySources  map[string]int     `json:"repository_sources"`
}

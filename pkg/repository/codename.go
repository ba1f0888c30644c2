// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"log"
	"sort"
)

// ResolveRepositoryName implements spec section 4.7's OS-version-to-codename
// resolution: given a provider (RepositoryInfo.Type) and an optional os and
// version, it picks the best-matching loaded repository's name.
//
//  1. If os or version is empty, provider is returned unchanged.
//  2. Only repositories with type == provider are considered.
//  3. Among those whose distribution contains os AND whose versionMapping
//     has an entry for version, prefer non-EOL, then highest priority, then
//     lexicographically-first name.
//  4. If nothing matches, provider is returned unchanged.
//  5. An EOL match is still selected, with an informational log line.
func ResolveRepositoryName(provider, os, version string, repos []*RepositoryInfo) string {
	if os == "" || version == "" {
		return provider
	}

	var candidates []*RepositoryInfo
	for _, r := range repos {
		if r.Type != provider {
			continue
		}
		if !r.HasDistribution(os) {
			continue
		}
		if _, ok := r.VersionMapping[version]; !ok {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return provider
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.EOL != b.EOL {
			return !a.EOL // non-EOL first
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Name < b.Name
	})

	best := candidates[0]
	if best.EOL {
		log.Printf("repository: selected end-of-life repository %q for %s/%s/%s", best.Name, provider, os, version)
	}
	return best.Name
}

// ResolveCodename returns repo's versionMapping entry for version, or ("",
// false) if none exists.
func ResolveCodename(repo *RepositoryInfo, version string) (string, bool) {
	codename, ok := repo.VersionMapping[version]
	return codename, ok
}

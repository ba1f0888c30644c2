// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

type githubContentsEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// parseGitHubDirectory parses a GitHub contents-API directory listing, the
// format used by Scoop/winget buckets: one file per package manifest.
// Versions aren't available from the listing alone, so every package's
// version is "unknown"; individual manifests are not fetched.
func parseGitHubDirectory(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	var entries []githubContentsEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid GitHub directory listing JSON", err)
	}

	fileExt := info.Parsing.Patterns.FileExt
	if fileExt == "" {
		fileExt = ".json"
	}

	var packages []repository.Package
	for _, entry := range entries {
		if entry.Type != "file" || entry.Name == "" {
			continue
		}
		name := strings.TrimSuffix(entry.Name, fileExt)
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		packages = append(packages, repository.Package{
			Name:           name,
			Version:        "unknown",
			DownloadURL:    entry.DownloadURL,
			RepositoryName: info.Name,
			Platform:       info.Platform,
			LastUpdated:    time.Now().UTC(),
		})
	}
	return packages, nil
}

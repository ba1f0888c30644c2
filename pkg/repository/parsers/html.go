// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"regexp"
	"strings"

	"github.com/example42/saigen-repos/pkg/repository"
)

var (
	htmlLinkPattern    = regexp.MustCompile(`(?i)<a[^>]+href=["']([^"']+)["'][^>]*>([^<]+)</a>`)
	htmlVersionPattern = regexp.MustCompile(`[-_](\d+(?:\.\d+)*)`)
)

// parseHTML does basic regex link extraction over a directory listing page,
// the same simple approach as the reference implementation: no full HTML
// tokenizer, just an anchor-tag regex.
func parseHTML(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	var packages []repository.Package
	for _, m := range htmlLinkPattern.FindAllStringSubmatch(string(data), -1) {
		href := m[1]
		text := strings.TrimSpace(m[2])
		if text == "" || strings.HasPrefix(text, "..") {
			continue
		}

		name := text
		version := "unknown"
		if vm := htmlVersionPattern.FindStringSubmatchIndex(text); vm != nil {
			version = text[vm[2]:vm[3]]
			name = text[:vm[0]]
		}

		packages = append(packages, repository.Package{
			Name:           name,
			Version:        version,
			DownloadURL:    href,
			RepositoryName: info.Name,
			Platform:       info.Platform,
		})
	}
	return packages, nil
}

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package parsers implements the nine repository payload formats of spec
// section 4.2: json, yaml, xml, text, debian_packages, rpm_metadata, html,
// csv, tsv and github_directory. Each is a Parser registered under its
// format name in a package-level registry.
package parsers

import (
	"sync"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

// Parser turns a repository's raw (already decompressed/decoded) payload
// into normalized packages, using info for field defaults and parsing
// config.
type Parser func(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error)

var (
	mu      sync.RWMutex
	parsers = map[string]Parser{}
)

// Register adds or replaces the Parser for format.
func Register(format string, p Parser) {
	mu.Lock()
	defer mu.Unlock()
	parsers[format] = p
}

// Get returns the Parser registered for format, or nil if none.
func Get(format string) Parser {
	mu.RLock()
	defer mu.RUnlock()
	return parsers[format]
}

// Parse dispatches to the Parser registered for info.Parsing.Format.
func Parse(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	format := info.Parsing.Format
	p := Get(format)
	if p == nil {
		return nil, errs.NewRepositoryError(info.Name, "no parser registered for format "+format, nil)
	}
	return p(data, info)
}

func init() {
	Register("json", parseJSON)
	Register("yaml", parseYAML)
	Register("xml", parseXML)
	Register("text", parseText)
	Register("debian_packages", parseDebianPackages)
	Register("rpm_metadata", parseRPMMetadata)
	Register("html", parseHTML)
	Register("csv", parseCSV)
	Register("tsv", parseTSV)
	Register("github_directory", parseGitHubDirectory)
}

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"strconv"
	"strings"

	"github.com/example42/saigen-repos/pkg/repository"
)

func parseDebianPackages(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	var packages []repository.Package
	current := map[string]string{}
	lastField := ""

	flush := func() {
		if len(current) == 0 {
			return
		}
		if pkg, ok := packageFromDebianFields(current, info); ok {
			packages = append(packages, pkg)
		}
		current = map[string]string{}
		lastField = ""
	}

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimRight(rawLine, " \t\r")

		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if lastField != "" {
				current[lastField] += "\n" + strings.TrimSpace(line)
			}
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 {
			field := strings.ToLower(strings.TrimSpace(line[:idx]))
			value := strings.TrimSpace(line[idx+1:])
			current[field] = value
			lastField = field
		}
	}
	flush()

	return packages, nil
}

func packageFromDebianFields(fields map[string]string, info *repository.RepositoryInfo) (repository.Package, bool) {
	name := fields["package"]
	if name == "" {
		return repository.Package{}, false
	}

	version := fields["version"]
	if version == "" {
		version = "unknown"
	}
	description := fields["description"]
	if description == "" {
		description = fields["summary"]
	}

	var dependencies []string
	if depends := fields["depends"]; depends != "" {
		for _, dep := range strings.Split(strings.ReplaceAll(depends, "|", ","), ",") {
			dep = strings.TrimSpace(dep)
			if idx := strings.Index(dep, "("); idx >= 0 {
				dep = strings.TrimSpace(dep[:idx])
			}
			if dep != "" {
				dependencies = append(dependencies, dep)
			}
		}
	}

	var size int64
	if installedSize := fields["installed-size"]; installedSize != "" {
		if n, err := strconv.ParseInt(installedSize, 10, 64); err == nil {
			size = n * 1024
		}
	}

	return repository.Package{
		Name:           name,
		Version:        version,
		Description:    description,
		Homepage:       fields["homepage"],
		Maintainer:     fields["maintainer"],
		Dependencies:   dependencies,
		Size:           size,
		Category:       fields["section"],
		RepositoryName: info.Name,
		Platform:       info.Platform,
	}, true
}

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"regexp"
	"strings"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

func parseText(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	linePattern := info.Parsing.Patterns.LinePattern
	if linePattern == "" {
		linePattern = `^(\S+)\s+(\S+)(?:\s+(.*))?$`
	}
	nameGroup := info.Parsing.NameGroup
	if nameGroup == 0 {
		nameGroup = 1
	}
	versionGroup := info.Parsing.VersionGroup
	if versionGroup == 0 {
		versionGroup = 2
	}
	descriptionGroup := info.Parsing.DescriptionGroup
	if descriptionGroup == 0 {
		descriptionGroup = 3
	}

	re, err := regexp.Compile(linePattern)
	if err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid text line_pattern", err)
	}

	var packages []repository.Package
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name := groupValue(m, nameGroup)
		if name == "" {
			continue
		}
		version := groupValue(m, versionGroup)
		if version == "" {
			version = "unknown"
		}

		packages = append(packages, repository.Package{
			Name:           name,
			Version:        version,
			Description:    groupValue(m, descriptionGroup),
			RepositoryName: info.Name,
			Platform:       info.Platform,
		})
	}
	return packages, nil
}

// groupValue returns submatches[idx], or "" if idx is out of range. idx is
// 1-based to match the reference implementation's regex group numbering.
func groupValue(submatches []string, idx int) string {
	if idx < 0 || idx >= len(submatches) {
		return ""
	}
	return submatches[idx]
}

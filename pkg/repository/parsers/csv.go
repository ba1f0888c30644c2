// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/csv"
	"strings"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

func parseCSV(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	return parseDelimited(data, ',', info, "Failed to parse CSV")
}

func parseTSV(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	return parseDelimited(data, '\t', info, "Failed to parse TSV")
}

func parseDelimited(data []byte, delim rune, info *repository.RepositoryInfo, errMsg string) ([]repository.Package, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = delim
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errs.NewRepositoryError(info.Name, errMsg, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	fields := info.Parsing.Fields
	get := func(row []string, key, def string) string {
		col := fieldOrDefault(fields, key, def)
		idx, ok := colIdx[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var packages []repository.Package
	for _, row := range rows[1:] {
		name := get(row, "name", "name")
		if name == "" {
			continue
		}
		version := get(row, "version", "version")
		if version == "" {
			version = "unknown"
		}
		packages = append(packages, repository.Package{
			Name:           name,
			Version:        version,
			Description:    get(row, "description", "description"),
			Homepage:       get(row, "homepage", "homepage"),
			License:        get(row, "license", "license"),
			Maintainer:     get(row, "maintainer", "maintainer"),
			RepositoryName: info.Name,
			Platform:       info.Platform,
		})
	}
	return packages, nil
}

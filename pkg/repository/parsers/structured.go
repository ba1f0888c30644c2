// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
	"gopkg.in/yaml.v3"
)

func parseJSON(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid JSON format", err)
	}
	return extractPackagesFromData(v, info), nil
}

func parseYAML(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid YAML format", err)
	}
	return extractPackagesFromData(v, info), nil
}

// extractPackagesFromData navigates info.Parsing.Patterns.JSONPath into the
// decoded document and builds a Package per list item, defaulting field
// locations to the identically-named top-level key.
func extractPackagesFromData(data any, info *repository.RepositoryInfo) []repository.Package {
	fields := info.Parsing.Fields
	jsonPath := info.Parsing.Patterns.JSONPath

	current := data
	if jsonPath != "" {
		for _, part := range strings.Split(jsonPath, ".") {
			switch v := current.(type) {
			case map[string]any:
				current = v[part]
			case []any:
				idx, err := strconv.Atoi(part)
				if err == nil && idx >= 0 && idx < len(v) {
					current = v[idx]
				} else {
					current = []any{}
				}
			default:
				current = []any{}
			}
		}
	}

	var items []any
	switch v := current.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		items = nil
	}

	var packages []repository.Package
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name := stringField(getNestedValue(m, fieldOrDefault(fields, "name", "name")))
		if name == "" {
			continue
		}
		version := stringField(getNestedValue(m, fieldOrDefault(fields, "version", "version")))
		if version == "" {
			version = "unknown"
		}

		pkg := repository.Package{
			Name:            name,
			Version:         version,
			Description:     stringField(getNestedValue(m, fieldOrDefault(fields, "description", "description"))),
			Homepage:        stringField(getNestedValue(m, fieldOrDefault(fields, "homepage", "homepage"))),
			License:         stringField(getNestedValue(m, fieldOrDefault(fields, "license", "license"))),
			Maintainer:      stringField(getNestedValue(m, fieldOrDefault(fields, "maintainer", "maintainer"))),
			DownloadURL:     stringField(getNestedValue(m, fieldOrDefault(fields, "download_url", "download_url"))),
			Category:        stringField(getNestedValue(m, fieldOrDefault(fields, "category", "category"))),
			Dependencies:    stringListField(getNestedValue(m, fieldOrDefault(fields, "dependencies", "dependencies"))),
			Tags:            stringListField(getNestedValue(m, fieldOrDefault(fields, "tags", "tags"))),
			Size:            int64Field(getNestedValue(m, fieldOrDefault(fields, "size", "size"))),
			RepositoryName:  info.Name,
			Platform:        info.Platform,
			LastUpdated:     time.Now().UTC(),
		}
		packages = append(packages, pkg)
	}
	return packages
}

func fieldOrDefault(fields repository.FieldMap, key, def string) string {
	if v, ok := fields[key]; ok && v != "" {
		return v
	}
	return def
}

// getNestedValue resolves a dot-separated path through nested
// map[string]any values, mirroring the reference parser's dict.get chain.
func getNestedValue(data map[string]any, path string) any {
	if path == "" {
		return nil
	}
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
		if current == nil {
			return nil
		}
	}
	return current
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func stringListField(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	case []any:
		var out []string
		for _, e := range t {
			if s := stringField(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func int64Field(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

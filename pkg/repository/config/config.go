// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates repository definitions from YAML
// directories (spec section 4.8), producing repository.RepositoryInfo
// values ready for the manager.
package config

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	versionMappingKeyPattern   = regexp.MustCompile(`^[0-9.]+$`)
	versionMappingValuePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Load reads every *.yaml/*.yml file in each of dirs and returns the valid
// RepositoryInfo entries. Invalid entries and unreadable files are logged
// and skipped rather than failing the whole load. Later directories (and
// later files within a directory, in lexicographic order) win on name
// collisions, with a warning logged for the replacement.
func Load(dirs ...string) []*repository.RepositoryInfo {
	byName := map[string]*repository.RepositoryInfo{}
	var order []string

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("repository config: reading directory %s: %v", dir, err)
			}
			continue
		}

		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".yaml" || ext == ".yml" {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			infos, err := loadFile(path)
			if err != nil {
				log.Printf("repository config: %v", err)
				continue
			}
			for _, info := range infos {
				if _, exists := byName[info.Name]; exists {
					log.Printf("repository config: repository %q redefined in %s, replacing prior definition", info.Name, path)
				} else {
					order = append(order, info.Name)
				}
				byName[info.Name] = info
			}
		}
	}

	out := make([]*repository.RepositoryInfo, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func loadFile(path string) ([]*repository.RepositoryInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError(path, "reading file", err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, errs.NewConfigError(path, "invalid YAML", err)
	}

	if version, ok := generic["version"]; ok {
		if s, ok := version.(string); !ok || s != "1.0" {
			log.Printf("repository config: %s: unexpected schema version %v, expected \"1.0\"", path, version)
		}
	}

	rawRepos, ok := generic["repositories"]
	if !ok {
		return nil, errs.NewConfigError(path, "missing top-level \"repositories\" list", nil)
	}
	items, ok := rawRepos.([]any)
	if !ok {
		return nil, errs.NewConfigError(path, "\"repositories\" must be a list", nil)
	}

	var infos []*repository.RepositoryInfo
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			log.Printf("repository config: %s: skipping non-mapping repository entry", path)
			continue
		}
		info, err := parseEntry(m, path)
		if err != nil {
			log.Printf("repository config: %s: skipping invalid entry: %v", path, err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// parseEntry re-marshals the generic map back to YAML and decodes it
// directly into RepositoryInfo, reusing its yaml tags, then validates the
// decoded result against spec section 4.8's schema rules.
func parseEntry(m map[string]any, sourceFile string) (*repository.RepositoryInfo, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "re-encoding repository entry")
	}

	var info repository.RepositoryInfo
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(err, "decoding repository entry")
	}
	info.SourceFile = sourceFile
	// These keys are read from the entry's "metadata" mapping, falling back
	// to the same key at the top level of the entry.
	meta, _ := m["metadata"].(map[string]any)
	info.Enabled = boolField(meta, "enabled", boolField(m, "enabled", true))
	info.Priority = intField(meta, "priority", intField(m, "priority", 1))
	info.Description = stringField(meta, "description", stringField(m, "description", ""))
	info.Maintainer = stringField(meta, "maintainer", stringField(m, "maintainer", ""))
	info.TestAvailability = boolField(meta, "test_availability", boolField(m, "test_availability", false))

	if err := validate(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func validate(info *repository.RepositoryInfo) error {
	if info.Name == "" {
		return errors.New("missing required field \"name\"")
	}
	if info.Type == "" {
		return errors.New("missing required field \"type\"")
	}
	if info.Platform == "" {
		return errors.New("missing required field \"platform\"")
	}
	if info.Parsing.Format == "" {
		return errors.New("missing required field \"parsing.format\"")
	}
	if info.Endpoints.Packages == "" {
		return errors.New("missing required field \"endpoints.packages\"")
	}

	for _, url := range []string{info.Endpoints.Packages, info.Endpoints.Search, info.Endpoints.Info} {
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return errors.Errorf("endpoint URL %q must start with http:// or https://", url)
		}
	}

	for k, v := range info.VersionMapping {
		if !versionMappingKeyPattern.MatchString(k) {
			return errors.Errorf("version_mapping key %q must match %s", k, versionMappingKeyPattern)
		}
		if !versionMappingValuePattern.MatchString(v) {
			return errors.Errorf("version_mapping value %q must match %s", v, versionMappingValuePattern)
		}
	}

	switch info.QueryType {
	case "", repository.QueryTypeBulkDownload, repository.QueryTypeAPI:
	default:
		return errors.Errorf("invalid query_type %q", info.QueryType)
	}

	return nil
}

func boolField(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func intField(m map[string]any, key string, def int) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func stringField(m map[string]any, key string, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/example42/saigen-repos/internal/httpx"
	"github.com/example42/saigen-repos/internal/httpx/httpxtest"
	"github.com/example42/saigen-repos/pkg/repository"
)

const configYAML = `
version: "1.0"
repositories:
  - name: apt-high
    type: apt
    platform: linux
    priority: 10
    endpoints:
      packages: "https://apt-high.example.test/packages.json"
    parsing:
      format: json
  - name: apt-low
    type: apt
    platform: linux
    priority: 1
    endpoints:
      packages: "https://apt-low.example.test/packages.json"
    parsing:
      format: json
  - name: npm-api
    type: npm
    platform: universal
    query_type: api
    endpoints:
      packages: "https://npm-api.example.test/packages.json"
      info: "https://npm-api.example.test/{package}"
    parsing:
      format: json
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "repos.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func jsonResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: httpxtest.Body(body), Header: http.Header{}}
}

// byURLClient serves a canned response keyed by exact request URL, safe for
// concurrent use by the manager's fan-out operations.
type byURLClient struct {
	responses map[string]string
}

func (c *byURLClient) Do(req *http.Request) (*http.Response, error) {
	if body, ok := c.responses[req.URL.String()]; ok {
		return jsonResponse(body), nil
	}
	return &http.Response{StatusCode: http.StatusNotFound, Body: httpxtest.Body("")}, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	client := &byURLClient{responses: map[string]string{
		"https://apt-high.example.test/packages.json": `[{"name":"nginx","version":"1.24.0"}]`,
		"https://apt-low.example.test/packages.json":  `[{"name":"curl","version":"7.88.1"}]`,
		"https://npm-api.example.test/lodash":         `[{"name":"lodash","version":"4.17.21"}]`,
	}}
	m, err := New(t.TempDir(), []string{writeConfig(t)}, WithHTTPFactory(func(*repository.RepositoryInfo) httpx.BasicClient {
		return client
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManager_Initialize_BuildsDownloaderPerRepo(t *testing.T) {
	m := newTestManager(t)
	if len(m.downloaders) != 3 {
		t.Fatalf("Initialize() built %d downloaders, want 3", len(m.downloaders))
	}
}

func TestManager_GetPackages(t *testing.T) {
	m := newTestManager(t)
	packages, err := m.GetPackages(context.Background(), "apt-high", false)
	if err != nil {
		t.Fatalf("GetPackages() failed: %v", err)
	}
	if len(packages) != 1 || packages[0].Name != "nginx" {
		t.Fatalf("GetPackages() = %+v", packages)
	}
}

func TestManager_GetPackages_UnknownRepo(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.GetPackages(context.Background(), "does-not-exist", false); err == nil {
		t.Fatal("GetPackages() succeeded for an unknown repository")
	}
}

func TestManager_GetAllPackages_SkipsAPIRepos(t *testing.T) {
	m := newTestManager(t)
	results := m.GetAllPackages(context.Background(), repository.PlatformLinux, "", false)
	if _, ok := results["npm-api"]; ok {
		t.Fatal("GetAllPackages() included an api-typed repository")
	}
	if len(results["apt-high"]) != 1 || len(results["apt-low"]) != 1 {
		t.Fatalf("GetAllPackages() = %+v", results)
	}
}

func TestManager_SearchPackages_OrdersByPriority(t *testing.T) {
	m := newTestManager(t)
	result := m.SearchPackages(context.Background(), "nginx", repository.PlatformLinux, "", 0)
	if result.TotalResults != 1 || result.Packages[0].Name != "nginx" {
		t.Fatalf("SearchPackages() = %+v", result)
	}
	if result.RepositorySources["apt-high"] != 1 {
		t.Fatalf("SearchPackages().RepositorySources = %+v", result.RepositorySources)
	}
}

func TestManager_GetPackageDetails_PrefersHighestPriority(t *testing.T) {
	m := newTestManager(t)
	pkg := m.GetPackageDetails(context.Background(), "nginx", "", repository.PlatformLinux, "")
	if pkg == nil || pkg.Name != "nginx" {
		t.Fatalf("GetPackageDetails() = %+v", pkg)
	}
}

func TestManager_QueryPackage_APIRepo(t *testing.T) {
	m := newTestManager(t)
	pkg := m.QueryPackage(context.Background(), "npm-api", "lodash", true)
	if pkg == nil || pkg.Version != "4.17.21" {
		t.Fatalf("QueryPackage() = %+v", pkg)
	}
}

func TestManager_QueryPackage_BulkRepoFallsBackToDetails(t *testing.T) {
	m := newTestManager(t)
	pkg := m.QueryPackage(context.Background(), "apt-high", "nginx", true)
	if pkg == nil || pkg.Name != "nginx" {
		t.Fatalf("QueryPackage() = %+v", pkg)
	}
}

func TestManager_QueryBatch_CoversEveryName(t *testing.T) {
	m := newTestManager(t)
	results := m.QueryBatch(context.Background(), "npm-api", []string{"lodash", "missing"}, true)
	if len(results) != 2 {
		t.Fatalf("QueryBatch() = %+v, want 2 entries", results)
	}
	if results["lodash"] == nil {
		t.Fatal("QueryBatch()[lodash] = nil")
	}
	if results["missing"] != nil {
		t.Fatalf("QueryBatch()[missing] = %+v, want nil", results["missing"])
	}
}

func TestManager_UpdateCache_SkipsAPIRepo(t *testing.T) {
	m := newTestManager(t)
	results := m.UpdateCache(context.Background(), nil, true)
	if results["npm-api"] {
		t.Fatal("UpdateCache() refreshed an api-typed repository")
	}
	if !results["apt-high"] || !results["apt-low"] {
		t.Fatalf("UpdateCache() = %+v, want apt-high and apt-low true", results)
	}
}

func TestManager_ResolveRepositoryName_NoVersionMapping(t *testing.T) {
	m := newTestManager(t)
	if name := m.ResolveRepositoryName("apt", "ubuntu", "22.04"); name != "apt" {
		t.Fatalf("ResolveRepositoryName() = %q, want fallback %q", name, "apt")
	}
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(t)
	m.UpdateCache(context.Background(), []string{"apt-high"}, true)
	stats := m.Stats()
	if stats.TotalEntries != 1 {
		t.Fatalf("Stats().TotalEntries = %d, want 1", stats.TotalEntries)
	}
}

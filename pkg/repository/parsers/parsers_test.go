// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"testing"

	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseDebianPackages(t *testing.T) {
	data := []byte(`Package: nginx
Version: 1.24.0-1
Description: HTTP server
Installed-Size: 512

Package: curl
Version: 7.88.1-1
Depends: libcurl (= 7.88.1-1), libc6
`)
	info := &repository.RepositoryInfo{Name: "apt-test", Platform: repository.PlatformLinux}

	got, err := parseDebianPackages(data, info)
	if err != nil {
		t.Fatalf("parseDebianPackages() failed: %v", err)
	}

	want := []repository.Package{
		{
			Name:           "nginx",
			Version:        "1.24.0-1",
			Description:    "HTTP server",
			Size:           524288,
			RepositoryName: "apt-test",
			Platform:       repository.PlatformLinux,
		},
		{
			Name:           "curl",
			Version:        "7.88.1-1",
			Dependencies:   []string{"libcurl", "libc6"},
			RepositoryName: "apt-test",
			Platform:       repository.PlatformLinux,
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(repository.Package{}, "LastUpdated")); diff != "" {
		t.Fatalf("parseDebianPackages() diff (-want +got):\n%s", diff)
	}
}

func TestParseJSON_JSONPathAndFieldMap(t *testing.T) {
	data := []byte(`{
		"data": {
			"packages": [
				{"pkg_name": "ripgrep", "pkg_version": "14.1.0"},
				{"pkg_name": "", "pkg_version": "1.0"}
			]
		}
	}`)
	info := &repository.RepositoryInfo{
		Name:     "json-test",
		Platform: repository.PlatformLinux,
		Parsing: repository.Parsing{
			Format: "json",
			Patterns: repository.Patterns{
				JSONPath: "data.packages",
			},
			Fields: repository.FieldMap{
				"name":    "pkg_name",
				"version": "pkg_version",
			},
		},
	}

	got, err := parseJSON(data, info)
	if err != nil {
		t.Fatalf("parseJSON() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseJSON() returned %d packages, want 1 (empty-name item skipped)", len(got))
	}
	if got[0].Name != "ripgrep" || got[0].Version != "14.1.0" {
		t.Fatalf("parseJSON() = %+v, want name=ripgrep version=14.1.0", got[0])
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte("- name: htop\n  version: 3.2.2\n- name: jq\n  version: 1.7\n")
	info := &repository.RepositoryInfo{Name: "yaml-test", Platform: repository.PlatformLinux}

	got, err := parseYAML(data, info)
	if err != nil {
		t.Fatalf("parseYAML() failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "htop" || got[1].Name != "jq" {
		t.Fatalf("parseYAML() = %+v", got)
	}
}

func TestParseXML(t *testing.T) {
	data := []byte(`<repo><package><name>wget</name><version>1.21</version></package></repo>`)
	info := &repository.RepositoryInfo{Name: "xml-test", Platform: repository.PlatformLinux}

	got, err := parseXML(data, info)
	if err != nil {
		t.Fatalf("parseXML() failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "wget" || got[0].Version != "1.21" {
		t.Fatalf("parseXML() = %+v", got)
	}
}

func TestParseRPMMetadata(t *testing.T) {
	data := []byte(`<metadata>
		<package type="rpm" name="vim" version="9.0">
			<summary>Vi IMproved</summary>
			<url>https://vim.org</url>
			<packager>Fedora Project</packager>
		</package>
	</metadata>`)
	info := &repository.RepositoryInfo{Name: "rpm-test", Platform: repository.PlatformLinux}

	got, err := parseRPMMetadata(data, info)
	if err != nil {
		t.Fatalf("parseRPMMetadata() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseRPMMetadata() returned %d packages, want 1", len(got))
	}
	pkg := got[0]
	if pkg.Name != "vim" || pkg.Version != "9.0" || pkg.Description != "Vi IMproved" || pkg.Homepage != "https://vim.org" || pkg.Maintainer != "Fedora Project" {
		t.Fatalf("parseRPMMetadata() = %+v", pkg)
	}
}

func TestParseText(t *testing.T) {
	data := []byte("# comment\nvim 9.0 editor\nemacs 29.1\n")
	info := &repository.RepositoryInfo{Name: "text-test", Platform: repository.PlatformLinux}

	got, err := parseText(data, info)
	if err != nil {
		t.Fatalf("parseText() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseText() returned %d packages, want 2: %+v", len(got), got)
	}
	if got[0].Name != "vim" || got[0].Version != "9.0" || got[0].Description != "editor" {
		t.Fatalf("parseText()[0] = %+v", got[0])
	}
	if got[1].Name != "emacs" || got[1].Version != "29.1" {
		t.Fatalf("parseText()[1] = %+v", got[1])
	}
}

func TestParseHTML(t *testing.T) {
	data := []byte(`<a href="../">../</a><a href="foo-1.2.3.tar.gz">foo-1.2.3.tar.gz</a>`)
	info := &repository.RepositoryInfo{Name: "html-test", Platform: repository.PlatformLinux}

	got, err := parseHTML(data, info)
	if err != nil {
		t.Fatalf("parseHTML() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseHTML() returned %d packages, want 1 (parent-dir link skipped): %+v", len(got), got)
	}
	if got[0].Name != "foo" || got[0].Version != "1.2.3" {
		t.Fatalf("parseHTML()[0] = %+v", got[0])
	}
}

func TestParseCSVAndTSV(t *testing.T) {
	csvData := []byte("name,version,description\nbat,0.24.0,cat clone\n")
	tsvData := []byte("name\tversion\tdescription\nexa\t0.10.1\tls replacement\n")
	info := &repository.RepositoryInfo{Name: "csv-test", Platform: repository.PlatformLinux}

	gotCSV, err := parseCSV(csvData, info)
	if err != nil {
		t.Fatalf("parseCSV() failed: %v", err)
	}
	if len(gotCSV) != 1 || gotCSV[0].Name != "bat" || gotCSV[0].Description != "cat clone" {
		t.Fatalf("parseCSV() = %+v", gotCSV)
	}

	gotTSV, err := parseTSV(tsvData, info)
	if err != nil {
		t.Fatalf("parseTSV() failed: %v", err)
	}
	if len(gotTSV) != 1 || gotTSV[0].Name != "exa" || gotTSV[0].Version != "0.10.1" {
		t.Fatalf("parseTSV() = %+v", gotTSV)
	}
}

func TestParseGitHubDirectory(t *testing.T) {
	data := []byte(`[
		{"name": "ripgrep.json", "type": "file", "download_url": "https://raw/ripgrep.json"},
		{"name": "_helper.json", "type": "file", "download_url": "https://raw/_helper.json"},
		{"name": "bucket", "type": "dir"}
	]`)
	info := &repository.RepositoryInfo{Name: "scoop-test", Platform: repository.PlatformWindows}

	got, err := parseGitHubDirectory(data, info)
	if err != nil {
		t.Fatalf("parseGitHubDirectory() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parseGitHubDirectory() returned %d packages, want 1: %+v", len(got), got)
	}
	if got[0].Name != "ripgrep" || got[0].Version != "unknown" {
		t.Fatalf("parseGitHubDirectory()[0] = %+v", got[0])
	}
}

func TestRegistry_Parse(t *testing.T) {
	info := &repository.RepositoryInfo{
		Name:     "registry-test",
		Platform: repository.PlatformLinux,
		Parsing:  repository.Parsing{Format: "text"},
	}
	got, err := Parse([]byte("foo 1.0\n"), info)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "foo" {
		t.Fatalf("Parse() = %+v", got)
	}

	info.Parsing.Format = "unknown-format"
	if _, err := Parse([]byte("x"), info); err == nil {
		t.Fatal("Parse() with unregistered format succeeded, want error")
	}
}

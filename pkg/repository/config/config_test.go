// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/example42/saigen-repos/pkg/repository"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ValidEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "apt.yaml", `
version: "1.0"
repositories:
  - name: apt-ubuntu-jammy
    type: apt
    platform: linux
    distribution: [ubuntu]
    priority: 10
    version_mapping:
      "22.04": jammy
    endpoints:
      packages: https://archive.ubuntu.com/dists/jammy/main/binary-amd64/Packages.gz
    parsing:
      format: debian_packages
`)

	infos := Load(dir)
	if len(infos) != 1 {
		t.Fatalf("Load() returned %d entries, want 1", len(infos))
	}
	info := infos[0]
	if info.Name != "apt-ubuntu-jammy" || info.Type != "apt" || info.Platform != repository.PlatformLinux {
		t.Fatalf("Load() = %+v", info)
	}
	if info.Priority != 10 || !info.Enabled {
		t.Fatalf("Load() priority/enabled = %d/%v, want 10/true", info.Priority, info.Enabled)
	}
	if info.VersionMapping["22.04"] != "jammy" {
		t.Fatalf("Load() version_mapping = %v", info.VersionMapping)
	}
}

func TestLoad_InvalidEntrySkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", `
version: "1.0"
repositories:
  - name: missing-platform
    type: apt
    endpoints:
      packages: https://example.com/Packages
    parsing:
      format: debian_packages
  - name: bad-scheme
    type: apt
    platform: linux
    endpoints:
      packages: ftp-unsafe://example.com/Packages
    parsing:
      format: debian_packages
  - name: good-entry
    type: apt
    platform: linux
    endpoints:
      packages: https://example.com/Packages
    parsing:
      format: debian_packages
`)

	infos := Load(dir)
	if len(infos) != 1 || infos[0].Name != "good-entry" {
		t.Fatalf("Load() = %+v, want only good-entry", infos)
	}
}

func TestLoad_LaterDirectoryWins(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	entry := func(priority int) string {
		return `
version: "1.0"
repositories:
  - name: dup
    type: apt
    platform: linux
    priority: ` + strconv.Itoa(priority) + `
    endpoints:
      packages: https://example.com/Packages
    parsing:
      format: debian_packages
`
	}
	writeFile(t, dir1, "a.yaml", entry(1))
	writeFile(t, dir2, "a.yaml", entry(2))

	infos := Load(dir1, dir2)
	if len(infos) != 1 || infos[0].Priority != 2 {
		t.Fatalf("Load() = %+v, want single entry with priority 2 (later dir wins)", infos)
	}
}

func TestLoad_MissingDirectoryIgnored(t *testing.T) {
	infos := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(infos) != 0 {
		t.Fatalf("Load() = %+v, want empty for missing directory", infos)
	}
}


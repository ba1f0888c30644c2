// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Command repocache is a thin smoke-test binary over the repository
// aggregation core: load configured repositories, refresh one (or every
// bulk-download) repository's cache, and print a summary. It is not the
// saigen CLI and carries no subcommand grammar.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/example42/saigen-repos/pkg/repository/manager"
)

var (
	cacheDir   = flag.String("cache-dir", "/tmp/repocache", "Directory to cache fetched repository package lists")
	configDir  = flag.String("config-dir", "/etc/saigen/repositories.d", "Directory of repository definition YAML files")
	repoName   = flag.String("repo", "", "Refresh only this repository (default: every bulk-download repository)")
	forceFetch = flag.Bool("force", false, "Invalidate the cache entry before fetching, even if not yet expired")
	timeout    = flag.Duration("timeout", 2*time.Minute, "Overall timeout for the refresh")
)

func main() {
	flag.Parse()

	if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
		log.Fatal(errors.Wrap(err, "creating cache directory"))
	}

	m, err := manager.New(*cacheDir, []string{*configDir})
	if err != nil {
		log.Fatal(errors.Wrap(err, "creating manager"))
	}
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := m.Initialize(ctx); err != nil {
		log.Fatal(errors.Wrap(err, "loading repository configs"))
	}

	var names []string
	if *repoName != "" {
		names = []string{*repoName}
	}

	results := m.UpdateCache(ctx, names, *forceFetch)
	if len(results) == 0 {
		color.Yellow("no repositories matched")
		return
	}

	var failed int
	for name, ok := range results {
		if ok {
			color.Green("%-24s refreshed", name)
			continue
		}
		failed++
		color.Red("%-24s failed or skipped", name)
	}

	stats := m.Stats()
	fmt.Printf("\ncache: %d entries, %d packages, %d expired\n", stats.TotalEntries, stats.TotalPackages, stats.ExpiredEntries)

	if failed > 0 {
		os.Exit(1)
	}
}

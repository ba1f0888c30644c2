// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/example42/saigen-repos/pkg/repository"
)

// repositoryCacheKey computes the persistent-cache key for info: the first
// 16 hex characters of SHA-256 over a canonical JSON encoding of its
// identity fields (spec section 4.6's GetOrFetch).
func repositoryCacheKey(info *repository.RepositoryInfo) string {
	identity := struct {
		Name         string   `json:"name"`
		Type         string   `json:"type"`
		URL          string   `json:"url"`
		Platform     string   `json:"platform"`
		Architecture []string `json:"architecture"`
	}{
		Name:         info.Name,
		Type:         info.Type,
		URL:          info.Endpoints.Packages,
		Platform:     string(info.Platform),
		Architecture: info.Architecture,
	}
	raw, _ := json.Marshal(identity)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

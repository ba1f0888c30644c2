// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package errs defines the repository core's error taxonomy (spec section 7).
package errs

import "github.com/pkg/errors"

// ConfigError reports a malformed repository configuration entry. Load-time
// occurrences are logged and skipped rather than propagated; constructing
// one directly (e.g. from a caller-supplied RepositoryInfo) surfaces it.
type ConfigError struct {
	File   string
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return errors.Wrapf(e.Cause, "config error in %s: %s", e.File, e.Reason).Error()
	}
	return "config error in " + e.File + ": " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError builds a ConfigError.
func NewConfigError(file, reason string, cause error) *ConfigError {
	return &ConfigError{File: file, Reason: reason, Cause: cause}
}

// RepositoryError reports a fetch or parse failure scoped to one repository.
type RepositoryError struct {
	Repository string
	Reason     string
	Cause      error
}

func (e *RepositoryError) Error() string {
	msg := e.Repository + ": " + e.Reason
	if e.Cause != nil {
		return errors.Wrap(e.Cause, msg).Error()
	}
	return msg
}

func (e *RepositoryError) Unwrap() error { return e.Cause }

// NewRepositoryError builds a RepositoryError.
func NewRepositoryError(repo, reason string, cause error) *RepositoryError {
	return &RepositoryError{Repository: repo, Reason: reason, Cause: cause}
}

// CacheError reports a persistent-cache write failure. The corresponding
// fetch is considered failed and any partial files are cleaned up before
// this is returned.
type CacheError struct {
	Key    string
	Reason string
	Cause  error
}

func (e *CacheError) Error() string {
	msg := "cache " + e.Key + ": " + e.Reason
	if e.Cause != nil {
		return errors.Wrap(e.Cause, msg).Error()
	}
	return msg
}

func (e *CacheError) Unwrap() error { return e.Cause }

// NewCacheError builds a CacheError.
func NewCacheError(key, reason string, cause error) *CacheError {
	return &CacheError{Key: key, Reason: reason, Cause: cause}
}

// ErrNotAvailable indicates a repository failed its availability probe.
// Nothing in this module returns it: Manager.IsAvailable reports a failed
// probe as false, and the repository stays loaded in the manager.
var ErrNotAvailable = errors.New("repository not available")

// ErrRateLimited indicates retries were exhausted after repeated HTTP 429s.
var ErrRateLimited = errors.New("rate limited")

// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides a simpler http.Client abstraction and derivative
// uses shared by the bulk and API downloaders.
package httpx

import (
	"bufio"
	"bytes"
	"errors"
	"net/http"

	"github.com/example42/saigen-repos/internal/cache"
)

// BasicClient is a simpler http.Client that only requires a Do method.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// WithUserAgent is a basic HTTP client that adds a User-Agent header.
type WithUserAgent struct {
	BasicClient
	UserAgent string
}

var _ BasicClient = &WithUserAgent{}

// Do adds the User-Agent header and sends the request.
func (c *WithUserAgent) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	return c.BasicClient.Do(req)
}

// WithAuth attaches the repository's configured credential to every
// outbound request (spec section 6.3: Authorization: Bearer <t>, or a
// configurable api_key_header).
type WithAuth struct {
	BasicClient
	Header string
	Value  string
}

var _ BasicClient = &WithAuth{}

// Do attaches the configured header and sends the request.
func (c *WithAuth) Do(req *http.Request) (*http.Response, error) {
	if c.Header != "" && c.Value != "" {
		req.Header.Set(c.Header, c.Value)
	}
	return c.BasicClient.Do(req)
}

// CachedClient is a BasicClient that caches GET/HEAD responses. It backs
// the API downloader's in-memory response cache (spec section 4.4); the TTL
// is owned by the cache.Cache implementation passed in (see
// cache.TTLMemoryCache), not by this wrapper.
type CachedClient struct {
	BasicClient
	ch cache.Cache
}

// NewCachedClient returns a new CachedClient.
func NewCachedClient(client BasicClient, c cache.Cache) *CachedClient {
	return &CachedClient{client, c}
}

// Do attempts to fetch from cache (if applicable) or fulfills the request
// using the underlying client. Only 2xx/3xx/4xx responses are cached; 5xx
// responses are treated as transient: returned to the caller uncached and
// always re-fetched.
func (cc *CachedClient) Do(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return cc.BasicClient.Do(req)
	}
	var transient *http.Response
	respBytes, err := cc.ch.GetOrSet(req.URL.String(), func() (any, error) {
		resp, err := cc.BasicClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			transient = resp
			return nil, errors.New(resp.Status)
		}
		defer resp.Body.Close()
		buf := new(bytes.Buffer)
		if err := resp.Write(buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if transient != nil {
		return transient, nil
	}
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(respBytes.([]byte))), req)
}

var _ BasicClient = &CachedClient{}

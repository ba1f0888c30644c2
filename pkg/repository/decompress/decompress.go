// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package decompress implements the bulk downloader's decompression step
// (spec section 4.3 step 5): gzip, bzip2, xz and brotli, with a fallback
// for mirrors that set a Content-Encoding header on an already-plain body.
package decompress

import (
	"bytes"
	"compress/bzip2"
	"io"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// Algorithm names a supported (or absent) compression scheme.
type Algorithm string

const (
	None   Algorithm = "none"
	Gzip   Algorithm = "gzip"
	Bzip2  Algorithm = "bzip2"
	XZ     Algorithm = "xz"
	Brotli Algorithm = "brotli"
)

// Decompress decompresses data per algo. If algo is None, data is returned
// unchanged. If decompression fails but data is valid UTF-8, it is assumed
// to already be plain content served under an inaccurate
// Content-Encoding/compression declaration, and is returned as-is rather
// than surfacing an error (spec section 4.3 step 5 / section 9).
func Decompress(data []byte, algo Algorithm) ([]byte, error) {
	if algo == "" {
		algo = None
	}
	if algo == None {
		return data, nil
	}
	out, err := decompressStrict(data, algo)
	if err != nil {
		if utf8.Valid(data) {
			return data, nil
		}
		return nil, errors.Wrapf(err, "decompressing %s content", algo)
	}
	return out, nil
}

func decompressStrict(data []byte, algo Algorithm) ([]byte, error) {
	switch algo {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case Bzip2:
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
	case XZ:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		return nil, errors.Errorf("unsupported compression algorithm: %s", algo)
	}
}

// DetectContentEncoding maps an HTTP Content-Encoding header value to an
// Algorithm, used when parsing.compression is "none" (auto-detect).
func DetectContentEncoding(header string) Algorithm {
	switch header {
	case "gzip", "x-gzip":
		return Gzip
	case "br":
		return Brotli
	default:
		return None
	}
}

// compression.go: optional zlib compression for stored values
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Stored values are prefixed with a one-byte tag so restore (which reads
// raw bytes back out of a snapshot, not through Set) can tell compressed
// payloads from plain ones regardless of the client's current
// configuration — mirrors compressGzipWithHeader pattern of
// carrying the codec decision alongside the payload instead of trusting
// ambient config at read time.
const (
	tagPlain    byte = 0
	tagZlib     byte = 1
	tagOverhead      = 1
)

// compress applies codec to value when it is large enough to be worth it,
// tagging the result so decompress can identify it later regardless of
// the client's current Compression setting.
func compress(codec Compression, value []byte) []byte {
	if codec == CompressionNone || len(value) < compressionThreshold {
		out := make([]byte, tagOverhead+len(value))
		out[0] = tagPlain
		copy(out[tagOverhead:], value)
		return out
	}

	var buf bytes.Buffer
	buf.WriteByte(tagZlib)
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(value)
	if err := w.Close(); err != nil {
		out := make([]byte, tagOverhead+len(value))
		out[0] = tagPlain
		copy(out[tagOverhead:], value)
		return out
	}
	return buf.Bytes()
}

// decompress reverses compress, dispatching on the leading tag byte
// rather than the caller's current codec setting.
func decompress(_ Compression, stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, nil
	}
	tag, payload := stored[0], stored[1:]
	switch tag {
	case tagPlain:
		return payload, nil
	case tagZlib:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, errUnknownTag
	}
}

var errUnknownTag = &tagError{}

type tagError struct{}

func (*tagError) Error() string { return "client: unknown value tag" }

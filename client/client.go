// client.go: LocalClient - the public key/value API over the segmented LRU
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"

	"github.com/agilira/rscache/slru"
)

// Compression identifies the codec applied to stored values. A closed set
// "compression plug-ins" — no runtime-loaded codecs.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
)

func (c Compression) String() string {
	switch c {
	case CompressionZlib:
		return "zlib"
	default:
		return "none"
	}
}

// compressionThreshold is the minimum raw value length before the
// configured codec is applied; smaller values are stored as-is since
// compression overhead would exceed any size saved (mirrors the prior design's
// compressGzipWithHeader 64-byte cutoff).
const compressionThreshold = 64

// Options configures a LocalClient.
type Options struct {
	// BudgetBytes is the total byte budget B for the segmented LRU.
	BudgetBytes int64
	// Compression selects the codec applied to stored values.
	Compression Compression
	// MaxObjectSize is the per-value ceiling; writes exceeding it are
	// dropped rather than cached.
	MaxObjectSize int
}

// LocalClient is the public key/value facade: key encoding, optional
// compression, a per-object size ceiling, batched lookup, stats, and
// snapshot save/restore, layered over a SizedMapping.
type LocalClient struct {
	mapping       *slru.SizedMapping
	budgetBytes   int64
	compression   Compression
	maxObjectSize int

	// lastAccessNano is updated on every Get/Set from timecache's cached
	// clock rather than time.Now(), since this is the hottest path in the
	// whole cache and a per-call monotonic syscall would show up in profiles.
	lastAccessNano int64
}

// New creates a LocalClient with the given options.
func New(opts Options) *LocalClient {
	return &LocalClient{
		mapping:       slru.NewSizedMapping(opts.BudgetBytes),
		budgetBytes:   opts.BudgetBytes,
		compression:   opts.Compression,
		maxObjectSize: opts.MaxObjectSize,
	}
}

// LastAccess returns the time of the most recent Get or Set call.
func (c *LocalClient) LastAccess() time.Time {
	nano := atomic.LoadInt64(&c.lastAccessNano)
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

func (c *LocalClient) touch() {
	atomic.StoreInt64(&c.lastAccessNano, timecache.Now().UnixNano())
}

// Key encodes an (oid, tid) pair into the mapping's key type.
func Key(oid, tid int64) slru.Key { return slru.Key{OID: oid, TID: tid} }

// Get looks up the revision cached at (oid, tid). state is nil for a
// tombstone or a genuine miss; ok distinguishes the two.
func (c *LocalClient) Get(oid, tid int64) (state []byte, tombstone bool, ok bool) {
	c.touch()
	raw, tomb, found := c.mapping.Get(Key(oid, tid))
	if !found {
		return nil, false, false
	}
	if tomb {
		return nil, true, true
	}
	plain, err := decompress(c.compression, raw)
	if err != nil {
		// A corrupt stored value behaves as a miss: never surface a
		// decode error on the hot read path.
		return nil, false, false
	}
	return plain, false, true
}

// GetMulti batches lookups for keys, returning only hits.
func (c *LocalClient) GetMulti(keys []slru.Key) map[slru.Key][]byte {
	out := make(map[slru.Key][]byte, len(keys))
	for _, k := range keys {
		raw, tomb, found := c.mapping.Get(k)
		if !found || tomb {
			continue
		}
		if plain, err := decompress(c.compression, raw); err == nil {
			out[k] = plain
		}
	}
	return out
}

// Set stores state at (oid, tid). A nil state with tombstone=true records
// a tombstone. Values beyond MaxObjectSize are silently dropped: never
// cached, never an error.
func (c *LocalClient) Set(oid, tid int64, state []byte, tombstone bool) {
	c.touch()
	if tombstone {
		c.mapping.Insert(Key(oid, tid), nil, true)
		return
	}
	if c.maxObjectSize > 0 && len(state) > c.maxObjectSize {
		return
	}
	stored := compress(c.compression, state)
	c.mapping.Insert(Key(oid, tid), stored, false)
}

// Delete removes the cached revision at (oid, tid), if present.
func (c *LocalClient) Delete(oid, tid int64) {
	c.mapping.Remove(Key(oid, tid))
}

// Contains reports whether (oid, tid) is cached, without affecting stats
// or recency.
func (c *LocalClient) Contains(oid, tid int64) bool {
	return c.mapping.Contains(Key(oid, tid))
}

// Stats returns a snapshot of the underlying mapping's counters.
func (c *LocalClient) Stats() slru.Stats {
	return c.mapping.Stats()
}

// Mapping exposes the underlying SizedMapping for direct key access
// without going through the compression layer. The MVCC coordinator's
// invalidation path does not use it; it calls InvalidateOID.
func (c *LocalClient) Mapping() *slru.SizedMapping {
	return c.mapping
}

// InvalidateOID drops every cached revision of oid except keepTid: after
// a poll, any cached entry whose tid is no longer the latest visible one
// must be removed or become unreachable.
func (c *LocalClient) InvalidateOID(oid int64, keepTid int64) {
	c.mapping.RemoveStaleForOID(oid, keepTid)
}

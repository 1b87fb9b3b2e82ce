// storage.go: StorageCache - the per-connection facade over LocalClient and
// the MVCC coordinator.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"sync"

	"github.com/agilira/rscache/errs"
	"github.com/agilira/rscache/mvcc"
)

// Cache is the subset of client.LocalClient the facade needs: get/set by
// (oid, tid) and the MVCC invalidation seam. Kept as an interface so
// storage does not import client directly: LocalClient is a leaf the
// facade consumes, not the reverse.
type Cache interface {
	mvcc.Cache
	Get(oid, tid int64) (state []byte, tombstone bool, ok bool)
	Set(oid, tid int64, state []byte, tombstone bool)
}

type tempWrite struct {
	oid   int64
	state []byte
}

// StorageCache is the per-connection facade: load(oid), store_temp,
// tpc_begin/after_tpc_finish, after_poll.
type StorageCache struct {
	mu sync.Mutex

	client      Cache
	coordinator *mvcc.Coordinator
	adapter     Adapter

	hvt         int64
	bmChanges   map[int64]int64
	tempBuffer  []tempWrite
}

// New creates a StorageCache for one connection, registering client with
// coordinator for invalidation broadcasts.
func New(client Cache, coordinator *mvcc.Coordinator, adapter Adapter) *StorageCache {
	coordinator.Register(client)
	return &StorageCache{
		client:      client,
		coordinator: coordinator,
		adapter:     adapter,
		bmChanges:   make(map[int64]int64),
	}
}

// Close unregisters the connection's cache from the coordinator.
func (s *StorageCache) Close() {
	s.coordinator.Unregister(s.client)
}

// Load resolves the visible tid for oid at this connection's hvt, serves
// it from cache on a hit, or falls through to the adapter's LoadCurrent on
// a miss — caching the fetched result under (oid, tid) before returning it
//.
func (s *StorageCache) Load(ctx context.Context, cursor interface{}, oid int64) (state []byte, tid int64, err error) {
	s.mu.Lock()
	hvt := s.hvt
	s.mu.Unlock()

	if tid, ok := s.coordinator.VisibleTid(oid, hvt); ok {
		if state, tomb, hit := s.client.Get(oid, tid); hit {
			if tomb {
				return nil, tid, nil
			}
			return state, tid, nil
		}
		state, fetchedTid, ok, err := s.adapter.LoadCurrent(ctx, cursor, oid)
		if err != nil {
			return nil, 0, errs.AdapterFailure(err)
		}
		if !ok {
			return nil, 0, nil
		}
		s.client.Set(oid, fetchedTid, state, false)
		return state, fetchedTid, nil
	}

	state, fetchedTid, ok, err := s.adapter.LoadCurrent(ctx, cursor, oid)
	if err != nil {
		return nil, 0, errs.AdapterFailure(err)
	}
	if !ok {
		return nil, 0, nil
	}
	s.client.Set(oid, fetchedTid, state, false)
	return state, fetchedTid, nil
}

// AfterPoll advances this connection's hvt, forwards the poll to the
// coordinator (which invalidates stale cached revisions across every
// registered connection), and clears transaction-local buffers.
func (s *StorageCache) AfterPoll(cursor interface{}, priorTid, newTid int64, changes []mvcc.Change) error {
	if err := s.coordinator.Poll(cursor, priorTid, newTid, changes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hvt = newTid
	s.bmChanges = make(map[int64]int64)
	s.tempBuffer = nil
	return nil
}

// TpcBegin prepares an empty write buffer for a new two-phase commit.
func (s *StorageCache) TpcBegin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempBuffer = s.tempBuffer[:0]
}

// StoreTemp appends (oid, state) to the in-progress commit buffer. No
// visibility change occurs until AfterTpcFinish.
func (s *StorageCache) StoreTemp(ctx context.Context, cursor interface{}, oid int64, state []byte) error {
	if err := s.adapter.StoreTemp(ctx, cursor, oid, state); err != nil {
		return errs.AdapterFailure(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempBuffer = append(s.tempBuffer, tempWrite{oid: oid, state: state})
	return nil
}

// AfterTpcFinish flushes the buffered writes as (oid, finalTid) -> state
// into the client and records bmChanges.
func (s *StorageCache) AfterTpcFinish(ctx context.Context, cursor interface{}, finalTid int64) error {
	if err := s.adapter.MoveFromTemp(ctx, cursor, finalTid); err != nil {
		return errs.AdapterFailure(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.tempBuffer {
		s.client.Set(w.oid, finalTid, w.state, false)
		s.bmChanges[w.oid] = finalTid
	}
	s.tempBuffer = nil
	return nil
}

// BmChanges returns a copy of the oid -> tid map accumulated since the
// last AfterPoll, for the caller to report upstream.
func (s *StorageCache) BmChanges() map[int64]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64, len(s.bmChanges))
	for k, v := range s.bmChanges {
		out[k] = v
	}
	return out
}

// HVT returns the connection's current highest visible tid.
func (s *StorageCache) HVT() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hvt
}

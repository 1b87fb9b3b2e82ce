// coordinator.go: MVCCCoordinator - registry of connection caches, chains
// TRIs across polls, and broadcasts invalidations.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package mvcc

import "sync"

// Change is one (oid, tid) pair reported by the adapter's Poller for a
// polling interval (Poller.list_changes).
type Change struct {
	OID int64
	TID int64
}

// Cache is the invalidation seam a registered connection cache must
// implement. InvalidateOID is called synchronously while the
// coordinator's lock is held, so implementations must not block or call
// back into the coordinator.
type Cache interface {
	InvalidateOID(oid int64, keepTid int64)
}

// Coordinator owns a strictly-ordered, contiguous chain of TRIs and the
// set of registered per-connection caches. All access is serialized by a
// single mutex.
type Coordinator struct {
	mu     sync.Mutex
	chain  []*TRI
	caches map[Cache]struct{}
}

// NewCoordinator creates an empty coordinator with no TRIs and no
// registered caches.
func NewCoordinator() *Coordinator {
	return &Coordinator{caches: make(map[Cache]struct{})}
}

// Register adds cache to the registered set.
func (c *Coordinator) Register(cache Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caches[cache] = struct{}{}
}

// Unregister removes cache from the registered set.
func (c *Coordinator) Unregister(cache Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.caches, cache)
}

// IsRegistered reports whether cache is currently registered.
func (c *Coordinator) IsRegistered(cache Cache) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.caches[cache]
	return ok
}

// HighestVisible returns the highest_visible_tid of the last TRI in the
// chain, or 0 if the chain is empty.
func (c *Coordinator) HighestVisible() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.chain) == 0 {
		return 0
	}
	return c.chain[len(c.chain)-1].HighestVisible()
}

// Poll builds a new TRI from (sinceTid, untilTid, changes), extends the
// chain, and invalidates every registered cache's stale revision of each
// changed oid. cursor is accepted for interface symmetry with
// the adapter's Poller contract; the in-process coordinator does not need
// it to serialize polls, since Poll itself holds the single coordinator
// mutex for its full duration.
func (c *Coordinator) Poll(cursor interface{}, sinceTid, untilTid int64, changes []Change) error {
	data := make(map[int64]int64, len(changes))
	for _, ch := range changes {
		data[ch.OID] = ch.TID
	}
	next, err := NewTRI(sinceTid, untilTid, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.chain) > 0 {
		// ExtendWith's contiguity check is reused here purely to validate
		// the chain invariant; the chain itself retains each TRI as a
		// discrete window rather than storing the cumulative merge, so
		// VisibleTid's newest-to-oldest scan can fall through to older
		// windows for oids a later poll didn't touch.
		if _, err := c.chain[len(c.chain)-1].ExtendWith(next); err != nil {
			return err
		}
	}
	c.chain = append(c.chain, next)

	for _, ch := range changes {
		for cache := range c.caches {
			cache.InvalidateOID(ch.OID, ch.TID)
		}
	}
	return nil
}

// VisibleTid scans the TRIs whose highest_visible_tid <= connectionHVT,
// newest to oldest, and returns the tid from the first one that records
// oid. A return of (_, false) means the coordinator holds no opinion for
// this oid at this hvt; the caller falls back to the adapter's current
// object tid.
func (c *Coordinator) VisibleTid(oid int64, connectionHVT int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.chain) - 1; i >= 0; i-- {
		tri := c.chain[i]
		if tri.HighestVisible() > connectionHVT {
			continue
		}
		if tid, ok := tri.Lookup(oid); ok {
			return tid, true
		}
	}
	return 0, false
}

// GC drops TRIs whose highest_visible_tid is below minConnectionHVT, the
// minimum hvt across all still-registered connections. Callers compute
// minConnectionHVT themselves since the coordinator does not track
// per-connection hvt, only per-connection cache identity.
func (c *Coordinator) GC(minConnectionHVT int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.chain[:0]
	for _, tri := range c.chain {
		if tri.HighestVisible() >= minConnectionHVT {
			kept = append(kept, tri)
		}
	}
	c.chain = kept
}

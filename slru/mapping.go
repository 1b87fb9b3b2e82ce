// mapping.go: key-addressable layer over the segmented LRU
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package slru

import (
	"sync"

	"github.com/agilira/rscache/ring"
)

// Stats mirrors the counters StrategicCache exposes, scoped
// to a single SizedMapping instance.
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Size      int64
	Count     int
}

// HitRatio returns Hits / (Hits + Misses), or 0 when there have been no
// lookups yet.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// SizedMapping layers key uniqueness and size accounting on top of a
// SegmentedLRU. It owns the only mutex in the cache core: all
// structural mutation happens here, under lock, in O(1) critical
// sections.
type SizedMapping struct {
	mu    sync.Mutex
	index map[Key]ring.Index
	slru  *SegmentedLRU
	stats Stats
}

// NewSizedMapping creates a mapping backed by a fresh SegmentedLRU with
// the given byte budget.
func NewSizedMapping(budget int64) *SizedMapping {
	return &SizedMapping{
		index: make(map[Key]ring.Index),
		slru:  NewSegmentedLRU(budget),
	}
}

// NewSizedMappingOver wraps an already-constructed SegmentedLRU, such as
// one built with custom generation fractions. Snapshot restore does not
// use it; LocalClient.Restore calls NewSizedMapping.
func NewSizedMappingOver(s *SegmentedLRU) *SizedMapping {
	return &SizedMapping{index: make(map[Key]ring.Index), slru: s}
}

// Insert adds or replaces the value for key. Insert of an existing key is
// an Update.
func (m *SizedMapping) Insert(key Key, value []byte, tombstone bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[key]; ok {
		evicted := m.slru.Update(i, value, tombstone)
		m.removeEvicted(evicted)
		m.stats.Sets++
		m.stats.Size = m.slru.TotalSize()
		return
	}

	i, evicted := m.slru.Add(key, value, tombstone)
	m.index[key] = i
	m.removeEvicted(evicted)
	m.stats.Sets++
	m.stats.Count = len(m.index)
	m.stats.Size = m.slru.TotalSize()
}

// removeEvicted deletes the mapping entries for keys the SegmentedLRU
// evicted as a side effect of the structural change just made. Caller
// must hold m.mu.
func (m *SizedMapping) removeEvicted(evicted []Key) {
	for _, k := range evicted {
		delete(m.index, k)
		m.stats.Evictions++
	}
	m.stats.Count = len(m.index)
}

// Get returns the value for key, recording a hit and running the
// promotion policy if present, or a miss if absent.
func (m *SizedMapping) Get(key Key) (value []byte, tombstone bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := m.index[key]
	if !found {
		m.stats.Misses++
		return nil, false, false
	}

	evicted := m.slru.OnHit(i)
	m.removeEvicted(evicted)
	m.stats.Hits++
	m.stats.Size = m.slru.TotalSize()

	// i may have been invalidated if it was itself the victim of a
	// cascading eviction triggered by its own promotion; re-check.
	i, found = m.index[key]
	if !found {
		m.stats.Misses++
		m.stats.Hits--
		return nil, false, false
	}
	e := m.slru.Entry(i)
	return e.Value, e.Tombstone, true
}

// Update replaces the value for an existing key without affecting its
// recency/frequency bookkeeping beyond what the weight change implies.
// It is a no-op if key is absent.
func (m *SizedMapping) Update(key Key, value []byte, tombstone bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key]
	if !ok {
		return false
	}
	evicted := m.slru.Update(i, value, tombstone)
	m.removeEvicted(evicted)
	m.stats.Size = m.slru.TotalSize()
	return true
}

// Remove deletes key if present.
func (m *SizedMapping) Remove(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[key]
	if !ok {
		return
	}
	m.slru.Delete(i)
	delete(m.index, key)
	m.stats.Count = len(m.index)
	m.stats.Size = m.slru.TotalSize()
}

// RemoveStaleForOID deletes every cached key for oid whose tid is not
// keepTid, used by the MVCC coordinator to invalidate revisions a poll has
// superseded.
func (m *SizedMapping) RemoveStaleForOID(oid int64, keepTid int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, i := range m.index {
		if key.OID != oid || key.TID == keepTid {
			continue
		}
		m.slru.Delete(i)
		delete(m.index, key)
		m.stats.Evictions++
	}
	m.stats.Count = len(m.index)
	m.stats.Size = m.slru.TotalSize()
}

// Contains reports whether key is present, without affecting stats or
// recency (used by tests and introspection).
func (m *SizedMapping) Contains(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key]
	return ok
}

// Stats returns a snapshot of the mapping's counters.
func (m *SizedMapping) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// SnapshotEntry is one (key, value, frequency, generation) tuple captured
// for persistence, independent of the arena's internal indices.
type SnapshotEntry struct {
	Key       Key
	Value     []byte
	Tombstone bool
	Frequency uint32
	Gen       Generation
}

// StructuralCopy takes a point-in-time copy of every live entry, ordered
// MRU→LRU within protected, then probation, then eden.
// It is taken entirely under m.mu and returned for the caller to stream
// to disk without holding the lock.
func (m *SizedMapping) StructuralCopy() []SnapshotEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SnapshotEntry, 0, len(m.index))
	for _, r := range []*ring.Ring{m.slru.Protected(), m.slru.Probation(), m.slru.Eden()} {
		m.walkMRUToLRU(r, func(e *Entry) {
			out = append(out, SnapshotEntry{
				Key:       e.Key,
				Value:     append([]byte(nil), e.Value...),
				Tombstone: e.Tombstone,
				Frequency: e.Frequency,
				Gen:       e.Gen,
			})
		})
	}
	return out
}

// walkMRUToLRU visits every entry in r from the most to least recently
// used. Caller must hold m.mu.
func (m *SizedMapping) walkMRUToLRU(r *ring.Ring, visit func(*Entry)) {
	// The ring only exposes LRU() (tail) publicly, so walk from there via
	// Prev links would give LRU->MRU order; we instead gather indices
	// LRU->MRU then emit in reverse so callers see MRU->LRU as specified.
	var indices []ring.Index
	for i := r.LRU(); i != ring.Nil; {
		indices = append(indices, i)
		i = m.slru.arena.get(i).Prev
	}
	for k := len(indices) - 1; k >= 0; k-- {
		visit(m.slru.arena.get(indices[k]))
	}
}

// LoadEntries inserts entries in the order given, each as a new key in
// eden with frequency 1; the entries' Frequency and Gen are not applied.
// Fed a StructuralCopy()/snapshot stream in order, the first entry (the
// saved MRU) ends up oldest, so the saved MRU→LRU layout is not
// reproduced.
func (m *SizedMapping) LoadEntries(entries []SnapshotEntry) {
	for _, e := range entries {
		m.Insert(e.Key, e.Value, e.Tombstone)
	}
}

// arena.go: node arena backing the segmented LRU rings
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package slru

import "github.com/agilira/rscache/ring"

// Generation identifies which ring an entry currently lives in. The
// numeric values match the snapshot file format's generation byte
// (client/snapshot.go), where 0=protected, 1=probation, 2=eden.
type Generation uint8

const (
	GenProtected Generation = 0
	GenProbation Generation = 1
	GenEden      Generation = 2
)

// Key identifies a cached revision by object id and transaction id.
type Key struct {
	OID int64
	TID int64
}

// Entry is a single cached revision. Value is nil for a tombstone
// (Tombstone == true); a present-but-empty value is represented by a
// non-nil zero-length slice.
type Entry struct {
	ring.Link // embedded intrusive prev/next, consumed by package ring

	Key       Key
	Value     []byte
	Tombstone bool
	Frequency uint32
	Weight    int
	Gen       Generation
}

// keyOverhead is the fixed per-entry weight charged for the (oid, tid)
// key pair, independent of the serialized value length.
const keyOverhead = 16

func weightOf(value []byte) int {
	return keyOverhead + len(value)
}

// arena is the fixed backing store for every Entry live in a SegmentedLRU.
// Rings never allocate: they reference entries purely by ring.Index, and
// the arena is the only place an Entry is actually constructed, mutated,
// or reclaimed. Deleted slots return to a freelist for reuse.
type arena struct {
	slots []Entry
	free  []ring.Index
}

func newArena() *arena {
	return &arena{}
}

// Link implements ring.Store.
func (a *arena) Link(i ring.Index) *ring.Link { return &a.slots[i].Link }

// Weight implements ring.Store.
func (a *arena) Weight(i ring.Index) int { return a.slots[i].Weight }

// alloc reserves a slot for a new entry, reusing a freed one if available.
func (a *arena) alloc() ring.Index {
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		return i
	}
	a.slots = append(a.slots, Entry{})
	return ring.Index(len(a.slots) - 1)
}

// release returns a slot to the freelist and clears it so a stale reference
// can never observe the old entry's data.
func (a *arena) release(i ring.Index) {
	a.slots[i] = Entry{}
	a.free = append(a.free, i)
}

// get returns a pointer to the live entry at i. Callers must only pass
// indices that are currently alive (tracked by the owning SizedMapping).
func (a *arena) get(i ring.Index) *Entry {
	return &a.slots[i]
}

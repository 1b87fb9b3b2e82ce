// ring.go: intrusive doubly-linked ring for the segmented LRU
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package ring implements the intrusive doubly-linked list used by the
// segmented LRU. Nodes are not owned by the ring: they live in an external
// arena (see the slru package) and are referenced here only by index, so a
// ring can move a node to another ring without any allocation or copy.
package ring

// Index addresses a node inside an external arena. Nil is the zero-node
// sentinel value; it never refers to a real slot.
type Index int32

// Nil is the null index, returned by LRU and used as the terminator of the
// prev/next chain.
const Nil Index = -1

// Link is the pair of neighbour indices every arena slot must embed so it
// can take part in a Ring. It carries no other state: weight and key
// belong to the arena's own node type.
type Link struct {
	Prev Index
	Next Index
}

// Store is the callback surface a Ring needs from its arena: the link
// pair and weight for a given index. Rings hold no node storage of their
// own, so every mutating operation takes a Store.
type Store interface {
	Link(i Index) *Link
	Weight(i Index) int
}

// Ring is a doubly-linked list of arena indices, terminated by Nil at
// both ends, with a running byte-size total. All operations are O(1) and allocation-free.
type Ring struct {
	name    string
	head    Index // most recently used (front)
	tail    Index // least recently used (back)
	len     int
	size    int64
	maxSize int64
}

// New creates an empty ring with the given byte budget. A maxSize of 0
// means "no budget enforced by this ring" (the caller decides eviction).
func New(name string, maxSize int64) *Ring {
	return &Ring{name: name, head: Nil, tail: Nil, maxSize: maxSize}
}

// Name returns the ring's label (eden/probation/protected), used for
// generation tagging in snapshots and diagnostics.
func (r *Ring) Name() string { return r.name }

// Len returns the number of nodes currently in the ring.
func (r *Ring) Len() int { return r.len }

// Size returns the sum of the weights of every node in the ring.
func (r *Ring) Size() int64 { return r.size }

// MaxSize returns the configured byte budget.
func (r *Ring) MaxSize() int64 { return r.maxSize }

// SetMaxSize updates the byte budget in place, e.g. on config hot-reload.
func (r *Ring) SetMaxSize(n int64) { r.maxSize = n }

// OverSize reports whether the ring currently holds more weight than its
// budget. Insertion may transiently push a ring over size; callers are
// expected to run catch-up eviction until this returns false again.
func (r *Ring) OverSize() bool { return r.maxSize > 0 && r.size > r.maxSize }

// PushFront inserts i at the front (MRU position) of the ring. i must not
// already belong to any ring. Returns whether the ring is now over its
// byte budget, signalling the caller should evict.
func (r *Ring) PushFront(s Store, i Index) bool {
	link := s.Link(i)
	link.Prev = Nil
	link.Next = r.head

	if r.head != Nil {
		s.Link(r.head).Prev = i
	}
	r.head = i
	if r.tail == Nil {
		r.tail = i
	}

	r.len++
	r.size += int64(s.Weight(i))
	return r.OverSize()
}

// Remove unlinks i from the ring. i must currently belong to this ring.
func (r *Ring) Remove(s Store, i Index) {
	link := s.Link(i)
	prev, next := link.Prev, link.Next

	if prev != Nil {
		s.Link(prev).Next = next
	} else {
		r.head = next
	}
	if next != Nil {
		s.Link(next).Prev = prev
	} else {
		r.tail = prev
	}

	link.Prev = Nil
	link.Next = Nil
	r.len--
	r.size -= int64(s.Weight(i))
}

// MoveToFront unlinks i and reinserts it at the front, without touching
// the ring's size accounting (the node's weight hasn't changed).
func (r *Ring) MoveToFront(s Store, i Index) {
	if r.head == i {
		return
	}
	link := s.Link(i)
	prev, next := link.Prev, link.Next

	if prev != Nil {
		s.Link(prev).Next = next
	}
	if next != Nil {
		s.Link(next).Prev = prev
	} else {
		r.tail = prev
	}

	link.Prev = Nil
	link.Next = r.head
	s.Link(r.head).Prev = i
	r.head = i
}

// LRU returns the least recently used index (the ring's tail), or Nil if
// the ring is empty.
func (r *Ring) LRU() Index {
	return r.tail
}

// MoveFromForeign atomically unlinks i from src (adjusting src's size) and
// pushes it to the front of r (adjusting r's size). Returns whether r is
// now over its byte budget.
func (r *Ring) MoveFromForeign(s Store, src *Ring, i Index) bool {
	src.Remove(s, i)
	return r.PushFront(s, i)
}

// AdjustSize applies a weight delta to the ring's running total, used when
// an entry already in the ring is updated in place (SegmentedLRU.Update).
func (r *Ring) AdjustSize(delta int64) {
	r.size += delta
}

// slru.go: segmented LRU (eden/probation/protected) with frequency-biased
// admission, the W-TinyLFU-style core of the object cache.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package slru

import (
	"math"

	"github.com/agilira/rscache/ring"
)

// Default generation sizing as fractions of the total byte budget B,
// : eden is small and absorbs churn, probation holds eden's
// overflow, protected holds entries that proved themselves by a hit
// while on probation.
const (
	DefaultEdenFraction      = 0.01
	DefaultProbationFraction = 0.20
	DefaultProtectedFraction = 0.79
)

// SegmentedLRU implements the three-ring admission/eviction policy over a
// fixed byte budget. It knows nothing about keys — that's SizedMapping's
// job one layer up — only about ring.Index identities, weights and
// frequencies.
type SegmentedLRU struct {
	arena *arena

	eden      *ring.Ring
	probation *ring.Ring
	protected *ring.Ring
}

// NewSegmentedLRU creates a SegmentedLRU with the given total byte budget,
// split eden/probation/protected using the default fractions.
func NewSegmentedLRU(budget int64) *SegmentedLRU {
	return NewSegmentedLRUWithFractions(budget, DefaultEdenFraction, DefaultProbationFraction, DefaultProtectedFraction)
}

// NewSegmentedLRUWithFractions is NewSegmentedLRU with explicit generation
// fractions, for callers tuning the admission/eviction tradeoff; the
// fractions are configurable rather than fixed constants. Only edenFrac
// and probationFrac are applied: protected always receives the budget
// left after eden and probation, so protectedFrac is not used.
func NewSegmentedLRUWithFractions(budget int64, edenFrac, probationFrac, protectedFrac float64) *SegmentedLRU {
	eden := int64(float64(budget) * edenFrac)
	probation := int64(float64(budget) * probationFrac)
	protected := budget - eden - probation
	if eden < 1 {
		eden = 1
	}
	if protected < 0 {
		protected = 0
	}
	return &SegmentedLRU{
		arena:     newArena(),
		eden:      ring.New("eden", eden),
		probation: ring.New("probation", probation),
		protected: ring.New("protected", protected),
	}
}

// ringFor returns the ring currently owning gen.
func (s *SegmentedLRU) ringFor(gen Generation) *ring.Ring {
	switch gen {
	case GenEden:
		return s.eden
	case GenProbation:
		return s.probation
	default:
		return s.protected
	}
}

// Entry exposes the arena slot at i for callers (SizedMapping) that need
// to read or snapshot it. The returned pointer is only valid until the
// next structural mutation of the SegmentedLRU.
func (s *SegmentedLRU) Entry(i ring.Index) *Entry {
	return s.arena.get(i)
}

// Eden, Probation, Protected expose the underlying rings read-only, for
// stats and snapshot iteration (SizedMapping.StructuralCopy).
func (s *SegmentedLRU) Eden() *ring.Ring      { return s.eden }
func (s *SegmentedLRU) Probation() *ring.Ring { return s.probation }
func (s *SegmentedLRU) Protected() *ring.Ring { return s.protected }

// TotalSize returns the combined weight of all three rings.
func (s *SegmentedLRU) TotalSize() int64 {
	return s.eden.Size() + s.probation.Size() + s.protected.Size()
}

func saturatingAdd(f uint32) uint32 {
	if f == math.MaxUint32 {
		return f
	}
	return f + 1
}

func (s *SegmentedLRU) probationEffectiveMax() int64 {
	slack := s.protected.MaxSize() - s.protected.Size()
	if slack < 0 {
		slack = 0
	}
	return s.probation.MaxSize() + slack
}

func (s *SegmentedLRU) protectedEffectiveMax() int64 {
	slack := s.probation.MaxSize() - s.probation.Size()
	if slack < 0 {
		slack = 0
	}
	return s.protected.MaxSize() + slack
}

// OnHit records a read of i, bumping its frequency and applying the
// promotion/demotion policy for its current ring.
// Returns keys evicted as a side effect of a cascading demotion
// (protected overflow pushing probation over its own effective cap).
func (s *SegmentedLRU) OnHit(i ring.Index) []Key {
	e := s.arena.get(i)
	e.Frequency = saturatingAdd(e.Frequency)

	switch e.Gen {
	case GenEden:
		s.eden.MoveToFront(s.arena, i)
		return nil

	case GenProbation:
		s.protected.MoveFromForeign(s.arena, s.probation, i)
		e.Gen = GenProtected
		if s.protected.Size() > s.protectedEffectiveMax() {
			victim := s.protected.LRU()
			if victim != ring.Nil {
				s.probation.MoveFromForeign(s.arena, s.protected, victim)
				s.arena.get(victim).Gen = GenProbation
			}
		}
		return s.evictProbationOverflow()

	default: // GenProtected
		s.protected.MoveToFront(s.arena, i)
		return nil
	}
}

// Add admits a brand new key into eden, frequency 1, then runs the eden
// spill / admission contest until eden is back within budget. Returns the
// new entry's index and any keys evicted as a side effect.
func (s *SegmentedLRU) Add(key Key, value []byte, tombstone bool) (ring.Index, []Key) {
	i := s.arena.alloc()
	e := s.arena.get(i)
	e.Key = key
	e.Value = value
	e.Tombstone = tombstone
	e.Weight = weightOf(value)
	e.Frequency = 1
	e.Gen = GenEden

	s.eden.PushFront(s.arena, i)

	var evicted []Key
	for s.eden.Size() > s.eden.MaxSize() {
		v := s.eden.LRU()
		if v == ring.Nil {
			break
		}
		if s.probation.Size()+int64(s.arena.Weight(v)) <= s.probationEffectiveMax() {
			s.probation.MoveFromForeign(s.arena, s.eden, v)
			s.arena.get(v).Gen = GenProbation
			continue
		}
		if k, ok := s.admissionContest(v); ok {
			evicted = append(evicted, k)
		}
	}

	evicted = append(evicted, s.evictProbationOverflow()...)
	return i, evicted
}

// admissionContest decides whether candidate c (still a
// member of eden) displaces probation's current LRU victim or is itself
// rejected. Exactly one of {c, victim} survives in probation; the other
// is evicted and its key returned. Ties favour the incumbent victim.
func (s *SegmentedLRU) admissionContest(c ring.Index) (Key, bool) {
	victim := s.probation.LRU()
	if victim == ring.Nil {
		// Nothing to contest against: admit the candidate outright.
		s.probation.MoveFromForeign(s.arena, s.eden, c)
		s.arena.get(c).Gen = GenProbation
		return Key{}, false
	}

	cFreq := s.arena.get(c).Frequency
	victimFreq := s.arena.get(victim).Frequency

	if cFreq > victimFreq {
		victimKey := s.arena.get(victim).Key
		s.probation.Remove(s.arena, victim)
		s.arena.release(victim)

		s.probation.MoveFromForeign(s.arena, s.eden, c)
		s.arena.get(c).Gen = GenProbation
		return victimKey, true
	}

	cKey := s.arena.get(c).Key
	s.eden.Remove(s.arena, c)
	s.arena.release(c)
	return cKey, true
}

// evictProbationOverflow evicts probation's LRU entries, 
// step 3, until probation is back within its effective cap.
func (s *SegmentedLRU) evictProbationOverflow() []Key {
	var evicted []Key
	for s.probation.Size() > s.probationEffectiveMax() {
		v := s.probation.LRU()
		if v == ring.Nil {
			break
		}
		evicted = append(evicted, s.arena.get(v).Key)
		s.probation.Remove(s.arena, v)
		s.arena.release(v)
	}
	return evicted
}

// Update replaces the value at i in place, adjusting the owning ring's
// size accordingly, and runs catch-up eviction scoped to that ring if the
// update pushed it over budget.
func (s *SegmentedLRU) Update(i ring.Index, value []byte, tombstone bool) []Key {
	e := s.arena.get(i)
	oldWeight := e.Weight
	e.Value = value
	e.Tombstone = tombstone
	e.Weight = weightOf(value)
	delta := int64(e.Weight - oldWeight)

	r := s.ringFor(e.Gen)
	r.AdjustSize(delta)

	if e.Gen == GenEden {
		var evicted []Key
		for s.eden.Size() > s.eden.MaxSize() {
			v := s.eden.LRU()
			if v == ring.Nil {
				break
			}
			if s.probation.Size()+int64(s.arena.Weight(v)) <= s.probationEffectiveMax() {
				s.probation.MoveFromForeign(s.arena, s.eden, v)
				s.arena.get(v).Gen = GenProbation
				continue
			}
			if k, ok := s.admissionContest(v); ok {
				evicted = append(evicted, k)
			}
		}
		return append(evicted, s.evictProbationOverflow()...)
	}

	// Probation/protected: evict this ring's own LRU until back in budget.
	var evicted []Key
	for r.OverSize() {
		v := r.LRU()
		if v == ring.Nil || v == i {
			break
		}
		evicted = append(evicted, s.arena.get(v).Key)
		r.Remove(s.arena, v)
		s.arena.release(v)
	}
	if e.Gen == GenProbation {
		evicted = append(evicted, s.evictProbationOverflow()...)
	}
	return evicted
}

// Delete removes i from whichever ring owns it and releases its arena
// slot.
func (s *SegmentedLRU) Delete(i ring.Index) {
	e := s.arena.get(i)
	s.ringFor(e.Gen).Remove(s.arena, i)
	s.arena.release(i)
}

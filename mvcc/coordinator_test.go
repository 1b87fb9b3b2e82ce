// coordinator_test.go: unit tests for Coordinator
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package mvcc

import (
	"math/rand"
	"testing"
)

type fakeCache struct {
	invalidated []Change
}

func (f *fakeCache) InvalidateOID(oid, keepTid int64) {
	f.invalidated = append(f.invalidated, Change{OID: oid, TID: keepTid})
}

func TestRegisterUnregister(t *testing.T) {
	c := NewCoordinator()
	fc := &fakeCache{}

	if c.IsRegistered(fc) {
		t.Fatal("should not be registered yet")
	}
	c.Register(fc)
	if !c.IsRegistered(fc) {
		t.Fatal("expected registered after Register")
	}
	c.Unregister(fc)
	if c.IsRegistered(fc) {
		t.Fatal("expected unregistered after Unregister")
	}
}

// TestPollInvalidation is scenario S4
func TestPollInvalidation(t *testing.T) {
	c := NewCoordinator()
	fc := &fakeCache{}
	c.Register(fc)

	if err := c.Poll(nil, 0, 10, []Change{{OID: 1, TID: 5}}); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if err := c.Poll(nil, 10, 20, []Change{{OID: 1, TID: 15}}); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(fc.invalidated) != 2 || fc.invalidated[0] != (Change{OID: 1, TID: 5}) || fc.invalidated[1] != (Change{OID: 1, TID: 15}) {
		t.Fatalf("expected one invalidation per poll, (1,5) then (1,15), got %+v", fc.invalidated)
	}

	tid, ok := c.VisibleTid(1, 20)
	if !ok || tid != 15 {
		t.Fatalf("expected visible tid 15, got %d ok=%v", tid, ok)
	}
}

func TestPollRejectsNonContiguous(t *testing.T) {
	c := NewCoordinator()
	if err := c.Poll(nil, 0, 10, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Poll(nil, 11, 20, nil); err == nil {
		t.Fatal("expected NonContiguous error for a gapped poll")
	}
}

func TestVisibleTidFallsThroughToOlderTRI(t *testing.T) {
	c := NewCoordinator()
	if err := c.Poll(nil, 0, 10, []Change{{OID: 1, TID: 5}, {OID: 2, TID: 7}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Poll(nil, 10, 20, []Change{{OID: 1, TID: 15}}); err != nil {
		t.Fatal(err)
	}

	if tid, ok := c.VisibleTid(2, 20); !ok || tid != 7 {
		t.Fatalf("expected oid 2 to resolve from the older TRI with tid 7, got %d ok=%v", tid, ok)
	}
}

func TestVisibleTidUnknownOID(t *testing.T) {
	c := NewCoordinator()
	if err := c.Poll(nil, 0, 10, []Change{{OID: 1, TID: 5}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.VisibleTid(99, 10); ok {
		t.Fatal("expected no opinion for an oid never reported by a poll")
	}
}

func TestGC(t *testing.T) {
	c := NewCoordinator()
	if err := c.Poll(nil, 0, 10, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Poll(nil, 10, 20, nil); err != nil {
		t.Fatal(err)
	}
	c.GC(15)
	if len(c.chain) != 1 || c.chain[0].HighestVisible() != 20 {
		t.Fatalf("expected only the [10,20] TRI to survive GC, chain=%+v", c.chain)
	}
}

// TestRandomPollSequenceMatchesLatestWrite drives a long random sequence
// of contiguous Poll calls, each touching a random subset of oids, and
// checks after every poll that VisibleTid(oid, hv) agrees with a plain
// reference map of "last tid this oid was reported at" for every oid
// ever seen — the same property TestVisibleTidFallsThroughToOlderTRI
// exercises for one fixed sequence, here checked for many.
func TestRandomPollSequenceMatchesLatestWrite(t *testing.T) {
	const oidSpace = 16

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		c := NewCoordinator()
		want := map[int64]int64{}

		tid := int64(0)
		for step := 0; step < 300; step++ {
			priorTid := tid
			tid += 1 + int64(rng.Intn(5))

			var changes []Change
			if rng.Intn(2) == 0 {
				oid := rng.Int63n(oidSpace)
				changes = append(changes, Change{OID: oid, TID: priorTid + 1 + rng.Int63n(tid-priorTid)})
			}

			if err := c.Poll(nil, priorTid, tid, changes); err != nil {
				t.Fatalf("seed %d step %d: unexpected poll error: %v", seed, step, err)
			}
			for _, ch := range changes {
				want[ch.OID] = ch.TID
			}

			for oid, expected := range want {
				got, ok := c.VisibleTid(oid, tid)
				if !ok || got != expected {
					t.Fatalf("seed %d step %d: VisibleTid(%d, %d) = (%d, %v), want (%d, true)", seed, step, oid, tid, got, ok, expected)
				}
			}
		}
	}
}

// tri_test.go: unit tests for TransactionRangeObjectIndex
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package mvcc

import (
	"math/rand"
	"testing"

	"github.com/agilira/rscache/errs"
)

func TestNewTRIValidRange(t *testing.T) {
	tri, err := NewTRI(0, 10, map[int64]int64{1: 5, 2: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tid, ok := tri.Lookup(1); !ok || tid != 5 {
		t.Fatalf("expected lookup(1)=5, got %d ok=%v", tid, ok)
	}
}

func TestNewTRIRejectsBackwardsRange(t *testing.T) {
	_, err := NewTRI(10, 10, nil)
	if err == nil || !errs.Is(err, errs.CodeInvalidTidRange) {
		t.Fatalf("expected InvalidTidRange, got %v", err)
	}
}

func TestNewTRIRejectsOutOfRangeDatum(t *testing.T) {
	_, err := NewTRI(0, 10, map[int64]int64{1: 11})
	if err == nil || !errs.Is(err, errs.CodeInvalidTidRange) {
		t.Fatalf("expected InvalidTidRange for tid above highest_visible, got %v", err)
	}

	_, err = NewTRI(0, 10, map[int64]int64{1: 0})
	if err == nil || !errs.Is(err, errs.CodeInvalidTidRange) {
		t.Fatalf("expected InvalidTidRange for tid at complete_since, got %v", err)
	}
}

// TestExtendChain is scenario S3
func TestExtendChain(t *testing.T) {
	a, err := NewTRI(0, 10, map[int64]int64{1: 5, 2: 7})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTRI(10, 20, map[int64]int64{1: 15})
	if err != nil {
		t.Fatal(err)
	}

	merged, err := a.ExtendWith(b)
	if err != nil {
		t.Fatalf("extend should succeed: %v", err)
	}
	if tid, _ := merged.Lookup(1); tid != 15 {
		t.Fatalf("expected visible tid 15 for oid 1, got %d", tid)
	}
	if tid, _ := merged.Lookup(2); tid != 7 {
		t.Fatalf("expected visible tid 7 for oid 2, got %d", tid)
	}
	if merged.CompleteSince() != 0 || merged.HighestVisible() != 20 {
		t.Fatalf("expected merged range [0,20], got [%d,%d]", merged.CompleteSince(), merged.HighestVisible())
	}
}

func TestExtendRejectsNonContiguous(t *testing.T) {
	a, _ := NewTRI(0, 10, nil)
	b, _ := NewTRI(11, 20, nil)

	_, err := a.ExtendWith(b)
	if err == nil || !errs.Is(err, errs.CodeNonContiguous) {
		t.Fatalf("expected NonContiguous, got %v", err)
	}
}

func TestContainsRange(t *testing.T) {
	tri, _ := NewTRI(0, 10, nil)
	if !tri.ContainsRange(1, 10) {
		t.Fatal("expected [1,10] contained in (0,10]")
	}
	if tri.ContainsRange(0, 10) {
		t.Fatal("lo == complete_since should not be contained (exclusive bound)")
	}
	if tri.ContainsRange(1, 11) {
		t.Fatal("hi beyond highest_visible should not be contained")
	}
}

// TestRandomChainLookupMatchesLatestWrite builds a long random chain of
// contiguous TRI segments, tracking the expected current tid per oid in
// a plain map alongside it, and checks after every extension that
// Lookup agrees with whichever segment most recently wrote that oid —
// the same "latest write wins" property NewTRI/ExtendWith must hold for
// any sequence of segments, not just the fixed one above.
func TestRandomChainLookupMatchesLatestWrite(t *testing.T) {
	const oidSpace = 12

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		want := map[int64]int64{}

		cs := int64(0)
		hv := cs + 1 + int64(rng.Intn(5))
		data := map[int64]int64{}
		if rng.Intn(2) == 0 {
			oid := rng.Int63n(oidSpace)
			data[oid] = cs + 1 + rng.Int63n(hv-cs)
		}
		chain, err := NewTRI(cs, hv, data)
		if err != nil {
			t.Fatalf("seed %d: unexpected error building initial segment: %v", seed, err)
		}
		for oid, tid := range data {
			want[oid] = tid
		}

		for step := 0; step < 200; step++ {
			nextCS := hv
			nextHV := nextCS + 1 + int64(rng.Intn(5))
			seg := map[int64]int64{}
			if rng.Intn(2) == 0 {
				oid := rng.Int63n(oidSpace)
				seg[oid] = nextCS + 1 + rng.Int63n(nextHV-nextCS)
			}

			next, err := NewTRI(nextCS, nextHV, seg)
			if err != nil {
				t.Fatalf("seed %d step %d: unexpected error building segment: %v", seed, step, err)
			}
			merged, err := chain.ExtendWith(next)
			if err != nil {
				t.Fatalf("seed %d step %d: contiguous extend should succeed: %v", seed, step, err)
			}

			for oid, tid := range seg {
				want[oid] = tid
			}
			for oid, tid := range want {
				if got, ok := merged.Lookup(oid); !ok || got != tid {
					t.Fatalf("seed %d step %d: Lookup(%d) = (%d, %v), want (%d, true)", seed, step, oid, got, ok, tid)
				}
			}
			if merged.HighestVisible() != nextHV {
				t.Fatalf("seed %d step %d: expected highest visible %d, got %d", seed, step, nextHV, merged.HighestVisible())
			}

			chain = merged
			hv = nextHV
		}
	}
}

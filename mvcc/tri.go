// tri.go: TransactionRangeObjectIndex - an immutable (oid -> tid) map valid
// over a (complete_since, highest_visible] window.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package mvcc

import (
	"fmt"

	"github.com/agilira/rscache/errs"
)

// TRI is an immutable per-polling-interval index of (oid -> tid) pairs.
// Once constructed it is never mutated; coordinators compose newer TRIs by
// extension (ExtendWith), never in place.
type TRI struct {
	completeSince  int64
	highestVisible int64
	data           map[int64]int64
}

// NewTRI validates (cs, hvt, data) and constructs an
// immutable TRI, or returns InvalidTidRange if cs >= hvt or any datum tid
// falls outside (cs, hvt].
func NewTRI(completeSince, highestVisible int64, data map[int64]int64) (*TRI, error) {
	if completeSince >= highestVisible {
		return nil, errs.InvalidTidRange(fmt.Sprintf(
			"complete_since (%d) must be < highest_visible (%d)", completeSince, highestVisible))
	}
	for oid, tid := range data {
		if tid <= completeSince || tid > highestVisible {
			return nil, errs.InvalidTidRange(fmt.Sprintf(
				"oid %d: tid %d outside (%d, %d]", oid, tid, completeSince, highestVisible))
		}
	}
	cp := make(map[int64]int64, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return &TRI{completeSince: completeSince, highestVisible: highestVisible, data: cp}, nil
}

// CompleteSince returns the exclusive lower bound of the TRI's range.
func (t *TRI) CompleteSince() int64 { return t.completeSince }

// HighestVisible returns the inclusive upper bound of the TRI's range.
func (t *TRI) HighestVisible() int64 { return t.highestVisible }

// Lookup returns the tid recorded for oid within this TRI, if any.
func (t *TRI) Lookup(oid int64) (int64, bool) {
	tid, ok := t.data[oid]
	return tid, ok
}

// ContainsRange reports whether [lo, hi] falls entirely within this TRI's
// (complete_since, highest_visible] window.
func (t *TRI) ContainsRange(lo, hi int64) bool {
	return lo > t.completeSince && hi <= t.highestVisible
}

// ExtendWith returns a new TRI covering [t.complete_since, other.highest_visible]
// when other.complete_since == t.highest_visible, merging other's data over
// t's. Fails with NonContiguous otherwise — the two TRIs do not chain.
func (t *TRI) ExtendWith(other *TRI) (*TRI, error) {
	if other.completeSince != t.highestVisible {
		return nil, errs.NonContiguous(fmt.Sprintf(
			"extend: other.complete_since (%d) != self.highest_visible (%d)",
			other.completeSince, t.highestVisible))
	}
	merged := make(map[int64]int64, len(t.data)+len(other.data))
	for k, v := range t.data {
		merged[k] = v
	}
	for k, v := range other.data {
		merged[k] = v
	}
	return &TRI{
		completeSince:  t.completeSince,
		highestVisible: other.highestVisible,
		data:           merged,
	}, nil
}

// adapter.go: Adapter capability set - the external collaborator contract
// StorageCache consumes for authoritative data and change feeds.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package storage

import "context"

// Change is one (oid, tid) pair reported for a polling interval.
type Change struct {
	OID int64
	TID int64
}

// ObjectMover loads authoritative object state from the remote store.
type ObjectMover interface {
	// LoadCurrent returns the current state and tid of oid, or (nil, 0,
	// false) if oid does not exist.
	LoadCurrent(ctx context.Context, cursor interface{}, oid int64) (state []byte, tid int64, ok bool, err error)
	// LoadRevision returns the state of oid as of tid, or (nil, false) if
	// that revision does not exist.
	LoadRevision(ctx context.Context, cursor interface{}, oid, tid int64) (state []byte, ok bool, err error)
}

// Poller supplies the change feed a connection uses to advance its
// visibility window.
type Poller interface {
	// ListChanges returns (oid, tid) pairs with afterTid < tid <= lastTid.
	ListChanges(ctx context.Context, cursor interface{}, afterTid, lastTid int64) ([]Change, error)
}

// Adapter is the single capability set replacing the source's per-database
// adapter class hierarchy: one interface, tagged variants
// selected at construction (e.g. adapter/pg for PostgreSQL), rather than
// dynamic dispatch across adapter subclasses.
type Adapter interface {
	ObjectMover
	Poller

	// StoreTemp appends state for oid to the in-progress two-phase commit
	// buffer; it is not yet visible to any connection.
	StoreTemp(ctx context.Context, cursor interface{}, oid int64, state []byte) error
	// MoveFromTemp commits the buffered writes under finalTid, making them
	// part of the authoritative history.
	MoveFromTemp(ctx context.Context, cursor interface{}, finalTid int64) error
	// UpdateCurrent advances the store's notion of the current revision for
	// oid to tid.
	UpdateCurrent(ctx context.Context, cursor interface{}, oid, tid int64) error
}

// errs.go: error kinds shared across the rscache object cache
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package errs

import (
	goerrors "github.com/agilira/go-errors"
)

// Stable error codes, surfaced for callers that want to branch on kind
// without string-matching messages.
const (
	CodeInvalidTidRange = "E_INVALID_TID_RANGE"
	CodeNonContiguous   = "E_NON_CONTIGUOUS"
	CodeSnapshotFormat  = "E_SNAPSHOT_FORMAT"
	CodeAdapterFailure  = "E_ADAPTER_FAILURE"
)

// InvalidTidRange reports a TransactionRangeObjectIndex constructed with
// complete_since >= highest_visible, or a datum tid outside
// (complete_since, highest_visible]. Fatal for the poll that attempted it;
// coordinator state is left unchanged.
func InvalidTidRange(msg string) error {
	return goerrors.New(CodeInvalidTidRange, msg)
}

// NonContiguous reports an extend_with whose complete_since does not match
// the chain's current highest_visible. Fatal for the poll that attempted it.
func NonContiguous(msg string) error {
	return goerrors.New(CodeNonContiguous, msg)
}

// SnapshotFormat reports a header mismatch, version mismatch, or crc
// failure while restoring a snapshot. Restore aborts; the client is left
// at its prior contents.
func SnapshotFormat(msg string) error {
	return goerrors.New(CodeSnapshotFormat, msg)
}

// AdapterFailure wraps an underlying adapter error with a stable code so
// callers can distinguish it from cache-internal failures without
// inspecting the adapter's own error types. Returns nil for a nil cause.
func AdapterFailure(cause error) error {
	if cause == nil {
		return nil
	}
	return goerrors.New(CodeAdapterFailure, cause.Error()).WithCause(cause)
}

// Is reports whether err (or any error it wraps via WithCause) carries
// code.
func Is(err error, code string) bool {
	for err != nil {
		ge, ok := err.(*goerrors.Error)
		if !ok {
			return false
		}
		if ge.Code == code {
			return true
		}
		err = ge.Unwrap()
	}
	return false
}

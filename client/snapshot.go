// snapshot.go: persistent snapshot save/restore for LocalClient
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/agilira/rscache/slru"
	rserrors "github.com/agilira/rscache/errs"
)

var magic = [8]byte{'R', 'S', 'C', 'A', 'C', 'H', 'E', 0}

const snapshotVersion uint32 = 1

// Save writes every live entry to path, ordered MRU→LRU within protected,
// then probation, then eden, recording each entry's frequency and
// generation.
//
// overwrite=false skips entries already present (by content hash) in an
// existing snapshot at path, appending a deduplicated file instead of
// truncating it.
func (c *LocalClient) Save(path string, overwrite bool) error {
	entries := c.mapping.StructuralCopy()

	seen := map[[sha256.Size]byte]struct{}{}
	if !overwrite {
		if existing, err := readEntries(path); err == nil {
			for _, e := range existing {
				seen[contentHash(e)] = struct{}{}
			}
		}
	}

	var kept []slru.SnapshotEntry
	for _, e := range entries {
		h := contentHash(e)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		kept = append(kept, e)
	}
	if !overwrite {
		if existing, err := readEntries(path); err == nil {
			kept = append(existing, kept...)
		}
	}

	return writeEntries(path, kept)
}

// Restore replaces the client's contents with the entries read from path.
// Entries are inserted as new keys in stream order: each enters eden with
// frequency 1, the saved frequency and generation are not applied, and
// the first entry of the stream (the saved protected MRU) ends up as the
// oldest, so the saved recency layout is not reproduced.
// A truncated or otherwise malformed snapshot fails hard (SnapshotFormat)
// and leaves the client untouched: partial restores are never applied.
func (c *LocalClient) Restore(path string) error {
	entries, err := readEntries(path)
	if err != nil {
		return err
	}
	fresh := slru.NewSizedMapping(c.budgetBytes)
	for _, e := range entries {
		fresh.Insert(e.Key, e.Value, e.Tombstone)
	}
	c.mapping = fresh
	return nil
}

func contentHash(e slru.SnapshotEntry) [sha256.Size]byte {
	h := sha256.New()
	var kb [16]byte
	binary.LittleEndian.PutUint64(kb[0:8], uint64(e.Key.OID))
	binary.LittleEndian.PutUint64(kb[8:16], uint64(e.Key.TID))
	h.Write(kb[:])
	h.Write(e.Value)
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeEntries(path string, entries []slru.SnapshotEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	var totalBytes uint64
	for _, e := range entries {
		totalBytes += uint64(len(e.Value))
	}

	if _, err := mw.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.LittleEndian, totalBytes); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(mw, binary.LittleEndian, e.Key.OID); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.LittleEndian, e.Key.TID); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.LittleEndian, e.Frequency); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.LittleEndian, uint8(e.Gen)); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.LittleEndian, uint32(len(e.Value))); err != nil {
			return err
		}
		if len(e.Value) > 0 {
			if _, err := mw.Write(e.Value); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, crc.Sum32()); err != nil {
		return err
	}
	return w.Flush()
}

func readEntries(path string) ([]slru.SnapshotEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)

	var gotMagic [8]byte
	if _, err := io.ReadFull(tr, gotMagic[:]); err != nil {
		return nil, rserrors.SnapshotFormat("snapshot: truncated header")
	}
	if gotMagic != magic {
		return nil, rserrors.SnapshotFormat("snapshot: bad magic")
	}

	var version uint32
	if err := binary.Read(tr, binary.LittleEndian, &version); err != nil {
		return nil, rserrors.SnapshotFormat("snapshot: truncated header")
	}
	if version != snapshotVersion {
		return nil, rserrors.SnapshotFormat("snapshot: unsupported version")
	}

	var entryCount, totalBytes uint64
	if err := binary.Read(tr, binary.LittleEndian, &entryCount); err != nil {
		return nil, rserrors.SnapshotFormat("snapshot: truncated header")
	}
	if err := binary.Read(tr, binary.LittleEndian, &totalBytes); err != nil {
		return nil, rserrors.SnapshotFormat("snapshot: truncated header")
	}

	entries := make([]slru.SnapshotEntry, 0, entryCount)
	var seenBytes uint64
	for i := uint64(0); i < entryCount; i++ {
		var e slru.SnapshotEntry
		var gen uint8
		var valueLen uint32

		if err := binary.Read(tr, binary.LittleEndian, &e.Key.OID); err != nil {
			return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
		}
		if err := binary.Read(tr, binary.LittleEndian, &e.Key.TID); err != nil {
			return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
		}
		if err := binary.Read(tr, binary.LittleEndian, &e.Frequency); err != nil {
			return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
		}
		if err := binary.Read(tr, binary.LittleEndian, &gen); err != nil {
			return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
		}
		e.Gen = slru.Generation(gen)
		if err := binary.Read(tr, binary.LittleEndian, &valueLen); err != nil {
			return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
		}
		if valueLen > 0 {
			e.Value = make([]byte, valueLen)
			if _, err := io.ReadFull(tr, e.Value); err != nil {
				return nil, rserrors.SnapshotFormat("snapshot: truncated entry")
			}
		} else {
			e.Tombstone = true
		}
		seenBytes += uint64(valueLen)
		entries = append(entries, e)
	}

	computed := crc.Sum32()
	var trailer uint32
	if err := binary.Read(r, binary.LittleEndian, &trailer); err != nil {
		return nil, rserrors.SnapshotFormat("snapshot: missing crc trailer")
	}
	if trailer != computed {
		return nil, rserrors.SnapshotFormat("snapshot: crc mismatch")
	}
	if seenBytes != totalBytes {
		return nil, rserrors.SnapshotFormat("snapshot: total_bytes mismatch")
	}

	return entries, nil
}

// rscache_test.go: unit tests for the root wiring
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package rscache

import (
	"context"
	"testing"

	"github.com/agilira/rscache/mvcc"
	"github.com/agilira/rscache/storage"
)

type nilAdapter struct{}

func (nilAdapter) LoadCurrent(context.Context, interface{}, int64) ([]byte, int64, bool, error) {
	return nil, 0, false, nil
}
func (nilAdapter) LoadRevision(context.Context, interface{}, int64, int64) ([]byte, bool, error) {
	return nil, false, nil
}
func (nilAdapter) ListChanges(context.Context, interface{}, int64, int64) ([]storage.Change, error) {
	return nil, nil
}
func (nilAdapter) StoreTemp(context.Context, interface{}, int64, []byte) error { return nil }
func (nilAdapter) MoveFromTemp(context.Context, interface{}, int64) error      { return nil }
func (nilAdapter) UpdateCurrent(context.Context, interface{}, int64, int64) error {
	return nil
}

func TestOpenWiresConnection(t *testing.T) {
	coord := mvcc.NewCoordinator()
	cfg := Config{CacheLocalMB: 1, CacheLocalObjectMax: 1 << 16, CacheLocalCompression: "none"}

	conn := Open(cfg, coord, nilAdapter{})
	defer conn.Close()

	conn.Client.Set(1, 1, []byte("hello"), false)
	v, _, ok := conn.Client.Get(1, 1)
	if !ok || string(v) != "hello" {
		t.Fatalf("expected round-trip through wired Connection, got ok=%v v=%q", ok, v)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.CacheLocalMB <= 0 {
		t.Fatal("expected a positive default cache budget")
	}
	if cfg.compressionCodec().String() == "" {
		t.Fatal("expected a named default compression codec")
	}
}

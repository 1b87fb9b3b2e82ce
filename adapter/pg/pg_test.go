// pg_test.go: unit tests for the PostgreSQL adapter
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package pg

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestNewRequiresConnectionString exercises the cheap validation path that
// needs no live database.
func TestNewRequiresConnectionString(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for empty connection string")
	}
}

// TestAdapterAgainstLiveDatabase runs the full Adapter contract against a
// real PostgreSQL instance when RSCACHE_TEST_PG_DSN is set; skipped
// otherwise, since no database is available in this environment.
func TestAdapterAgainstLiveDatabase(t *testing.T) {
	dsn := os.Getenv("RSCACHE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("RSCACHE_TEST_PG_DSN not set; skipping live PostgreSQL adapter test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := New(ctx, Config{ConnectionString: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Close()

	if _, _, ok, err := a.LoadCurrent(ctx, nil, 1); err != nil || ok {
		t.Fatalf("expected clean miss on empty table, got ok=%v err=%v", ok, err)
	}

	if err := a.StoreTemp(ctx, nil, 1, []byte("state")); err != nil {
		t.Fatalf("store temp: %v", err)
	}
	if err := a.MoveFromTemp(ctx, nil, 100); err != nil {
		t.Fatalf("move from temp: %v", err)
	}

	state, tid, ok, err := a.LoadCurrent(ctx, nil, 1)
	if err != nil || !ok || tid != 100 || string(state) != "state" {
		t.Fatalf("expected committed state visible, got state=%q tid=%d ok=%v err=%v", state, tid, ok, err)
	}
}

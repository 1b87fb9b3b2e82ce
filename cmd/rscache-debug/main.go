// main.go: CLI tool for inspecting an rscache Connection
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/agilira/rscache"
	"github.com/agilira/rscache/mvcc"
	"github.com/agilira/rscache/storage"
)

// VERSION is the current version of the rscache-debug CLI tool.
const VERSION = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	switch os.Args[1] {
	case "inspect":
		cmdInspect(os.Args[2:])
	case "version":
		cmdVersion()
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Printf("rscache Debug CLI v%s\n\n", VERSION)
	fmt.Println("USAGE: rscache-debug <command> [flags]")
	fmt.Println("COMMANDS:")
	fmt.Println("  inspect     Populate a scratch cache and show its statistics")
	fmt.Println("  version     Show version information")
	fmt.Println("  help        Show this help")
	fmt.Println("\nINSPECT FLAGS:")
	fmt.Println("  -json       Output in JSON format")
	fmt.Println("  -entries    Number of synthetic entries to insert (default 1000)")
}

func cmdVersion() {
	fmt.Printf("rscache-debug version %s, Go version: %s\n", VERSION, runtime.Version())
}

// noopAdapter serves no authoritative data; rscache-debug only exercises
// the cache's own bookkeeping, never a real store.
type noopAdapter struct{}

func (noopAdapter) LoadCurrent(context.Context, interface{}, int64) ([]byte, int64, bool, error) {
	return nil, 0, false, nil
}
func (noopAdapter) LoadRevision(context.Context, interface{}, int64, int64) ([]byte, bool, error) {
	return nil, false, nil
}
func (noopAdapter) ListChanges(context.Context, interface{}, int64, int64) ([]storage.Change, error) {
	return nil, nil
}
func (noopAdapter) StoreTemp(context.Context, interface{}, int64, []byte) error { return nil }
func (noopAdapter) MoveFromTemp(context.Context, interface{}, int64) error      { return nil }
func (noopAdapter) UpdateCurrent(context.Context, interface{}, int64, int64) error {
	return nil
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	entries := fs.Int("entries", 1000, "Number of synthetic entries to insert")
	if err := fs.Parse(args); err != nil {
		return
	}

	coord := mvcc.NewCoordinator()
	conn := rscache.Open(rscache.Config{CacheLocalMB: 16, CacheLocalObjectMax: 65536}, coord, noopAdapter{})
	defer conn.Close()

	for oid := int64(0); oid < int64(*entries); oid++ {
		conn.Client.Set(oid, 1, []byte("synthetic-value"), false)
	}
	for oid := int64(0); oid < int64(*entries)/2; oid++ {
		conn.Client.Get(oid, 1)
	}

	stats := conn.Client.Stats()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	if *jsonOutput {
		out := map[string]interface{}{
			"cache": map[string]interface{}{
				"hits":      stats.Hits,
				"misses":    stats.Misses,
				"sets":      stats.Sets,
				"evictions": stats.Evictions,
				"count":     stats.Count,
				"size":      stats.Size,
				"hit_ratio": stats.HitRatio(),
			},
			"memory": map[string]interface{}{
				"alloc_mb": float64(mem.Alloc) / 1024 / 1024,
			},
			"go_version": runtime.Version(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Println("=== rscache Inspection ===")
	fmt.Printf("Entries:   %d\n", stats.Count)
	fmt.Printf("Size:      %d bytes\n", stats.Size)
	fmt.Printf("Hits:      %d\n", stats.Hits)
	fmt.Printf("Misses:    %d\n", stats.Misses)
	fmt.Printf("Evictions: %d\n", stats.Evictions)
	fmt.Printf("Hit ratio: %.2f%%\n", stats.HitRatio()*100)
}

// main.go: benchmark/trace harness for rscache
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// rscache-bench drives the four workload shapes a storage backend cares
// about: a pure local-cache workload (no adapter), a snapshot save/restore
// workload, and two simulated variants that replay a synthetic access
// trace against a bare LocalClient or a full StorageCache. It never
// opens a real database connection; "io" here means snapshot file I/O,
// not adapter I/O — the StorageCache path is what simstorage exercises.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	flashflags "github.com/agilira/flash-flags"

	"github.com/agilira/rscache/client"
	"github.com/agilira/rscache/mvcc"
	"github.com/agilira/rscache/storage"
)

const keySpaceSize = 10_000

// transactionSize mirrors the polling cadence of a real connection: a
// poll is issued every transactionSize operations, or
// immediately when the in-flight oid collides with one already dirtied
// since the last poll.
const transactionSize = 10

func main() {
	if len(os.Args) < 2 {
		fmt.Println("USAGE: rscache-bench <local|io|simlocal|simstorage> [flags]")
		os.Exit(1)
	}

	sub := os.Args[1]
	fs := flashflags.New("rscache-bench")
	benchType := fs.String("type", sub, "workload type: local, io, simlocal, simstorage")
	temp := fs.String("temp", "", "directory for snapshot output (defaults to the working directory)")
	profile := fs.Bool("profile", false, "print a note that cpu profiling was requested; no profile file is written")
	verbose := fs.Bool("log", false, "enable debug-level logging of per-operation detail")
	doStream := fs.Bool("do-stream", false, "also print per-operation results to stdout as they complete, before the final summary")

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "rscache-bench: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	} else {
		log.SetOutput(os.Stderr) // still routed, just not invoked unless *verbose
	}

	dir := *temp
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}

	if *profile {
		fmt.Println("[profile] cpu.prof collection requested; wire in runtime/pprof around run() for a full capture")
	}

	var exitCode int
	switch *benchType {
	case "local":
		exitCode = runLocal(*doStream, *verbose)
	case "io":
		exitCode = runIO(dir, *doStream, *verbose)
	case "simlocal":
		exitCode = runSimLocal(*doStream, *verbose)
	case "simstorage":
		exitCode = runSimStorage(*doStream, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "rscache-bench: unknown type %q\n", *benchType)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func debugf(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	log.Printf(format, args...)
}

// runLocal exercises LocalClient in isolation: no adapter, no coordinator,
// pure segmented-LRU behavior under a synthetic access pattern. Mirrors
// the populate/read population shapes of a bare-LocalClient benchmark:
// populate-equal-sized writes followed by a repeating sequential read
// scan, the worst case for a segmented LRU since every key bounces
// between probation and protected on each pass.
func runLocal(stream, verbose bool) int {
	c := client.New(client.Options{
		BudgetBytes:   keySpaceSize * 64,
		Compression:   client.CompressionZlib,
		MaxObjectSize: 4096,
	})

	start := time.Now()
	for oid := int64(0); oid < keySpaceSize; oid++ {
		c.Set(oid, 1, make([]byte, 128), false)
	}
	debugf(verbose, "local: populated %d keys", keySpaceSize)

	for pass := 0; pass < 4; pass++ {
		for oid := int64(0); oid < keySpaceSize; oid++ {
			if _, _, ok := c.Get(oid, 1); ok && stream {
				fmt.Printf("hit oid=%d\n", oid)
			}
		}
	}
	stats := c.Stats()
	fmt.Printf("local: %d ops in %v, hit_ratio=%.2f%%, evictions=%d\n",
		keySpaceSize*5, time.Since(start), stats.HitRatio()*100, stats.Evictions)
	return 0
}

// runIO benchmarks snapshot save/restore: populate a LocalClient, measure
// the cost of Save to a file under dir, then measure the cost of
// Restore-ing that file into a fresh client. This is the save/load
// benchmark a storage backend's local cache actually needs — persisting
// and rehydrating the warm set across a process restart — as distinct
// from adapter-backed database I/O, which simstorage already covers.
func runIO(dir string, stream, verbose bool) int {
	path := dir + "/rscache-bench-snapshot.bin"

	c := client.New(client.Options{BudgetBytes: keySpaceSize * 64, MaxObjectSize: 4096})
	for oid := int64(0); oid < keySpaceSize; oid++ {
		c.Set(oid, 1, make([]byte, 256), false)
	}
	debugf(verbose, "io: populated %d keys before save", keySpaceSize)

	saveStart := time.Now()
	if err := c.Save(path, true); err != nil {
		fmt.Fprintf(os.Stderr, "io: save: %v\n", err)
		return 1
	}
	saveDuration := time.Since(saveStart)

	fresh := client.New(client.Options{BudgetBytes: keySpaceSize * 64, MaxObjectSize: 4096})
	restoreStart := time.Now()
	if err := fresh.Restore(path); err != nil {
		fmt.Fprintf(os.Stderr, "io: restore: %v\n", err)
		return 1
	}
	restoreDuration := time.Since(restoreStart)

	restored := fresh.Stats().Count
	if stream {
		fmt.Printf("restored %d entries\n", restored)
	}
	fmt.Printf("io: save=%v restore=%v entries=%d path=%s\n", saveDuration, restoreDuration, restored, path)
	_ = os.Remove(path)
	return 0
}

// runSimLocal replays a synthetic Zipf-like trace through a fresh
// LocalClient, reporting only the final cache statistics.
func runSimLocal(stream, verbose bool) int {
	c := client.New(client.Options{BudgetBytes: keySpaceSize * 32})
	zipf := rand.NewZipf(rand.New(rand.NewSource(2)), 1.1, 1, keySpaceSize-1)
	for i := 0; i < keySpaceSize*8; i++ {
		oid := int64(zipf.Uint64())
		if _, _, ok := c.Get(oid, 1); !ok {
			c.Set(oid, 1, make([]byte, 64), false)
			debugf(verbose, "simlocal: miss-then-set oid=%d", oid)
		} else if stream {
			fmt.Printf("hit oid=%d\n", oid)
		}
	}
	stats := c.Stats()
	fmt.Printf("simlocal: hit_ratio=%.2f%% count=%d size=%d\n", stats.HitRatio()*100, stats.Count, stats.Size)
	return 0
}

// runSimStorage replays the same Zipf trace through the full StorageCache,
// polling the coordinator every transactionSize operations (or sooner, if
// the trace revisits an oid already dirtied since the last poll) rather
// than after every single write — the same batched-poll discipline a real
// connection uses to amortize invalidation broadcast cost.
func runSimStorage(stream, verbose bool) int {
	coord := mvcc.NewCoordinator()
	cl := client.New(client.Options{BudgetBytes: keySpaceSize * 32})
	adapter := newMemoryAdapter()
	sc := storage.New(cl, coord, adapter)
	defer sc.Close()

	ctx := context.Background()
	zipf := rand.NewZipf(rand.New(rand.NewSource(2)), 1.1, 1, keySpaceSize-1)

	var hits int
	var currentTid int64
	dirtiedSincePoll := map[int64]bool{}
	sinceLastPoll := 0

	maybePoll := func(oid int64) {
		if sinceLastPoll >= transactionSize || dirtiedSincePoll[oid] {
			prior := currentTid
			currentTid++
			changes := []mvcc.Change{{OID: oid, TID: currentTid}}
			if err := sc.AfterPoll(nil, prior, currentTid, changes); err == nil {
				dirtiedSincePoll = map[int64]bool{}
				sinceLastPoll = 0
			}
		}
	}

	for i := 0; i < keySpaceSize*8; i++ {
		oid := int64(zipf.Uint64())
		maybePoll(oid)

		state, _, _ := sc.Load(ctx, nil, oid)
		ok := state != nil
		if ok {
			hits++
		}
		dirtiedSincePoll[oid] = true
		sinceLastPoll++
		if stream {
			fmt.Printf("load oid=%d ok=%v\n", oid, ok)
		}
		debugf(verbose, "simstorage: load oid=%d ok=%v tid=%d", oid, ok, currentTid)
	}
	fmt.Printf("simstorage: hits=%d of %d\n", hits, keySpaceSize*8)
	return 0
}

// memoryAdapter is an in-process stand-in for a real database adapter,
// used so the simstorage workload can exercise the full StorageCache
// path without a live connection.
type memoryAdapter struct {
	objects map[int64]map[int64][]byte
	temp    map[int64][]byte
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{objects: make(map[int64]map[int64][]byte), temp: make(map[int64][]byte)}
}

func (a *memoryAdapter) LoadCurrent(_ context.Context, _ interface{}, oid int64) ([]byte, int64, bool, error) {
	revs, ok := a.objects[oid]
	if !ok {
		return nil, 0, false, nil
	}
	var best int64 = -1
	for tid := range revs {
		if tid > best {
			best = tid
		}
	}
	return revs[best], best, true, nil
}

func (a *memoryAdapter) LoadRevision(_ context.Context, _ interface{}, oid, tid int64) ([]byte, bool, error) {
	revs, ok := a.objects[oid]
	if !ok {
		return nil, false, nil
	}
	v, ok := revs[tid]
	return v, ok, nil
}

func (a *memoryAdapter) ListChanges(_ context.Context, _ interface{}, afterTid, lastTid int64) ([]storage.Change, error) {
	var out []storage.Change
	for oid, revs := range a.objects {
		for tid := range revs {
			if tid > afterTid && tid <= lastTid {
				out = append(out, storage.Change{OID: oid, TID: tid})
			}
		}
	}
	return out, nil
}

func (a *memoryAdapter) StoreTemp(_ context.Context, _ interface{}, oid int64, state []byte) error {
	a.temp[oid] = state
	return nil
}

func (a *memoryAdapter) MoveFromTemp(_ context.Context, _ interface{}, finalTid int64) error {
	for oid, state := range a.temp {
		if a.objects[oid] == nil {
			a.objects[oid] = make(map[int64][]byte)
		}
		a.objects[oid][finalTid] = state
	}
	a.temp = make(map[int64][]byte)
	return nil
}

func (a *memoryAdapter) UpdateCurrent(_ context.Context, _ interface{}, _, _ int64) error {
	return nil
}

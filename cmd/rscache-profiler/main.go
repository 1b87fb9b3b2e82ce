// main.go: comparative profiler for rscache's LocalClient against otter
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"

	"github.com/agilira/rscache/client"
)

const (
	duration     = 5 * time.Second
	workers      = 8
	keySpaceSize = 10_000
	valueSize    = 64
	workload     = "balanced" // read-heavy, write-heavy, balanced
)

// opStat keeps track of latency metrics for an operation type.
type opStat struct {
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
	Count int64
}

func (s *opStat) Record(d time.Duration) {
	if s.Count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Total += d
	s.Count++
}

func (s *opStat) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return time.Duration(int64(s.Total) / s.Count)
}

// contender is the common surface both caches under test are driven through.
type contender interface {
	name() string
	set(oid int64, val []byte)
	get(oid int64) bool
}

type rscacheContender struct{ c *client.LocalClient }

func (r rscacheContender) name() string { return "rscache" }
func (r rscacheContender) set(oid int64, val []byte) {
	r.c.Set(oid, 1, val, false)
}
func (r rscacheContender) get(oid int64) bool {
	_, _, ok := r.c.Get(oid, 1)
	return ok
}

type otterContender struct{ c otter.Cache[int64, []byte] }

func (o otterContender) name() string { return "otter" }
func (o otterContender) set(oid int64, val []byte) {
	o.c.Set(oid, val)
}
func (o otterContender) get(oid int64) bool {
	_, ok := o.c.Get(oid)
	return ok
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	rs := rscacheContender{c: client.New(client.Options{
		BudgetBytes:   keySpaceSize * valueSize,
		Compression:   client.CompressionNone,
		MaxObjectSize: 4096,
	})}

	ob, err := otter.MustBuilder[int64, []byte](keySpaceSize).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "otter: build cache: %v\n", err)
		os.Exit(1)
	}
	ot := otterContender{c: ob}

	results := make([]map[string]interface{}, 0, 2)
	for _, cc := range []contender{rs, ot} {
		fmt.Printf("=== %s ===\n", cc.name())
		results = append(results, runWorkload(cc))
	}

	jsonFile, err := os.Create("rscache_profiler_results.json")
	if err == nil {
		defer jsonFile.Close()
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
	}

	csvFile, err := os.Create("rscache_profiler_results.csv")
	if err == nil {
		defer csvFile.Close()
		w := csv.NewWriter(csvFile)
		defer w.Flush()
		_ = w.Write([]string{"contender", "total_ops", "ops_per_sec", "get_avg_ns", "set_avg_ns"})
		for _, r := range results {
			_ = w.Write([]string{
				r["contender"].(string),
				fmt.Sprintf("%d", r["total_ops"]),
				fmt.Sprintf("%.2f", r["ops_per_sec"]),
				fmt.Sprintf("%d", r["get_avg_ns"]),
				fmt.Sprintf("%d", r["set_avg_ns"]),
			})
		}
	}
}

func runWorkload(cc contender) map[string]interface{} {
	fmt.Println("[WARMUP] Populating cache...")
	for i := 0; i < keySpaceSize/10; i++ {
		cc.set(int64(i), make([]byte, valueSize))
	}

	var setStat, getStat opStat
	var totalOps int64
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			localRand := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
			val := make([]byte, valueSize)
			for {
				select {
				case <-stop:
					return
				default:
					oid := int64(localRand.Intn(keySpaceSize))
					opType := localRand.Intn(100)
					if workload == "read-heavy" && opType < 90 || workload == "balanced" && opType < 50 {
						start := time.Now()
						cc.get(oid)
						getStat.Record(time.Since(start))
					} else {
						start := time.Now()
						cc.set(oid, val)
						setStat.Record(time.Since(start))
					}
					atomic.AddInt64(&totalOps, 1)
				}
			}
		}(i)
	}

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	fmt.Printf("Total operations: %d\n", totalOps)
	fmt.Printf("Set:  avg=%v min=%v max=%v\n", setStat.Avg(), setStat.Min, setStat.Max)
	fmt.Printf("Get:  avg=%v min=%v max=%v\n", getStat.Avg(), getStat.Min, getStat.Max)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(totalOps)/duration.Seconds())

	return map[string]interface{}{
		"contender":   cc.name(),
		"total_ops":   totalOps,
		"ops_per_sec": float64(totalOps) / duration.Seconds(),
		"get_avg_ns":  getStat.Avg().Nanoseconds(),
		"set_avg_ns":  setStat.Avg().Nanoseconds(),
	}
}

// rscache.go: New/Open convenience API wiring the client, mvcc, and storage
// packages together for a single connection.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package rscache

import (
	"github.com/agilira/rscache/client"
	"github.com/agilira/rscache/mvcc"
	"github.com/agilira/rscache/storage"
)

// Connection bundles one connection's LocalClient and StorageCache facade
// against a shared Coordinator, splitting the single in-process cache
// wrapper into the MVCC-aware layers this design requires.
type Connection struct {
	Client  *client.LocalClient
	Storage *storage.StorageCache
}

// New creates a Connection with automatic configuration loading (priority:
// Go literal > JSON file > defaults, see config.go), sharing coordinator
// across every connection that calls New/Open against the same process.
func New(coordinator *mvcc.Coordinator, adapter storage.Adapter) *Connection {
	cfg := loadConfig()
	return Open(cfg, coordinator, adapter)
}

// Open creates a Connection with an explicit configuration, for callers
// that do not want the automatic priority chain.
func Open(cfg Config, coordinator *mvcc.Coordinator, adapter storage.Adapter) *Connection {
	c := client.New(client.Options{
		BudgetBytes:   cfg.CacheLocalMB * (1 << 20),
		Compression:   cfg.compressionCodec(),
		MaxObjectSize: cfg.CacheLocalObjectMax,
	})
	sc := storage.New(c, coordinator, adapter)
	return &Connection{Client: c, Storage: sc}
}

// Close unregisters the connection from its coordinator.
func (conn *Connection) Close() {
	conn.Storage.Close()
}


// pg.go: PostgreSQL-backed Adapter - a concrete storage.Adapter
// implementation exercising the capability set end to end.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package pg is one tagged variant of the single Adapter capability set,
// selected at construction rather than through a class hierarchy per
// database flavor. Schema migration is out of scope: callers are
// expected to have already created the rscache_objects / rscache_temp
// tables this adapter queries.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agilira/rscache/storage"
)

// Config configures a connection pool to the authoritative PostgreSQL
// store.
type Config struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
}

// Adapter implements storage.Adapter over a PostgreSQL connection pool.
type Adapter struct {
	pool *pgxpool.Pool
}

// New opens a connection pool per cfg and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("pg: connection string is required")
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("pg: parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &Adapter{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() {
	a.pool.Close()
}

var _ storage.Adapter = (*Adapter)(nil)

// LoadCurrent returns the current state and tid of oid from
// rscache_objects, the latest row for that oid.
func (a *Adapter) LoadCurrent(ctx context.Context, _ interface{}, oid int64) ([]byte, int64, bool, error) {
	var state []byte
	var tid int64
	err := a.pool.QueryRow(ctx,
		`SELECT state, tid FROM rscache_objects WHERE oid = $1 ORDER BY tid DESC LIMIT 1`,
		oid,
	).Scan(&state, &tid)
	if err != nil {
		if isNoRows(err) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	return state, tid, true, nil
}

// LoadRevision returns the state of oid as of a specific tid.
func (a *Adapter) LoadRevision(ctx context.Context, _ interface{}, oid, tid int64) ([]byte, bool, error) {
	var state []byte
	err := a.pool.QueryRow(ctx,
		`SELECT state FROM rscache_objects WHERE oid = $1 AND tid = $2`,
		oid, tid,
	).Scan(&state)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return state, true, nil
}

// ListChanges returns (oid, tid) pairs committed in (afterTid, lastTid].
func (a *Adapter) ListChanges(ctx context.Context, _ interface{}, afterTid, lastTid int64) ([]storage.Change, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT oid, tid FROM rscache_objects WHERE tid > $1 AND tid <= $2 ORDER BY tid`,
		afterTid, lastTid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []storage.Change
	for rows.Next() {
		var c storage.Change
		if err := rows.Scan(&c.OID, &c.TID); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// StoreTemp buffers state for oid in rscache_temp, pending MoveFromTemp.
func (a *Adapter) StoreTemp(ctx context.Context, _ interface{}, oid int64, state []byte) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO rscache_temp (oid, state) VALUES ($1, $2)`,
		oid, state,
	)
	return err
}

// MoveFromTemp commits every buffered row under finalTid and clears the
// temp table, inside one transaction.
func (a *Adapter) MoveFromTemp(ctx context.Context, _ interface{}, finalTid int64) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO rscache_objects (oid, tid, state)
		 SELECT oid, $1, state FROM rscache_temp`,
		finalTid,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rscache_temp`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateCurrent is a no-op for this adapter: rscache_objects already
// orders revisions by tid, so "current" is always the latest row per oid
// (see LoadCurrent); there is no separate pointer to advance.
func (a *Adapter) UpdateCurrent(ctx context.Context, _ interface{}, oid, tid int64) error {
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/sqlitepool"
)

// ErrNotFound is returned by lookups for names, namespaces, and
// heights that are not in the database.
var ErrNotFound = errors.New("nameset: not found")

// Config holds the parameters for opening a name database.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// Params are the chain parameters the database replays under.
	Params config.ChainParams

	// Announcers are the addresses whose ANNOUNCE operations are
	// accepted. Empty rejects all announcements.
	Announcers []string

	// Logger receives per-block processing summaries and rejection
	// reasons. If nil, a no-op logger is used.
	Logger *slog.Logger

	// PoolSize is passed through to the connection pool.
	PoolSize int
}

// DB is the name database.
//
// ProcessBlock must be called from a single goroutine; queries are
// safe from any goroutine.
type DB struct {
	pool       *sqlitepool.Pool
	params     config.ChainParams
	announcers []string
	logger     *slog.Logger
}

// Open opens (creating if necessary) the name database at cfg.Path.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("nameset: Path is required")
	}
	if cfg.Params.Network == "" {
		return nil, fmt.Errorf("nameset: Params is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      cfg.Path,
		PoolSize:  cfg.PoolSize,
		Logger:    logger,
		OnConnect: initSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("nameset: %w", err)
	}

	return &DB{
		pool:       pool,
		params:     cfg.Params,
		announcers: cfg.Announcers,
		logger:     logger,
	}, nil
}

// Params returns the chain parameters the database replays under.
func (db *DB) Params() config.ChainParams { return db.params }

// Close closes the database. Outstanding queries must finish first.
func (db *DB) Close() error {
	return db.pool.Close()
}

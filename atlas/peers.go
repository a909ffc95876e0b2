// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"sort"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/devcode1981/stacks-blockchain/lib/sqlitepool"
)

const peerSchema = `
CREATE TABLE IF NOT EXISTS peers (
    address    TEXT PRIMARY KEY,
    health     REAL NOT NULL DEFAULT 0.5,
    last_seen  INTEGER NOT NULL DEFAULT 0,
    discovered INTEGER NOT NULL
);
`

// healthAlpha is the EWMA weight of each new observation. A peer
// needs a streak of failures to fall below the drop threshold, so one
// flaky request does not evict it.
const healthAlpha = 0.25

// dropThreshold is the health score below which Prune evicts a peer.
const dropThreshold = 0.1

// Peer is one row of the peer table.
type Peer struct {
	Address  string  `json:"address" cbor:"address"`
	Health   float64 `json:"health" cbor:"health"`
	LastSeen int64   `json:"last_seen" cbor:"last_seen"`
}

// PeerStore is the persistent peer table.
type PeerStore struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger

	// maxPeers caps the table; Add ignores new peers beyond it.
	maxPeers int
}

// OpenPeerStore opens (creating if necessary) the peer table at path.
func OpenPeerStore(path string, maxPeers int, logger *slog.Logger) (*PeerStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxPeers <= 0 {
		maxPeers = 80
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			if err := sqlitex.ExecuteScript(conn, peerSchema, nil); err != nil {
				return fmt.Errorf("atlas: initializing peer schema: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: %w", err)
	}
	return &PeerStore{pool: pool, logger: logger, maxPeers: maxPeers}, nil
}

// Close closes the store.
func (ps *PeerStore) Close() error { return ps.pool.Close() }

// Add inserts a peer if the table has room. Existing peers are left
// untouched. The address must be host:port.
func (ps *PeerStore) Add(ctx context.Context, address string, now int64) error {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return fmt.Errorf("atlas: peer address %q: %w", address, err)
	}

	conn, err := ps.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer ps.pool.Put(conn)

	count, err := ps.count(conn)
	if err != nil {
		return err
	}
	if count >= ps.maxPeers {
		return nil
	}

	err = sqlitex.Execute(conn, `
		INSERT OR IGNORE INTO peers (address, discovered) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{address, now}})
	if err != nil {
		return fmt.Errorf("atlas: adding peer %s: %w", address, err)
	}
	return nil
}

// Observe folds one request outcome into a peer's health EWMA and
// stamps last_seen on success.
func (ps *PeerStore) Observe(ctx context.Context, address string, success bool, now int64) error {
	conn, err := ps.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer ps.pool.Put(conn)

	if success {
		err = sqlitex.Execute(conn, `
			UPDATE peers
			SET health = health + ? * (1.0 - health), last_seen = ?
			WHERE address = ?`,
			&sqlitex.ExecOptions{Args: []any{healthAlpha, now, address}})
	} else {
		err = sqlitex.Execute(conn, `
			UPDATE peers
			SET health = health + ? * (0.0 - health)
			WHERE address = ?`,
			&sqlitex.ExecOptions{Args: []any{healthAlpha, address}})
	}
	if err != nil {
		return fmt.Errorf("atlas: observing peer %s: %w", address, err)
	}
	return nil
}

// Neighbors returns up to limit peers by weighted random selection:
// each peer's chance is proportional to its health score, so healthy
// peers are favored without the rest being starved.
func (ps *PeerStore) Neighbors(ctx context.Context, limit int) ([]Peer, error) {
	conn, err := ps.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer ps.pool.Put(conn)

	var peers []Peer
	err = sqlitex.Execute(conn, `
		SELECT address, health, last_seen FROM peers ORDER BY address`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				peers = append(peers, Peer{
					Address:  stmt.ColumnText(0),
					Health:   stmt.ColumnFloat(1),
					LastSeen: stmt.ColumnInt64(2),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("atlas: listing peers: %w", err)
	}

	peers = weightedSample(peers, limit)
	return peers, nil
}

// weightedSample draws peers without replacement, weighted by health.
// Each peer gets the key rand^(1/health) and the largest keys win; a
// peer's selection probability is health / (sum of healths).
func weightedSample(peers []Peer, limit int) []Peer {
	keys := make([]float64, len(peers))
	order := make([]int, len(peers))
	for i, peer := range peers {
		weight := peer.Health
		if weight < dropThreshold {
			weight = dropThreshold
		}
		keys[i] = math.Pow(rand.Float64(), 1.0/weight)
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return keys[order[a]] > keys[order[b]] })

	picked := make([]Peer, 0, len(peers))
	for _, i := range order {
		picked = append(picked, peers[i])
	}
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// Prune evicts peers whose health fell below the drop threshold.
func (ps *PeerStore) Prune(ctx context.Context) (int, error) {
	conn, err := ps.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer ps.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM peers WHERE health < ?`,
		&sqlitex.ExecOptions{Args: []any{dropThreshold}})
	if err != nil {
		return 0, fmt.Errorf("atlas: pruning peers: %w", err)
	}
	dropped := conn.Changes()
	if dropped > 0 {
		ps.logger.Info("unhealthy peers dropped", "count", dropped)
	}
	return dropped, nil
}

func (ps *PeerStore) count(conn *sqlite.Conn) (int, error) {
	var count int
	err := sqlitex.Execute(conn, `SELECT COUNT(*) FROM peers`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = int(stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("atlas: counting peers: %w", err)
	}
	return count, nil
}

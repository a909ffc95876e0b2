// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"context"
	"encoding/hex"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// Tip returns the height and consensus hash of the last processed
// block. ErrNotFound before any block has been processed.
func (db *DB) Tip(ctx context.Context) (uint64, hashing.ConsensusHash, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return 0, hashing.ConsensusHash{}, err
	}
	defer db.pool.Put(conn)

	height, found, err := readTip(conn)
	if err != nil {
		return 0, hashing.ConsensusHash{}, err
	}
	if !found {
		return 0, hashing.ConsensusHash{}, fmt.Errorf("chain tip: %w", ErrNotFound)
	}
	ch, err := readConsensusHash(conn, height)
	if err != nil {
		return 0, hashing.ConsensusHash{}, err
	}
	return height, ch, nil
}

// GetName returns the current record for a fully-qualified name.
// ErrNotFound for names never registered or expired past their grace
// period; expired-but-in-grace and revoked names are still returned,
// with their flags set, since they are not registerable.
func (db *DB) GetName(ctx context.Context, fqn string) (*NameRecord, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	record, err := readName(conn, fqn)
	if err != nil {
		return nil, err
	}

	tipHeight, found, err := readTip(conn)
	if err != nil {
		return nil, err
	}
	if found && record.ExpireBlock != 0 && tipHeight >= record.ExpireBlock+db.params.GracePeriod {
		return nil, fmt.Errorf("name %q: %w", fqn, ErrNotFound)
	}
	return record, nil
}

// GetNameAt returns the name's owner and zonefile hash as they stood
// at a historical height, reconstructed from the history log.
// ErrNotFound when the name had no accepted operations at or before
// that height.
func (db *DB) GetNameAt(ctx context.Context, fqn string, height uint64) (*HistoryEntry, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var entry *HistoryEntry
	err = sqlitex.Execute(conn, `
		SELECT height, vtxindex, opcode, txid, owner, zonefile_hash
		FROM history WHERE fqn = ? AND height <= ?
		ORDER BY height DESC, vtxindex DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{fqn, int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry = scanHistory(stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading %q at height %d: %w", fqn, height, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("name %q at height %d: %w", fqn, height, ErrNotFound)
	}
	return entry, nil
}

// NameHistory returns every accepted operation on a name, oldest
// first.
func (db *DB) NameHistory(ctx context.Context, fqn string) ([]HistoryEntry, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var entries []HistoryEntry
	err = sqlitex.Execute(conn, `
		SELECT height, vtxindex, opcode, txid, owner, zonefile_hash
		FROM history WHERE fqn = ?
		ORDER BY height, vtxindex`,
		&sqlitex.ExecOptions{
			Args: []any{fqn},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, *scanHistory(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading history of %q: %w", fqn, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("history of %q: %w", fqn, ErrNotFound)
	}
	return entries, nil
}

func scanHistory(stmt *sqlite.Stmt) *HistoryEntry {
	entry := &HistoryEntry{
		Height:   uint64(stmt.ColumnInt64(0)),
		VtxIndex: uint32(stmt.ColumnInt64(1)),
		Opcode:   stmt.ColumnText(2),
		TxID:     stmt.ColumnText(3),
		Owner:    stmt.ColumnText(4),
	}
	if stmt.ColumnType(5) != sqlite.TypeNull {
		entry.ZonefileHash = stmt.ColumnText(5)
	}
	return entry
}

// NamesInNamespace returns one page of names in a namespace,
// alphabetical, pageSize per page starting at page 0.
func (db *DB) NamesInNamespace(ctx context.Context, namespaceID string, page, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	if page < 0 {
		page = 0
	}

	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var names []string
	err = sqlitex.Execute(conn, `
		SELECT fqn FROM names WHERE namespace_id = ?
		ORDER BY fqn LIMIT ? OFFSET ?`,
		&sqlitex.ExecOptions{
			Args: []any{namespaceID, pageSize, page * pageSize},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				names = append(names, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: listing names in %q: %w", namespaceID, err)
	}
	return names, nil
}

// NamesOwnedBy returns the names currently owned by an address.
func (db *DB) NamesOwnedBy(ctx context.Context, address string) ([]string, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	view := &stateView{conn: conn, params: db.params}
	return view.NamesOwnedBy(address)
}

// GetNamespace returns a namespace record. ErrNotFound for namespaces
// never revealed (or abandoned).
func (db *DB) GetNamespace(ctx context.Context, id string) (*NamespaceRecord, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)
	return readNamespace(conn, id)
}

// ListNamespaces returns the IDs of all ready namespaces.
func (db *DB) ListNamespaces(ctx context.Context) ([]string, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var ids []string
	err = sqlitex.Execute(conn, `
		SELECT namespace_id FROM namespaces
		WHERE ready_block IS NOT NULL ORDER BY namespace_id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: listing namespaces: %w", err)
	}
	return ids, nil
}

// GetConsensusAt returns the consensus hash of a processed height.
func (db *DB) GetConsensusAt(ctx context.Context, height uint64) (hashing.ConsensusHash, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return hashing.ConsensusHash{}, err
	}
	defer db.pool.Put(conn)
	return readConsensusHash(conn, height)
}

// ValidConsensusHashes returns the consensus hashes a new operation
// may cite: the window ending at the tip, most recent first.
func (db *DB) ValidConsensusHashes(ctx context.Context) ([]hashing.ConsensusHash, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	tipHeight, found, err := readTip(conn)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("chain tip: %w", ErrNotFound)
	}

	// The view's window excludes its own height, so ask from one past
	// the tip to include the tip's hash.
	view := &stateView{conn: conn, params: db.params, height: tipHeight + 1}
	return view.ValidConsensusHashes()
}

// NamePrice returns the registration price of a name under its
// namespace's curve. The namespace must be revealed.
func (db *DB) NamePrice(ctx context.Context, fqn string) (uint64, error) {
	label, nsID, err := scripts.ParseFQN(fqn)
	if err != nil {
		return 0, err
	}
	namespace, err := db.GetNamespace(ctx, nsID)
	if err != nil {
		return 0, err
	}
	return namespace.Curve.NamePrice(label), nil
}

// BlockMaterial returns what a light client needs to recompute one
// block's consensus hash: the operations digest and the prior
// consensus hashes at the geometric back-pointer heights, nearest
// first.
func (db *DB) BlockMaterial(ctx context.Context, height uint64) ([32]byte, []hashing.ConsensusHash, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return [32]byte{}, nil, err
	}
	defer db.pool.Put(conn)

	var digestHex string
	err = sqlitex.Execute(conn, `
		SELECT ops_digest FROM consensus_hashes WHERE height = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				digestHex = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("nameset: reading ops digest at %d: %w", height, err)
	}
	if digestHex == "" {
		return [32]byte{}, nil, fmt.Errorf("block material at height %d: %w", height, ErrNotFound)
	}

	decoded, err := hex.DecodeString(digestHex)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, nil, fmt.Errorf("nameset: corrupt ops digest at height %d", height)
	}
	var digest [32]byte
	copy(digest[:], decoded)

	var priors []hashing.ConsensusHash
	for _, back := range hashing.BackPointerHeights(height, db.params.FirstBlock) {
		ch, err := readConsensusHash(conn, back)
		if err != nil {
			return [32]byte{}, nil, err
		}
		priors = append(priors, ch)
	}
	return digest, priors, nil
}

// AcceptedOps returns the accepted operations of one processed block,
// in canonical order.
func (db *DB) AcceptedOps(ctx context.Context, height uint64) ([]AcceptedOp, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var blob []byte
	found := false
	err = sqlitex.Execute(conn, `
		SELECT ops FROM consensus_hashes WHERE height = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				blob = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, blob)
				found = true
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading ops at %d: %w", height, err)
	}
	if !found {
		return nil, fmt.Errorf("accepted ops at height %d: %w", height, ErrNotFound)
	}

	var accepted []AcceptedOp
	if err := codec.Unmarshal(blob, &accepted); err != nil {
		return nil, fmt.Errorf("nameset: decoding ops at height %d: %w", height, err)
	}
	return accepted, nil
}

// ZonefileIndexEntry is one accepted zonefile hash with its monotonic
// inventory position. Positions start at 1 and never change.
type ZonefileIndexEntry struct {
	Index        uint64
	FQN          string
	ZonefileHash hashing.ZonefileHash
	Height       uint64
}

// ZonefileIndex returns the accepted zonefile hashes with positions
// after afterIndex, in acceptance order. Pass 0 for the full index.
// The replication layer builds its inventory bit vector over this
// sequence; the subdomain scanner consumes it as a feed.
func (db *DB) ZonefileIndex(ctx context.Context, afterIndex uint64) ([]ZonefileIndexEntry, error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	var entries []ZonefileIndexEntry
	var scanErr error
	err = sqlitex.Execute(conn, `
		SELECT idx, zonefile_hash, fqn, height FROM zonefile_index
		WHERE idx > ? ORDER BY idx`,
		&sqlitex.ExecOptions{
			Args: []any{int64(afterIndex)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				zh, err := hashing.ParseZonefileHash(stmt.ColumnText(1))
				if err != nil {
					scanErr = err
					return nil
				}
				entries = append(entries, ZonefileIndexEntry{
					Index:        uint64(stmt.ColumnInt64(0)),
					ZonefileHash: zh,
					FQN:          stmt.ColumnText(2),
					Height:       uint64(stmt.ColumnInt64(3)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading zonefile index: %w", err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("nameset: zonefile index: %w", scanErr)
	}
	return entries, nil
}


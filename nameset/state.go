// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/operations"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// stateView implements operations.StateReader against one connection,
// scoped to the block being processed. It runs inside the block's
// transaction, so operations applied earlier in the block are visible
// to later checks.
type stateView struct {
	conn   *sqlite.Conn
	params config.ChainParams

	// height is the block being processed.
	height uint64
}

var _ operations.StateReader = (*stateView)(nil)

func (s *stateView) GetName(fqn string) (*operations.NameView, error) {
	var view *operations.NameView
	err := sqlitex.Execute(s.conn, `
		SELECT owner, revoked, expire_block FROM names WHERE fqn = ?`,
		&sqlitex.ExecOptions{
			Args: []any{fqn},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				view = &operations.NameView{
					FQN:         fqn,
					Owner:       stmt.ColumnText(0),
					Revoked:     stmt.ColumnInt64(1) != 0,
					ExpireBlock: uint64(stmt.ColumnInt64(2)),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading name %q: %w", fqn, err)
	}
	return view, nil
}

func (s *stateView) GetNamespace(id string) (*operations.NamespaceView, error) {
	var view *operations.NamespaceView
	var scanErr error
	err := sqlitex.Execute(s.conn, `
		SELECT revealer, reveal_block, ready_block, lifetime, price_curve
		FROM namespaces WHERE namespace_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				view = &operations.NamespaceView{
					ID:          id,
					Revealer:    stmt.ColumnText(0),
					RevealBlock: uint64(stmt.ColumnInt64(1)),
					Ready:       stmt.ColumnType(2) != sqlite.TypeNull,
					Lifetime:    uint64(stmt.ColumnInt64(3)),
				}
				curve := make([]byte, stmt.ColumnLen(4))
				stmt.ColumnBytes(4, curve)
				scanErr = codec.Unmarshal(curve, &view.Curve)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading namespace %q: %w", id, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("nameset: decoding price curve for %q: %w", id, scanErr)
	}
	return view, nil
}

func (s *stateView) getPreorder(hash [hashing.Hash160Size]byte, kind string) (*operations.PreorderView, error) {
	var view *operations.PreorderView
	err := sqlitex.Execute(s.conn, `
		SELECT sender, height, fee FROM preorders
		WHERE preorder_hash = ? AND kind = ?`,
		&sqlitex.ExecOptions{
			Args: []any{fmt.Sprintf("%x", hash), kind},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				view = &operations.PreorderView{
					Hash:   hash,
					Sender: stmt.ColumnText(0),
					Height: uint64(stmt.ColumnInt64(1)),
					Fee:    uint64(stmt.ColumnInt64(2)),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading %s preorder: %w", kind, err)
	}
	return view, nil
}

func (s *stateView) GetPreorder(hash [hashing.Hash160Size]byte) (*operations.PreorderView, error) {
	return s.getPreorder(hash, preorderKindName)
}

func (s *stateView) GetNamespacePreorder(hash [hashing.Hash160Size]byte) (*operations.PreorderView, error) {
	return s.getPreorder(hash, preorderKindNamespace)
}

func (s *stateView) ConsensusHashValid(ch hashing.ConsensusHash) (bool, error) {
	window, err := s.ValidConsensusHashes()
	if err != nil {
		return false, err
	}
	for _, valid := range window {
		if valid == ch {
			return true, nil
		}
	}
	return false, nil
}

func (s *stateView) NamesOwnedBy(address string) ([]string, error) {
	var owned []string
	err := sqlitex.Execute(s.conn, `
		SELECT fqn FROM names WHERE owner = ? ORDER BY fqn`,
		&sqlitex.ExecOptions{
			Args: []any{address},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				owned = append(owned, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: listing names owned by %s: %w", address, err)
	}
	return owned, nil
}

// ValidConsensusHashes returns the consensus window as of the block
// under processing: the hashes of the preceding ConsensusWindow
// blocks, most recent first.
func (s *stateView) ValidConsensusHashes() ([]hashing.ConsensusHash, error) {
	var floor uint64
	if s.height > s.params.ConsensusWindow {
		floor = s.height - s.params.ConsensusWindow
	}

	var window []hashing.ConsensusHash
	var scanErr error
	err := sqlitex.Execute(s.conn, `
		SELECT consensus_hash FROM consensus_hashes
		WHERE height >= ? AND height < ?
		ORDER BY height DESC`,
		&sqlitex.ExecOptions{
			Args: []any{int64(floor), int64(s.height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ch, err := hashing.ParseConsensusHash(stmt.ColumnText(0))
				if err != nil {
					scanErr = err
					return nil
				}
				window = append(window, ch)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading consensus window: %w", err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("nameset: consensus window: %w", scanErr)
	}
	return window, nil
}

// readNamespace scans a full NamespaceRecord row. Shared by the
// public queries.
func readNamespace(conn *sqlite.Conn, id string) (*NamespaceRecord, error) {
	var record *NamespaceRecord
	var scanErr error
	err := sqlitex.Execute(conn, `
		SELECT revealer, reveal_block, ready_block, lifetime, price_curve
		FROM namespaces WHERE namespace_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = &NamespaceRecord{
					ID:          id,
					Revealer:    stmt.ColumnText(0),
					RevealBlock: uint64(stmt.ColumnInt64(1)),
					Lifetime:    uint64(stmt.ColumnInt64(3)),
				}
				if stmt.ColumnType(2) != sqlite.TypeNull {
					record.Ready = true
					record.ReadyBlock = uint64(stmt.ColumnInt64(2))
				}
				curve := make([]byte, stmt.ColumnLen(4))
				stmt.ColumnBytes(4, curve)
				scanErr = codec.Unmarshal(curve, &record.Curve)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading namespace %q: %w", id, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("nameset: decoding price curve for %q: %w", id, scanErr)
	}
	if record == nil {
		return nil, fmt.Errorf("namespace %q: %w", id, ErrNotFound)
	}
	return record, nil
}

// readName scans a full NameRecord row. Returns ErrNotFound when the
// name has no row at all.
func readName(conn *sqlite.Conn, fqn string) (*NameRecord, error) {
	var record *NameRecord
	err := sqlitex.Execute(conn, `
		SELECT namespace_id, owner, zonefile_hash, revoked, imported,
		       registered_block, renewed_block, expire_block
		FROM names WHERE fqn = ?`,
		&sqlitex.ExecOptions{
			Args: []any{fqn},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = &NameRecord{
					FQN:             fqn,
					NamespaceID:     stmt.ColumnText(0),
					Owner:           stmt.ColumnText(1),
					Revoked:         stmt.ColumnInt64(3) != 0,
					Imported:        stmt.ColumnInt64(4) != 0,
					RegisteredBlock: uint64(stmt.ColumnInt64(5)),
					RenewedBlock:    uint64(stmt.ColumnInt64(6)),
					ExpireBlock:     uint64(stmt.ColumnInt64(7)),
				}
				if stmt.ColumnType(2) != sqlite.TypeNull {
					record.ZonefileHash = stmt.ColumnText(2)
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nameset: reading name %q: %w", fqn, err)
	}
	if record == nil {
		return nil, fmt.Errorf("name %q: %w", fqn, ErrNotFound)
	}
	return record, nil
}

// marshalCurve encodes a price curve for storage.
func marshalCurve(curve scripts.PriceCurve) ([]byte, error) {
	encoded, err := codec.Marshal(curve)
	if err != nil {
		return nil, fmt.Errorf("nameset: encoding price curve: %w", err)
	}
	return encoded, nil
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
	"github.com/devcode1981/stacks-blockchain/operations"
)

// ProcessBlock applies one block to the name database. The block's
// transactions are processed in vtxindex order; each name operation is
// parsed, checked against the state as of the previous operation, and
// applied if accepted. The whole block commits atomically, ending with
// the new consensus hash.
//
// Blocks must arrive in height order. The first block must be at or
// above the chain's first indexed height.
func (db *DB) ProcessBlock(ctx context.Context, block chainio.Block) (result *BlockResult, err error) {
	conn, err := db.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Put(conn)

	tipHeight, haveTip, err := readTip(conn)
	if err != nil {
		return nil, err
	}
	if haveTip && block.Height != tipHeight+1 {
		return nil, fmt.Errorf("nameset: block %d out of order (tip is %d)", block.Height, tipHeight)
	}
	if !haveTip && block.Height < db.params.FirstBlock {
		return nil, fmt.Errorf("nameset: block %d precedes first indexed height %d", block.Height, db.params.FirstBlock)
	}

	defer sqlitex.Save(conn)(&err)

	if err := db.sweep(conn, block.Height); err != nil {
		return nil, err
	}

	transactions := make([]chainio.Transaction, len(block.Transactions))
	copy(transactions, block.Transactions)
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].VtxIndex < transactions[j].VtxIndex
	})

	view := &stateView{conn: conn, params: db.params, height: block.Height}
	result = &BlockResult{Height: block.Height}
	var accepted []AcceptedOp

	for _, tx := range transactions {
		op, ok, parseErr := operations.ParseTransaction(tx)
		if parseErr != nil {
			db.logger.Debug("malformed name operation",
				"height", block.Height, "txid", tx.TxID, "error", parseErr)
			result.Rejected++
			continue
		}
		if !ok {
			continue
		}

		txInfo := operations.TxInfo{
			Params:     db.params,
			Height:     block.Height,
			Sender:     tx.SenderAddress,
			Recipient:  tx.RecipientAddress,
			Fee:        tx.Fee,
			Announcers: db.announcers,
		}

		if checkErr := op.Check(view, txInfo); checkErr != nil {
			db.logger.Debug("name operation rejected",
				"height", block.Height, "txid", tx.TxID,
				"opcode", op.Opcode().String(), "reason", checkErr)
			result.Rejected++
			continue
		}

		if err := db.apply(conn, op, txInfo, tx); err != nil {
			return nil, err
		}

		payload, err := op.SerializePayload()
		if err != nil {
			return nil, fmt.Errorf("nameset: reserializing accepted op %s: %w", tx.TxID, err)
		}
		accepted = append(accepted, AcceptedOp{
			TxID:     tx.TxID,
			VtxIndex: tx.VtxIndex,
			Opcode:   op.Opcode().String(),
			Payload:  payload,
		})
		result.Accepted++
	}

	digest, err := OperationsDigest(accepted)
	if err != nil {
		return nil, err
	}
	ch, err := hashing.ChainConsensusHash(digest, block.Height, db.params.FirstBlock, func(height uint64) (hashing.ConsensusHash, error) {
		return readConsensusHash(conn, height)
	})
	if err != nil {
		return nil, err
	}
	result.ConsensusHash = ch

	opsBlob, err := codec.Marshal(accepted)
	if err != nil {
		return nil, fmt.Errorf("nameset: encoding accepted ops: %w", err)
	}
	if err := exec(conn, `
		INSERT INTO consensus_hashes (height, consensus_hash, ops_digest, ops)
		VALUES (?, ?, ?, ?)`,
		int64(block.Height), ch.String(), hex.EncodeToString(digest[:]), opsBlob); err != nil {
		return nil, err
	}
	if err := exec(conn, `
		INSERT INTO chain_tip (id, height, block_hash) VALUES (0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET height = excluded.height, block_hash = excluded.block_hash`,
		int64(block.Height), block.Hash); err != nil {
		return nil, err
	}

	db.logger.Info("block processed",
		"height", block.Height,
		"accepted", result.Accepted,
		"rejected", result.Rejected,
		"consensus_hash", ch.String())
	return result, nil
}

// sweep drops state that expired before the block: stale preorders and
// namespaces that were revealed but never readied in time, along with
// their imported names.
func (db *DB) sweep(conn *sqlite.Conn, height uint64) error {
	if err := exec(conn, `
		DELETE FROM preorders WHERE height + ? <= ?`,
		int64(db.params.PreorderTTL), int64(height)); err != nil {
		return err
	}

	var abandoned []string
	err := sqlitex.Execute(conn, `
		SELECT namespace_id FROM namespaces
		WHERE ready_block IS NULL AND reveal_block + ? <= ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(db.params.RevealExpiry), int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				abandoned = append(abandoned, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("nameset: finding abandoned namespaces: %w", err)
	}

	for _, id := range abandoned {
		if err := exec(conn, `DELETE FROM names WHERE namespace_id = ?`, id); err != nil {
			return err
		}
		if err := exec(conn, `DELETE FROM namespaces WHERE namespace_id = ?`, id); err != nil {
			return err
		}
		db.logger.Info("abandoned namespace dropped", "namespace", id, "height", height)
	}
	return nil
}

// apply mutates the database for one accepted operation.
func (db *DB) apply(conn *sqlite.Conn, op operations.Operation, txInfo operations.TxInfo, tx chainio.Transaction) error {
	owner := txInfo.Sender
	if txInfo.Recipient != "" {
		owner = txInfo.Recipient
	}

	switch op := op.(type) {
	case *operations.NamePreorder:
		return exec(conn, `
			INSERT OR REPLACE INTO preorders (preorder_hash, kind, sender, height, fee)
			VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprintf("%x", op.PreorderHash), preorderKindName,
			txInfo.Sender, int64(txInfo.Height), int64(txInfo.Fee))

	case *operations.NameRegistration:
		if op.Renewal {
			record, err := readName(conn, op.FQN)
			if err != nil {
				return err
			}
			namespace, err := readNamespace(conn, record.NamespaceID)
			if err != nil {
				return err
			}
			if err := exec(conn, `
				UPDATE names SET renewed_block = ?, expire_block = ? WHERE fqn = ?`,
				int64(txInfo.Height), int64(expireAt(txInfo.Height, namespace.Lifetime)),
				op.FQN); err != nil {
				return err
			}
			return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameRegistration, record.Owner, record.ZonefileHash)
		}

		_, nsID, err := scripts.ParseFQN(op.FQN)
		if err != nil {
			return err
		}
		namespace, err := readNamespace(conn, nsID)
		if err != nil {
			return err
		}
		blind := scripts.PreorderHash(op.FQN, txInfo.Sender, owner)
		if err := exec(conn, `
			DELETE FROM preorders WHERE preorder_hash = ?`,
			fmt.Sprintf("%x", blind)); err != nil {
			return err
		}
		if err := exec(conn, `
			INSERT OR REPLACE INTO names
			(fqn, namespace_id, owner, zonefile_hash, revoked, imported,
			 registered_block, renewed_block, expire_block)
			VALUES (?, ?, ?, NULL, 0, 0, ?, ?, ?)`,
			op.FQN, nsID, owner,
			int64(txInfo.Height), int64(txInfo.Height),
			int64(expireAt(txInfo.Height, namespace.Lifetime))); err != nil {
			return err
		}
		return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameRegistration, owner, "")

	case *operations.NameUpdate:
		if err := exec(conn, `
			UPDATE names SET zonefile_hash = ? WHERE fqn = ?`,
			op.ZonefileHash.String(), op.FQN); err != nil {
			return err
		}
		if err := appendZonefileIndex(conn, op.FQN, op.ZonefileHash.String(), txInfo.Height); err != nil {
			return err
		}
		record, err := readName(conn, op.FQN)
		if err != nil {
			return err
		}
		return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameUpdate, record.Owner, op.ZonefileHash.String())

	case *operations.NameTransfer:
		zonefile := any(nil)
		if op.KeepData {
			record, err := readName(conn, op.FQN)
			if err != nil {
				return err
			}
			if record.ZonefileHash != "" {
				zonefile = record.ZonefileHash
			}
		}
		if err := exec(conn, `
			UPDATE names SET owner = ?, zonefile_hash = ? WHERE fqn = ?`,
			txInfo.Recipient, zonefile, op.FQN); err != nil {
			return err
		}
		kept, _ := zonefile.(string)
		return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameTransfer, txInfo.Recipient, kept)

	case *operations.NameRevoke:
		if err := exec(conn, `
			UPDATE names SET revoked = 1, zonefile_hash = NULL WHERE fqn = ?`,
			op.FQN); err != nil {
			return err
		}
		return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameRevoke, txInfo.Sender, "")

	case *operations.NameImport:
		_, nsID, err := scripts.ParseFQN(op.FQN)
		if err != nil {
			return err
		}
		// Imported names get their lifetime when the namespace is
		// readied; until then they do not expire.
		if err := exec(conn, `
			INSERT OR REPLACE INTO names
			(fqn, namespace_id, owner, zonefile_hash, revoked, imported,
			 registered_block, renewed_block, expire_block)
			VALUES (?, ?, ?, ?, 0, 1, ?, ?, 0)`,
			op.FQN, nsID, owner, op.ZonefileHash.String(),
			int64(txInfo.Height), int64(txInfo.Height)); err != nil {
			return err
		}
		if err := appendZonefileIndex(conn, op.FQN, op.ZonefileHash.String(), txInfo.Height); err != nil {
			return err
		}
		return appendHistory(conn, op.FQN, txInfo.Height, tx, scripts.OpNameImport, owner, op.ZonefileHash.String())

	case *operations.NamespacePreorder:
		return exec(conn, `
			INSERT OR REPLACE INTO preorders (preorder_hash, kind, sender, height, fee)
			VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprintf("%x", op.PreorderHash), preorderKindNamespace,
			txInfo.Sender, int64(txInfo.Height), int64(txInfo.Fee))

	case *operations.NamespaceReveal:
		curve, err := marshalCurve(op.Curve)
		if err != nil {
			return err
		}
		blind := scripts.NamespacePreorderHash(op.NamespaceID, txInfo.Sender)
		if err := exec(conn, `
			DELETE FROM preorders WHERE preorder_hash = ?`,
			fmt.Sprintf("%x", blind)); err != nil {
			return err
		}
		// A re-reveal of an abandoned namespace starts clean.
		if err := exec(conn, `DELETE FROM names WHERE namespace_id = ?`, op.NamespaceID); err != nil {
			return err
		}
		return exec(conn, `
			INSERT OR REPLACE INTO namespaces
			(namespace_id, revealer, reveal_block, ready_block, lifetime, price_curve)
			VALUES (?, ?, ?, NULL, ?, ?)`,
			op.NamespaceID, txInfo.Sender, int64(txInfo.Height),
			int64(op.EffectiveLifetime(txInfo.Params)), curve)

	case *operations.NamespaceReady:
		namespace, err := readNamespace(conn, op.NamespaceID)
		if err != nil {
			return err
		}
		if err := exec(conn, `
			UPDATE namespaces SET ready_block = ? WHERE namespace_id = ?`,
			int64(txInfo.Height), op.NamespaceID); err != nil {
			return err
		}
		// Imported names start their lifetime clock at launch.
		return exec(conn, `
			UPDATE names SET expire_block = ? WHERE namespace_id = ? AND imported = 1`,
			int64(expireAt(txInfo.Height, namespace.Lifetime)), op.NamespaceID)

	case *operations.Announce:
		db.logger.Info("announcement accepted",
			"sender", txInfo.Sender, "message_hash", fmt.Sprintf("%x", op.MessageHash))
		return nil

	default:
		return fmt.Errorf("nameset: no apply handler for opcode %v", op.Opcode())
	}
}

// expireAt computes a name's expiry height under a namespace lifetime.
// Infinite lifetime yields 0 (never expires).
func expireAt(height, lifetime uint64) uint64 {
	if lifetime == config.NamespaceLifetimeInfinite {
		return 0
	}
	return height + lifetime
}

// appendZonefileIndex assigns the next monotonic inventory position to
// an accepted zonefile hash. The table is append-only; positions never
// move once assigned, so replication inventories stay prefix-stable
// across peers at different tips.
func appendZonefileIndex(conn *sqlite.Conn, fqn, zonefileHash string, height uint64) error {
	return exec(conn, `
		INSERT INTO zonefile_index (zonefile_hash, fqn, height)
		VALUES (?, ?, ?)`,
		zonefileHash, fqn, int64(height))
}

func appendHistory(conn *sqlite.Conn, fqn string, height uint64, tx chainio.Transaction, opcode scripts.Opcode, owner, zonefileHash string) error {
	zonefile := any(nil)
	if zonefileHash != "" {
		zonefile = zonefileHash
	}
	return exec(conn, `
		INSERT OR REPLACE INTO history
		(fqn, height, vtxindex, opcode, txid, owner, zonefile_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fqn, int64(height), int64(tx.VtxIndex), opcode.String(), tx.TxID, owner, zonefile)
}

// exec runs a statement with positional arguments and no results.
func exec(conn *sqlite.Conn, query string, args ...any) error {
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("nameset: %w", err)
	}
	return nil
}

func readTip(conn *sqlite.Conn) (uint64, bool, error) {
	var height uint64
	var found bool
	err := sqlitex.Execute(conn, `SELECT height FROM chain_tip WHERE id = 0`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				height = uint64(stmt.ColumnInt64(0))
				found = true
				return nil
			},
		})
	if err != nil {
		return 0, false, fmt.Errorf("nameset: reading chain tip: %w", err)
	}
	return height, found, nil
}

func readConsensusHash(conn *sqlite.Conn, height uint64) (hashing.ConsensusHash, error) {
	var raw string
	err := sqlitex.Execute(conn, `
		SELECT consensus_hash FROM consensus_hashes WHERE height = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				raw = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return hashing.ConsensusHash{}, fmt.Errorf("nameset: reading consensus hash at %d: %w", height, err)
	}
	if raw == "" {
		return hashing.ConsensusHash{}, fmt.Errorf("consensus hash at height %d: %w", height, ErrNotFound)
	}
	return hashing.ParseConsensusHash(raw)
}

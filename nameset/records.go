// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// NameRecord is the full state of one registered name.
type NameRecord struct {
	FQN         string `json:"fqn" cbor:"fqn"`
	NamespaceID string `json:"namespace_id" cbor:"namespace_id"`
	Owner       string `json:"owner" cbor:"owner"`

	// ZonefileHash is empty when the name has no zonefile (never set,
	// discarded on transfer, or cleared by revocation).
	ZonefileHash string `json:"zonefile_hash,omitempty" cbor:"zonefile_hash,omitempty"`

	Revoked  bool `json:"revoked,omitempty" cbor:"revoked,omitempty"`
	Imported bool `json:"imported,omitempty" cbor:"imported,omitempty"`

	RegisteredBlock uint64 `json:"registered_block" cbor:"registered_block"`
	RenewedBlock    uint64 `json:"renewed_block" cbor:"renewed_block"`

	// ExpireBlock is 0 for names in namespaces whose names never
	// expire.
	ExpireBlock uint64 `json:"expire_block,omitempty" cbor:"expire_block,omitempty"`
}

// Expired reports whether the record is past its lifetime at height.
func (r *NameRecord) Expired(height uint64) bool {
	return r.ExpireBlock != 0 && height >= r.ExpireBlock
}

// NamespaceRecord is the full state of one namespace.
type NamespaceRecord struct {
	ID          string             `json:"namespace_id" cbor:"namespace_id"`
	Revealer    string             `json:"revealer" cbor:"revealer"`
	RevealBlock uint64             `json:"reveal_block" cbor:"reveal_block"`
	Ready       bool               `json:"ready" cbor:"ready"`
	ReadyBlock  uint64             `json:"ready_block,omitempty" cbor:"ready_block,omitempty"`
	Lifetime    uint64             `json:"lifetime" cbor:"lifetime"`
	Curve       scripts.PriceCurve `json:"price_curve" cbor:"price_curve"`
}

// HistoryEntry is one accepted operation in a name's history, with the
// name's owner and zonefile hash as they stood after the operation.
type HistoryEntry struct {
	Height   uint64 `json:"height" cbor:"height"`
	VtxIndex uint32 `json:"vtxindex" cbor:"vtxindex"`

	// Opcode is the operation's protocol name, e.g. "NAME_UPDATE".
	Opcode       string `json:"opcode" cbor:"opcode"`
	TxID         string `json:"txid" cbor:"txid"`
	Owner        string `json:"owner" cbor:"owner"`
	ZonefileHash string `json:"zonefile_hash,omitempty" cbor:"zonefile_hash,omitempty"`
}

// BlockResult summarizes one processed block.
type BlockResult struct {
	Height        uint64                `json:"height" cbor:"height"`
	Accepted      int                   `json:"accepted" cbor:"accepted"`
	Rejected      int                   `json:"rejected" cbor:"rejected"`
	ConsensusHash hashing.ConsensusHash `json:"-" cbor:"-"`
}

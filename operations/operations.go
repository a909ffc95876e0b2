// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package operations defines the name operations: their wire
// payloads and the acceptance rules each must pass against the
// current name database state.
//
// The package is deliberately stateless. Parsing turns a transaction
// payload into a typed operation; Check validates it against a
// read-only view of the name database. Applying accepted operations
// is the name database's job (package nameset), which keeps every
// state mutation in one place.
//
// Check may fill derived fields on the operation (update and transfer
// payloads identify their name by hash, and resolution happens during
// Check). After a successful Check the operation is fully resolved.
package operations

import (
	"fmt"

	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// Operation is a parsed name operation.
type Operation interface {
	// Opcode returns the operation's wire opcode.
	Opcode() scripts.Opcode

	// SerializePayload returns the operation's wire payload (the
	// bytes after magic and opcode).
	SerializePayload() ([]byte, error)

	// Check validates the operation against the current state. A nil
	// return means the operation is accepted and may be applied.
	Check(state StateReader, tx TxInfo) error
}

// TxInfo is the transaction envelope an operation arrived in,
// plus the chain parameters in force.
type TxInfo struct {
	Params config.ChainParams

	// Height is the block being processed.
	Height uint64

	// Sender is the funding address — the authenticated principal.
	Sender string

	// Recipient is the first non-sender output address. Registrant
	// for registrations, new owner for transfers and imports.
	Recipient string

	// Fee is the amount burned, checked against the price schedule.
	Fee uint64

	// Announcers is the set of addresses whose ANNOUNCE operations
	// are accepted. Empty means announcements are rejected.
	Announcers []string
}

// ownerAddress returns the address a registration or import assigns
// ownership to: the recipient when present, otherwise the sender.
func (tx TxInfo) ownerAddress() string {
	if tx.Recipient != "" {
		return tx.Recipient
	}
	return tx.Sender
}

// NameView is the slice of a name record that Check needs.
type NameView struct {
	FQN         string
	Owner       string
	Revoked     bool
	ExpireBlock uint64 // 0 = never expires
}

// Expired reports whether the name is past its lifetime at the given
// height, ignoring the renewal grace period.
func (v NameView) Expired(height uint64) bool {
	return v.ExpireBlock != 0 && height >= v.ExpireBlock
}

// InGracePeriod reports whether the name is expired but still within
// the window where only the owner can renew it.
func (v NameView) InGracePeriod(height uint64, params config.ChainParams) bool {
	return v.Expired(height) && height < v.ExpireBlock+params.GracePeriod
}

// NamespaceView is the slice of a namespace record that Check needs.
type NamespaceView struct {
	ID          string
	Revealer    string
	Ready       bool
	RevealBlock uint64
	Curve       scripts.PriceCurve
	Lifetime    uint64
}

// PreorderView is the slice of a preorder record that Check needs.
type PreorderView struct {
	Hash   [hashing.Hash160Size]byte
	Sender string
	Height uint64
	Fee    uint64
}

// StateReader is the read-only view of the name database that
// acceptance rules run against. The name database provides one scoped
// to the block being processed, so earlier operations in a block are
// visible to later ones.
type StateReader interface {
	// GetName returns the record for a fully-qualified name, or nil
	// if the name has never been registered (or was dropped).
	GetName(fqn string) (*NameView, error)

	// GetNamespace returns the namespace record, or nil.
	GetNamespace(id string) (*NamespaceView, error)

	// GetPreorder returns the live (unconsumed) name preorder for a
	// blind, or nil.
	GetPreorder(hash [hashing.Hash160Size]byte) (*PreorderView, error)

	// GetNamespacePreorder returns the live namespace preorder for a
	// blind, or nil.
	GetNamespacePreorder(hash [hashing.Hash160Size]byte) (*PreorderView, error)

	// ConsensusHashValid reports whether ch was the consensus hash of
	// a recent block (within the consensus window).
	ConsensusHashValid(ch hashing.ConsensusHash) (bool, error)

	// NamesOwnedBy returns the fully-qualified names currently owned
	// by an address. Used to resolve hashed name references in
	// updates and transfers.
	NamesOwnedBy(address string) ([]string, error)

	// ValidConsensusHashes returns the consensus hashes inside the
	// current consensus window, most recent first.
	ValidConsensusHashes() ([]hashing.ConsensusHash, error)
}

// ParseTransaction extracts a name operation from a chain
// transaction. Returns ok=false when the transaction is not a name
// operation at all (no magic bytes, or an opcode this node does not
// know). A malformed payload behind valid framing is an error.
func ParseTransaction(tx chainio.Transaction) (Operation, bool, error) {
	opcode, payload, framed := scripts.Unframe(tx.Payload)
	if !framed || !opcode.Known() {
		return nil, false, nil
	}

	op, err := ParsePayload(opcode, payload)
	if err != nil {
		return nil, false, fmt.Errorf("operations: tx %s: %w", tx.TxID, err)
	}
	return op, true, nil
}

// ParsePayload parses the payload for a known opcode.
func ParsePayload(opcode scripts.Opcode, payload []byte) (Operation, error) {
	switch opcode {
	case scripts.OpNamePreorder:
		return parseNamePreorder(payload)
	case scripts.OpNameRegistration:
		return parseNameRegistration(payload)
	case scripts.OpNameUpdate:
		return parseNameUpdate(payload)
	case scripts.OpNameTransfer:
		return parseNameTransfer(payload)
	case scripts.OpNameRevoke:
		return parseNameRevoke(payload)
	case scripts.OpNameImport:
		return parseNameImport(payload)
	case scripts.OpNamespacePreorder:
		return parseNamespacePreorder(payload)
	case scripts.OpNamespaceReveal:
		return parseNamespaceReveal(payload)
	case scripts.OpNamespaceReady:
		return parseNamespaceReady(payload)
	case scripts.OpAnnounce:
		return parseAnnounce(payload)
	default:
		return nil, fmt.Errorf("operations: unhandled opcode %v", opcode)
	}
}

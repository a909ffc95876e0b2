// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package chainio feeds blocks from the underlying blockchain into
// the name database. The node does not validate chain consensus — it
// trusts its configured source to deliver final blocks in height
// order, and extracts name operations from their transactions.
//
// Two sources exist: HTTPSource polls a chain daemon's HTTP API, and
// ReplaySource reads a CBOR journal file (regtest and tests).
package chainio

import "context"

// Compile-time interface checks.
var (
	_ Source = (*HTTPSource)(nil)
	_ Source = (*ReplaySource)(nil)
)

// Transaction is the slice of a chain transaction the name protocol
// cares about.
type Transaction struct {
	// TxID is the chain transaction ID, hex.
	TxID string `cbor:"txid" json:"txid"`

	// VtxIndex is the transaction's position within its block. With
	// the height it forms the canonical ordering of operations.
	VtxIndex uint32 `cbor:"vtxindex" json:"vtxindex"`

	// SenderAddress is the address that funded the transaction; it
	// is the operation's authenticated principal.
	SenderAddress string `cbor:"sender" json:"sender"`

	// RecipientAddress is the first non-sender output address, used
	// by registrations (registrant) and transfers (new owner).
	RecipientAddress string `cbor:"recipient,omitempty" json:"recipient,omitempty"`

	// Payload is the transaction's raw data output. Name operations
	// carry the "id" magic prefix; anything else is skipped.
	Payload []byte `cbor:"payload" json:"payload"`

	// Fee is the amount burned to the fee address, in the chain's
	// smallest unit. Checked against the price schedule for
	// preorders.
	Fee uint64 `cbor:"fee" json:"fee"`
}

// Block is one chain block's worth of transactions.
type Block struct {
	Height       uint64        `cbor:"height" json:"height"`
	Hash         string        `cbor:"hash" json:"hash"`
	Timestamp    int64         `cbor:"timestamp" json:"timestamp"`
	Transactions []Transaction `cbor:"transactions" json:"transactions"`
}

// Source delivers blocks in height order.
type Source interface {
	// CurrentHeight returns the source's best block height.
	CurrentHeight(ctx context.Context) (uint64, error)

	// WaitForBlock returns the block at the given height, blocking
	// until the chain reaches it or ctx is cancelled.
	WaitForBlock(ctx context.Context, height uint64) (Block, error)
}

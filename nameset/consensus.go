// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"crypto/sha256"
	"fmt"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
)

// AcceptedOp is the per-operation record that feeds a block's
// operations digest. Encoded with deterministic CBOR so every node
// hashes identical bytes. The full per-block list is persisted so
// light clients can audit any block's digest.
type AcceptedOp struct {
	TxID     string `cbor:"txid" json:"txid"`
	VtxIndex uint32 `cbor:"vtxindex" json:"vtxindex"`
	Opcode   string `cbor:"opcode" json:"opcode"`
	Payload  []byte `cbor:"payload" json:"payload"`
}

// OperationsDigest hashes a block's accepted operations in canonical
// order. An empty block digests the empty input.
func OperationsDigest(accepted []AcceptedOp) ([sha256.Size]byte, error) {
	hasher := sha256.New()
	for _, op := range accepted {
		encoded, err := codec.Marshal(op)
		if err != nil {
			return [sha256.Size]byte{}, fmt.Errorf("nameset: encoding operation %s: %w", op.TxID, err)
		}
		hasher.Write(encoded)
	}

	var digest [sha256.Size]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

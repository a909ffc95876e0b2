// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Protocol messages exchanged between atlas peers. All messages are
// CBOR-encoded (lib/codec) and travel over the node's HTTP API.

// PingResponse describes a peer's view of the chain.
type PingResponse struct {
	Network       string `cbor:"network"`
	TipHeight     uint64 `cbor:"tip_height"`
	ConsensusHash string `cbor:"consensus_hash"`
	PublicAddress string `cbor:"public_address,omitempty"`
}

// InventoryResponse carries a run of inventory pages starting at page
// Start. Each page has one bit per zonefile index position in its
// range, set when the peer has the body on disk. PageCount lets the
// crawler know when to stop paging.
type InventoryResponse struct {
	Start     int      `cbor:"start"`
	Pages     [][]byte `cbor:"pages"`
	PageCount int      `cbor:"page_count"`
}

// ZonefileRequest asks for zonefile bodies by hash.
type ZonefileRequest struct {
	Hashes []string `cbor:"hashes"`
}

// ZonefileResponse carries lz4-compressed zonefile bodies keyed by
// hash. Hashes the peer does not have are simply absent.
type ZonefileResponse struct {
	Zonefiles map[string][]byte `cbor:"zonefiles"`
}

// PeersResponse is a peer's neighbor list, host:port per entry.
type PeersResponse struct {
	Peers []string `cbor:"peers"`
}

// compressZonefile compresses a zonefile body for transfer with lz4
// block compression. Zonefiles are small (40KB cap), so block mode
// beats framing overhead.
func compressZonefile(body []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(body)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(body, compressed)
	if err != nil {
		return nil, fmt.Errorf("atlas: compressing zonefile: %w", err)
	}
	return compressed[:n], nil
}

// decompressZonefile reverses compressZonefile. maxSize bounds the
// decompressed output.
func decompressZonefile(compressed []byte, maxSize int) ([]byte, error) {
	body := make([]byte, maxSize)
	n, err := lz4.UncompressBlock(compressed, body)
	if err != nil {
		return nil, fmt.Errorf("atlas: decompressing zonefile: %w", err)
	}
	return body[:n], nil
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package hashing provides the hash primitives shared by the name
// database, the zonefile store, and light-client verification.
//
// Two digests matter protocol-wide:
//
//   - Hash160 (RIPEMD160 over SHA256): addresses, zonefile hashes, and
//     preorder blinds. 20 bytes.
//   - ConsensusHash: the first 16 bytes of a Hash160. One per block,
//     chained through geometric back-pointers (see package nameset).
//
// Changing either primitive is a consensus break.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

// Hash160Size is the byte length of a Hash160 digest.
const Hash160Size = 20

// ConsensusHashSize is the byte length of a consensus hash.
const ConsensusHashSize = 16

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) [Hash160Size]byte {
	inner := sha256.Sum256(data)
	outer := ripemd160.New()
	outer.Write(inner[:])

	var digest [Hash160Size]byte
	copy(digest[:], outer.Sum(nil))
	return digest
}

// DoubleSHA256 computes SHA256(SHA256(data)).
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// ConsensusHash is the 128-bit per-block digest that commits to the
// block's accepted operations and, transitively, to all prior state.
// The zero value marks the block before the first indexed block.
type ConsensusHash [ConsensusHashSize]byte

// NewConsensusHash derives a consensus hash from hash material: the
// first 16 bytes of Hash160(data).
func NewConsensusHash(data []byte) ConsensusHash {
	full := Hash160(data)
	var ch ConsensusHash
	copy(ch[:], full[:ConsensusHashSize])
	return ch
}

// IsZero reports whether ch is the all-zeros genesis sentinel.
func (ch ConsensusHash) IsZero() bool {
	return ch == ConsensusHash{}
}

// String returns the lowercase hex form used in RPC responses and logs.
func (ch ConsensusHash) String() string {
	return hex.EncodeToString(ch[:])
}

// ChainConsensusHash computes the consensus hash of a block from its
// operations digest and the prior consensus hashes at geometrically
// increasing distances: heights h-1, h-2, h-4, h-8, and so on. The
// geometric spacing lets a light client verify any historical hash
// against a trusted recent one in O(log n) steps. When a back-pointer
// would land below the first indexed block, the all-zeros sentinel
// terminates the sequence.
func ChainConsensusHash(
	opsDigest [32]byte,
	height, firstBlock uint64,
	prior func(height uint64) (ConsensusHash, error),
) (ConsensusHash, error) {
	if height < firstBlock {
		return ConsensusHash{}, fmt.Errorf("hashing: height %d precedes first indexed block %d", height, firstBlock)
	}

	material := make([]byte, 0, 32+8*ConsensusHashSize)
	material = append(material, opsDigest[:]...)

	for distance := uint64(1); ; distance <<= 1 {
		if distance > height-firstBlock {
			var genesis ConsensusHash
			material = append(material, genesis[:]...)
			break
		}
		ch, err := prior(height - distance)
		if err != nil {
			return ConsensusHash{}, fmt.Errorf("hashing: consensus hash at height %d: %w", height-distance, err)
		}
		material = append(material, ch[:]...)
	}

	return NewConsensusHash(material), nil
}

// BackPointerHeights returns the heights whose consensus hashes feed
// a block's chain material, nearest first: h-1, h-2, h-4, ... down to
// the first indexed block.
func BackPointerHeights(height, firstBlock uint64) []uint64 {
	if height < firstBlock {
		return nil
	}
	var heights []uint64
	for distance := uint64(1); distance <= height-firstBlock; distance <<= 1 {
		heights = append(heights, height-distance)
	}
	return heights
}

// ParseConsensusHash parses the 32-character hex form of a consensus
// hash.
func ParseConsensusHash(s string) (ConsensusHash, error) {
	var ch ConsensusHash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return ch, fmt.Errorf("hashing: parsing consensus hash: %w", err)
	}
	if len(decoded) != ConsensusHashSize {
		return ch, fmt.Errorf("hashing: consensus hash is %d bytes, want %d", len(decoded), ConsensusHashSize)
	}
	copy(ch[:], decoded)
	return ch, nil
}

// ZonefileHash identifies zonefile content: Hash160 over the raw bytes.
type ZonefileHash [Hash160Size]byte

// HashZonefile computes the canonical identifier for zonefile content.
func HashZonefile(data []byte) ZonefileHash {
	return ZonefileHash(Hash160(data))
}

// String returns the lowercase hex form.
func (zh ZonefileHash) String() string {
	return hex.EncodeToString(zh[:])
}

// IsZero reports whether zh is unset. A name with no zonefile (never
// updated, or transferred without data) carries the zero hash.
func (zh ZonefileHash) IsZero() bool {
	return zh == ZonefileHash{}
}

// ParseZonefileHash parses the 40-character hex form of a zonefile
// hash.
func ParseZonefileHash(s string) (ZonefileHash, error) {
	var zh ZonefileHash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return zh, fmt.Errorf("hashing: parsing zonefile hash: %w", err)
	}
	if len(decoded) != Hash160Size {
		return zh, fmt.Errorf("hashing: zonefile hash is %d bytes, want %d", len(decoded), Hash160Size)
	}
	copy(zh[:], decoded)
	return zh, nil
}

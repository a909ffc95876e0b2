// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package snv implements simplified name verification: auditing
// historical name state against a single trusted consensus hash,
// without replaying the chain.
//
// Every consensus hash commits to the block's operations digest and
// to prior consensus hashes at geometrically increasing distances
// (h-1, h-2, h-4, ...). A verifier holding one trusted (height, hash)
// pair can therefore walk backwards to any earlier height in
// O(log n) hops, recomputing each hash from untrusted material along
// the way. Material that fails to reproduce the expected hash is
// rejected, so a lying server cannot forge history; it can only
// refuse to answer.
package snv

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/nameset"
)

// SerialNumber identifies one accepted operation by chain position:
// "height-vtxindex".
type SerialNumber struct {
	Height   uint64
	VtxIndex uint32
}

// String returns the canonical "height-vtxindex" form.
func (s SerialNumber) String() string {
	return fmt.Sprintf("%d-%d", s.Height, s.VtxIndex)
}

// ParseSerialNumber parses the "height-vtxindex" form.
func ParseSerialNumber(raw string) (SerialNumber, error) {
	heightPart, vtxPart, found := strings.Cut(raw, "-")
	if !found {
		return SerialNumber{}, fmt.Errorf("snv: serial number %q must be height-vtxindex", raw)
	}
	height, err := strconv.ParseUint(heightPart, 10, 64)
	if err != nil {
		return SerialNumber{}, fmt.Errorf("snv: serial number %q: %w", raw, err)
	}
	vtx, err := strconv.ParseUint(vtxPart, 10, 32)
	if err != nil {
		return SerialNumber{}, fmt.Errorf("snv: serial number %q: %w", raw, err)
	}
	return SerialNumber{Height: height, VtxIndex: uint32(vtx)}, nil
}

// ChainReader supplies the (untrusted) material the verifier audits.
// The name database implements it directly; a remote node's HTTP API
// implements it over the wire.
type ChainReader interface {
	// BlockMaterial returns a block's operations digest and the prior
	// consensus hashes at its geometric back-pointer heights, nearest
	// first.
	BlockMaterial(ctx context.Context, height uint64) ([32]byte, []hashing.ConsensusHash, error)

	// AcceptedOps returns a block's accepted operations in canonical
	// order.
	AcceptedOps(ctx context.Context, height uint64) ([]nameset.AcceptedOp, error)
}

// Verifier audits chain material from an untrusted reader.
type Verifier struct {
	reader ChainReader
	params config.ChainParams
}

// NewVerifier returns a verifier reading material from reader under
// the given chain parameters.
func NewVerifier(reader ChainReader, params config.ChainParams) *Verifier {
	return &Verifier{reader: reader, params: params}
}

// checkBlock recomputes a block's consensus hash from reader material
// and compares it to the expected value. On success it returns the
// block's verified operations digest and its back-pointer hashes for
// further descent.
func (v *Verifier) checkBlock(ctx context.Context, height uint64, expected hashing.ConsensusHash) ([32]byte, []hashing.ConsensusHash, error) {
	digest, priors, err := v.reader.BlockMaterial(ctx, height)
	if err != nil {
		return [32]byte{}, nil, err
	}

	backHeights := hashing.BackPointerHeights(height, v.params.FirstBlock)
	if len(priors) != len(backHeights) {
		return [32]byte{}, nil, fmt.Errorf("snv: block %d material has %d back-pointers, want %d",
			height, len(priors), len(backHeights))
	}

	recomputed, err := hashing.ChainConsensusHash(digest, height, v.params.FirstBlock,
		func(back uint64) (hashing.ConsensusHash, error) {
			for i, h := range backHeights {
				if h == back {
					return priors[i], nil
				}
			}
			return hashing.ConsensusHash{}, fmt.Errorf("snv: no material for height %d", back)
		})
	if err != nil {
		return [32]byte{}, nil, err
	}
	if recomputed != expected {
		return [32]byte{}, nil, fmt.Errorf("snv: block %d material hashes to %s, want %s (server is lying or trust anchor is wrong)",
			height, recomputed, expected)
	}
	return digest, priors, nil
}

// descend walks the back-pointer chain from a trusted anchor down to
// targetHeight, verifying every hop. It returns the target's consensus
// hash and its operations digest; both inherit the anchor's trust.
// The digest comes from the same fetch the hash was verified against,
// so a server cannot substitute material after verification.
func (v *Verifier) descend(ctx context.Context, trustedHeight uint64, trusted hashing.ConsensusHash, targetHeight uint64) (hashing.ConsensusHash, [32]byte, error) {
	if targetHeight > trustedHeight {
		return hashing.ConsensusHash{}, [32]byte{}, fmt.Errorf("snv: target height %d is after trust anchor %d", targetHeight, trustedHeight)
	}
	if targetHeight < v.params.FirstBlock {
		return hashing.ConsensusHash{}, [32]byte{}, fmt.Errorf("snv: target height %d precedes first indexed block %d", targetHeight, v.params.FirstBlock)
	}

	height, ch := trustedHeight, trusted
	for height > targetHeight {
		_, priors, err := v.checkBlock(ctx, height, ch)
		if err != nil {
			return hashing.ConsensusHash{}, [32]byte{}, err
		}

		// Greedy largest hop that does not overshoot. The remaining
		// gap always decomposes into powers of two, so descent lands
		// exactly on the target.
		backHeights := hashing.BackPointerHeights(height, v.params.FirstBlock)
		hop := -1
		for i, back := range backHeights {
			if back >= targetHeight {
				hop = i
			}
		}
		if hop < 0 {
			return hashing.ConsensusHash{}, [32]byte{}, fmt.Errorf("snv: no back-pointer from %d toward %d", height, targetHeight)
		}
		height, ch = backHeights[hop], priors[hop]
	}

	// Verify the target block's own material too, so the caller can
	// trust its operations digest.
	digest, _, err := v.checkBlock(ctx, height, ch)
	if err != nil {
		return hashing.ConsensusHash{}, [32]byte{}, err
	}
	return ch, digest, nil
}

// VerifyConsensus proves the consensus hash at targetHeight given a
// trusted (height, hash) anchor at or after it. The returned hash is
// authentic as long as the anchor is.
func (v *Verifier) VerifyConsensus(ctx context.Context, trustedHeight uint64, trusted hashing.ConsensusHash, targetHeight uint64) (hashing.ConsensusHash, error) {
	ch, _, err := v.descend(ctx, trustedHeight, trusted, targetHeight)
	return ch, err
}

// VerifyOperation proves that the operation at a serial number was
// accepted, returning it. The operation list is checked against the
// digest verified during descent, never against a fresh fetch.
func (v *Verifier) VerifyOperation(ctx context.Context, trustedHeight uint64, trusted hashing.ConsensusHash, serial SerialNumber) (*nameset.AcceptedOp, error) {
	_, digest, err := v.descend(ctx, trustedHeight, trusted, serial.Height)
	if err != nil {
		return nil, err
	}

	ops, err := v.reader.AcceptedOps(ctx, serial.Height)
	if err != nil {
		return nil, err
	}
	recomputed, err := nameset.OperationsDigest(ops)
	if err != nil {
		return nil, err
	}
	if recomputed != digest {
		return nil, fmt.Errorf("snv: block %d operations do not match their digest", serial.Height)
	}

	for i := range ops {
		if ops[i].VtxIndex == serial.VtxIndex {
			return &ops[i], nil
		}
	}
	return nil, fmt.Errorf("snv: no accepted operation at serial %s", serial)
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "fmt"

// Network selects a chain parameter set.
type Network string

const (
	// Mainnet is the production naming network.
	Mainnet Network = "mainnet"
	// Testnet is the public test network.
	Testnet Network = "testnet"
	// Regtest is a local development network fed from a replay
	// journal; blocks start low so tests reach interesting heights
	// quickly.
	Regtest Network = "regtest"
)

// ChainParams are the consensus constants for one network. Everything
// here is protocol-fixed: two nodes with different ChainParams will
// diverge on the first block.
type ChainParams struct {
	// Network is the parameter set's name.
	Network Network

	// FirstBlock is the height at which name operations begin. Blocks
	// below it are never requested from the chain source.
	FirstBlock uint64

	// ConsensusWindow is how many recent blocks' consensus hashes are
	// accepted in operations that carry one (preorders, updates,
	// transfers). An operation citing an older hash is rejected.
	ConsensusWindow uint64

	// PreorderTTL is how many blocks a name or namespace preorder
	// stays claimable before it expires.
	PreorderTTL uint64

	// RevealWindow is how many blocks after a namespace preorder the
	// matching reveal may arrive.
	RevealWindow uint64

	// RevealExpiry is how many blocks a revealed namespace may spend
	// importing names before it must be readied. A namespace that
	// misses the deadline is abandoned and its names are dropped.
	RevealExpiry uint64

	// GracePeriod is how many blocks past expiry a name can still be
	// renewed by its owner before it becomes registerable by anyone.
	GracePeriod uint64

	// DefaultNameLifetime applies to namespaces revealed with a zero
	// lifetime field (names never expire is expressed as lifetime
	// NamespaceLifetimeInfinite).
	DefaultNameLifetime uint64
}

// NamespaceLifetimeInfinite in a namespace's lifetime field means its
// names never expire.
const NamespaceLifetimeInfinite = ^uint64(0)

// Params returns the chain parameters for a network.
func Params(network Network) (ChainParams, error) {
	switch network {
	case Mainnet:
		return ChainParams{
			Network:             Mainnet,
			FirstBlock:          373601,
			ConsensusWindow:     144,
			PreorderTTL:         144,
			RevealWindow:        144,
			RevealExpiry:        52595,
			GracePeriod:         5000,
			DefaultNameLifetime: 52595,
		}, nil
	case Testnet:
		return ChainParams{
			Network:             Testnet,
			FirstBlock:          50000,
			ConsensusWindow:     144,
			PreorderTTL:         144,
			RevealWindow:        144,
			RevealExpiry:        52595,
			GracePeriod:         5000,
			DefaultNameLifetime: 52595,
		}, nil
	case Regtest:
		return ChainParams{
			Network:             Regtest,
			FirstBlock:          100,
			ConsensusWindow:     16,
			PreorderTTL:         16,
			RevealWindow:        16,
			RevealExpiry:        256,
			GracePeriod:         32,
			DefaultNameLifetime: 128,
		}, nil
	default:
		return ChainParams{}, fmt.Errorf("config: unknown network %q", network)
	}
}

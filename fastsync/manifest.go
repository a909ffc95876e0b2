// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package fastsync builds and consumes signed snapshots of a node's
// state, so a new node can bootstrap in minutes instead of replaying
// the chain.
//
// A snapshot is a zstd-compressed tar of the node's data directory
// plus a CBOR manifest carrying the archive's BLAKE3 digest, the chain
// tip it captures, and ed25519 signatures. Importers verify a
// configured threshold of trusted signatures and the digest before
// unpacking anything.
package fastsync

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/config"
)

// FormatVersion is bumped when the archive or manifest layout changes.
// Importers reject manifests with a different version.
const FormatVersion = 1

// Signature is one ed25519 signature over a manifest's signing
// payload.
type Signature struct {
	// PublicKey is the hex ed25519 public key of the signer.
	PublicKey string `cbor:"public_key" json:"public_key"`

	// Value is the hex signature bytes.
	Value string `cbor:"value" json:"value"`
}

// Manifest describes one snapshot archive.
type Manifest struct {
	FormatVersion int    `cbor:"format_version" json:"format_version"`
	Network       string `cbor:"network" json:"network"`

	// TipHeight and ConsensusHash identify the chain state the
	// snapshot captures.
	TipHeight     uint64 `cbor:"tip_height" json:"tip_height"`
	ConsensusHash string `cbor:"consensus_hash" json:"consensus_hash"`

	// Digest is the hex BLAKE3 digest of the archive file.
	Digest      string `cbor:"digest" json:"digest"`
	ArchiveSize int64  `cbor:"archive_size" json:"archive_size"`

	// CreatedAt is the export time in Unix seconds.
	CreatedAt int64 `cbor:"created_at" json:"created_at"`

	Signatures []Signature `cbor:"signatures" json:"signatures"`
}

// signingPayload is the byte string signatures cover. It binds the
// digest to the chain identity so a signature cannot be replayed onto
// a different network's archive.
func (m *Manifest) signingPayload() []byte {
	return []byte(fmt.Sprintf("bns-snapshot|%d|%s|%d|%s|%s",
		m.FormatVersion, m.Network, m.TipHeight, m.ConsensusHash, m.Digest))
}

// Sign appends a signature by the given key. Signing twice with the
// same key replaces the earlier signature.
func (m *Manifest) Sign(key ed25519.PrivateKey) {
	publicKey := hex.EncodeToString(key.Public().(ed25519.PublicKey))
	signature := Signature{
		PublicKey: publicKey,
		Value:     hex.EncodeToString(ed25519.Sign(key, m.signingPayload())),
	}
	for i := range m.Signatures {
		if m.Signatures[i].PublicKey == publicKey {
			m.Signatures[i] = signature
			return
		}
	}
	m.Signatures = append(m.Signatures, signature)
}

// Verify checks the manifest against snapshot trust configuration:
// the format version must match and at least the configured threshold
// of distinct trusted keys must have valid signatures.
func (m *Manifest) Verify(trust config.FastSyncConfig) error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("fastsync: manifest format %d, want %d", m.FormatVersion, FormatVersion)
	}
	if len(trust.TrustedKeys) == 0 {
		return errors.New("fastsync: no trusted snapshot keys configured")
	}
	threshold := trust.SignatureThreshold
	if threshold <= 0 {
		threshold = 1
	}

	trusted := make(map[string]bool, len(trust.TrustedKeys))
	for _, key := range trust.TrustedKeys {
		trusted[key] = true
	}

	payload := m.signingPayload()
	valid := map[string]bool{}
	for _, sig := range m.Signatures {
		if !trusted[sig.PublicKey] || valid[sig.PublicKey] {
			continue
		}
		publicKey, err := hex.DecodeString(sig.PublicKey)
		if err != nil || len(publicKey) != ed25519.PublicKeySize {
			continue
		}
		raw, err := hex.DecodeString(sig.Value)
		if err != nil {
			continue
		}
		if ed25519.Verify(ed25519.PublicKey(publicKey), payload, raw) {
			valid[sig.PublicKey] = true
		}
	}

	if len(valid) < threshold {
		return fmt.Errorf("fastsync: %d valid trusted signatures, need %d", len(valid), threshold)
	}
	return nil
}

// WriteManifest writes the manifest as CBOR next to the archive.
func WriteManifest(path string, m *Manifest) error {
	encoded, err := codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("fastsync: encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("fastsync: writing manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a CBOR manifest file.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fastsync: reading manifest: %w", err)
	}
	var m Manifest
	if err := codec.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("fastsync: decoding manifest: %w", err)
	}
	return &m, nil
}

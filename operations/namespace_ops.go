// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package operations

import (
	"encoding/binary"
	"fmt"

	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// NamespacePreorder blinds an upcoming namespace reveal. Payload:
// 20-byte preorder hash, 16-byte consensus hash.
type NamespacePreorder struct {
	PreorderHash  [hashing.Hash160Size]byte
	ConsensusHash hashing.ConsensusHash
}

func parseNamespacePreorder(payload []byte) (*NamespacePreorder, error) {
	if len(payload) != hashing.Hash160Size+hashing.ConsensusHashSize {
		return nil, fmt.Errorf("NAMESPACE_PREORDER payload is %d bytes, want %d",
			len(payload), hashing.Hash160Size+hashing.ConsensusHashSize)
	}
	op := &NamespacePreorder{}
	copy(op.PreorderHash[:], payload[:hashing.Hash160Size])
	copy(op.ConsensusHash[:], payload[hashing.Hash160Size:])
	return op, nil
}

// Opcode implements Operation.
func (op *NamespacePreorder) Opcode() scripts.Opcode { return scripts.OpNamespacePreorder }

// SerializePayload implements Operation.
func (op *NamespacePreorder) SerializePayload() ([]byte, error) {
	payload := make([]byte, 0, hashing.Hash160Size+hashing.ConsensusHashSize)
	payload = append(payload, op.PreorderHash[:]...)
	payload = append(payload, op.ConsensusHash[:]...)
	return payload, nil
}

// Check implements Operation. The namespace fee cannot be verified
// here — the ID is still blinded — so the fee check waits for the
// reveal.
func (op *NamespacePreorder) Check(state StateReader, tx TxInfo) error {
	valid, err := state.ConsensusHashValid(op.ConsensusHash)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("namespace preorder cites stale consensus hash %s", op.ConsensusHash)
	}

	existing, err := state.GetNamespacePreorder(op.PreorderHash)
	if err != nil {
		return err
	}
	if existing != nil && tx.Height < existing.Height+tx.Params.PreorderTTL {
		return fmt.Errorf("namespace preorder blind already live (height %d)", existing.Height)
	}
	return nil
}

// NamespaceReveal opens a namespace and fixes its price curve and
// name lifetime forever. Payload: 1-byte base, 1-byte coeff, 16 bucket
// bytes, 1-byte nonalpha discount, 1-byte no-vowel discount, 8-byte
// big-endian lifetime, then the namespace ID.
type NamespaceReveal struct {
	NamespaceID string
	Curve       scripts.PriceCurve

	// Lifetime is the namespace's name lifetime in blocks.
	// config.NamespaceLifetimeInfinite means names never expire.
	Lifetime uint64
}

const namespaceRevealFixedLength = 1 + 1 + 16 + 1 + 1 + 8

func parseNamespaceReveal(payload []byte) (*NamespaceReveal, error) {
	if len(payload) <= namespaceRevealFixedLength {
		return nil, fmt.Errorf("NAMESPACE_REVEAL payload is %d bytes, too short", len(payload))
	}

	op := &NamespaceReveal{}
	op.Curve.Base = payload[0]
	op.Curve.Coeff = payload[1]
	copy(op.Curve.Buckets[:], payload[2:18])
	op.Curve.NonalphaDiscount = payload[18]
	op.Curve.NoVowelDiscount = payload[19]
	op.Lifetime = binary.BigEndian.Uint64(payload[20:28])
	op.NamespaceID = string(payload[namespaceRevealFixedLength:])

	if err := scripts.ValidateNamespaceID(op.NamespaceID); err != nil {
		return nil, fmt.Errorf("NAMESPACE_REVEAL: %w", err)
	}
	if err := op.Curve.Validate(); err != nil {
		return nil, fmt.Errorf("NAMESPACE_REVEAL: %w", err)
	}
	return op, nil
}

// Opcode implements Operation.
func (op *NamespaceReveal) Opcode() scripts.Opcode { return scripts.OpNamespaceReveal }

// SerializePayload implements Operation.
func (op *NamespaceReveal) SerializePayload() ([]byte, error) {
	payload := make([]byte, namespaceRevealFixedLength, namespaceRevealFixedLength+len(op.NamespaceID))
	payload[0] = op.Curve.Base
	payload[1] = op.Curve.Coeff
	copy(payload[2:18], op.Curve.Buckets[:])
	payload[18] = op.Curve.NonalphaDiscount
	payload[19] = op.Curve.NoVowelDiscount
	binary.BigEndian.PutUint64(payload[20:28], op.Lifetime)
	payload = append(payload, op.NamespaceID...)
	return payload, nil
}

// Check implements Operation. The reveal unblinds the preorder, so
// this is where the namespace fee is finally checked against the ID
// length.
func (op *NamespaceReveal) Check(state StateReader, tx TxInfo) error {
	existing, err := state.GetNamespace(op.NamespaceID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Ready {
			return fmt.Errorf("namespace %q already exists", op.NamespaceID)
		}
		if tx.Height < existing.RevealBlock+tx.Params.RevealExpiry {
			return fmt.Errorf("namespace %q reveal is still live", op.NamespaceID)
		}
		// Abandoned reveal: the namespace may be re-revealed.
	}

	blind := scripts.NamespacePreorderHash(op.NamespaceID, tx.Sender)
	preorder, err := state.GetNamespacePreorder(blind)
	if err != nil {
		return err
	}
	if preorder == nil {
		return fmt.Errorf("no namespace preorder for %q from %s", op.NamespaceID, tx.Sender)
	}
	if tx.Height >= preorder.Height+tx.Params.RevealWindow {
		return fmt.Errorf("namespace preorder for %q expired", op.NamespaceID)
	}

	price := scripts.NamespacePrice(op.NamespaceID)
	if preorder.Fee < price {
		return fmt.Errorf("namespace preorder fee %d below price %d for %q", preorder.Fee, price, op.NamespaceID)
	}
	return nil
}

// EffectiveLifetime returns the name lifetime this reveal grants,
// substituting the network default for a zero payload value.
func (op *NamespaceReveal) EffectiveLifetime(params config.ChainParams) uint64 {
	if op.Lifetime == 0 {
		return params.DefaultNameLifetime
	}
	return op.Lifetime
}

// NamespaceReady launches a namespace: imports close, registrations
// open. Payload: the namespace ID.
type NamespaceReady struct {
	NamespaceID string
}

func parseNamespaceReady(payload []byte) (*NamespaceReady, error) {
	id := string(payload)
	if err := scripts.ValidateNamespaceID(id); err != nil {
		return nil, fmt.Errorf("NAMESPACE_READY: %w", err)
	}
	return &NamespaceReady{NamespaceID: id}, nil
}

// Opcode implements Operation.
func (op *NamespaceReady) Opcode() scripts.Opcode { return scripts.OpNamespaceReady }

// SerializePayload implements Operation.
func (op *NamespaceReady) SerializePayload() ([]byte, error) {
	return []byte(op.NamespaceID), nil
}

// Check implements Operation.
func (op *NamespaceReady) Check(state StateReader, tx TxInfo) error {
	namespace, err := state.GetNamespace(op.NamespaceID)
	if err != nil {
		return err
	}
	if namespace == nil {
		return fmt.Errorf("namespace %q is not revealed", op.NamespaceID)
	}
	if namespace.Ready {
		return fmt.Errorf("namespace %q is already ready", op.NamespaceID)
	}
	if namespace.Revealer != tx.Sender {
		return fmt.Errorf("sender %s is not the revealer of %q", tx.Sender, op.NamespaceID)
	}
	if tx.Height >= namespace.RevealBlock+tx.Params.RevealExpiry {
		return fmt.Errorf("namespace %q reveal window expired", op.NamespaceID)
	}
	return nil
}

// Announce publishes a message hash from a network operator. The
// message body travels through the zonefile replication network under
// that hash. Payload: 20-byte message hash.
type Announce struct {
	MessageHash [hashing.Hash160Size]byte
}

func parseAnnounce(payload []byte) (*Announce, error) {
	if len(payload) != hashing.Hash160Size {
		return nil, fmt.Errorf("ANNOUNCE payload is %d bytes, want %d", len(payload), hashing.Hash160Size)
	}
	op := &Announce{}
	copy(op.MessageHash[:], payload)
	return op, nil
}

// Opcode implements Operation.
func (op *Announce) Opcode() scripts.Opcode { return scripts.OpAnnounce }

// SerializePayload implements Operation.
func (op *Announce) SerializePayload() ([]byte, error) {
	return op.MessageHash[:], nil
}

// Check implements Operation. Only whitelisted announcers are heard;
// with an empty whitelist every announcement is rejected.
func (op *Announce) Check(state StateReader, tx TxInfo) error {
	for _, announcer := range tx.Announcers {
		if announcer == tx.Sender {
			return nil
		}
	}
	return fmt.Errorf("sender %s is not a whitelisted announcer", tx.Sender)
}

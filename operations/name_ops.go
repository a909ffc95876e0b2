// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package operations

import (
	"bytes"
	"fmt"

	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// NamePreorder blinds an upcoming registration. Payload: 20-byte
// preorder hash, 16-byte consensus hash.
type NamePreorder struct {
	PreorderHash  [hashing.Hash160Size]byte
	ConsensusHash hashing.ConsensusHash
}

func parseNamePreorder(payload []byte) (*NamePreorder, error) {
	if len(payload) != hashing.Hash160Size+hashing.ConsensusHashSize {
		return nil, fmt.Errorf("NAME_PREORDER payload is %d bytes, want %d",
			len(payload), hashing.Hash160Size+hashing.ConsensusHashSize)
	}
	op := &NamePreorder{}
	copy(op.PreorderHash[:], payload[:hashing.Hash160Size])
	copy(op.ConsensusHash[:], payload[hashing.Hash160Size:])
	return op, nil
}

// Opcode implements Operation.
func (op *NamePreorder) Opcode() scripts.Opcode { return scripts.OpNamePreorder }

// SerializePayload implements Operation.
func (op *NamePreorder) SerializePayload() ([]byte, error) {
	payload := make([]byte, 0, hashing.Hash160Size+hashing.ConsensusHashSize)
	payload = append(payload, op.PreorderHash[:]...)
	payload = append(payload, op.ConsensusHash[:]...)
	return payload, nil
}

// Check implements Operation. A preorder needs a fresh consensus hash
// (proving the sender has seen recent state) and must not collide
// with a live preorder for the same blind.
func (op *NamePreorder) Check(state StateReader, tx TxInfo) error {
	valid, err := state.ConsensusHashValid(op.ConsensusHash)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("preorder cites stale consensus hash %s", op.ConsensusHash)
	}

	existing, err := state.GetPreorder(op.PreorderHash)
	if err != nil {
		return err
	}
	if existing != nil && tx.Height < existing.Height+tx.Params.PreorderTTL {
		return fmt.Errorf("preorder blind already live (height %d)", existing.Height)
	}
	return nil
}

// NameRegistration reveals and claims a preordered name, or renews an
// owned one. Payload: the fully-qualified name.
type NameRegistration struct {
	FQN string

	// Renewal is set by Check when the registration renews an
	// existing owned name instead of claiming a preorder.
	Renewal bool
}

func parseNameRegistration(payload []byte) (*NameRegistration, error) {
	fqn := string(payload)
	if err := scripts.ValidateFQN(fqn); err != nil {
		return nil, fmt.Errorf("NAME_REGISTRATION: %w", err)
	}
	return &NameRegistration{FQN: fqn}, nil
}

// Opcode implements Operation.
func (op *NameRegistration) Opcode() scripts.Opcode { return scripts.OpNameRegistration }

// SerializePayload implements Operation.
func (op *NameRegistration) SerializePayload() ([]byte, error) {
	return []byte(op.FQN), nil
}

// Check implements Operation.
func (op *NameRegistration) Check(state StateReader, tx TxInfo) error {
	label, nsID, err := scripts.ParseFQN(op.FQN)
	if err != nil {
		return err
	}

	namespace, err := state.GetNamespace(nsID)
	if err != nil {
		return err
	}
	if namespace == nil || !namespace.Ready {
		return fmt.Errorf("namespace %q is not ready", nsID)
	}

	price := namespace.Curve.NamePrice(label)

	existing, err := state.GetName(op.FQN)
	if err != nil {
		return err
	}

	if existing != nil && !existing.Expired(tx.Height) {
		// Live name: only the owner may renew.
		if existing.Owner != tx.ownerAddress() && existing.Owner != tx.Sender {
			return fmt.Errorf("name %q is taken", op.FQN)
		}
		if existing.Revoked {
			return fmt.Errorf("name %q is revoked", op.FQN)
		}
		if tx.Fee < price {
			return fmt.Errorf("renewal fee %d below price %d", tx.Fee, price)
		}
		op.Renewal = true
		return nil
	}

	if existing != nil && existing.InGracePeriod(tx.Height, tx.Params) {
		// Grace period: the former owner renews, nobody else
		// registers.
		if existing.Owner == tx.ownerAddress() || existing.Owner == tx.Sender {
			if tx.Fee < price {
				return fmt.Errorf("renewal fee %d below price %d", tx.Fee, price)
			}
			op.Renewal = true
			return nil
		}
		return fmt.Errorf("name %q is in its renewal grace period", op.FQN)
	}

	// Fresh registration: a matching live preorder must exist.
	blind := scripts.PreorderHash(op.FQN, tx.Sender, tx.ownerAddress())
	preorder, err := state.GetPreorder(blind)
	if err != nil {
		return err
	}
	if preorder == nil {
		return fmt.Errorf("no preorder for name %q from %s", op.FQN, tx.Sender)
	}
	if tx.Height >= preorder.Height+tx.Params.PreorderTTL {
		return fmt.Errorf("preorder for %q expired at height %d", op.FQN, preorder.Height+tx.Params.PreorderTTL)
	}
	if preorder.Fee < price {
		return fmt.Errorf("preorder fee %d below price %d for %q", preorder.Fee, price, op.FQN)
	}
	return nil
}

// NameUpdate sets a name's zonefile hash. Payload: 16-byte name
// consensus pair hash, 20-byte zonefile hash. The pair hash is the
// first 16 bytes of Hash160("fqn,consensusHash"), which both
// identifies the name without spelling it out and proves the sender
// saw recent state.
type NameUpdate struct {
	NameConsensusHash [hashing.ConsensusHashSize]byte
	ZonefileHash      hashing.ZonefileHash

	// FQN and MatchedConsensusHash are resolved by Check.
	FQN                  string
	MatchedConsensusHash hashing.ConsensusHash
}

// UpdateNameHash computes the name+consensus pair hash carried in a
// NAME_UPDATE payload.
func UpdateNameHash(fqn string, ch hashing.ConsensusHash) [hashing.ConsensusHashSize]byte {
	full := hashing.Hash160([]byte(fqn + "," + ch.String()))
	var pairHash [hashing.ConsensusHashSize]byte
	copy(pairHash[:], full[:hashing.ConsensusHashSize])
	return pairHash
}

func parseNameUpdate(payload []byte) (*NameUpdate, error) {
	if len(payload) != hashing.ConsensusHashSize+hashing.Hash160Size {
		return nil, fmt.Errorf("NAME_UPDATE payload is %d bytes, want %d",
			len(payload), hashing.ConsensusHashSize+hashing.Hash160Size)
	}
	op := &NameUpdate{}
	copy(op.NameConsensusHash[:], payload[:hashing.ConsensusHashSize])
	copy(op.ZonefileHash[:], payload[hashing.ConsensusHashSize:])
	return op, nil
}

// Opcode implements Operation.
func (op *NameUpdate) Opcode() scripts.Opcode { return scripts.OpNameUpdate }

// SerializePayload implements Operation.
func (op *NameUpdate) SerializePayload() ([]byte, error) {
	payload := make([]byte, 0, hashing.ConsensusHashSize+hashing.Hash160Size)
	payload = append(payload, op.NameConsensusHash[:]...)
	payload = append(payload, op.ZonefileHash[:]...)
	return payload, nil
}

// Check implements Operation. Resolution walks the sender's names
// against the valid consensus window looking for the pair hash; the
// sender owns few names and the window is small, so the product stays
// tiny.
func (op *NameUpdate) Check(state StateReader, tx TxInfo) error {
	owned, err := state.NamesOwnedBy(tx.Sender)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		return fmt.Errorf("sender %s owns no names", tx.Sender)
	}

	window, err := state.ValidConsensusHashes()
	if err != nil {
		return err
	}

	for _, fqn := range owned {
		for _, ch := range window {
			if UpdateNameHash(fqn, ch) == op.NameConsensusHash {
				op.FQN = fqn
				op.MatchedConsensusHash = ch
				break
			}
		}
		if op.FQN != "" {
			break
		}
	}
	if op.FQN == "" {
		return fmt.Errorf("update hash matches no name owned by %s in the consensus window", tx.Sender)
	}

	name, err := state.GetName(op.FQN)
	if err != nil {
		return err
	}
	if name == nil || name.Expired(tx.Height) {
		return fmt.Errorf("name %q is expired", op.FQN)
	}
	if name.Revoked {
		return fmt.Errorf("name %q is revoked", op.FQN)
	}
	return nil
}

// NameTransfer hands a name to a new owner. Payload: 1-byte keep
// flag, 16-byte name hash (Hash160(fqn) prefix), 16-byte consensus
// hash. The keep flag preserves ('>') or discards ('~') the zonefile
// hash across the transfer.
type NameTransfer struct {
	KeepData      bool
	NameHash      [hashing.ConsensusHashSize]byte
	ConsensusHash hashing.ConsensusHash

	// FQN is resolved by Check.
	FQN string
}

const (
	transferKeepByte    = '>'
	transferDiscardByte = '~'
)

// TransferNameHash computes the hashed name reference carried in a
// NAME_TRANSFER payload.
func TransferNameHash(fqn string) [hashing.ConsensusHashSize]byte {
	full := hashing.Hash160([]byte(fqn))
	var nameHash [hashing.ConsensusHashSize]byte
	copy(nameHash[:], full[:hashing.ConsensusHashSize])
	return nameHash
}

func parseNameTransfer(payload []byte) (*NameTransfer, error) {
	want := 1 + hashing.ConsensusHashSize + hashing.ConsensusHashSize
	if len(payload) != want {
		return nil, fmt.Errorf("NAME_TRANSFER payload is %d bytes, want %d", len(payload), want)
	}

	op := &NameTransfer{}
	switch payload[0] {
	case transferKeepByte:
		op.KeepData = true
	case transferDiscardByte:
		op.KeepData = false
	default:
		return nil, fmt.Errorf("NAME_TRANSFER keep flag %q is invalid", payload[0])
	}
	copy(op.NameHash[:], payload[1:1+hashing.ConsensusHashSize])
	copy(op.ConsensusHash[:], payload[1+hashing.ConsensusHashSize:])
	return op, nil
}

// Opcode implements Operation.
func (op *NameTransfer) Opcode() scripts.Opcode { return scripts.OpNameTransfer }

// SerializePayload implements Operation.
func (op *NameTransfer) SerializePayload() ([]byte, error) {
	flag := byte(transferDiscardByte)
	if op.KeepData {
		flag = transferKeepByte
	}
	payload := make([]byte, 0, 1+2*hashing.ConsensusHashSize)
	payload = append(payload, flag)
	payload = append(payload, op.NameHash[:]...)
	payload = append(payload, op.ConsensusHash[:]...)
	return payload, nil
}

// Check implements Operation.
func (op *NameTransfer) Check(state StateReader, tx TxInfo) error {
	if tx.Recipient == "" || tx.Recipient == tx.Sender {
		return fmt.Errorf("transfer needs a recipient distinct from the sender")
	}

	valid, err := state.ConsensusHashValid(op.ConsensusHash)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("transfer cites stale consensus hash %s", op.ConsensusHash)
	}

	owned, err := state.NamesOwnedBy(tx.Sender)
	if err != nil {
		return err
	}
	for _, fqn := range owned {
		if TransferNameHash(fqn) == op.NameHash {
			op.FQN = fqn
			break
		}
	}
	if op.FQN == "" {
		return fmt.Errorf("transfer hash matches no name owned by %s", tx.Sender)
	}

	name, err := state.GetName(op.FQN)
	if err != nil {
		return err
	}
	if name == nil || name.Expired(tx.Height) {
		return fmt.Errorf("name %q is expired", op.FQN)
	}
	if name.Revoked {
		return fmt.Errorf("name %q is revoked", op.FQN)
	}
	return nil
}

// NameRevoke renounces a name: its zonefile hash is cleared and no
// further operations on it are accepted until it expires. Payload:
// the fully-qualified name.
type NameRevoke struct {
	FQN string
}

func parseNameRevoke(payload []byte) (*NameRevoke, error) {
	fqn := string(payload)
	if err := scripts.ValidateFQN(fqn); err != nil {
		return nil, fmt.Errorf("NAME_REVOKE: %w", err)
	}
	return &NameRevoke{FQN: fqn}, nil
}

// Opcode implements Operation.
func (op *NameRevoke) Opcode() scripts.Opcode { return scripts.OpNameRevoke }

// SerializePayload implements Operation.
func (op *NameRevoke) SerializePayload() ([]byte, error) {
	return []byte(op.FQN), nil
}

// Check implements Operation.
func (op *NameRevoke) Check(state StateReader, tx TxInfo) error {
	name, err := state.GetName(op.FQN)
	if err != nil {
		return err
	}
	if name == nil || name.Expired(tx.Height) {
		return fmt.Errorf("name %q is not registered", op.FQN)
	}
	if name.Owner != tx.Sender {
		return fmt.Errorf("sender %s does not own %q", tx.Sender, op.FQN)
	}
	if name.Revoked {
		return fmt.Errorf("name %q is already revoked", op.FQN)
	}
	return nil
}

// NameImport seeds a name into a revealed (not yet ready) namespace.
// Only the namespace revealer may import. Payload: 20-byte zonefile
// hash, then the fully-qualified name.
type NameImport struct {
	FQN          string
	ZonefileHash hashing.ZonefileHash
}

func parseNameImport(payload []byte) (*NameImport, error) {
	if len(payload) <= hashing.Hash160Size {
		return nil, fmt.Errorf("NAME_IMPORT payload is %d bytes, too short", len(payload))
	}
	op := &NameImport{}
	copy(op.ZonefileHash[:], payload[:hashing.Hash160Size])
	op.FQN = string(payload[hashing.Hash160Size:])
	if err := scripts.ValidateFQN(op.FQN); err != nil {
		return nil, fmt.Errorf("NAME_IMPORT: %w", err)
	}
	return op, nil
}

// Opcode implements Operation.
func (op *NameImport) Opcode() scripts.Opcode { return scripts.OpNameImport }

// SerializePayload implements Operation.
func (op *NameImport) SerializePayload() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.Write(op.ZonefileHash[:])
	buffer.WriteString(op.FQN)
	return buffer.Bytes(), nil
}

// Check implements Operation.
func (op *NameImport) Check(state StateReader, tx TxInfo) error {
	_, nsID, err := scripts.ParseFQN(op.FQN)
	if err != nil {
		return err
	}

	namespace, err := state.GetNamespace(nsID)
	if err != nil {
		return err
	}
	if namespace == nil {
		return fmt.Errorf("namespace %q is not revealed", nsID)
	}
	if namespace.Ready {
		return fmt.Errorf("namespace %q is already ready; imports closed", nsID)
	}
	if namespace.Revealer != tx.Sender {
		return fmt.Errorf("sender %s is not the revealer of %q", tx.Sender, nsID)
	}
	if tx.Height >= namespace.RevealBlock+tx.Params.RevealExpiry {
		return fmt.Errorf("namespace %q reveal window expired", nsID)
	}
	return nil
}

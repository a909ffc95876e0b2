// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package scripts

import "fmt"

// Magic is the two-byte prefix identifying a name operation payload
// inside a chain transaction. Payloads without it are not ours.
const Magic = "id"

// MaxPayloadLength caps an operation payload after the magic bytes
// and the opcode. Inherited from the embedding constraints of the
// underlying chain's data outputs.
const MaxPayloadLength = 80

// Opcode is the single-byte operation discriminator following the
// magic bytes. The byte values are wire constants.
type Opcode byte

const (
	OpNamePreorder      Opcode = '?'
	OpNameRegistration  Opcode = ':'
	OpNameUpdate        Opcode = '+'
	OpNameTransfer      Opcode = '>'
	OpNameRevoke        Opcode = '~'
	OpNameImport        Opcode = ';'
	OpNamespacePreorder Opcode = '*'
	OpNamespaceReveal   Opcode = '&'
	OpNamespaceReady    Opcode = '!'
	OpAnnounce          Opcode = '#'
)

// String returns the opcode's protocol name.
func (op Opcode) String() string {
	switch op {
	case OpNamePreorder:
		return "NAME_PREORDER"
	case OpNameRegistration:
		return "NAME_REGISTRATION"
	case OpNameUpdate:
		return "NAME_UPDATE"
	case OpNameTransfer:
		return "NAME_TRANSFER"
	case OpNameRevoke:
		return "NAME_REVOKE"
	case OpNameImport:
		return "NAME_IMPORT"
	case OpNamespacePreorder:
		return "NAMESPACE_PREORDER"
	case OpNamespaceReveal:
		return "NAMESPACE_REVEAL"
	case OpNamespaceReady:
		return "NAMESPACE_READY"
	case OpAnnounce:
		return "ANNOUNCE"
	default:
		return fmt.Sprintf("UNKNOWN(%q)", byte(op))
	}
}

// Known reports whether op is a defined operation. Unknown opcodes in
// otherwise well-framed payloads are skipped during block processing,
// so older nodes tolerate operations introduced after them.
func (op Opcode) Known() bool {
	switch op {
	case OpNamePreorder, OpNameRegistration, OpNameUpdate, OpNameTransfer,
		OpNameRevoke, OpNameImport, OpNamespacePreorder, OpNamespaceReveal,
		OpNamespaceReady, OpAnnounce:
		return true
	}
	return false
}

// Frame prepends the magic bytes and opcode to an operation payload.
func Frame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("scripts: %s payload is %d bytes, max %d", op, len(payload), MaxPayloadLength)
	}
	framed := make([]byte, 0, len(Magic)+1+len(payload))
	framed = append(framed, Magic...)
	framed = append(framed, byte(op))
	framed = append(framed, payload...)
	return framed, nil
}

// Unframe splits a transaction payload into opcode and operation
// payload. Returns ok=false (not an error) when the magic bytes are
// absent — most chain transactions are simply not name operations.
func Unframe(data []byte) (op Opcode, payload []byte, ok bool) {
	if len(data) < len(Magic)+1 || string(data[:len(Magic)]) != Magic {
		return 0, nil, false
	}
	if len(data) > len(Magic)+1+MaxPayloadLength {
		return 0, nil, false
	}
	return Opcode(data[len(Magic)]), data[len(Magic)+1:], true
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"strings"
	"testing"
)

func TestParseFQN(t *testing.T) {
	tests := []struct {
		fqn       string
		label     string
		namespace string
		wantErr   bool
	}{
		{"hello.id", "hello", "id", false},
		{"a.b", "a", "b", false},
		{"with-dash_ok.id", "with-dash_ok", "id", false},
		{"", "", "", true},
		{"nodot", "", "", true},
		{"two.dots.here", "", "", true},
		{".id", "", "", true},
		{"name.", "", "", true},
		{"UPPER.id", "", "", true},
		{"spa ce.id", "", "", true},
		{strings.Repeat("a", 40) + ".id", "", "", true},
	}

	for _, test := range tests {
		label, namespace, err := ParseFQN(test.fqn)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseFQN(%q) should fail", test.fqn)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFQN(%q): %v", test.fqn, err)
			continue
		}
		if label != test.label || namespace != test.namespace {
			t.Errorf("ParseFQN(%q) = (%q, %q), want (%q, %q)",
				test.fqn, label, namespace, test.label, test.namespace)
		}
	}
}

func TestValidateNamespaceID(t *testing.T) {
	if err := ValidateNamespaceID("id"); err != nil {
		t.Errorf("ValidateNamespaceID(id): %v", err)
	}
	for _, bad := range []string{"", "has.dot", "has+plus", "UPPER", strings.Repeat("a", 20)} {
		if err := ValidateNamespaceID(bad); err == nil {
			t.Errorf("ValidateNamespaceID(%q) should fail", bad)
		}
	}
}

func TestPreorderHashBlinds(t *testing.T) {
	a := PreorderHash("hello.id", "sender1", "owner1")
	b := PreorderHash("hello.id", "sender2", "owner1")
	c := PreorderHash("other.id", "sender1", "owner1")

	if a == b {
		t.Error("different senders should produce different blinds")
	}
	if a == c {
		t.Error("different names should produce different blinds")
	}
	if a != PreorderHash("hello.id", "sender1", "owner1") {
		t.Error("preorder hash should be deterministic")
	}
}

func TestFrameUnframe(t *testing.T) {
	payload := []byte("hello.id")
	framed, err := Frame(OpNameRegistration, payload)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}

	op, got, ok := Unframe(framed)
	if !ok {
		t.Fatal("Unframe rejected framed payload")
	}
	if op != OpNameRegistration {
		t.Errorf("opcode = %v, want NAME_REGISTRATION", op)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestUnframeRejectsForeignData(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("i"), []byte("xx?payload"), []byte("OP_RETURN junk")} {
		if _, _, ok := Unframe(data); ok {
			t.Errorf("Unframe(%q) should not match", data)
		}
	}
}

func TestFrameRejectsOversizedPayload(t *testing.T) {
	if _, err := Frame(OpAnnounce, make([]byte, MaxPayloadLength+1)); err == nil {
		t.Error("oversized payload should fail")
	}
}

func TestOpcodeKnown(t *testing.T) {
	known := []Opcode{
		OpNamePreorder, OpNameRegistration, OpNameUpdate, OpNameTransfer,
		OpNameRevoke, OpNameImport, OpNamespacePreorder, OpNamespaceReveal,
		OpNamespaceReady, OpAnnounce,
	}
	for _, op := range known {
		if !op.Known() {
			t.Errorf("%v should be known", op)
		}
	}
	if Opcode('z').Known() {
		t.Error("'z' should be unknown")
	}
}

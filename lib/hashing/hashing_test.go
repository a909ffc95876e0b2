// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package hashing

import (
	"strings"
	"testing"
)

func TestHash160Deterministic(t *testing.T) {
	first := Hash160([]byte("hello.id"))
	second := Hash160([]byte("hello.id"))
	if first != second {
		t.Errorf("Hash160 not deterministic: %x != %x", first, second)
	}
}

func TestHash160Distinct(t *testing.T) {
	if Hash160([]byte("a")) == Hash160([]byte("b")) {
		t.Error("different inputs should produce different digests")
	}
}

func TestConsensusHashRoundTrip(t *testing.T) {
	ch := NewConsensusHash([]byte("block material"))
	parsed, err := ParseConsensusHash(ch.String())
	if err != nil {
		t.Fatalf("ParseConsensusHash: %v", err)
	}
	if parsed != ch {
		t.Errorf("round-trip failed: %v != %v", parsed, ch)
	}
}

func TestConsensusHashStringLength(t *testing.T) {
	ch := NewConsensusHash([]byte("x"))
	if len(ch.String()) != 32 {
		t.Errorf("consensus hash hex length = %d, want 32", len(ch.String()))
	}
}

func TestConsensusHashTruncation(t *testing.T) {
	// The consensus hash is the Hash160 prefix, not an independent digest.
	full := Hash160([]byte("material"))
	ch := NewConsensusHash([]byte("material"))
	if string(ch[:]) != string(full[:ConsensusHashSize]) {
		t.Error("consensus hash should be the Hash160 prefix")
	}
}

func TestParseConsensusHashInvalid(t *testing.T) {
	for _, input := range []string{"", "abcd", strings.Repeat("z", 32), strings.Repeat("ab", 20)} {
		if _, err := ParseConsensusHash(input); err == nil {
			t.Errorf("ParseConsensusHash(%q) should fail", input)
		}
	}
}

func TestZonefileHashRoundTrip(t *testing.T) {
	zh := HashZonefile([]byte("$ORIGIN hello.id\n"))
	parsed, err := ParseZonefileHash(zh.String())
	if err != nil {
		t.Fatalf("ParseZonefileHash: %v", err)
	}
	if parsed != zh {
		t.Errorf("round-trip failed: %v != %v", parsed, zh)
	}
}

func TestZonefileHashIsZero(t *testing.T) {
	var zero ZonefileHash
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if HashZonefile([]byte("content")).IsZero() {
		t.Error("content hash should not report IsZero")
	}
}

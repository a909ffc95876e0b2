// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package b40

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0},
		{0, 0, 0},
		{1},
		{0, 1},
		{0xff},
		{0x00, 0xff, 0x00},
		[]byte("hello.id"),
		bytes.Repeat([]byte{0xab}, 64),
	}

	for _, input := range inputs {
		encoded := Encode(input)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if !bytes.Equal(decoded, input) {
			t.Errorf("round-trip %x: encoded %q, decoded %x", input, encoded, decoded)
		}
	}
}

func TestEncodeLeadingZeros(t *testing.T) {
	encoded := Encode([]byte{0, 0, 5})
	if encoded[0] != '0' || encoded[1] != '0' {
		t.Errorf("Encode([0 0 5]) = %q, want two leading '0' digits", encoded)
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, input := range []string{"Hello", "foo bar", "name!", "über"} {
		if _, err := Decode(input); err == nil {
			t.Errorf("Decode(%q) should fail", input)
		}
	}
}

func TestIsB40(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"abc123", true},
		{"with-dash_and.dot+plus", true},
		{"Uppercase", false},
		{"spa ce", false},
		{"bang!", false},
	}

	for _, test := range tests {
		if got := IsB40(test.input); got != test.want {
			t.Errorf("IsB40(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestAlphabetSize(t *testing.T) {
	if len(Alphabet) != 40 {
		t.Fatalf("alphabet has %d characters, want 40", len(Alphabet))
	}
	seen := map[byte]bool{}
	for i := 0; i < len(Alphabet); i++ {
		if seen[Alphabet[i]] {
			t.Fatalf("duplicate alphabet character %q", Alphabet[i])
		}
		seen[Alphabet[i]] = true
	}
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	// Map encoding must be byte-identical across calls regardless of
	// Go's randomized map iteration order.
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 32 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("deterministic encoding produced differing bytes")
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type v2 struct {
		Name  string `cbor:"name"`
		Extra int    `cbor:"extra"`
	}
	type v1 struct {
		Name string `cbor:"name"`
	}

	encoded, err := Marshal(v2{Name: "hello.id", Extra: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded v1
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Name != "hello.id" {
		t.Errorf("Name = %q, want %q", decoded.Name, "hello.id")
	}
}

func TestDefaultMapType(t *testing.T) {
	encoded, err := Marshal(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded type = %T, want map[string]any", decoded)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	type record struct {
		Height uint64 `cbor:"height"`
		Hash   []byte `cbor:"hash"`
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for i := range 3 {
		if err := encoder.Encode(record{Height: uint64(i), Hash: []byte{byte(i)}}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i := range 3 {
		var got record
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if got.Height != uint64(i) {
			t.Errorf("record %d: Height = %d", i, got.Height)
		}
	}
}

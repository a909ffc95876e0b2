// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devcode1981/stacks-blockchain/lib/hashing"
)

func TestPutGet(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	content := []byte("$ORIGIN hello.id\n$TTL 3600\n")
	hash, err := store.Put(content)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if hash != hashing.HashZonefile(content) {
		t.Error("returned hash does not match content hash")
	}

	got, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Get returned %q, want %q", got, content)
	}
}

func TestPutIdempotent(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	content := []byte("zonefile content")
	first, err := store.Put(content)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(content)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if first != second {
		t.Error("repeated Put should return the same hash")
	}
}

func TestPutTooLarge(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Put(make([]byte, MaxZonefileSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized Put error = %v, want ErrTooLarge", err)
	}
}

func TestGetMissing(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Get(hashing.HashZonefile([]byte("never stored"))); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	content := []byte("original content")
	hash, err := store.Put(content)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Corrupt the stored file in place.
	hexName := hash.String()
	path := filepath.Join(root, hexName[:2], hexName[2:4], hexName+".zf")
	if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := store.Get(hash); err == nil {
		t.Error("Get should reject content that fails hash verification")
	}
}

func TestHasRemove(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	hash, err := store.Put([]byte("transient"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Has(hash) {
		t.Error("Has should report stored content")
	}

	if err := store.Remove(hash); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Has(hash) {
		t.Error("Has should report removed content as absent")
	}

	// Removing again is a no-op.
	if err := store.Remove(hash); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestWalk(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := map[hashing.ZonefileHash]bool{}
	for _, content := range []string{"one", "two", "three"} {
		hash, err := store.Put([]byte(content))
		if err != nil {
			t.Fatalf("Put(%q): %v", content, err)
		}
		want[hash] = true
	}

	got := map[hashing.ZonefileHash]bool{}
	err = store.Walk(func(hash hashing.ZonefileHash) error {
		got[hash] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("Walk visited %d hashes, want %d", len(got), len(want))
	}
	for hash := range want {
		if !got[hash] {
			t.Errorf("Walk missed %s", hash)
		}
	}
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the content-addressed zonefile store.
//
// Zonefiles are opaque byte blobs identified by the Hash160 of their
// content. The store lays them out on disk under two levels of hex
// prefix fan-out:
//
//	<root>/ab/cd/abcdef...0123.zf
//
// Writes are atomic (temp file + rename) and reads verify content
// against the requested hash, so a corrupted or truncated file is
// detected instead of served.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/devcode1981/stacks-blockchain/lib/hashing"
)

// MaxZonefileSize caps zonefile content. Inherited protocol constant:
// peers refuse to relay anything larger, so accepting it locally
// would only strand data.
const MaxZonefileSize = 40960

// ErrNotFound is returned by Get when the store has no content for
// the hash.
var ErrNotFound = errors.New("storage: zonefile not found")

// ErrTooLarge is returned by Put for content over MaxZonefileSize.
var ErrTooLarge = errors.New("storage: zonefile exceeds maximum size")

// Store is a content-addressed zonefile store rooted at a directory.
// Safe for concurrent use: writes are atomic renames and reads verify
// hashes.
type Store struct {
	root string
}

// Open returns a store rooted at the given directory, creating it if
// needed.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("storage: creating root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Put stores zonefile content and returns its hash. Idempotent:
// storing the same content twice is a no-op.
func (s *Store) Put(data []byte) (hashing.ZonefileHash, error) {
	if len(data) > MaxZonefileSize {
		return hashing.ZonefileHash{}, ErrTooLarge
	}

	hash := hashing.HashZonefile(data)
	path := s.path(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return hashing.ZonefileHash{}, fmt.Errorf("storage: creating shard directory: %w", err)
	}

	// Write to a temp file in the same directory so the rename is
	// atomic on the same filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".zf-*")
	if err != nil {
		return hashing.ZonefileHash{}, fmt.Errorf("storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return hashing.ZonefileHash{}, fmt.Errorf("storage: writing zonefile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return hashing.ZonefileHash{}, fmt.Errorf("storage: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return hashing.ZonefileHash{}, fmt.Errorf("storage: installing zonefile: %w", err)
	}

	return hash, nil
}

// Get returns the zonefile content for a hash. The content is
// re-hashed on read; a mismatch (disk corruption, manual tampering)
// is an error, not a silent bad serve.
func (s *Store) Get(hash hashing.ZonefileHash) ([]byte, error) {
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: reading zonefile %s: %w", hash, err)
	}

	if hashing.HashZonefile(data) != hash {
		return nil, fmt.Errorf("storage: zonefile %s failed content verification", hash)
	}
	return data, nil
}

// Has reports whether content for the hash is present. It checks file
// existence only; Get still verifies content.
func (s *Store) Has(hash hashing.ZonefileHash) bool {
	_, err := os.Stat(s.path(hash))
	return err == nil
}

// Remove deletes the content for a hash. Removing absent content is
// not an error.
func (s *Store) Remove(hash hashing.ZonefileHash) error {
	err := os.Remove(s.path(hash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: removing zonefile %s: %w", hash, err)
	}
	return nil
}

// Walk calls fn for every stored zonefile hash. Ordering is
// unspecified. Returning an error from fn stops the walk.
func (s *Store) Walk(fn func(hashing.ZonefileHash) error) error {
	return filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zf") {
			return nil
		}
		hash, parseErr := hashing.ParseZonefileHash(strings.TrimSuffix(entry.Name(), ".zf"))
		if parseErr != nil {
			// Foreign file in the store tree; skip it.
			return nil
		}
		return fn(hash)
	})
}

func (s *Store) path(hash hashing.ZonefileHash) string {
	hexName := hash.String()
	return filepath.Join(s.root, hexName[:2], hexName[2:4], hexName+".zf")
}

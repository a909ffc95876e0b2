// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"sync"

	"github.com/devcode1981/stacks-blockchain/lib/hashing"
)

// InventoryPageBits is the number of zonefile slots per inventory
// page. One page is 128 bytes on the wire.
const InventoryPageBits = 1024

// Inventory is the paged have-bit vector over the node's zonefile
// want-list: the accepted zonefile hashes in acceptance order, as
// assigned by the name database's zonefile index. Bit i covers the
// i-th accepted hash. The sequence is append-only, so bit positions
// never move and earlier pages stay identical across peers at
// different tips. A hash accepted more than once occupies every
// position it was accepted at; storing the body once sets all of them.
//
// Inventory is safe for concurrent use.
type Inventory struct {
	mu     sync.RWMutex
	hashes []hashing.ZonefileHash
	index  map[hashing.ZonefileHash][]int
	have   []byte
}

// NewInventory builds an inventory over a want-list, preserving its
// order; have marks the hashes already on disk.
func NewInventory(wantList []hashing.ZonefileHash, have func(hashing.ZonefileHash) bool) *Inventory {
	hashes := make([]hashing.ZonefileHash, len(wantList))
	copy(hashes, wantList)

	inv := &Inventory{
		hashes: hashes,
		index:  make(map[hashing.ZonefileHash][]int, len(hashes)),
		have:   make([]byte, (len(hashes)+7)/8),
	}
	for i, hash := range hashes {
		inv.index[hash] = append(inv.index[hash], i)
	}
	for hash, positions := range inv.index {
		if have != nil && have(hash) {
			for _, i := range positions {
				inv.have[i/8] |= 1 << (i % 8)
			}
		}
	}
	return inv
}

// Len returns the want-list size.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.hashes)
}

// PageCount returns the number of inventory pages.
func (inv *Inventory) PageCount() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return (len(inv.hashes) + InventoryPageBits - 1) / InventoryPageBits
}

// Page returns the have-bits for one page. Pages out of range return
// an empty slice.
func (inv *Inventory) Page(page int) []byte {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	startBit := page * InventoryPageBits
	if page < 0 || startBit >= len(inv.hashes) {
		return nil
	}
	endBit := startBit + InventoryPageBits
	if endBit > len(inv.hashes) {
		endBit = len(inv.hashes)
	}

	bits := make([]byte, (endBit-startBit+7)/8)
	for i := startBit; i < endBit; i++ {
		if inv.have[i/8]&(1<<(i%8)) != 0 {
			j := i - startBit
			bits[j/8] |= 1 << (j % 8)
		}
	}
	return bits
}

// Has reports whether the hash is in the want-list and on disk.
func (inv *Inventory) Has(hash hashing.ZonefileHash) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	positions, ok := inv.index[hash]
	return ok && inv.have[positions[0]/8]&(1<<(positions[0]%8)) != 0
}

// Wants reports whether the hash is in the want-list but missing.
func (inv *Inventory) Wants(hash hashing.ZonefileHash) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	positions, ok := inv.index[hash]
	return ok && inv.have[positions[0]/8]&(1<<(positions[0]%8)) == 0
}

// MarkHave sets the have-bit at every position the hash occupies.
// Unknown hashes are ignored.
func (inv *Inventory) MarkHave(hash hashing.ZonefileHash) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, i := range inv.index[hash] {
		inv.have[i/8] |= 1 << (i % 8)
	}
}

// Missing returns up to limit distinct hashes that are wanted but not
// on disk.
func (inv *Inventory) Missing(limit int) []hashing.ZonefileHash {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var missing []hashing.ZonefileHash
	seen := make(map[hashing.ZonefileHash]bool)
	for i, hash := range inv.hashes {
		if inv.have[i/8]&(1<<(i%8)) == 0 && !seen[hash] {
			seen[hash] = true
			missing = append(missing, hash)
			if limit > 0 && len(missing) >= limit {
				break
			}
		}
	}
	return missing
}

// MissingOnPage returns the distinct wanted-but-missing hashes on one
// page that a peer's page bits claim to have.
func (inv *Inventory) MissingOnPage(page int, peerBits []byte) []hashing.ZonefileHash {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	startBit := page * InventoryPageBits
	var wanted []hashing.ZonefileHash
	seen := make(map[hashing.ZonefileHash]bool)
	for j := 0; j < len(peerBits)*8; j++ {
		i := startBit + j
		if i >= len(inv.hashes) {
			break
		}
		peerHas := peerBits[j/8]&(1<<(j%8)) != 0
		weHave := inv.have[i/8]&(1<<(i%8)) != 0
		if peerHas && !weHave && !seen[inv.hashes[i]] {
			seen[inv.hashes[i]] = true
			wanted = append(wanted, inv.hashes[i])
		}
	}
	return wanted
}

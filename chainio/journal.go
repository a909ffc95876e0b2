// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package chainio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
)

// ReplaySource reads blocks from a CBOR journal file: a sequence of
// Block values encoded back to back. Regtest nodes and tests use it
// in place of a live chain daemon.
//
// The whole journal is loaded at open. Journals are development
// artifacts, small by construction.
type ReplaySource struct {
	blocks map[uint64]Block
	tip    uint64
}

// OpenJournal loads a block journal from disk.
func OpenJournal(path string) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chainio: opening journal: %w", err)
	}
	defer file.Close()

	source := &ReplaySource{blocks: make(map[uint64]Block)}
	decoder := codec.NewDecoder(file)
	for {
		var block Block
		if err := decoder.Decode(&block); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("chainio: decoding journal %s: %w", path, err)
		}
		if _, exists := source.blocks[block.Height]; exists {
			return nil, fmt.Errorf("chainio: journal has duplicate block %d", block.Height)
		}
		source.blocks[block.Height] = block
		if block.Height > source.tip {
			source.tip = block.Height
		}
	}

	if len(source.blocks) == 0 {
		return nil, fmt.Errorf("chainio: journal %s is empty", path)
	}
	return source, nil
}

// NewReplaySource builds a source from in-memory blocks (tests).
func NewReplaySource(blocks []Block) *ReplaySource {
	source := &ReplaySource{blocks: make(map[uint64]Block, len(blocks))}
	for _, block := range blocks {
		source.blocks[block.Height] = block
		if block.Height > source.tip {
			source.tip = block.Height
		}
	}
	return source
}

// CurrentHeight returns the journal's last block height.
func (s *ReplaySource) CurrentHeight(ctx context.Context) (uint64, error) {
	return s.tip, nil
}

// WaitForBlock returns the journaled block at the height, or an error
// if the journal ends before it. A journal never grows, so there is
// nothing to wait for.
func (s *ReplaySource) WaitForBlock(ctx context.Context, height uint64) (Block, error) {
	block, ok := s.blocks[height]
	if !ok {
		return Block{}, fmt.Errorf("chainio: journal has no block %d (tip %d)", height, s.tip)
	}
	return block, nil
}

// Heights returns the journal's block heights in ascending order.
func (s *ReplaySource) Heights() []uint64 {
	heights := make([]uint64, 0, len(s.blocks))
	for height := range s.blocks {
		heights = append(heights, height)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// JournalWriter appends blocks to a journal file.
type JournalWriter struct {
	file    *os.File
	encoder *codec.Encoder
	last    uint64
}

// CreateJournal opens a journal file for writing, truncating any
// existing content.
func CreateJournal(path string) (*JournalWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("chainio: creating journal: %w", err)
	}
	return &JournalWriter{file: file, encoder: codec.NewEncoder(file)}, nil
}

// Append writes a block to the journal. Blocks must arrive in
// strictly increasing height order.
func (w *JournalWriter) Append(block Block) error {
	if w.last != 0 && block.Height <= w.last {
		return fmt.Errorf("chainio: journal block %d out of order after %d", block.Height, w.last)
	}
	if err := w.encoder.Encode(block); err != nil {
		return fmt.Errorf("chainio: encoding journal block %d: %w", block.Height, err)
	}
	w.last = block.Height
	return nil
}

// Close flushes and closes the journal file.
func (w *JournalWriter) Close() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("chainio: closing journal: %w", err)
	}
	return nil
}

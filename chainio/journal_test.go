// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package chainio

import (
	"context"
	"path/filepath"
	"testing"
)

func testBlocks() []Block {
	return []Block{
		{
			Height:    100,
			Hash:      "0000a1",
			Timestamp: 1700000000,
			Transactions: []Transaction{
				{TxID: "tx1", VtxIndex: 0, SenderAddress: "addr1", Payload: []byte("id?payload"), Fee: 500},
			},
		},
		{Height: 101, Hash: "0000a2", Timestamp: 1700000600},
		{Height: 102, Hash: "0000a3", Timestamp: 1700001200},
	}
}

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.journal")

	writer, err := CreateJournal(path)
	if err != nil {
		t.Fatalf("CreateJournal: %v", err)
	}
	for _, block := range testBlocks() {
		if err := writer.Append(block); err != nil {
			t.Fatalf("Append(%d): %v", block.Height, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	source, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}

	ctx := context.Background()
	tip, err := source.CurrentHeight(ctx)
	if err != nil {
		t.Fatalf("CurrentHeight: %v", err)
	}
	if tip != 102 {
		t.Errorf("tip = %d, want 102", tip)
	}

	block, err := source.WaitForBlock(ctx, 100)
	if err != nil {
		t.Fatalf("WaitForBlock(100): %v", err)
	}
	if len(block.Transactions) != 1 || block.Transactions[0].TxID != "tx1" {
		t.Errorf("block 100 transactions = %+v", block.Transactions)
	}
}

func TestJournalRejectsOutOfOrder(t *testing.T) {
	writer, err := CreateJournal(filepath.Join(t.TempDir(), "bad.journal"))
	if err != nil {
		t.Fatalf("CreateJournal: %v", err)
	}
	defer writer.Close()

	if err := writer.Append(Block{Height: 100}); err != nil {
		t.Fatalf("Append(100): %v", err)
	}
	if err := writer.Append(Block{Height: 100}); err == nil {
		t.Error("duplicate height should fail")
	}
	if err := writer.Append(Block{Height: 99}); err == nil {
		t.Error("decreasing height should fail")
	}
}

func TestWaitForBlockPastJournalEnd(t *testing.T) {
	source := NewReplaySource(testBlocks())
	if _, err := source.WaitForBlock(context.Background(), 500); err == nil {
		t.Error("height past the journal end should fail")
	}
}

func TestHeightsSorted(t *testing.T) {
	source := NewReplaySource(testBlocks())
	heights := source.Heights()
	want := []uint64{100, 101, 102}
	if len(heights) != len(want) {
		t.Fatalf("got %d heights, want %d", len(heights), len(want))
	}
	for i := range want {
		if heights[i] != want[i] {
			t.Errorf("heights[%d] = %d, want %d", i, heights[i], want[i])
		}
	}
}

func TestOpenJournalEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.journal")
	writer, err := CreateJournal(path)
	if err != nil {
		t.Fatalf("CreateJournal: %v", err)
	}
	writer.Close()

	if _, err := OpenJournal(path); err == nil {
		t.Error("empty journal should fail to open")
	}
}

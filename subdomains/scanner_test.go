// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package subdomains

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
	"github.com/devcode1981/stacks-blockchain/operations"
)

// scannerFixture is a name database with hello.id updated through a
// sequence of zonefiles, plus the stores the scanner reads and writes.
type scannerFixture struct {
	db      *nameset.DB
	store   *storage.Store
	subs    *Store
	scanner *Scanner
}

func zonefileWith(records ...*Record) []byte {
	var buf bytes.Buffer
	buf.WriteString("$ORIGIN hello.id\n")
	for _, record := range records {
		fmt.Fprintf(&buf, "www TXT %q\n", record.TXT())
	}
	return buf.Bytes()
}

// newScannerFixture replays a namespace launch and one name whose
// zonefile is updated once per given body, in order.
func newScannerFixture(t *testing.T, zonefiles ...[]byte) *scannerFixture {
	t.Helper()
	ctx := context.Background()

	params, err := config.Params(config.Regtest)
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	db, err := nameset.Open(nameset.Config{
		Path:   filepath.Join(t.TempDir(), "names.db"),
		Params: params,
	})
	if err != nil {
		t.Fatalf("nameset.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	curve := scripts.PriceCurve{
		Base:             4,
		Coeff:            250,
		Buckets:          [16]uint8{6, 5, 4, 3, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		NonalphaDiscount: 2,
		NoVowelDiscount:  2,
	}

	chs := map[uint64]hashing.ConsensusHash{}
	height := uint64(100)
	process := func(txs ...chainio.Transaction) {
		result, err := db.ProcessBlock(ctx, chainio.Block{Height: height, Hash: "h", Transactions: txs})
		if err != nil {
			t.Fatalf("ProcessBlock(%d): %v", height, err)
		}
		chs[height] = result.ConsensusHash
		height++
	}
	opTx := func(op operations.Operation, txid, sender string, fee uint64) chainio.Transaction {
		payload, err := op.SerializePayload()
		if err != nil {
			t.Fatalf("SerializePayload: %v", err)
		}
		framed, err := scripts.Frame(op.Opcode(), payload)
		if err != nil {
			t.Fatalf("Frame: %v", err)
		}
		return chainio.Transaction{TxID: txid, SenderAddress: sender, Payload: framed, Fee: fee}
	}

	process()
	process(opTx(&operations.NamespacePreorder{
		PreorderHash:  scripts.NamespacePreorderHash("id", "ns-owner"),
		ConsensusHash: chs[height-1],
	}, "tx-nspre", "ns-owner", scripts.NamespacePrice("id")))
	process(opTx(&operations.NamespaceReveal{NamespaceID: "id", Curve: curve},
		"tx-nsreveal", "ns-owner", 0))
	process(opTx(&operations.NamespaceReady{NamespaceID: "id"}, "tx-nsready", "ns-owner", 0))
	process(opTx(&operations.NamePreorder{
		PreorderHash:  scripts.PreorderHash("hello.id", "alice", "alice"),
		ConsensusHash: chs[height-1],
	}, "tx-pre", "alice", curve.NamePrice("hello")))
	process(opTx(&operations.NameRegistration{FQN: "hello.id"}, "tx-reg", "alice", 0))

	for i, body := range zonefiles {
		process(opTx(&operations.NameUpdate{
			NameConsensusHash: operations.UpdateNameHash("hello.id", chs[height-1]),
			ZonefileHash:      hashing.HashZonefile(body),
		}, fmt.Sprintf("tx-upd-%d", i), "alice", 0))
	}

	store, err := storage.Open(filepath.Join(t.TempDir(), "zonefiles"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	subs := openTestStore(t)

	return &scannerFixture{
		db:      db,
		store:   store,
		subs:    subs,
		scanner: NewScanner(db, store, subs, nil, 0, nil),
	}
}

func TestScannerParsesSupersededZonefiles(t *testing.T) {
	ctx := context.Background()
	pub, priv := testKey(t, 1)

	v0 := zonefileWith(signedRecord(t, "hello.id", "www", 0, pub, priv, []byte("v0")))
	v1 := zonefileWith(signedRecord(t, "hello.id", "www", 1, pub, priv, []byte("v1")))
	fx := newScannerFixture(t, v0, v1)

	// Both bodies replicate before the first scan; the first zonefile
	// is already superseded on chain but still carries the sequence's
	// seqn 0 record.
	for _, body := range [][]byte{v0, v1} {
		if _, err := fx.store.Put(body); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	if err := fx.scanner.ScanOnce(ctx); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	sub, err := fx.subs.Get(ctx, "www.hello.id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Seqn != 1 || !bytes.Equal(sub.Zonefile, []byte("v1")) {
		t.Errorf("state = seqn %d zonefile %q, want the full chain applied", sub.Seqn, sub.Zonefile)
	}

	// A later round has nothing left to consume.
	cursor, err := fx.subs.ScanCursor(ctx)
	if err != nil {
		t.Fatalf("ScanCursor: %v", err)
	}
	if err := fx.scanner.ScanOnce(ctx); err != nil {
		t.Fatalf("ScanOnce (idle): %v", err)
	}
	after, _ := fx.subs.ScanCursor(ctx)
	if after != cursor {
		t.Errorf("cursor moved from %d to %d on an idle round", cursor, after)
	}
}

func TestScannerWaitsForMissingZonefile(t *testing.T) {
	ctx := context.Background()
	pub, priv := testKey(t, 1)

	v0 := zonefileWith(signedRecord(t, "hello.id", "www", 0, pub, priv, []byte("v0")))
	v1 := zonefileWith(signedRecord(t, "hello.id", "www", 1, pub, priv, []byte("v1")))
	fx := newScannerFixture(t, v0, v1)

	// Only the newer zonefile has replicated. The scan must stall
	// rather than consume it out of order and lose the seqn 0 record.
	if _, err := fx.store.Put(v1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fx.scanner.ScanOnce(ctx); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if _, err := fx.subs.Get(ctx, "www.hello.id"); err == nil {
		t.Fatal("no record should apply while the first zonefile is missing")
	}
	if cursor, _ := fx.subs.ScanCursor(ctx); cursor != 0 {
		t.Errorf("cursor = %d, want 0 while stalled", cursor)
	}

	// The missing body arrives; the next round applies both in order.
	if _, err := fx.store.Put(v0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fx.scanner.ScanOnce(ctx); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	sub, err := fx.subs.Get(ctx, "www.hello.id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Seqn != 1 {
		t.Errorf("seqn = %d, want 1 after both zonefiles applied", sub.Seqn)
	}
}

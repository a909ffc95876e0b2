// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package subdomains

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func testKey(t *testing.T, seed byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	seedBytes := bytes.Repeat([]byte{seed}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seedBytes)
	return priv.Public().(ed25519.PublicKey), priv
}

func signedRecord(t *testing.T, domain, label string, seqn uint64, owner ed25519.PublicKey, signer ed25519.PrivateKey, zonefile []byte) *Record {
	t.Helper()
	record := &Record{
		FQN:      label + "." + domain,
		Domain:   domain,
		Owner:    owner,
		Seqn:     seqn,
		Zonefile: zonefile,
	}
	record.Sign(signer)
	return record
}

func TestRecordTXTRoundTrip(t *testing.T) {
	pub, priv := testKey(t, 1)
	original := signedRecord(t, "hello.id", "www", 0, pub, priv,
		bytes.Repeat([]byte("$ORIGIN www.hello.id\n"), 30))

	parsed, err := ParseTXT("hello.id", "www", original.TXT())
	if err != nil {
		t.Fatalf("ParseTXT: %v", err)
	}
	if parsed.FQN != "www.hello.id" {
		t.Errorf("FQN = %q", parsed.FQN)
	}
	if parsed.Seqn != 0 {
		t.Errorf("Seqn = %d", parsed.Seqn)
	}
	if !bytes.Equal(parsed.Zonefile, original.Zonefile) {
		t.Error("zonefile content mismatch")
	}
	if err := parsed.Verify(pub); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestParseTXTRejectsMalformed(t *testing.T) {
	pub, priv := testKey(t, 1)
	good := signedRecord(t, "hello.id", "www", 0, pub, priv, []byte("zf")).TXT()

	cases := map[string]string{
		"no owner":        "seqn=0 parts=0 sig=QUJD",
		"no signature":    "owner=QUJD seqn=0 parts=0",
		"no parts":        good[:len(good)-90],
		"bad label":       good, // label checked below
		"bad field":       good + " loose-token",
		"short owner key": "owner=QUJD seqn=0 parts=0 sig=" + good[len(good)-88:],
	}
	for name, data := range cases {
		label := "www"
		if name == "bad label" {
			label = "UPPER!"
		}
		if _, err := ParseTXT("hello.id", label, data); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

func TestSignatureBindsToName(t *testing.T) {
	pub, priv := testKey(t, 1)
	record := signedRecord(t, "hello.id", "www", 0, pub, priv, []byte("zf"))

	// Re-labeling the record invalidates the signature.
	moved := *record
	moved.FQN = "mail.hello.id"
	if err := moved.Verify(pub); err == nil {
		t.Error("signature should not survive a name change")
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "subdomains.db"), nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOwnershipChain(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	alicePub, alicePriv := testKey(t, 1)
	bobPub, bobPriv := testKey(t, 2)

	// Creation must be self-signed at seqn 0.
	create := signedRecord(t, "hello.id", "www", 0, alicePub, alicePriv, []byte("v0"))
	if err := store.Apply(ctx, create, 100); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Update signed by the current owner.
	update := signedRecord(t, "hello.id", "www", 1, alicePub, alicePriv, []byte("v1"))
	if err := store.Apply(ctx, update, 101); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Transfer to bob: record names bob as owner, alice signs.
	transfer := signedRecord(t, "hello.id", "www", 2, bobPub, alicePriv, []byte("v2"))
	if err := store.Apply(ctx, transfer, 102); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// After the transfer alice can no longer update.
	stolen := signedRecord(t, "hello.id", "www", 3, alicePub, alicePriv, []byte("v3"))
	if err := store.Apply(ctx, stolen, 103); err == nil {
		t.Error("update signed by the former owner should fail")
	}

	// Bob can.
	bobUpdate := signedRecord(t, "hello.id", "www", 3, bobPub, bobPriv, []byte("v3"))
	if err := store.Apply(ctx, bobUpdate, 103); err != nil {
		t.Fatalf("bob update: %v", err)
	}

	sub, err := store.Get(ctx, "www.hello.id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Seqn != 3 || !bytes.Equal(sub.Zonefile, []byte("v3")) {
		t.Errorf("state = seqn %d zonefile %q", sub.Seqn, sub.Zonefile)
	}
	if !sub.Owner.Equal(bobPub) {
		t.Error("owner should be bob")
	}
}

func TestApplyRejectsGapsAndReplays(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	pub, priv := testKey(t, 1)

	// Creation must start at 0.
	if err := store.Apply(ctx, signedRecord(t, "hello.id", "www", 5, pub, priv, nil), 100); err == nil {
		t.Error("creation at seqn 5 should fail")
	}

	if err := store.Apply(ctx, signedRecord(t, "hello.id", "www", 0, pub, priv, nil), 100); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Replaying seqn 0 or skipping ahead both fail.
	if err := store.Apply(ctx, signedRecord(t, "hello.id", "www", 0, pub, priv, nil), 101); err == nil {
		t.Error("replayed creation should fail")
	}
	if err := store.Apply(ctx, signedRecord(t, "hello.id", "www", 3, pub, priv, nil), 101); err == nil {
		t.Error("seqn gap should fail")
	}

	if _, err := store.Get(ctx, "absent.hello.id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(absent) = %v, want ErrNotFound", err)
	}
}

func TestExtractRecords(t *testing.T) {
	alicePub, alicePriv := testKey(t, 1)
	bobPub, bobPriv := testKey(t, 2)

	www0 := signedRecord(t, "hello.id", "www", 0, alicePub, alicePriv, []byte("www v0"))
	www1 := signedRecord(t, "hello.id", "www", 1, alicePub, alicePriv, []byte("www v1"))
	mail0 := signedRecord(t, "hello.id", "mail", 0, bobPub, bobPriv, []byte("mail v0"))

	zonefile := fmt.Sprintf(`$ORIGIN hello.id
; zonefile with mixed content
@ IN A 192.0.2.1
www TXT %q
mail 3600 IN TXT %q
www IN TXT %q
broken TXT "owner=notakey seqn=0 parts=0 sig=bad"
`, www1.TXT(), mail0.TXT(), www0.TXT())

	records := ExtractRecords("hello.id", []byte(zonefile))
	if len(records) != 3 {
		t.Fatalf("extracted %d records, want 3", len(records))
	}
	// Sorted by (FQN, Seqn): mail 0, www 0, www 1.
	if records[0].FQN != "mail.hello.id" {
		t.Errorf("records[0] = %s", records[0].FQN)
	}
	if records[1].FQN != "www.hello.id" || records[1].Seqn != 0 {
		t.Errorf("records[1] = %s seqn %d", records[1].FQN, records[1].Seqn)
	}
	if records[2].Seqn != 1 {
		t.Errorf("records[2] seqn = %d", records[2].Seqn)
	}
}

func TestSplitTXTMultiString(t *testing.T) {
	label, data, ok := splitTXT(`www IN TXT "part one " "and part two"`)
	if !ok {
		t.Fatal("splitTXT failed")
	}
	if label != "www" {
		t.Errorf("label = %q", label)
	}
	if data != "part one and part two" {
		t.Errorf("data = %q", data)
	}
}

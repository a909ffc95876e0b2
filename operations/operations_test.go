// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package operations

import (
	"strings"
	"testing"

	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// fakeState is an in-memory StateReader for acceptance rule tests.
type fakeState struct {
	names              map[string]*NameView
	namespaces         map[string]*NamespaceView
	preorders          map[[hashing.Hash160Size]byte]*PreorderView
	namespacePreorders map[[hashing.Hash160Size]byte]*PreorderView
	window             []hashing.ConsensusHash
}

func newFakeState() *fakeState {
	return &fakeState{
		names:              map[string]*NameView{},
		namespaces:         map[string]*NamespaceView{},
		preorders:          map[[hashing.Hash160Size]byte]*PreorderView{},
		namespacePreorders: map[[hashing.Hash160Size]byte]*PreorderView{},
	}
}

func (s *fakeState) GetName(fqn string) (*NameView, error)         { return s.names[fqn], nil }
func (s *fakeState) GetNamespace(id string) (*NamespaceView, error) { return s.namespaces[id], nil }

func (s *fakeState) GetPreorder(hash [hashing.Hash160Size]byte) (*PreorderView, error) {
	return s.preorders[hash], nil
}

func (s *fakeState) GetNamespacePreorder(hash [hashing.Hash160Size]byte) (*PreorderView, error) {
	return s.namespacePreorders[hash], nil
}

func (s *fakeState) ConsensusHashValid(ch hashing.ConsensusHash) (bool, error) {
	for _, valid := range s.window {
		if valid == ch {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeState) NamesOwnedBy(address string) ([]string, error) {
	var owned []string
	for fqn, view := range s.names {
		if view.Owner == address {
			owned = append(owned, fqn)
		}
	}
	return owned, nil
}

func (s *fakeState) ValidConsensusHashes() ([]hashing.ConsensusHash, error) {
	return s.window, nil
}

func testParams(t *testing.T) config.ChainParams {
	t.Helper()
	params, err := config.Params(config.Regtest)
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	return params
}

func readyNamespace(revealer string) *NamespaceView {
	return &NamespaceView{
		ID:       "id",
		Revealer: revealer,
		Ready:    true,
		Curve: scripts.PriceCurve{
			Base:             4,
			Coeff:            250,
			Buckets:          [16]uint8{6, 5, 4, 3, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			NonalphaDiscount: 2,
			NoVowelDiscount:  2,
		},
		Lifetime: 128,
	}
}

func TestParseTransactionSkipsForeignPayloads(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte("unrelated data"), []byte("idz????")} {
		_, ok, err := ParseTransaction(chainio.Transaction{Payload: payload})
		if err != nil {
			t.Errorf("ParseTransaction(%q): %v", payload, err)
		}
		if ok {
			t.Errorf("ParseTransaction(%q) should not match", payload)
		}
	}
}

func TestParseTransactionRejectsMalformedKnownOp(t *testing.T) {
	framed, err := scripts.Frame(scripts.OpNamePreorder, []byte("short"))
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	_, _, err = ParseTransaction(chainio.Transaction{TxID: "tx", Payload: framed})
	if err == nil {
		t.Error("malformed NAME_PREORDER payload should error")
	}
}

func TestWireRoundTrips(t *testing.T) {
	ch := hashing.NewConsensusHash([]byte("recent block"))
	ops := []Operation{
		&NamePreorder{PreorderHash: hashing.Hash160([]byte("blind")), ConsensusHash: ch},
		&NameRegistration{FQN: "hello.id"},
		&NameUpdate{
			NameConsensusHash: UpdateNameHash("hello.id", ch),
			ZonefileHash:      hashing.HashZonefile([]byte("zf")),
		},
		&NameTransfer{KeepData: true, NameHash: TransferNameHash("hello.id"), ConsensusHash: ch},
		&NameRevoke{FQN: "hello.id"},
		&NameImport{FQN: "alice.id", ZonefileHash: hashing.HashZonefile([]byte("azf"))},
		&NamespacePreorder{PreorderHash: hashing.Hash160([]byte("nsblind")), ConsensusHash: ch},
		&NamespaceReveal{NamespaceID: "id", Lifetime: 1000, Curve: readyNamespace("x").Curve},
		&NamespaceReady{NamespaceID: "id"},
		&Announce{MessageHash: hashing.Hash160([]byte("notice"))},
	}

	for _, op := range ops {
		payload, err := op.SerializePayload()
		if err != nil {
			t.Fatalf("%v SerializePayload: %v", op.Opcode(), err)
		}
		if len(payload) > scripts.MaxPayloadLength {
			t.Errorf("%v payload is %d bytes, exceeds cap", op.Opcode(), len(payload))
		}
		parsed, err := ParsePayload(op.Opcode(), payload)
		if err != nil {
			t.Fatalf("%v ParsePayload: %v", op.Opcode(), err)
		}
		reserialized, err := parsed.SerializePayload()
		if err != nil {
			t.Fatalf("%v reserialize: %v", op.Opcode(), err)
		}
		if string(reserialized) != string(payload) {
			t.Errorf("%v wire round-trip mismatch", op.Opcode())
		}
	}
}

func TestNamePreorderCheck(t *testing.T) {
	state := newFakeState()
	fresh := hashing.NewConsensusHash([]byte("fresh"))
	state.window = []hashing.ConsensusHash{fresh}

	op := &NamePreorder{PreorderHash: hashing.Hash160([]byte("b")), ConsensusHash: fresh}
	tx := TxInfo{Params: testParams(t), Height: 110, Sender: "alice"}
	if err := op.Check(state, tx); err != nil {
		t.Errorf("fresh preorder should pass: %v", err)
	}

	stale := &NamePreorder{PreorderHash: op.PreorderHash, ConsensusHash: hashing.NewConsensusHash([]byte("old"))}
	if err := stale.Check(state, tx); err == nil {
		t.Error("stale consensus hash should fail")
	}

	state.preorders[op.PreorderHash] = &PreorderView{Hash: op.PreorderHash, Height: 105}
	if err := op.Check(state, tx); err == nil {
		t.Error("live duplicate blind should fail")
	}

	// Past the TTL the blind may be reused.
	tx.Height = 105 + tx.Params.PreorderTTL
	if err := op.Check(state, tx); err != nil {
		t.Errorf("expired blind should be reusable: %v", err)
	}
}

func TestNameRegistrationCheck(t *testing.T) {
	params := testParams(t)
	state := newFakeState()
	state.namespaces["id"] = readyNamespace("revealer")
	price := state.namespaces["id"].Curve.NamePrice("hello")

	blind := scripts.PreorderHash("hello.id", "alice-payer", "alice")
	state.preorders[blind] = &PreorderView{Hash: blind, Sender: "alice-payer", Height: 100, Fee: price}

	op := &NameRegistration{FQN: "hello.id"}
	tx := TxInfo{Params: params, Height: 105, Sender: "alice-payer", Recipient: "alice"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("valid registration should pass: %v", err)
	}
	if op.Renewal {
		t.Error("fresh registration should not be marked renewal")
	}

	// Expired preorder.
	late := tx
	late.Height = 100 + params.PreorderTTL
	if err := op.Check(state, late); err == nil {
		t.Error("registration against expired preorder should fail")
	}

	// Underpaid preorder.
	state.preorders[blind].Fee = price - 1
	if err := op.Check(state, tx); err == nil {
		t.Error("underpaid preorder should fail")
	}
	state.preorders[blind].Fee = price

	// Namespace not ready.
	state.namespaces["id"].Ready = false
	if err := op.Check(state, tx); err == nil {
		t.Error("registration in unready namespace should fail")
	}
	state.namespaces["id"].Ready = true

	// Taken name.
	state.names["hello.id"] = &NameView{FQN: "hello.id", Owner: "bob", ExpireBlock: 400}
	if err := op.Check(state, tx); err == nil {
		t.Error("registration of a live name by a stranger should fail")
	}
}

func TestNameRegistrationRenewal(t *testing.T) {
	params := testParams(t)
	state := newFakeState()
	state.namespaces["id"] = readyNamespace("revealer")
	state.names["hello.id"] = &NameView{FQN: "hello.id", Owner: "alice", ExpireBlock: 400}
	price := state.namespaces["id"].Curve.NamePrice("hello")

	op := &NameRegistration{FQN: "hello.id"}
	tx := TxInfo{Params: params, Height: 300, Sender: "alice", Fee: price}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("owner renewal should pass: %v", err)
	}
	if !op.Renewal {
		t.Error("owner re-registration should be marked renewal")
	}

	// Grace period: owner can still renew, stranger cannot register.
	graceTx := tx
	graceTx.Height = 400 + params.GracePeriod/2
	op = &NameRegistration{FQN: "hello.id"}
	if err := op.Check(state, graceTx); err != nil {
		t.Errorf("grace period renewal should pass: %v", err)
	}

	strangerBlind := scripts.PreorderHash("hello.id", "mallory", "mallory")
	state.preorders[strangerBlind] = &PreorderView{Hash: strangerBlind, Sender: "mallory", Height: graceTx.Height - 1, Fee: price}
	strangerTx := TxInfo{Params: params, Height: graceTx.Height, Sender: "mallory"}
	op = &NameRegistration{FQN: "hello.id"}
	if err := op.Check(state, strangerTx); err == nil {
		t.Error("stranger registration during grace period should fail")
	}

	// After the grace period the name is up for grabs.
	freeHeight := 400 + params.GracePeriod
	state.preorders[strangerBlind].Height = freeHeight - 1
	freeTx := TxInfo{Params: params, Height: freeHeight, Sender: "mallory"}
	op = &NameRegistration{FQN: "hello.id"}
	if err := op.Check(state, freeTx); err != nil {
		t.Errorf("post-grace registration should pass: %v", err)
	}
}

func TestNameUpdateCheckResolvesName(t *testing.T) {
	state := newFakeState()
	ch := hashing.NewConsensusHash([]byte("window"))
	state.window = []hashing.ConsensusHash{ch}
	state.names["hello.id"] = &NameView{FQN: "hello.id", Owner: "alice", ExpireBlock: 400}

	op := &NameUpdate{
		NameConsensusHash: UpdateNameHash("hello.id", ch),
		ZonefileHash:      hashing.HashZonefile([]byte("zonefile")),
	}
	tx := TxInfo{Params: testParams(t), Height: 200, Sender: "alice"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("valid update should pass: %v", err)
	}
	if op.FQN != "hello.id" {
		t.Errorf("resolved FQN = %q, want hello.id", op.FQN)
	}
	if op.MatchedConsensusHash != ch {
		t.Error("resolved consensus hash mismatch")
	}

	// Wrong sender: resolution finds nothing.
	badTx := tx
	badTx.Sender = "bob"
	op = &NameUpdate{NameConsensusHash: UpdateNameHash("hello.id", ch)}
	if err := op.Check(state, badTx); err == nil {
		t.Error("update from non-owner should fail")
	}

	// Revoked name rejects updates.
	state.names["hello.id"].Revoked = true
	op = &NameUpdate{NameConsensusHash: UpdateNameHash("hello.id", ch)}
	if err := op.Check(state, tx); err == nil {
		t.Error("update of revoked name should fail")
	}
}

func TestNameTransferCheck(t *testing.T) {
	state := newFakeState()
	ch := hashing.NewConsensusHash([]byte("window"))
	state.window = []hashing.ConsensusHash{ch}
	state.names["hello.id"] = &NameView{FQN: "hello.id", Owner: "alice", ExpireBlock: 400}

	op := &NameTransfer{KeepData: true, NameHash: TransferNameHash("hello.id"), ConsensusHash: ch}
	tx := TxInfo{Params: testParams(t), Height: 200, Sender: "alice", Recipient: "bob"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("valid transfer should pass: %v", err)
	}
	if op.FQN != "hello.id" {
		t.Errorf("resolved FQN = %q", op.FQN)
	}

	noRecipient := tx
	noRecipient.Recipient = ""
	op = &NameTransfer{KeepData: true, NameHash: TransferNameHash("hello.id"), ConsensusHash: ch}
	if err := op.Check(state, noRecipient); err == nil {
		t.Error("transfer without recipient should fail")
	}

	selfTransfer := tx
	selfTransfer.Recipient = "alice"
	if err := op.Check(state, selfTransfer); err == nil {
		t.Error("self-transfer should fail")
	}
}

func TestNameRevokeCheck(t *testing.T) {
	state := newFakeState()
	state.names["hello.id"] = &NameView{FQN: "hello.id", Owner: "alice", ExpireBlock: 400}

	op := &NameRevoke{FQN: "hello.id"}
	tx := TxInfo{Params: testParams(t), Height: 200, Sender: "alice"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("owner revoke should pass: %v", err)
	}

	tx.Sender = "bob"
	if err := op.Check(state, tx); err == nil {
		t.Error("non-owner revoke should fail")
	}

	state.names["hello.id"].Revoked = true
	tx.Sender = "alice"
	if err := op.Check(state, tx); err == nil {
		t.Error("double revoke should fail")
	}
}

func TestNameImportCheck(t *testing.T) {
	params := testParams(t)
	state := newFakeState()
	ns := readyNamespace("revealer")
	ns.Ready = false
	ns.RevealBlock = 100
	state.namespaces["id"] = ns

	op := &NameImport{FQN: "alice.id", ZonefileHash: hashing.HashZonefile([]byte("zf"))}
	tx := TxInfo{Params: params, Height: 150, Sender: "revealer", Recipient: "alice"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("revealer import should pass: %v", err)
	}

	tx.Sender = "mallory"
	if err := op.Check(state, tx); err == nil {
		t.Error("import by non-revealer should fail")
	}

	tx.Sender = "revealer"
	tx.Height = 100 + params.RevealExpiry
	if err := op.Check(state, tx); err == nil {
		t.Error("import after reveal expiry should fail")
	}

	ns.Ready = true
	tx.Height = 150
	if err := op.Check(state, tx); err == nil {
		t.Error("import into ready namespace should fail")
	}
}

func TestNamespaceRevealCheck(t *testing.T) {
	params := testParams(t)
	state := newFakeState()

	blind := scripts.NamespacePreorderHash("id", "revealer")
	state.namespacePreorders[blind] = &PreorderView{
		Hash:   blind,
		Sender: "revealer",
		Height: 100,
		Fee:    scripts.NamespacePrice("id"),
	}

	op := &NamespaceReveal{NamespaceID: "id", Lifetime: 1000, Curve: readyNamespace("x").Curve}
	tx := TxInfo{Params: params, Height: 105, Sender: "revealer"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("valid reveal should pass: %v", err)
	}

	// Underpaid namespace preorder.
	state.namespacePreorders[blind].Fee = scripts.NamespacePrice("id") - 1
	if err := op.Check(state, tx); err == nil {
		t.Error("underpaid namespace preorder should fail at reveal")
	}
	state.namespacePreorders[blind].Fee = scripts.NamespacePrice("id")

	// Already-ready namespace blocks re-reveal.
	state.namespaces["id"] = readyNamespace("revealer")
	if err := op.Check(state, tx); err == nil {
		t.Error("reveal of existing namespace should fail")
	}
}

func TestNamespaceReadyCheck(t *testing.T) {
	params := testParams(t)
	state := newFakeState()
	ns := readyNamespace("revealer")
	ns.Ready = false
	ns.RevealBlock = 100
	state.namespaces["id"] = ns

	op := &NamespaceReady{NamespaceID: "id"}
	tx := TxInfo{Params: params, Height: 150, Sender: "revealer"}
	if err := op.Check(state, tx); err != nil {
		t.Fatalf("revealer ready should pass: %v", err)
	}

	tx.Sender = "mallory"
	if err := op.Check(state, tx); err == nil {
		t.Error("ready by non-revealer should fail")
	}

	tx.Sender = "revealer"
	tx.Height = 100 + params.RevealExpiry
	if err := op.Check(state, tx); err == nil {
		t.Error("ready after reveal expiry should fail")
	}
}

func TestAnnounceCheck(t *testing.T) {
	state := newFakeState()
	op := &Announce{MessageHash: hashing.Hash160([]byte("msg"))}

	tx := TxInfo{Params: testParams(t), Sender: "operator", Announcers: []string{"operator"}}
	if err := op.Check(state, tx); err != nil {
		t.Errorf("whitelisted announce should pass: %v", err)
	}

	tx.Announcers = nil
	if err := op.Check(state, tx); err == nil {
		t.Error("announce with empty whitelist should fail")
	}
}

func TestNamespaceRevealLifetime(t *testing.T) {
	params := testParams(t)
	op := &NamespaceReveal{Lifetime: 0}
	if op.EffectiveLifetime(params) != params.DefaultNameLifetime {
		t.Error("zero lifetime should use the network default")
	}
	op.Lifetime = 77
	if op.EffectiveLifetime(params) != 77 {
		t.Error("explicit lifetime should pass through")
	}
}

func TestRegistrationPayloadLength(t *testing.T) {
	longest := strings.Repeat("a", scripts.MaxFQNLength-3) + ".id"
	op := &NameRegistration{FQN: longest}
	payload, err := op.SerializePayload()
	if err != nil {
		t.Fatalf("SerializePayload: %v", err)
	}
	if len(payload) > scripts.MaxPayloadLength {
		t.Error("longest legal name should still fit the payload cap")
	}
}

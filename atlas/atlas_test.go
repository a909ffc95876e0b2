// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestInventoryPaging(t *testing.T) {
	var wantList []hashing.ZonefileHash
	for i := 0; i < InventoryPageBits+10; i++ {
		wantList = append(wantList, hashing.HashZonefile([]byte{byte(i), byte(i >> 8)}))
	}

	inv := NewInventory(wantList, nil)
	if inv.Len() != len(wantList) {
		t.Fatalf("Len = %d, want %d", inv.Len(), len(wantList))
	}
	if inv.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", inv.PageCount())
	}
	if got := len(inv.Page(0)); got != InventoryPageBits/8 {
		t.Errorf("page 0 is %d bytes, want %d", got, InventoryPageBits/8)
	}
	if got := len(inv.Page(1)); got != 2 {
		t.Errorf("page 1 is %d bytes, want 2 (10 bits rounded up)", got)
	}
	if inv.Page(2) != nil {
		t.Error("out-of-range page should be nil")
	}
	if inv.Page(-1) != nil {
		t.Error("negative page should be nil")
	}

	// Nothing on disk: everything is missing, nothing is had.
	if got := len(inv.Missing(0)); got != len(wantList) {
		t.Errorf("Missing = %d, want all %d", got, len(wantList))
	}

	inv.MarkHave(wantList[0])
	if !inv.Has(wantList[0]) {
		t.Error("marked hash should be had")
	}
	if inv.Wants(wantList[0]) {
		t.Error("marked hash should no longer be wanted")
	}

	// A foreign hash is neither had nor wanted.
	foreign := hashing.HashZonefile([]byte("not in want list"))
	if inv.Has(foreign) || inv.Wants(foreign) {
		t.Error("foreign hash should be ignored")
	}
}

func TestInventoryMissingOnPage(t *testing.T) {
	wantList := []hashing.ZonefileHash{
		hashing.HashZonefile([]byte("a")),
		hashing.HashZonefile([]byte("b")),
		hashing.HashZonefile([]byte("c")),
	}
	inv := NewInventory(wantList, nil)
	inv.MarkHave(wantList[0])

	// Peer has everything on page 0.
	peerBits := []byte{0b00000111}
	missing := inv.MissingOnPage(0, peerBits)
	if len(missing) != 2 {
		t.Fatalf("missing = %d hashes, want 2", len(missing))
	}
	for _, hash := range missing {
		if inv.Has(hash) {
			t.Errorf("hash %s is already on disk", hash)
		}
	}

	// Peer has nothing: nothing to fetch.
	if got := inv.MissingOnPage(0, []byte{0}); len(got) != 0 {
		t.Errorf("missing from empty peer = %d, want 0", len(got))
	}
}

func TestInventoryKeepsAcceptanceOrder(t *testing.T) {
	a := hashing.HashZonefile([]byte("a"))
	b := hashing.HashZonefile([]byte("b"))
	c := hashing.HashZonefile([]byte("c"))
	d := hashing.HashZonefile([]byte("d"))

	// The want-list order is the acceptance order; positions must not
	// be reshuffled by hash value.
	inv := NewInventory([]hashing.ZonefileHash{c, a, b}, nil)
	inv.MarkHave(a)
	if got := inv.Page(0)[0]; got != 0b010 {
		t.Errorf("page 0 = %08b, want bit 1 for the second accepted hash", got)
	}

	// A longer want-list must keep earlier positions where they were,
	// so pages already exchanged with peers stay comparable.
	grown := NewInventory([]hashing.ZonefileHash{c, a, b, d},
		func(h hashing.ZonefileHash) bool { return h == a })
	if got := grown.Page(0)[0]; got != 0b010 {
		t.Errorf("grown page 0 = %08b, want the prefix unchanged", got)
	}
}

func TestInventoryDuplicateHashPositions(t *testing.T) {
	twice := hashing.HashZonefile([]byte("accepted twice"))
	other := hashing.HashZonefile([]byte("other"))

	inv := NewInventory([]hashing.ZonefileHash{twice, other, twice}, nil)
	inv.MarkHave(twice)
	if got := inv.Page(0)[0]; got != 0b101 {
		t.Errorf("page 0 = %08b, want both positions of the duplicate set", got)
	}

	missing := inv.Missing(0)
	if len(missing) != 1 || missing[0] != other {
		t.Errorf("missing = %v, want only the distinct unstored hash", missing)
	}
}

func TestZonefileCompressionRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte("$ORIGIN example.id\n$TTL 3600\n"), 100)
	compressed, err := compressZonefile(body)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(compressed) >= len(body) {
		t.Errorf("repetitive zonefile should compress (got %d >= %d)", len(compressed), len(body))
	}

	decompressed, err := decompressZonefile(compressed, storage.MaxZonefileSize)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(decompressed, body) {
		t.Error("round trip mismatch")
	}
}

func TestPeerStore(t *testing.T) {
	ctx := context.Background()
	ps, err := OpenPeerStore(filepath.Join(t.TempDir(), "peers.db"), 3, nil)
	if err != nil {
		t.Fatalf("OpenPeerStore: %v", err)
	}
	defer ps.Close()

	if err := ps.Add(ctx, "not-an-address", 1); err == nil {
		t.Error("address without port should fail")
	}

	for i, address := range []string{"10.0.0.1:6264", "10.0.0.2:6264", "10.0.0.3:6264"} {
		if err := ps.Add(ctx, address, int64(i)); err != nil {
			t.Fatalf("Add(%s): %v", address, err)
		}
	}
	// Table is full; a fourth peer is ignored, not an error.
	if err := ps.Add(ctx, "10.0.0.4:6264", 4); err != nil {
		t.Fatalf("Add over capacity: %v", err)
	}
	peers, err := ps.Neighbors(ctx, 0)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(peers) != 3 {
		t.Fatalf("peer count = %d, want 3", len(peers))
	}

	// Repeated failures drag a peer under the drop threshold.
	for i := 0; i < 12; i++ {
		if err := ps.Observe(ctx, "10.0.0.1:6264", false, 100); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	if err := ps.Observe(ctx, "10.0.0.2:6264", true, 200); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	dropped, err := ps.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}

	peers, err = ps.Neighbors(ctx, 1)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(peers) != 1 {
		t.Fatalf("neighbor count = %d, want 1", len(peers))
	}
	if peers[0].Address != "10.0.0.2:6264" {
		t.Errorf("healthiest peer = %s, want the one with a success", peers[0].Address)
	}
	if peers[0].LastSeen != 200 {
		t.Errorf("last seen = %d, want 200", peers[0].LastSeen)
	}
}

func TestAddZonefileRequiresWantedHash(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}

	body := []byte("$ORIGIN wanted.id\n")
	svc := &Service{store: store, inv: NewInventory(
		[]hashing.ZonefileHash{hashing.HashZonefile(body)}, store.Has)}
	svc.logger = discardLogger()

	hash, err := svc.AddZonefile(body)
	if err != nil {
		t.Fatalf("AddZonefile: %v", err)
	}
	if !store.Has(hash) {
		t.Error("wanted zonefile should be stored")
	}
	if !svc.Inventory().Has(hash) {
		t.Error("have-bit should be set")
	}

	// Storing again is idempotent.
	if _, err := svc.AddZonefile(body); err != nil {
		t.Errorf("re-adding stored zonefile: %v", err)
	}

	if _, err := svc.AddZonefile([]byte("unsolicited content")); !errors.Is(err, ErrUnwanted) {
		t.Errorf("unwanted zonefile error = %v, want ErrUnwanted", err)
	}

	// The unwanted body must not have touched the store.
	unwanted := hashing.HashZonefile([]byte("unsolicited content"))
	if store.Has(unwanted) {
		t.Error("unwanted zonefile should not be stored")
	}
}

func TestHandleZonefiles(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	body := []byte("$ORIGIN served.id\n")
	hash, err := store.Put(body)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	svc := &Service{store: store, inv: NewInventory(nil, nil), logger: discardLogger()}
	resp, err := svc.HandleZonefiles(ZonefileRequest{
		Hashes: []string{hash.String(), "zzzz-not-hex", hashing.HashZonefile([]byte("absent")).String()},
	})
	if err != nil {
		t.Fatalf("HandleZonefiles: %v", err)
	}
	if len(resp.Zonefiles) != 1 {
		t.Fatalf("served %d zonefiles, want 1", len(resp.Zonefiles))
	}

	decompressed, err := decompressZonefile(resp.Zonefiles[hash.String()], storage.MaxZonefileSize)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(decompressed, body) {
		t.Error("served body mismatch")
	}
}

// pingServer serves just enough of the atlas protocol to answer a
// ping, and returns its host:port.
func pingServer(t *testing.T, network string) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/atlas/ping", func(w http.ResponseWriter, r *http.Request) {
		encoded, err := codec.Marshal(PingResponse{Network: network, TipHeight: 100})
		if err != nil {
			t.Errorf("Marshal: %v", err)
			return
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.Write(encoded)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func TestDiscoveredPeersPingedBeforeAdoption(t *testing.T) {
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
	defer db.Close()

	peers, err := OpenPeerStore(filepath.Join(t.TempDir(), "peers.db"), 0, nil)
	if err != nil {
		t.Fatalf("OpenPeerStore: %v", err)
	}
	defer peers.Close()

	svc := &Service{
		db:     db,
		peers:  peers,
		client: NewClient(2 * time.Second),
		logger: discardLogger(),
	}

	live := pingServer(t, string(config.Regtest))
	foreign := pingServer(t, string(config.Mainnet))
	dead := "127.0.0.1:1"

	for _, address := range []string{dead, foreign, live} {
		svc.adoptPeer(ctx, address, 42)
	}

	adopted, err := peers.Neighbors(ctx, 0)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(adopted) != 1 {
		t.Fatalf("adopted %d peers, want only the live same-network one", len(adopted))
	}
	if adopted[0].Address != live {
		t.Errorf("adopted %s, want %s", adopted[0].Address, live)
	}
}

func TestWeightedSampleFavorsHealthyPeers(t *testing.T) {
	peers := []Peer{
		{Address: "healthy:6264", Health: 0.9},
		{Address: "weak:6264", Health: 0.05},
	}

	if got := weightedSample(peers, 0); len(got) != 2 {
		t.Fatalf("unlimited sample returned %d peers, want 2", len(got))
	}

	// With the weak peer clamped to the drop threshold the healthy one
	// should win the single slot about nine times out of ten.
	wins := 0
	for i := 0; i < 200; i++ {
		picked := weightedSample(peers, 1)
		if len(picked) != 1 {
			t.Fatalf("sample size = %d, want 1", len(picked))
		}
		if picked[0].Address == "healthy:6264" {
			wins++
		}
	}
	if wins < 120 {
		t.Errorf("healthy peer won %d of 200 draws, want a clear majority", wins)
	}
}

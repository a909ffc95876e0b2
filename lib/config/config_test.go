// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bns.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
network: testnet
paths:
  root: /var/lib/bns
chain:
  source_url: http://chain.example:8332
  poll_interval: 15s
rpc:
  listen: ":7264"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Network != Testnet {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if cfg.Paths.Root != "/var/lib/bns" {
		t.Errorf("Root = %q", cfg.Paths.Root)
	}
	if cfg.Chain.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v", cfg.Chain.PollInterval)
	}
	if cfg.RPC.Listen != ":7264" {
		t.Errorf("Listen = %q", cfg.RPC.Listen)
	}
	// Unset fields keep defaults.
	if cfg.Atlas.MaxPeers != 80 {
		t.Errorf("MaxPeers = %d, want default 80", cfg.Atlas.MaxPeers)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
paths:
  root: /var/lib/bns
production:
  rpc:
    listen: ":443"
  chain:
    poll_interval: 5s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.RPC.Listen != ":443" {
		t.Errorf("production override not applied: Listen = %q", cfg.RPC.Listen)
	}
	if cfg.Chain.PollInterval != 5*time.Second {
		t.Errorf("production override not applied: PollInterval = %v", cfg.Chain.PollInterval)
	}
}

func TestVariableExpansion(t *testing.T) {
	path := writeConfig(t, `
paths:
  root: /data/bns
  name_db: ${BNS_ROOT}/names.db
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.NameDB != "/data/bns/names.db" {
		t.Errorf("NameDB = %q, want expansion against root", cfg.Paths.NameDB)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.Network = "moonnet"
	cfg.RPC.Listen = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid config should fail validation")
	}
}

func TestValidateNeighborCap(t *testing.T) {
	cfg := Default()
	cfg.Atlas.MaxPeers = 8
	cfg.Atlas.MaxNeighbors = 16
	if err := cfg.Validate(); err == nil {
		t.Error("max_neighbors > max_peers should fail validation")
	}
}

func TestParams(t *testing.T) {
	for _, network := range []Network{Mainnet, Testnet, Regtest} {
		params, err := Params(network)
		if err != nil {
			t.Fatalf("Params(%s): %v", network, err)
		}
		if params.FirstBlock == 0 || params.ConsensusWindow == 0 {
			t.Errorf("Params(%s) has zero consensus constants", network)
		}
	}
	if _, err := Params("nope"); err == nil {
		t.Error("unknown network should fail")
	}
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.jsonc")
	content := `[
  // Operated by the foundation.
  {"address": "node.example.com:6264", "comment": "primary"},
  {"address": "10.0.0.2:6264"},
]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("got %d seeds, want 2", len(seeds))
	}
	if seeds[0].Address != "node.example.com:6264" {
		t.Errorf("seed 0 address = %q", seeds[0].Address)
	}
}

func TestLoadSeedsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.jsonc")
	if err := os.WriteFile(path, []byte(`[{"address": "no-port"}]`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadSeeds(path); err == nil {
		t.Error("seed without port should fail")
	}
}

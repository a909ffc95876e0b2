// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/tidwall/jsonc"
)

// Seed is one bootstrap peer entry from the seeds file.
type Seed struct {
	// Address is the peer's RPC address, host:port.
	Address string `json:"address"`

	// Comment is an optional operator note. Unused by the node.
	Comment string `json:"comment,omitempty"`
}

// LoadSeeds reads a JSONC seeds file: a top-level array of seed
// objects. JSONC (JSON with comments and trailing commas) because seed
// lists are hand-curated files that benefit from inline annotation.
func LoadSeeds(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading seeds file: %w", err)
	}

	var seeds []Seed
	if err := json.Unmarshal(jsonc.ToJSON(data), &seeds); err != nil {
		return nil, fmt.Errorf("config: parsing seeds file %s: %w", path, err)
	}

	for i, seed := range seeds {
		if _, _, err := net.SplitHostPort(seed.Address); err != nil {
			return nil, fmt.Errorf("config: seed %d: invalid address %q: %w", i, seed.Address, err)
		}
	}
	return seeds, nil
}

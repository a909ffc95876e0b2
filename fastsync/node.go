// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package fastsync

import (
	"context"
	"fmt"

	"github.com/devcode1981/stacks-blockchain/nameset"
)

// ExportNode archives a node's data directory and stamps the manifest
// with the chain identity read from its name database. The caller
// signs the result and writes it with WriteManifest.
func ExportNode(ctx context.Context, db *nameset.DB, dataDir, archivePath string) (*Manifest, error) {
	height, ch, err := db.Tip(ctx)
	if err != nil {
		return nil, fmt.Errorf("fastsync: reading chain tip: %w", err)
	}

	manifest, err := Export(dataDir, archivePath)
	if err != nil {
		return nil, err
	}
	manifest.Network = string(db.Params().Network)
	manifest.TipHeight = height
	manifest.ConsensusHash = ch.String()
	return manifest, nil
}

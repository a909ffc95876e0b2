// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devcode1981/stacks-blockchain/atlas"
	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/clock"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/nameset"
)

// sourceRetryDelay is the pause after a block source error before the
// next attempt.
const sourceRetryDelay = 5 * time.Second

// syncChain pulls blocks from the source in height order and feeds
// them to the name database, refreshing the atlas want-list after each
// processed block. A journal source ends with io.EOF-style exhaustion
// (WaitForBlock blocks on ctx); an HTTP source runs forever.
func syncChain(ctx context.Context, source chainio.Source, db *nameset.DB, atlasService *atlas.Service, params config.ChainParams, clk clock.Clock, logger *slog.Logger) error {
	if clk == nil {
		clk = clock.Real()
	}
	next := params.FirstBlock
	if height, _, err := db.Tip(ctx); err == nil {
		next = height + 1
	} else if !errors.Is(err, nameset.ErrNotFound) {
		return err
	}

	logger.Info("chain sync starting", "next_height", next)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		block, err := source.WaitForBlock(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("block source error", "height", next, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(sourceRetryDelay):
			}
			continue
		}

		result, err := db.ProcessBlock(ctx, block)
		if err != nil {
			return err
		}
		if result.Accepted > 0 {
			if err := atlasService.RefreshInventory(ctx); err != nil {
				logger.Warn("inventory refresh failed", "error", err)
			}
		}
		next++
	}
}

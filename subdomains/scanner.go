// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package subdomains

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/clock"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
)

// Scanner replays subdomain records out of replicated zonefiles. Each
// round it consumes the name database's zonefile index from where the
// last round stopped, in acceptance order, parsing each replicated
// body and folding its records into the subdomain index. Superseded
// zonefiles are still consumed, so intermediate records in a
// subdomain's sequence are never skipped.
type Scanner struct {
	db       *nameset.DB
	zonefile *storage.Store
	subs     *Store
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewScanner assembles a scanner. interval defaults to a minute.
func NewScanner(db *nameset.DB, zonefiles *storage.Store, subs *Store, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Scanner {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{
		db:       db,
		zonefile: zonefiles,
		subs:     subs,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Run scans until ctx is cancelled.
func (sc *Scanner) Run(ctx context.Context) error {
	ticker := sc.clock.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.logger.Info("subdomain scanner started", "interval", sc.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sc.ScanOnce(ctx); err != nil && ctx.Err() == nil {
				sc.logger.Warn("subdomain scan failed", "error", err)
			}
		}
	}
}

// ScanOnce runs a single scan round. Consumption is strictly in index
// order: a zonefile that is not replicated yet stops the round, so
// records always apply in the order the chain accepted their
// zonefiles. The stalled position is retried on the next round.
func (sc *Scanner) ScanOnce(ctx context.Context) error {
	cursor, err := sc.subs.ScanCursor(ctx)
	if err != nil {
		return err
	}
	entries, err := sc.db.ZonefileIndex(ctx, cursor)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		body, err := sc.zonefile.Get(entry.ZonefileHash)
		if errors.Is(err, storage.ErrNotFound) {
			// Not replicated yet; the atlas crawler will bring it.
			return nil
		}
		if err != nil {
			return err
		}

		applied := 0
		for _, record := range ExtractRecords(entry.FQN, body) {
			if err := sc.subs.Apply(ctx, record, entry.Height); err != nil {
				sc.logger.Debug("subdomain record rejected",
					"subdomain", record.FQN, "seqn", record.Seqn, "reason", err)
				continue
			}
			applied++
		}
		if err := sc.subs.MarkScanned(ctx, entry.Index, entry.ZonefileHash.String(), entry.FQN, entry.Height); err != nil {
			return err
		}
		if applied > 0 {
			sc.logger.Info("subdomain records applied",
				"domain", entry.FQN, "zonefile", entry.ZonefileHash.String(), "count", applied)
		}
	}
	return nil
}

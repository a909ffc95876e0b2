// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// bnsd is the name system node: it replays name operations from the
// chain into the name database, replicates zonefiles with its peers,
// indexes subdomains, and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/devcode1981/stacks-blockchain/atlas"
	"github.com/devcode1981/stacks-blockchain/chainio"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/process"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/lib/version"
	"github.com/devcode1981/stacks-blockchain/nameset"
	"github.com/devcode1981/stacks-blockchain/rpc"
	"github.com/devcode1981/stacks-blockchain/subdomains"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to the bns.yaml config file (overrides BNS_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("bnsd")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Environment == config.Development {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	params, err := config.Params(cfg.Network)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := nameset.Open(nameset.Config{
		Path:   cfg.Paths.NameDB,
		Params: params,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := storage.Open(cfg.Paths.Zonefiles)
	if err != nil {
		return err
	}

	peers, err := atlas.OpenPeerStore(cfg.Paths.AtlasDB, cfg.Atlas.MaxPeers, logger)
	if err != nil {
		return err
	}
	defer peers.Close()
	if err := seedPeers(ctx, cfg, peers, logger); err != nil {
		return err
	}

	atlasService, err := atlas.NewService(atlas.Config{
		DB:            db,
		Store:         store,
		Peers:         peers,
		PublicAddress: cfg.Atlas.PublicAddress,
		MaxNeighbors:  cfg.Atlas.MaxNeighbors,
		CrawlInterval: cfg.Atlas.CrawlInterval,
		PushInterval:  cfg.Atlas.PushInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if err := atlasService.RefreshInventory(ctx); err != nil {
		return err
	}

	subs, err := subdomains.OpenStore(cfg.Paths.SubdomainDB, logger)
	if err != nil {
		return err
	}
	defer subs.Close()
	scanner := subdomains.NewScanner(db, store, subs, nil, 0, logger)

	source, err := openSource(cfg, logger)
	if err != nil {
		return err
	}

	server := rpc.NewServer(rpc.Config{
		Address:         cfg.RPC.Listen,
		DB:              db,
		Zonefiles:       store,
		Atlas:           atlasService,
		Subdomains:      subs,
		Version:         version.Short(),
		ShutdownTimeout: cfg.RPC.ShutdownTimeout,
		Logger:          logger,
	})

	logger.Info("node starting",
		"network", cfg.Network,
		"listen", cfg.RPC.Listen,
		"version", version.Info(),
	)

	done := make(chan error, 4)
	go func() { done <- server.Serve(ctx) }()
	go func() { done <- atlasService.Run(ctx) }()
	go func() { done <- scanner.Run(ctx) }()
	go func() { done <- syncChain(ctx, source, db, atlasService, params, nil, logger) }()

	return waitWorkers(ctx, stop, done, 4, logger)
}

// waitWorkers blocks until shutdown is requested or a worker exits,
// then cancels the rest and receives every remaining result. The
// deferred store closes in run must not execute while any worker can
// still touch them. The first non-cancellation error wins.
func waitWorkers(ctx context.Context, stop context.CancelFunc, done <-chan error, workers int, logger *slog.Logger) error {
	var firstErr error
	received := 0

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-done:
		received++
		if err != nil && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
	}
	stop()

	for ; received < workers; received++ {
		err := <-done
		if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// seedPeers loads the bootstrap peer list into the peer table.
func seedPeers(ctx context.Context, cfg *config.Config, peers *atlas.PeerStore, logger *slog.Logger) error {
	if cfg.Atlas.SeedsFile == "" {
		return nil
	}
	seeds, err := config.LoadSeeds(cfg.Atlas.SeedsFile)
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		if err := peers.Add(ctx, seed.Address, 0); err != nil {
			logger.Warn("skipping seed peer", "address", seed.Address, "error", err)
		}
	}
	logger.Info("seed peers loaded", "count", len(seeds))
	return nil
}

// openSource picks the block source: a journal file when configured,
// otherwise the chain daemon's HTTP API.
func openSource(cfg *config.Config, logger *slog.Logger) (chainio.Source, error) {
	if cfg.Chain.JournalPath != "" {
		return chainio.OpenJournal(cfg.Chain.JournalPath)
	}
	return chainio.NewHTTPSource(chainio.HTTPSourceConfig{
		BaseURL:      cfg.Chain.SourceURL,
		PollInterval: cfg.Chain.PollInterval,
		Logger:       logger,
	})
}

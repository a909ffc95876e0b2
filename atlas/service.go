// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/clock"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
)

// ErrUnwanted is returned by AddZonefile for content whose hash no
// current name record references.
var ErrUnwanted = errors.New("atlas: zonefile hash is not wanted")

// zonefilesPerRequest caps how many bodies a single peer request asks
// for. At the 40KB zonefile cap this bounds a response near 2MB.
const zonefilesPerRequest = 50

// pagesPerRequest caps how many inventory pages one request returns.
const pagesPerRequest = 16

// Config holds the parameters for the replication service.
type Config struct {
	// DB is the name database; its zonefile hashes are the want-list.
	DB *nameset.DB

	// Store holds zonefile bodies.
	Store *storage.Store

	// Peers is the persistent peer table.
	Peers *PeerStore

	// PublicAddress is this node's own host:port, advertised to peers
	// and filtered from discovery. Empty for non-advertising nodes.
	PublicAddress string

	// MaxNeighbors is how many peers each crawl and push round
	// touches.
	MaxNeighbors int

	// CrawlInterval and PushInterval pace the two workers.
	CrawlInterval time.Duration
	PushInterval  time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Client defaults to NewClient with the standard timeout.
	Client *Client

	Logger *slog.Logger
}

// Service replicates zonefiles: it serves inventory and bodies to
// peers (through the node's HTTP API) and runs the crawler and pusher
// workers.
type Service struct {
	db     *nameset.DB
	store  *storage.Store
	peers  *PeerStore
	client *Client
	clock  clock.Clock
	logger *slog.Logger

	publicAddress string
	maxNeighbors  int
	crawlInterval time.Duration
	pushInterval  time.Duration

	mu  sync.RWMutex
	inv *Inventory

	// fresh queues newly stored hashes for the pusher.
	freshMu sync.Mutex
	fresh   []hashing.ZonefileHash
}

// NewService assembles the replication service. DB, Store, and Peers
// are required.
func NewService(cfg Config) (*Service, error) {
	if cfg.DB == nil || cfg.Store == nil || cfg.Peers == nil {
		return nil, fmt.Errorf("atlas: DB, Store, and Peers are required")
	}

	svc := &Service{
		db:            cfg.DB,
		store:         cfg.Store,
		peers:         cfg.Peers,
		client:        cfg.Client,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		publicAddress: cfg.PublicAddress,
		maxNeighbors:  cfg.MaxNeighbors,
		crawlInterval: cfg.CrawlInterval,
		pushInterval:  cfg.PushInterval,
		inv:           NewInventory(nil, nil),
	}
	if svc.client == nil {
		svc.client = NewClient(0)
	}
	if svc.clock == nil {
		svc.clock = clock.Real()
	}
	if svc.logger == nil {
		svc.logger = slog.New(slog.DiscardHandler)
	}
	if svc.maxNeighbors <= 0 {
		svc.maxNeighbors = 16
	}
	if svc.crawlInterval <= 0 {
		svc.crawlInterval = time.Minute
	}
	if svc.pushInterval <= 0 {
		svc.pushInterval = 30 * time.Second
	}
	return svc, nil
}

// RefreshInventory rebuilds the want-list from the name database's
// zonefile index and re-marks have-bits from the store. The index is
// append-only, so positions from earlier refreshes never move. Called
// after each processed block and at crawl rounds.
func (s *Service) RefreshInventory(ctx context.Context) error {
	entries, err := s.db.ZonefileIndex(ctx, 0)
	if err != nil {
		return err
	}
	wantList := make([]hashing.ZonefileHash, len(entries))
	for i, entry := range entries {
		wantList[i] = entry.ZonefileHash
	}
	inv := NewInventory(wantList, s.store.Has)

	s.mu.Lock()
	s.inv = inv
	s.mu.Unlock()
	return nil
}

// Inventory returns the current inventory snapshot.
func (s *Service) Inventory() *Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv
}

// HandlePing answers a peer's ping with this node's chain view.
func (s *Service) HandlePing(ctx context.Context) (*PingResponse, error) {
	height, ch, err := s.db.Tip(ctx)
	if err != nil && !errors.Is(err, nameset.ErrNotFound) {
		return nil, err
	}
	return &PingResponse{
		Network:       string(s.db.Params().Network),
		TipHeight:     height,
		ConsensusHash: ch.String(),
		PublicAddress: s.publicAddress,
	}, nil
}

// HandleInventory answers a peer's inventory page request: up to count
// pages starting at page start.
func (s *Service) HandleInventory(start, count int) *InventoryResponse {
	inv := s.Inventory()
	if start < 0 {
		start = 0
	}
	if count <= 0 || count > pagesPerRequest {
		count = pagesPerRequest
	}

	resp := &InventoryResponse{Start: start, PageCount: inv.PageCount()}
	for page := start; page < start+count && page < resp.PageCount; page++ {
		resp.Pages = append(resp.Pages, inv.Page(page))
	}
	return resp
}

// HandleZonefiles answers a peer's zonefile body request. Hashes not
// on disk are silently omitted.
func (s *Service) HandleZonefiles(req ZonefileRequest) (*ZonefileResponse, error) {
	resp := &ZonefileResponse{Zonefiles: make(map[string][]byte)}
	for _, raw := range req.Hashes {
		if len(resp.Zonefiles) >= zonefilesPerRequest {
			break
		}
		hash, err := hashing.ParseZonefileHash(raw)
		if err != nil {
			continue
		}
		body, err := s.store.Get(hash)
		if err != nil {
			continue
		}
		compressed, err := compressZonefile(body)
		if err != nil {
			return nil, err
		}
		resp.Zonefiles[raw] = compressed
	}
	return resp, nil
}

// HandlePeers answers a peer discovery request with healthy
// neighbors.
func (s *Service) HandlePeers(ctx context.Context) (*PeersResponse, error) {
	neighbors, err := s.peers.Neighbors(ctx, s.maxNeighbors)
	if err != nil {
		return nil, err
	}
	resp := &PeersResponse{}
	for _, peer := range neighbors {
		resp.Peers = append(resp.Peers, peer.Address)
	}
	return resp, nil
}

// AddZonefile ingests a zonefile body from any source (peer push,
// local RPC, crawl). The body must hash to a wanted zonefile hash.
func (s *Service) AddZonefile(body []byte) (hashing.ZonefileHash, error) {
	hash := hashing.HashZonefile(body)

	inv := s.Inventory()
	if !inv.Wants(hash) {
		if inv.Has(hash) {
			return hash, nil
		}
		return hash, ErrUnwanted
	}

	if _, err := s.store.Put(body); err != nil {
		return hash, err
	}
	inv.MarkHave(hash)

	s.freshMu.Lock()
	s.fresh = append(s.fresh, hash)
	s.freshMu.Unlock()

	s.logger.Debug("zonefile stored", "hash", hash.String(), "size", len(body))
	return hash, nil
}

// Run drives the crawler and pusher until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	crawl := s.clock.NewTicker(s.crawlInterval)
	defer crawl.Stop()
	push := s.clock.NewTicker(s.pushInterval)
	defer push.Stop()

	s.logger.Info("atlas service started",
		"crawl_interval", s.crawlInterval, "push_interval", s.pushInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-crawl.C:
			if err := s.crawlRound(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("crawl round failed", "error", err)
			}
		case <-push.C:
			s.pushRound(ctx)
		}
	}
}

// crawlRound refreshes the inventory, then pulls missing zonefiles
// from a few healthy peers and exchanges peer lists with them.
func (s *Service) crawlRound(ctx context.Context) error {
	if err := s.RefreshInventory(ctx); err != nil {
		return err
	}
	if _, err := s.peers.Prune(ctx); err != nil {
		return err
	}

	inv := s.Inventory()
	neighbors, err := s.peers.Neighbors(ctx, s.maxNeighbors)
	if err != nil {
		return err
	}

	for _, peer := range neighbors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.crawlPeer(ctx, peer.Address, inv)
	}
	return nil
}

// crawlPeer pulls one peer's inventory and any missing bodies, then
// learns its neighbors.
func (s *Service) crawlPeer(ctx context.Context, peer string, inv *Inventory) {
	now := s.clock.Now().Unix()

	fetched := 0
	ourPages := inv.PageCount()
	for page := 0; page < ourPages; {
		resp, err := s.client.Inventory(ctx, peer, page, pagesPerRequest)
		if err != nil {
			s.peers.Observe(ctx, peer, false, now)
			s.logger.Debug("peer inventory fetch failed", "peer", peer, "error", err)
			return
		}
		if len(resp.Pages) == 0 {
			break
		}

		for i, bits := range resp.Pages {
			wanted := inv.MissingOnPage(page+i, bits)
			for start := 0; start < len(wanted); start += zonefilesPerRequest {
				end := min(start+zonefilesPerRequest, len(wanted))
				batch := make([]string, 0, end-start)
				for _, hash := range wanted[start:end] {
					batch = append(batch, hash.String())
				}

				bodies, err := s.client.Zonefiles(ctx, peer, batch)
				if err != nil {
					s.peers.Observe(ctx, peer, false, now)
					return
				}
				for _, compressed := range bodies.Zonefiles {
					body, err := decompressZonefile(compressed, storage.MaxZonefileSize)
					if err != nil {
						continue
					}
					if _, err := s.AddZonefile(body); err == nil {
						fetched++
					}
				}
			}
		}
		page += len(resp.Pages)
	}

	s.peers.Observe(ctx, peer, true, now)
	if fetched > 0 {
		s.logger.Info("zonefiles fetched", "peer", peer, "count", fetched)
	}

	discovered, err := s.client.Peers(ctx, peer)
	if err != nil {
		return
	}
	for _, address := range discovered.Peers {
		if address == s.publicAddress || address == peer {
			continue
		}
		s.adoptPeer(ctx, address, now)
	}
}

// adoptPeer adds a discovered address to the peer table, but only
// after a successful ping on the same network. Dead or foreign
// addresses gossiped by peers never enter the table.
func (s *Service) adoptPeer(ctx context.Context, address string, now int64) {
	pong, err := s.client.Ping(ctx, address)
	if err != nil {
		s.logger.Debug("discovered peer not adopted", "address", address, "error", err)
		return
	}
	if pong.Network != string(s.db.Params().Network) {
		s.logger.Debug("discovered peer on foreign network",
			"address", address, "network", pong.Network)
		return
	}
	if err := s.peers.Add(ctx, address, now); err != nil {
		s.logger.Debug("discovered peer rejected", "address", address, "error", err)
	}
}

// pushRound offers freshly stored zonefiles to healthy neighbors.
func (s *Service) pushRound(ctx context.Context) {
	s.freshMu.Lock()
	pending := s.fresh
	s.fresh = nil
	s.freshMu.Unlock()
	if len(pending) == 0 {
		return
	}

	neighbors, err := s.peers.Neighbors(ctx, s.maxNeighbors)
	if err != nil {
		s.logger.Warn("push round failed", "error", err)
		return
	}

	now := s.clock.Now().Unix()
	for _, hash := range pending {
		body, err := s.store.Get(hash)
		if err != nil {
			continue
		}
		for _, peer := range neighbors {
			if ctx.Err() != nil {
				return
			}
			if err := s.client.PushZonefile(ctx, peer.Address, body); err != nil {
				s.peers.Observe(ctx, peer.Address, false, now)
				continue
			}
			s.peers.Observe(ctx, peer.Address, true, now)
		}
	}
}

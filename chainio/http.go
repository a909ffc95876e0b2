// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package chainio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/clock"
)

// HTTPSource polls a chain daemon over HTTP. Expected endpoints:
//
//	GET /height          → {"height": N}
//	GET /block/{height}  → Block JSON
//
// The daemon serves final blocks only; a 404 for a height means the
// chain has not reached it yet.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	clock   clock.Clock
	logger  *slog.Logger

	// pollInterval is how long to wait between height checks while
	// blocked in WaitForBlock.
	pollInterval time.Duration
}

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	// BaseURL is the chain daemon's HTTP endpoint. Required.
	BaseURL string

	// PollInterval is the wait between height checks. Defaults to
	// 30 seconds.
	PollInterval time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// NewHTTPSource creates a polling block source.
func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chainio: BaseURL is required")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &HTTPSource{
		baseURL:      cfg.BaseURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		clock:        clk,
		logger:       logger,
		pollInterval: interval,
	}, nil
}

// CurrentHeight returns the chain daemon's best height.
func (s *HTTPSource) CurrentHeight(ctx context.Context) (uint64, error) {
	var response struct {
		Height uint64 `json:"height"`
	}
	if err := s.getJSON(ctx, s.baseURL+"/height", &response); err != nil {
		return 0, fmt.Errorf("chainio: fetching height: %w", err)
	}
	return response.Height, nil
}

// WaitForBlock polls until the chain reaches the requested height,
// then fetches the block.
func (s *HTTPSource) WaitForBlock(ctx context.Context, height uint64) (Block, error) {
	for {
		current, err := s.CurrentHeight(ctx)
		if err != nil {
			// Transient daemon trouble; log and keep polling.
			s.logger.Warn("chain height check failed", "error", err)
		} else if current >= height {
			break
		}

		select {
		case <-ctx.Done():
			return Block{}, ctx.Err()
		case <-s.clock.After(s.pollInterval):
		}
	}

	var block Block
	url := fmt.Sprintf("%s/block/%d", s.baseURL, height)
	if err := s.getJSON(ctx, url, &block); err != nil {
		return Block{}, fmt.Errorf("chainio: fetching block %d: %w", height, err)
	}
	if block.Height != height {
		return Block{}, fmt.Errorf("chainio: requested block %d, source returned %d", height, block.Height)
	}
	return block, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, url string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, response.StatusCode, body)
	}

	return json.NewDecoder(response.Body).Decode(target)
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/codec"
)

const contentTypeCBOR = "application/cbor"

// Client speaks the atlas protocol to remote peers over their HTTP
// APIs.
type Client struct {
	http *http.Client
}

// NewClient returns a Client with a bounded per-request timeout.
// Zonefile batches are small, so a short timeout keeps a dead peer
// from stalling a crawl round.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Ping fetches a peer's chain view.
func (c *Client) Ping(ctx context.Context, peer string) (*PingResponse, error) {
	var resp PingResponse
	if err := c.get(ctx, peer, "/v1/atlas/ping", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Inventory fetches a run of inventory pages from a peer.
func (c *Client) Inventory(ctx context.Context, peer string, start, count int) (*InventoryResponse, error) {
	var resp InventoryResponse
	path := fmt.Sprintf("/v1/atlas/inventory?start=%d&count=%d", start, count)
	if err := c.get(ctx, peer, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Zonefiles fetches zonefile bodies by hash. The returned map values
// are still lz4-compressed.
func (c *Client) Zonefiles(ctx context.Context, peer string, hashes []string) (*ZonefileResponse, error) {
	var resp ZonefileResponse
	if err := c.post(ctx, peer, "/v1/atlas/zonefiles", ZonefileRequest{Hashes: hashes}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Peers fetches a peer's neighbor list.
func (c *Client) Peers(ctx context.Context, peer string) (*PeersResponse, error) {
	var resp PeersResponse
	if err := c.get(ctx, peer, "/v1/atlas/peers", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PushZonefile offers a zonefile body to a peer.
func (c *Client) PushZonefile(ctx context.Context, peer string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"http://"+peer+"/v1/atlas/zonefiles/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("atlas: building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("atlas: pushing zonefile to %s: %w", peer, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 409 means the peer does not want this hash; that is not a peer
	// failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("atlas: peer %s rejected zonefile: %s", peer, resp.Status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, peer, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+peer+path, nil)
	if err != nil {
		return fmt.Errorf("atlas: building request: %w", err)
	}
	req.Header.Set("Accept", contentTypeCBOR)
	return c.do(req, peer, out)
}

func (c *Client) post(ctx context.Context, peer, path string, in, out any) error {
	encoded, err := codec.Marshal(in)
	if err != nil {
		return fmt.Errorf("atlas: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+peer+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("atlas: building request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeCBOR)
	req.Header.Set("Accept", contentTypeCBOR)
	return c.do(req, peer, out)
}

func (c *Client) do(req *http.Request, peer string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("atlas: requesting %s from %s: %w", req.URL.Path, peer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("atlas: %s from %s: %s", req.URL.Path, peer, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("atlas: reading response from %s: %w", peer, err)
	}
	if err := codec.Unmarshal(body, out); err != nil {
		return fmt.Errorf("atlas: decoding response from %s: %w", peer, err)
	}
	return nil
}

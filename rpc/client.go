// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
	"github.com/devcode1981/stacks-blockchain/subdomains"
)

// ErrNotFound is returned by client queries when the node has no
// record for the request.
var ErrNotFound = errors.New("rpc: not found")

// ErrUnwanted is returned by PutZonefile when the node's name state
// does not reference the zonefile's hash.
var ErrUnwanted = errors.New("rpc: zonefile not wanted")

// Client is a typed client for a node's HTTP API. It also implements
// snv.ChainReader, so a verifier can audit a remote node directly.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the node at baseURL, e.g.
// "http://127.0.0.1:6264". A nil httpClient gets a 15 second timeout
// default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Info returns the node's identity and chain tip.
func (c *Client) Info(ctx context.Context) (*InfoResponse, error) {
	var resp InfoResponse
	if err := c.getJSON(ctx, "/v1/info", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetName returns the current record for a fully qualified name.
func (c *Client) GetName(ctx context.Context, fqn string) (*nameset.NameRecord, error) {
	var record nameset.NameRecord
	if err := c.getJSON(ctx, "/v1/names/"+url.PathEscape(fqn), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// NameHistory returns a name's accepted operations, oldest first.
func (c *Client) NameHistory(ctx context.Context, fqn string) ([]nameset.HistoryEntry, error) {
	var history []nameset.HistoryEntry
	if err := c.getJSON(ctx, "/v1/names/"+url.PathEscape(fqn)+"/history", &history); err != nil {
		return nil, err
	}
	return history, nil
}

// NameZonefile returns a name's current zonefile content.
func (c *Client) NameZonefile(ctx context.Context, fqn string) ([]byte, error) {
	return c.getRaw(ctx, "/v1/names/"+url.PathEscape(fqn)+"/zonefile")
}

// NamesOwnedBy returns the names held by an address.
func (c *Client) NamesOwnedBy(ctx context.Context, address string) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, "/v1/addresses/"+url.PathEscape(address)+"/names", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Namespaces returns the launched namespace identifiers.
func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.getJSON(ctx, "/v1/namespaces", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetNamespace returns a namespace's record.
func (c *Client) GetNamespace(ctx context.Context, id string) (*nameset.NamespaceRecord, error) {
	var record nameset.NamespaceRecord
	if err := c.getJSON(ctx, "/v1/namespaces/"+url.PathEscape(id), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// NamespaceNames returns one page of a namespace's names.
func (c *Client) NamespaceNames(ctx context.Context, id string, page int) ([]string, error) {
	var names []string
	path := "/v1/namespaces/" + url.PathEscape(id) + "/names?page=" + strconv.Itoa(page)
	if err := c.getJSON(ctx, path, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// NamePrice quotes registration of a name.
func (c *Client) NamePrice(ctx context.Context, fqn string) (uint64, error) {
	var resp PriceResponse
	if err := c.getJSON(ctx, "/v1/prices/names/"+url.PathEscape(fqn), &resp); err != nil {
		return 0, err
	}
	return resp.Units, nil
}

// NamespacePrice quotes creation of a namespace.
func (c *Client) NamespacePrice(ctx context.Context, id string) (uint64, error) {
	var resp PriceResponse
	if err := c.getJSON(ctx, "/v1/prices/namespaces/"+url.PathEscape(id), &resp); err != nil {
		return 0, err
	}
	return resp.Units, nil
}

// ConsensusAt returns the consensus hash the node indexed at height.
// The value is the node's claim; verify it with an snv.Verifier before
// trusting it.
func (c *Client) ConsensusAt(ctx context.Context, height uint64) (hashing.ConsensusHash, error) {
	var resp ConsensusResponse
	path := fmt.Sprintf("/v1/blockchains/consensus/%d", height)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return hashing.ConsensusHash{}, err
	}
	return hashing.ParseConsensusHash(resp.ConsensusHash)
}

// BlockMaterial implements snv.ChainReader over the wire.
func (c *Client) BlockMaterial(ctx context.Context, height uint64) ([32]byte, []hashing.ConsensusHash, error) {
	var resp MaterialResponse
	path := fmt.Sprintf("/v1/blockchains/consensus/%d/material", height)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return [32]byte{}, nil, err
	}

	raw, err := hex.DecodeString(resp.OpsDigest)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, nil, fmt.Errorf("rpc: block %d has malformed operations digest", height)
	}
	var digest [32]byte
	copy(digest[:], raw)

	priors := make([]hashing.ConsensusHash, 0, len(resp.BackPointers))
	for _, encoded := range resp.BackPointers {
		ch, err := hashing.ParseConsensusHash(encoded)
		if err != nil {
			return [32]byte{}, nil, fmt.Errorf("rpc: block %d back-pointer: %w", height, err)
		}
		priors = append(priors, ch)
	}
	return digest, priors, nil
}

// AcceptedOps implements snv.ChainReader over the wire.
func (c *Client) AcceptedOps(ctx context.Context, height uint64) ([]nameset.AcceptedOp, error) {
	var ops []nameset.AcceptedOp
	path := fmt.Sprintf("/v1/blockchains/ops/%d", height)
	if err := c.getJSON(ctx, path, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// GetSubdomain returns a subdomain's resolved state.
func (c *Client) GetSubdomain(ctx context.Context, fqn string) (*subdomains.Subdomain, error) {
	var sub subdomains.Subdomain
	if err := c.getJSON(ctx, "/v1/subdomains/"+url.PathEscape(fqn), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subdomains returns the subdomain names under a domain.
func (c *Client) Subdomains(ctx context.Context, domain string) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, "/v1/domains/"+url.PathEscape(domain)+"/subdomains", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// PutZonefile submits zonefile content to the node. The node accepts
// it only if its name state references the content's hash.
func (c *Client) PutZonefile(ctx context.Context, body []byte) (hashing.ZonefileHash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/zonefiles", bytes.NewReader(body))
	if err != nil {
		return hashing.ZonefileHash{}, fmt.Errorf("rpc: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return hashing.ZonefileHash{}, fmt.Errorf("rpc: submitting zonefile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return hashing.ZonefileHash{}, ErrUnwanted
	default:
		return hashing.ZonefileHash{}, fmt.Errorf("rpc: submitting zonefile: %s", readError(resp.Body, resp.StatusCode))
	}

	var put PutZonefileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&put); err != nil {
		return hashing.ZonefileHash{}, fmt.Errorf("rpc: decoding response: %w", err)
	}
	return hashing.ParseZonefileHash(put.Hash)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("rpc: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("rpc: GET %s: %w", path, ErrNotFound)
	default:
		return nil, fmt.Errorf("rpc: GET %s: %s", path, readError(resp.Body, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(storage.MaxZonefileSize)*16))
	if err != nil {
		return nil, fmt.Errorf("rpc: reading %s: %w", path, err)
	}
	return body, nil
}

// readError extracts the server's error message, falling back to the
// status code.
func readError(body io.Reader, status int) string {
	var apiErr errorResponse
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return http.StatusText(status)
}

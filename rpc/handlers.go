// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devcode1981/stacks-blockchain/atlas"
	"github.com/devcode1981/stacks-blockchain/lib/codec"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/lib/scripts"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
	"github.com/devcode1981/stacks-blockchain/subdomains"
)

// api holds the handler dependencies.
type api struct {
	db         *nameset.DB
	zonefiles  *storage.Store
	atlas      *atlas.Service
	subdomains *subdomains.Store
	version    string
	logger     *slog.Logger
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/info", a.handleInfo)
	mux.HandleFunc("GET /v1/names/{fqn}", a.handleGetName)
	mux.HandleFunc("GET /v1/names/{fqn}/history", a.handleNameHistory)
	mux.HandleFunc("GET /v1/names/{fqn}/zonefile", a.handleNameZonefile)
	mux.HandleFunc("GET /v1/addresses/{address}/names", a.handleAddressNames)
	mux.HandleFunc("GET /v1/namespaces", a.handleNamespaces)
	mux.HandleFunc("GET /v1/namespaces/{id}", a.handleGetNamespace)
	mux.HandleFunc("GET /v1/namespaces/{id}/names", a.handleNamespaceNames)
	mux.HandleFunc("GET /v1/prices/names/{fqn}", a.handleNamePrice)
	mux.HandleFunc("GET /v1/prices/namespaces/{id}", a.handleNamespacePrice)
	mux.HandleFunc("GET /v1/blockchains/consensus/{height}", a.handleConsensusAt)
	mux.HandleFunc("GET /v1/blockchains/consensus/{height}/material", a.handleBlockMaterial)
	mux.HandleFunc("GET /v1/blockchains/ops/{height}", a.handleAcceptedOps)
	mux.HandleFunc("GET /v1/subdomains/{fqn}", a.handleGetSubdomain)
	mux.HandleFunc("GET /v1/domains/{fqn}/subdomains", a.handleDomainSubdomains)
	mux.HandleFunc("POST /v1/zonefiles", a.handlePutZonefile)

	if a.atlas != nil {
		mux.HandleFunc("GET /v1/atlas/ping", a.handleAtlasPing)
		mux.HandleFunc("GET /v1/atlas/inventory", a.handleAtlasInventory)
		mux.HandleFunc("POST /v1/atlas/zonefiles", a.handleAtlasZonefiles)
		mux.HandleFunc("POST /v1/atlas/zonefiles/push", a.handlePutZonefile)
		mux.HandleFunc("GET /v1/atlas/peers", a.handleAtlasPeers)
	}

	return mux
}

// InfoResponse is the /v1/info body.
type InfoResponse struct {
	Network       string `json:"network"`
	Version       string `json:"version"`
	TipHeight     uint64 `json:"tip_height"`
	ConsensusHash string `json:"consensus_hash"`
	FirstBlock    uint64 `json:"first_block"`
}

// PriceResponse is a price quote body.
type PriceResponse struct {
	Units uint64 `json:"units"`
}

// ConsensusResponse is the /v1/blockchains/consensus/{height} body.
type ConsensusResponse struct {
	Height        uint64 `json:"height"`
	ConsensusHash string `json:"consensus_hash"`
}

// MaterialResponse is the light-client verification material for one
// block. BackPointers are the prior consensus hashes at the geometric
// back-pointer heights, nearest first.
type MaterialResponse struct {
	Height       uint64   `json:"height"`
	OpsDigest    string   `json:"ops_digest"`
	BackPointers []string `json:"back_pointers"`
}

// PutZonefileResponse is the POST /v1/zonefiles body.
type PutZonefileResponse struct {
	Hash string `json:"hash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) handleInfo(w http.ResponseWriter, r *http.Request) {
	height, ch, err := a.db.Tip(r.Context())
	if err != nil && !errors.Is(err, nameset.ErrNotFound) {
		a.fail(w, err)
		return
	}
	params := a.db.Params()
	writeJSON(w, http.StatusOK, InfoResponse{
		Network:       string(params.Network),
		Version:       a.version,
		TipHeight:     height,
		ConsensusHash: ch.String(),
		FirstBlock:    params.FirstBlock,
	})
}

func (a *api) handleGetName(w http.ResponseWriter, r *http.Request) {
	record, err := a.db.GetName(r.Context(), r.PathValue("fqn"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *api) handleNameHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.db.NameHistory(r.Context(), r.PathValue("fqn"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *api) handleNameZonefile(w http.ResponseWriter, r *http.Request) {
	record, err := a.db.GetName(r.Context(), r.PathValue("fqn"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if record.ZonefileHash == "" {
		a.fail(w, nameset.ErrNotFound)
		return
	}
	hash, err := hashing.ParseZonefileHash(record.ZonefileHash)
	if err != nil {
		a.fail(w, err)
		return
	}
	body, err := a.zonefiles.Get(hash)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(body)
}

func (a *api) handleAddressNames(w http.ResponseWriter, r *http.Request) {
	names, err := a.db.NamesOwnedBy(r.Context(), r.PathValue("address"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(names))
}

func (a *api) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	ids, err := a.db.ListNamespaces(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(ids))
}

func (a *api) handleGetNamespace(w http.ResponseWriter, r *http.Request) {
	record, err := a.db.GetNamespace(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *api) handleNamespaceNames(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	names, err := a.db.NamesInNamespace(r.Context(), r.PathValue("id"), page, perPage)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(names))
}

func (a *api) handleNamePrice(w http.ResponseWriter, r *http.Request) {
	fqn := r.PathValue("fqn")
	if err := scripts.ValidateFQN(fqn); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	price, err := a.db.NamePrice(r.Context(), fqn)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PriceResponse{Units: price})
}

func (a *api) handleNamespacePrice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := scripts.ValidateNamespaceID(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, PriceResponse{Units: scripts.NamespacePrice(id)})
}

func (a *api) handleConsensusAt(w http.ResponseWriter, r *http.Request) {
	height, err := parseHeight(r.PathValue("height"))
	if err != nil {
		a.fail(w, err)
		return
	}
	ch, err := a.db.GetConsensusAt(r.Context(), height)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConsensusResponse{Height: height, ConsensusHash: ch.String()})
}

func (a *api) handleBlockMaterial(w http.ResponseWriter, r *http.Request) {
	height, err := parseHeight(r.PathValue("height"))
	if err != nil {
		a.fail(w, err)
		return
	}
	digest, priors, err := a.db.BlockMaterial(r.Context(), height)
	if err != nil {
		a.fail(w, err)
		return
	}
	resp := MaterialResponse{
		Height:       height,
		OpsDigest:    hex.EncodeToString(digest[:]),
		BackPointers: make([]string, 0, len(priors)),
	}
	for _, ch := range priors {
		resp.BackPointers = append(resp.BackPointers, ch.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleAcceptedOps(w http.ResponseWriter, r *http.Request) {
	height, err := parseHeight(r.PathValue("height"))
	if err != nil {
		a.fail(w, err)
		return
	}
	ops, err := a.db.AcceptedOps(r.Context(), height)
	if err != nil {
		a.fail(w, err)
		return
	}
	if ops == nil {
		ops = []nameset.AcceptedOp{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (a *api) handleGetSubdomain(w http.ResponseWriter, r *http.Request) {
	if a.subdomains == nil {
		http.NotFound(w, r)
		return
	}
	sub, err := a.subdomains.Get(r.Context(), r.PathValue("fqn"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *api) handleDomainSubdomains(w http.ResponseWriter, r *http.Request) {
	if a.subdomains == nil {
		http.NotFound(w, r)
		return
	}
	names, err := a.subdomains.ListForDomain(r.Context(), r.PathValue("fqn"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(names))
}

func (a *api) handlePutZonefile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, storage.MaxZonefileSize+1))
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(body) > storage.MaxZonefileSize {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: storage.ErrTooLarge.Error()})
		return
	}

	if a.atlas == nil {
		http.NotFound(w, r)
		return
	}
	hash, err := a.atlas.AddZonefile(body)
	if errors.Is(err, atlas.ErrUnwanted) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PutZonefileResponse{Hash: hash.String()})
}

func (a *api) handleAtlasPing(w http.ResponseWriter, r *http.Request) {
	resp, err := a.atlas.HandlePing(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeCBOR(w, resp)
}

func (a *api) handleAtlasInventory(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	writeCBOR(w, a.atlas.HandleInventory(start, count))
}

func (a *api) handleAtlasZonefiles(w http.ResponseWriter, r *http.Request) {
	var req atlas.ZonefileRequest
	if !readCBOR(w, r, &req) {
		return
	}
	resp, err := a.atlas.HandleZonefiles(req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeCBOR(w, resp)
}

func (a *api) handleAtlasPeers(w http.ResponseWriter, r *http.Request) {
	resp, err := a.atlas.HandlePeers(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeCBOR(w, resp)
}

// fail maps domain errors to status codes: not-found to 404, bad
// input to 400, everything else to 500.
func (a *api) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nameset.ErrNotFound),
		errors.Is(err, subdomains.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		a.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeCBOR(w http.ResponseWriter, v any) {
	encoded, err := codec.Marshal(v)
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.Write(encoded)
}

func readCBOR(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return false
	}
	if err := codec.Unmarshal(body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed cbor"})
		return false
	}
	return true
}

// errBadRequest marks request parsing failures so fail maps them to
// 400 instead of 500.
var errBadRequest = errors.New("rpc: bad request")

func parseHeight(raw string) (uint64, error) {
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: height %q", errBadRequest, raw)
	}
	return height, nil
}

// orEmpty keeps list endpoints returning [] instead of null.
func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc is the node's HTTP API: name and namespace queries,
// price quotes, consensus proofs for light clients, subdomain
// resolution, and the zonefile replication endpoints.
//
// Query endpoints speak JSON. The replication endpoints under
// /v1/atlas/ speak CBOR, matching the peer protocol.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/devcode1981/stacks-blockchain/atlas"
	"github.com/devcode1981/stacks-blockchain/lib/storage"
	"github.com/devcode1981/stacks-blockchain/nameset"
	"github.com/devcode1981/stacks-blockchain/subdomains"
)

// Config configures a Server.
type Config struct {
	// Address is the TCP listen address. Required.
	Address string

	// DB is the name database. Required.
	DB *nameset.DB

	// Zonefiles is the zonefile store. Required.
	Zonefiles *storage.Store

	// Atlas serves the replication endpoints and ingests pushed
	// zonefiles. Optional; without it the atlas endpoints 404.
	Atlas *atlas.Service

	// Subdomains serves subdomain queries. Optional.
	Subdomains *subdomains.Store

	// Version is reported by /v1/info.
	Version string

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Server is the node's HTTP API server. Serve blocks until the
// context is cancelled and active requests drain.
type Server struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed after the listener is bound and the server is
	// accepting connections.
	ready chan struct{}

	// addr is the resolved listen address, available after ready is
	// closed.
	addr net.Addr
}

// NewServer creates an API server. Call Serve to start it.
func NewServer(cfg Config) *Server {
	if cfg.Address == "" {
		panic("rpc.Server: Address is required")
	}
	if cfg.DB == nil {
		panic("rpc.Server: DB is required")
	}
	if cfg.Zonefiles == nil {
		panic("rpc.Server: Zonefiles is required")
	}
	if cfg.Logger == nil {
		panic("rpc.Server: Logger is required")
	}

	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	api := &api{
		db:         cfg.DB,
		zonefiles:  cfg.Zonefiles,
		atlas:      cfg.Atlas,
		subdomains: cfg.Subdomains,
		version:    cfg.Version,
		logger:     cfg.Logger,
	}

	return &Server{
		address:         cfg.Address,
		handler:         withRequestLog(cfg.Logger, api.routes()),
		logger:          cfg.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// Ready returns a channel that is closed once the server is bound and
// accepting connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the resolved listen address. Only valid after Ready()
// is closed; useful when the configured address uses port 0.
func (s *Server) Addr() net.Addr { return s.addr }

// Serve accepts connections until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("rpc: listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("rpc server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("rpc server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("rpc server shutdown error", "error", err)
		return fmt.Errorf("rpc: shutdown: %w", err)
	}

	s.logger.Info("rpc server stopped")
	return nil
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start))
	})
}

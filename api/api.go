// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api is the REST surface of a sweepwars node
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const DefaultListenAddress = ":3000"

type Config struct {
	Backend       Backend
	Logger        *slog.Logger
	ListenAddress string
}

// Server is the REST API server
type Server struct {
	config     Config
	logger     *slog.Logger
	backend    Backend
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config:  cfg,
		logger:  cfg.Logger.With("component", "api"),
		backend: cfg.Backend,
	}
}

// Router returns the request router
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v0 := r.PathPrefix("/api/v0").Subrouter()
	v0.HandleFunc("/epoch", s.handleEpoch).Methods(http.MethodGet)
	v0.HandleFunc("/epoch/advance", s.handleAdvanceEpoch).Methods(http.MethodPost)
	v0.HandleFunc("/subjects", s.handleSubjects).Methods(http.MethodGet)
	v0.HandleFunc("/subjects/{subject}/power", s.handleSubjectPower).Methods(http.MethodGet)
	v0.HandleFunc("/accounts/{account}", s.handleAccount).Methods(http.MethodGet)
	v0.HandleFunc("/votes", s.handleCast).Methods(http.MethodPost)
	v0.HandleFunc("/votes/revoke", s.handleRevoke).Methods(http.MethodPost)
	v0.HandleFunc("/snapshots/latest", s.handleLatestSnapshot).Methods(http.MethodGet)
	v0.HandleFunc("/snapshots/{epoch:[0-9]+}", s.handleSnapshot).Methods(http.MethodGet)
	v0.HandleFunc("/wars/current", s.handleCurrentWar).Methods(http.MethodGet)
	v0.HandleFunc("/wars/votes", s.handleWarVote).Methods(http.MethodPost)
	v0.HandleFunc("/wars/{index:[0-9]+}", s.handleWar).Methods(http.MethodGet)
	v0.HandleFunc("/staking/deposit", s.handleDeposit).Methods(http.MethodPost)
	v0.HandleFunc("/staking/withdraw", s.handleWithdraw).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "the requested resource does not exist")
	})
	return r
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	// Bind first so port conflicts are reported to the caller
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	s.httpServer = server
	s.listenAddr = ln.Addr()
	s.logger.Info("API listener started on " + ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listenAddr = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(
			"handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

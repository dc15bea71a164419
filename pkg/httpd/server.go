// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package httpd serves the node's REST interface for status inspection and local bundle submission.
package httpd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
	"github.com/dtn7/dtnd/pkg/peers"
)

const maxBundleSize int64 = 64 << 20

// BundleSender accepts locally submitted bundles, e.g., a routing.Core.
type BundleSender interface {
	SendBundle(data []byte) (string, error)
}

// PeerLister lists the currently known peers, e.g., a peers.Table.
type PeerLister interface {
	Peers() []peers.DtnPeer
}

// AgentLister lists the node's active agents, e.g., a cla.Manager.
type AgentLister interface {
	Agents() []cla.ConvergenceLayerAgent
}

// Config of a Server.
type Config struct {
	NodeId bpv7.EndpointID
	Sender BundleSender
	Peers  PeerLister
	Agents AgentLister
}

// Server is the REST interface.
type Server struct {
	config Config
	router *mux.Router

	mutex  sync.Mutex
	server *http.Server
}

// NewServer creates a Server and its routes. Start must be called for listening.
func NewServer(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/status/nodeid", s.handleNodeId).Methods(http.MethodGet)
	s.router.HandleFunc("/status/peers", s.handlePeers).Methods(http.MethodGet)
	s.router.HandleFunc("/status/clas", s.handleClas).Methods(http.MethodGet)
	s.router.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)

	return s
}

// ServeHTTP dispatches a request to the Server's routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listening on the address, e.g., "127.0.0.1:3000". Requests are served in the background.
func (s *Server) Start(address string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.server != nil {
		return fmt.Errorf("httpd is already started")
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(server *http.Server) {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("httpd failed")
		}
	}(s.server)

	log.WithField("address", ln.Addr()).Info("Started httpd")
	return nil
}

// Close the listening server, if started.
func (s *Server) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("httpd failed to write response")
	}
}

func (s *Server) handleNodeId(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, NodeIdResponse{NodeId: s.config.NodeId.String()})
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	resp := PeersResponse{Peers: s.config.Peers.Peers()}
	if resp.Peers == nil {
		resp.Peers = []peers.DtnPeer{}
	}

	writeJson(w, http.StatusOK, resp)
}

func (s *Server) handleClas(w http.ResponseWriter, _ *http.Request) {
	agents := s.config.Agents.Agents()

	resp := ClasResponse{
		Known:  cla.Agents(),
		Active: make([]ServiceResponse, len(agents)),
	}
	for i, agent := range agents {
		resp.Active[i] = ServiceResponse{Agent: agent.String(), Scheme: agent.Name(), Port: agent.Port()}
	}

	writeJson(w, http.StatusOK, resp)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBundleSize))
	if err != nil {
		writeJson(w, http.StatusBadRequest, SendResponse{Error: err.Error()})
		return
	} else if len(data) == 0 {
		writeJson(w, http.StatusBadRequest, SendResponse{Error: "empty bundle"})
		return
	}

	id, err := s.config.Sender.SendBundle(data)
	if err != nil {
		log.WithFields(log.Fields{
			"client": r.RemoteAddr,
			"error":  err,
		}).Warn("httpd failed to submit bundle")

		writeJson(w, http.StatusInternalServerError, SendResponse{Error: err.Error()})
		return
	}

	log.WithFields(log.Fields{
		"client": r.RemoteAddr,
		"bundle": id,
	}).Debug("httpd accepted bundle")

	writeJson(w, http.StatusAccepted, SendResponse{BundleId: id})
}

// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package httpcl implements a plain HTTP convergence layer, registered as "http".
//
// Each bundle is sent as the body of a POST request to the peer's /push endpoint. A 2xx status code acknowledges
// the bundle.
package httpcl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
)

const (
	// Name of this agent's scheme.
	Name = "http"

	// DefaultPort is used for listening and for destinations without a port.
	DefaultPort uint16 = 3000

	// PushPath is the endpoint accepting bundles.
	PushPath = "/push"

	maxBundleSize int64 = 64 << 20

	requestTimeout = 10 * time.Second
)

func init() {
	cla.Register(Name, func(port uint16) cla.ConvergenceLayerAgent { return NewAgent(port) })
}

// Agent is the HTTP ConvergenceLayerAgent.
type Agent struct {
	port uint16

	mutex   sync.Mutex
	server  *http.Server
	handler cla.BundleHandler
}

// NewAgent creates a new HTTP Agent listening on the given port after Setup. Zero selects the DefaultPort.
func NewAgent(port uint16) *Agent {
	if port == 0 {
		port = DefaultPort
	}

	return &Agent{port: port}
}

func (agent *Agent) Port() uint16 {
	return agent.port
}

func (agent *Agent) Name() string {
	return Name
}

func (agent *Agent) String() string {
	return fmt.Sprintf("%s:%d", Name, agent.port)
}

// Router creates the agent's mux.Router, serving POST requests on PushPath.
func (agent *Agent) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(PushPath, agent.handlePush).Methods(http.MethodPost)
	return router
}

// Setup starts the HTTP server on all interfaces.
func (agent *Agent) Setup(handler cla.BundleHandler) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.server != nil {
		return fmt.Errorf("%v is already set up", agent)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", agent.port))
	if err != nil {
		return err
	}

	agent.handler = handler
	agent.server = &http.Server{
		Handler:           agent.Router(),
		ReadHeaderTimeout: requestTimeout,
	}

	go func(server *http.Server) {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithFields(log.Fields{
				"cla":   agent,
				"error": err,
			}).Warn("HTTP server failed")
		}
	}(agent.server)

	log.WithField("cla", agent).Info("HTTP server started")
	return nil
}

func (agent *Agent) handlePush(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBundleSize))
	if err != nil {
		log.WithFields(log.Fields{
			"cla":   agent,
			"peer":  r.RemoteAddr,
			"error": err,
		}).Warn("HTTP server failed to read pushed bundle")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if len(data) == 0 {
		http.Error(w, "empty bundle", http.StatusBadRequest)
		return
	}

	agent.handler(cla.ReceivedBundle{
		Agent: Name,
		Peer:  r.RemoteAddr,
		Data:  data,
	})

	w.WriteHeader(http.StatusOK)
}

// Close the HTTP server, if it was set up.
func (agent *Agent) Close() error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := agent.server.Shutdown(ctx)
	agent.server = nil
	return err
}

// ScheduledSubmission POSTs each bundle to the destination's PushPath.
func (agent *Agent) ScheduledSubmission(dest string, ready [][]byte) bool {
	url := fmt.Sprintf("http://%s%s", cla.HostPort(dest, DefaultPort), PushPath)
	client := &http.Client{Timeout: requestTimeout}

	for i, data := range ready {
		resp, err := client.Post(url, "application/octet-stream", bytes.NewReader(data))
		if err != nil {
			log.WithFields(log.Fields{
				"cla":    Name,
				"url":    url,
				"bundle": i,
				"error":  err,
			}).Warn("HTTP client failed to push bundle")
			return false
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			log.WithFields(log.Fields{
				"cla":    Name,
				"url":    url,
				"bundle": i,
				"status": resp.Status,
			}).Warn("HTTP client's push was rejected")
			return false
		}
	}

	log.WithFields(log.Fields{
		"url":     url,
		"bundles": len(ready),
	}).Debug("HTTP client pushed bundles")
	return true
}

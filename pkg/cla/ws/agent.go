// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ws implements a WebSocket convergence layer.
//
// The dialer connects to the peer's /ws endpoint and sends each bundle as one binary message. Afterwards, it
// initiates the WebSocket closing handshake. The listener's close reply implies that all prior messages were read.
package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
)

const (
	// Name of this agent's scheme.
	Name = "ws"

	// DefaultPort is used for listening and for destinations without a port.
	DefaultPort uint16 = 16164

	// Path is the HTTP endpoint to be upgraded.
	Path = "/ws"

	maxBundleSize int64 = 64 << 20

	submissionTimeout = 10 * time.Second
)

func init() {
	cla.Register(Name, func(port uint16) cla.ConvergenceLayerAgent { return NewAgent(port) })
}

// Agent is the WebSocket ConvergenceLayerAgent.
type Agent struct {
	port uint16

	mutex    sync.Mutex
	server   *http.Server
	handler  cla.BundleHandler
	upgrader websocket.Upgrader
}

// NewAgent creates a new WebSocket Agent listening on the given port after Setup. Zero selects the DefaultPort.
func NewAgent(port uint16) *Agent {
	if port == 0 {
		port = DefaultPort
	}

	return &Agent{
		port:     port,
		upgrader: websocket.Upgrader{},
	}
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

// Setup starts the WebSocket listener on all interfaces.
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

	router := mux.NewRouter()
	router.Handle(Path, agent)

	agent.handler = handler
	agent.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: submissionTimeout,
	}

	go func(server *http.Server) {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithFields(log.Fields{
				"cla":   agent,
				"error": err,
			}).Warn("WebSocket server failed")
		}
	}(agent.server)

	log.WithField("cla", agent).Info("WebSocket listener started")
	return nil
}

// ServeHTTP upgrades a HTTP connection to a WebSocket connection and reads bundles until it is closed.
func (agent *Agent) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	conn, err := agent.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.WithField("cla", agent).WithError(err).Warn("Upgrading connection errored")
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxBundleSize)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.WithFields(log.Fields{
					"cla":   agent,
					"peer":  conn.RemoteAddr(),
					"error": err,
				}).Debug("WebSocket connection failed")
			}
			return
		}

		if mt != websocket.BinaryMessage {
			log.WithFields(log.Fields{
				"cla":  agent,
				"peer": conn.RemoteAddr(),
			}).Debug("WebSocket connection skips non-binary message")
			continue
		}

		agent.handler(cla.ReceivedBundle{
			Agent: Name,
			Peer:  conn.RemoteAddr().String(),
			Data:  data,
		})
	}
}

// Close the WebSocket listener, if it was set up.
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

// ScheduledSubmission sends all bundles over one WebSocket connection.
func (agent *Agent) ScheduledSubmission(dest string, ready [][]byte) bool {
	url := fmt.Sprintf("ws://%s%s", cla.HostPort(dest, DefaultPort), Path)

	ctx, cancel := context.WithTimeout(context.Background(), submissionTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		log.WithFields(log.Fields{
			"cla":   Name,
			"url":   url,
			"error": err,
		}).Warn("WebSocket client failed to dial")
		return false
	}
	defer func() { _ = conn.Close() }()

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	for i, data := range ready {
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			log.WithFields(log.Fields{
				"cla":    Name,
				"url":    url,
				"bundle": i,
				"error":  err,
			}).Warn("WebSocket client failed to send bundle")
			return false
		}
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		log.WithFields(log.Fields{
			"cla":   Name,
			"url":   url,
			"error": err,
		}).Warn("WebSocket client failed to close")
		return false
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.WithFields(log.Fields{
					"url":     url,
					"bundles": len(ready),
				}).Debug("WebSocket client submitted bundles")
				return true
			}

			log.WithFields(log.Fields{
				"cla":   Name,
				"url":   url,
				"error": err,
			}).Warn("WebSocket client's closing handshake failed")
			return false
		}
	}
}

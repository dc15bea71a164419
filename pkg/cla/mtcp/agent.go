// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mtcp implements the Minimal TCP Convergence-Layer Protocol.
//
// Each bundle is prefixed by its length, encoded as a CBOR byte string header. Zero length byte strings are
// keepalives and will be skipped.
//
// The specification is available as draft-ietf-dtn-mtcpcl-01,
// <https://tools.ietf.org/html/draft-ietf-dtn-mtcpcl-01>.
package mtcp

import (
	"fmt"
	"net"
	"sync"

	"github.com/dtn7/dtnd/pkg/cla"
)

const (
	// Name of this agent's scheme.
	Name = "mtcp"

	// DefaultPort is used for listening and for destinations without a port.
	DefaultPort uint16 = 16162

	// maxBundleSize limits a single received bundle.
	maxBundleSize uint64 = 64 << 20
)

func init() {
	cla.Register(Name, func(port uint16) cla.ConvergenceLayerAgent { return NewAgent(port) })
}

// Agent is the MTCP ConvergenceLayerAgent. Its server accepts bundles from multiple connections while each
// submission dials a new connection.
type Agent struct {
	port uint16

	mutex    sync.Mutex
	listener *net.TCPListener
	handler  cla.BundleHandler

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewAgent creates a new MTCP Agent listening on the given port after Setup. Zero selects the DefaultPort.
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

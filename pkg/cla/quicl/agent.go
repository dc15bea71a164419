// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quicl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dtn7/dtnd/pkg/cla"
)

const (
	// Name of this agent's scheme.
	Name = "quicl"

	// DefaultPort is used for listening and for destinations without a port.
	DefaultPort uint16 = 16163

	maxBundleSize int64 = 64 << 20

	submissionTimeout = 10 * time.Second
)

func init() {
	cla.Register(Name, func(port uint16) cla.ConvergenceLayerAgent { return NewAgent(port) })
}

// Agent is the QUICL ConvergenceLayerAgent.
type Agent struct {
	port uint16

	mutex    sync.Mutex
	listener *quic.Listener
	handler  cla.BundleHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAgent creates a new QUICL Agent listening on the given UDP port after Setup. Zero selects the DefaultPort.
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

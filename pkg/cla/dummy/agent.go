// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dummy provides a ConvergenceLayerAgent which neither listens nor transmits. Each submission is logged
// and reported as successful.
package dummy

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
)

// Name of this agent's scheme.
const Name = "dummy"

func init() {
	cla.Register(Name, func(port uint16) cla.ConvergenceLayerAgent { return NewAgent(port) })
}

// Agent is the dummy ConvergenceLayerAgent.
type Agent struct {
	port uint16
}

// NewAgent creates a new dummy Agent. Its port is only reported, never used.
func NewAgent(port uint16) *Agent {
	return &Agent{port: port}
}

func (agent *Agent) Setup(cla.BundleHandler) error {
	return nil
}

func (agent *Agent) Port() uint16 {
	return agent.port
}

func (agent *Agent) Name() string {
	return Name
}

func (agent *Agent) ScheduledSubmission(dest string, ready [][]byte) bool {
	log.WithFields(log.Fields{
		"cla":     Name,
		"dest":    dest,
		"bundles": len(ready),
	}).Debug("Dummy agent discards bundles")
	return true
}

func (agent *Agent) Close() error {
	return nil
}

func (agent *Agent) String() string {
	return fmt.Sprintf("%s:%d", Name, agent.port)
}

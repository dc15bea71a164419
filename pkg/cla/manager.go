// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Manager holds the node's active ConvergenceLayerAgents. Each registered agent is set up exactly once and
// passes its received bundles into the Manager's Channel.
type Manager struct {
	agents []ConvergenceLayerAgent
	mutex  sync.RWMutex

	// bundles is buffered, but must be read. Otherwise the agents' handlers will block.
	bundles chan ReceivedBundle

	// stopSyn is closed by Close to release blocked handlers.
	stopSyn  chan struct{}
	stopFlag bool
}

// NewManager creates a new Manager without any agents.
func NewManager() *Manager {
	return &Manager{
		bundles: make(chan ReceivedBundle, 100),
		stopSyn: make(chan struct{}),
	}
}

// Register an agent and perform its Setup. An agent of the same name and port cannot be registered twice.
func (manager *Manager) Register(agent ConvergenceLayerAgent) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.stopFlag {
		return fmt.Errorf("CLA Manager is closed")
	}

	for _, known := range manager.agents {
		if known.Name() == agent.Name() && known.Port() == agent.Port() {
			return fmt.Errorf("agent %s:%d is already registered", agent.Name(), agent.Port())
		}
	}

	if err := agent.Setup(manager.receive); err != nil {
		return fmt.Errorf("setup of agent %v failed: %w", agent, err)
	}

	manager.agents = append(manager.agents, agent)

	log.WithFields(log.Fields{
		"cla":  agent.Name(),
		"port": agent.Port(),
	}).Info("CLA Manager registered agent")

	return nil
}

func (manager *Manager) receive(rb ReceivedBundle) {
	log.WithFields(log.Fields{
		"cla":  rb.Agent,
		"peer": rb.Peer,
		"size": len(rb.Data),
	}).Debug("CLA Manager received bundle")

	select {
	case manager.bundles <- rb:
	case <-manager.stopSyn:
		log.WithField("bundle", rb).Debug("CLA Manager is closed, dropping received bundle")
	}
}

// Channel of all bundles received by the registered agents. It is not closed by Close.
func (manager *Manager) Channel() <-chan ReceivedBundle {
	return manager.bundles
}

// Services returns a snapshot of all active (scheme, port) tuples in registration order.
func (manager *Manager) Services() []Service {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	services := make([]Service, 0, len(manager.agents))
	for _, agent := range manager.agents {
		services = append(services, Service{Scheme: agent.Name(), Port: agent.Port()})
	}
	return services
}

// Agents returns a copy of all registered agents.
func (manager *Manager) Agents() []ConvergenceLayerAgent {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	return append([]ConvergenceLayerAgent(nil), manager.agents...)
}

// Close the Manager and all registered agents.
func (manager *Manager) Close() error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.stopFlag {
		return nil
	}
	manager.stopFlag = true
	close(manager.stopSyn)

	var errs error
	for _, agent := range manager.agents {
		if err := agent.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing %v: %w", agent, err))
		}
	}
	manager.agents = nil

	return errs
}

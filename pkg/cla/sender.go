// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ClaSender describes one outbound transmission path to a peer: which agent, to which address and, optionally,
// to which port. It is a plain value and safe for concurrent use.
type ClaSender struct {
	// Remote is the peer's IP address.
	Remote netip.Addr

	// Port is the peer's port; zero lets the agent pick its default port.
	Port uint16

	// Agent is the name of a registered ConvergenceLayerAgent.
	Agent string
}

// NewClaSender creates a ClaSender for a registered agent.
func NewClaSender(remote netip.Addr, port uint16, agent string) (ClaSender, error) {
	if !IsKnown(agent) {
		return ClaSender{}, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
	if !remote.IsValid() {
		return ClaSender{}, fmt.Errorf("invalid remote address for agent %q", agent)
	}
	return ClaSender{Remote: remote, Port: port, Agent: agent}, nil
}

// Destination is the textual address passed to the agent: only the address without a port or "addr:port".
// IPv6 addresses are bracketed in the latter case.
func (cs ClaSender) Destination() string {
	if cs.Port == 0 {
		return cs.Remote.String()
	}
	return net.JoinHostPort(cs.Remote.String(), strconv.Itoa(int(cs.Port)))
}

// Transfer all bundles to the remote peer by a freshly created agent and report if all were sent. This method
// blocks for the agent's submission. An unregistered agent name panics.
func (cs ClaSender) Transfer(ready [][]byte) bool {
	agent := MustNewAgent(cs.Agent)
	return agent.ScheduledSubmission(cs.Destination(), ready)
}

func (cs ClaSender) String() string {
	return fmt.Sprintf("%s://%s", cs.Agent, cs.Destination())
}

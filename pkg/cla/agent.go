// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
	"net"
	"strconv"
)

// BundleHandler is called by a ConvergenceLayerAgent for each received bundle. It might be called concurrently.
type BundleHandler func(ReceivedBundle)

// ConvergenceLayerAgent is the contract for each Convergence Layer Agent.
//
// An agent is constructed by the registry without performing any I/O. Listening agents initialize their sockets
// within Setup, which is called exactly once by a Manager before the agent is used for receiving. The submission of
// bundles does not require a prior Setup.
type ConvergenceLayerAgent interface {
	// Setup performs the agent's listener initialization. Received bundles are passed to the handler.
	Setup(handler BundleHandler) error

	// Port is the listening port. Zero indicates a not listening agent.
	Port() uint16

	// Name is the static name of this agent's scheme, e.g., "mtcp".
	Name() string

	// ScheduledSubmission transmits all bundles to the destination address, which is either a host or a
	// "host:port" pair, in a synchronous, best-effort manner. Only if all bundles were sent, true is returned.
	ScheduledSubmission(dest string, ready [][]byte) bool

	// Close the agent's listener, if any.
	Close() error

	fmt.Stringer
}

// Service is a (scheme, port) tuple of an active ConvergenceLayerAgent, as announced to other nodes.
type Service struct {
	Scheme string
	Port   uint16
}

func (s Service) String() string {
	return fmt.Sprintf("%s:%d", s.Scheme, s.Port)
}

// HostPort returns the destination as a "host:port" pair. If the destination lacks a port, the default port
// will be used.
func HostPort(dest string, defaultPort uint16) string {
	if _, _, err := net.SplitHostPort(dest); err == nil {
		return dest
	}
	return net.JoinHostPort(dest, strconv.Itoa(int(defaultPort)))
}

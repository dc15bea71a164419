// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import "fmt"

// ReceivedBundle is passed from a ConvergenceLayerAgent to its BundleHandler for each incoming bundle.
type ReceivedBundle struct {
	// Agent is the receiving agent's name.
	Agent string

	// Peer is the remote address, as reported by the transport.
	Peer string

	// Data is the bundle's opaque serialization.
	Data []byte
}

func (rb ReceivedBundle) String() string {
	return fmt.Sprintf("ReceivedBundle(%s from %s, %d bytes)", rb.Agent, rb.Peer, len(rb.Data))
}

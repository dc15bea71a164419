// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cla defines the ConvergenceLayerAgent interface for Convergence Layer Agents (CLAs) and the machinery
// around it.
//
// A ConvergenceLayerAgent moves opaque bundle buffers between two directly reachable nodes. Each implementation
// registers a constructor under its scheme name, e.g., "mtcp", in this package's registry. Afterwards an agent can
// be created by a selector string of the form "name" or "name:port":
//
//	agent, err := cla.NewAgent("mtcp:16162")
//
// The Manager holds the node's active agents. It performs each agent's Setup exactly once and offers a snapshot
// of the active services, e.g., for the discovery announcements.
//
// Outbound transmissions are described by a ClaSender, a value of remote address, optional port, and agent name.
// Its Transfer method blocks; the Dispatcher runs transfers on a bounded pool of workers instead.
//
// The built-in agents live in sub-packages and register themselves on import. The cla/all package imports all of
// them.
package cla

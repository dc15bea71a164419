// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package discovery contains code for peer/neighbor discovery of other DTN nodes through UDP multicast packages.
//
// Each node periodically announces its node ID together with its active convergence layer services to a
// well-known multicast group. Received announcements result in a dynamic peer in the node's peer table and an
// EncounteredPeer notification for the routing.
package discovery

import "net"

const (
	// address4 is the multicast IPv4 address used for discovery.
	address4 = "224.0.0.26"

	// address6 is the multicast IPv6 address used for discovery.
	address6 = "ff02::300"

	// port is the multicast UDP port used for discovery.
	port = 3003

	// maxPacketSize limits an Announcement's serialization and the receive buffer.
	maxPacketSize = 1024
)

// family of an IP protocol version.
type family int

const (
	ipv4Family family = iota
	ipv6Family
)

func (f family) String() string {
	if f == ipv4Family {
		return "IPv4"
	}
	return "IPv6"
}

// groupAddr is the multicast group's address for this family.
func (f family) groupAddr() *net.UDPAddr {
	if f == ipv4Family {
		return &net.UDPAddr{IP: net.ParseIP(address4), Port: port}
	}
	return &net.UDPAddr{IP: net.ParseIP(address6), Port: port}
}

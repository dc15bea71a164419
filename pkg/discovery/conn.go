// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// packetConn is the subset of net.PacketConn used by the broadcaster and the receiver.
type packetConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	Close() error
}

// listenMulticast binds a UDP socket with SO_REUSEADDR to the discovery port on all addresses of the family,
// disables the multicast loopback and joins the family's group.
func listenMulticast(f family) (packetConn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}

	network, address := "udp4", fmt.Sprintf("0.0.0.0:%d", port)
	if f == ipv6Family {
		network, address = "udp6", fmt.Sprintf("[::]:%d", port)
	}

	conn, err := lc.ListenPacket(context.Background(), network, address)
	if err != nil {
		return nil, fmt.Errorf("binding %s discovery socket failed: %w", f, err)
	}

	if err := joinGroup(f, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("joining %s multicast group failed: %w", f, err)
	}

	return conn, nil
}

func joinGroup(f family, conn net.PacketConn) error {
	group := f.groupAddr()

	if f == ipv4Family {
		pc := ipv4.NewPacketConn(conn)
		if err := pc.SetMulticastLoopback(false); err != nil {
			return err
		}
		return pc.JoinGroup(nil, group)
	}

	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetMulticastLoopback(false); err != nil {
		return err
	}
	return pc.JoinGroup(nil, group)
}

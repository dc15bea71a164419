// SPDX-FileCopyrightText: 2021 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package mtcp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Linux allows tuning the keepalive and retransmission behavior per socket, see tcp(7). Peers in a DTN might
// vanish at any time, so a dead connection should be detected within seconds.
var dialSocketOptions = map[int]int{
	// Keepalive probes before dropping the connection.
	unix.TCP_KEEPCNT: 1,
	// Idle seconds before the first probe.
	unix.TCP_KEEPIDLE: 5,
	// Seconds between probes.
	unix.TCP_KEEPINTVL: 3,
	// Milliseconds of unacknowledged data before the connection is closed.
	unix.TCP_USER_TIMEOUT: 2000,
}

// dialControl is the net.Dialer's Control function to set the socket options.
func dialControl(_, _ string, rawConn syscall.RawConn) error {
	var optErr error
	err := rawConn.Control(func(fd uintptr) {
		for opt, value := range dialSocketOptions {
			if optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, opt, value); optErr != nil {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return optErr
}

// dial a new TCP connection with socket options set.
func dial(address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
		Control: dialControl,
	}
	return dialer.Dial("tcp", address)
}

// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil offers helpers shared by the tests of multiple packages.
package testutil

import (
	"net"
	"testing"
)

// RandomTCPPort returns a currently free TCP port on localhost.
func RandomTCPPort(t testing.TB) uint16 {
	t.Helper()

	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()

	return uint16(l.Addr().(*net.TCPAddr).Port)
}

// RandomUDPPort returns a currently free UDP port on localhost.
func RandomUDPPort(t testing.TB) uint16 {
	t.Helper()

	conn, err := net.ListenPacket("udp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	return uint16(conn.LocalAddr().(*net.UDPAddr).Port)
}

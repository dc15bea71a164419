// SPDX-FileCopyrightText: 2021 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !linux

package mtcp

import (
	"net"
	"time"
)

// dial a new TCP connection with a short timeout and the platform's keepalive.
func dial(address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 5 * time.Second,
	}
	return dialer.Dial("tcp", address)
}

// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build windows

package discovery

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// reuseAddrControl sets SO_REUSEADDR, allowing multiple nodes on one host to share the discovery port.
func reuseAddrControl(_, _ string, rawConn syscall.RawConn) error {
	var optErr error
	err := rawConn.Control(func(fd uintptr) {
		optErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return optErr
}

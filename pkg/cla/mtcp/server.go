// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mtcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cboring"

	"github.com/dtn7/dtnd/pkg/cla"
)

// Setup starts the MTCP server on all interfaces.
func (agent *Agent) Setup(handler cla.BundleHandler) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.listener != nil {
		return fmt.Errorf("%v is already set up", agent)
	}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: int(agent.port)})
	if err != nil {
		return err
	}

	agent.listener = ln
	agent.handler = handler
	agent.stopSyn = make(chan struct{})
	agent.stopAck = make(chan struct{})

	go agent.acceptLoop(ln)

	log.WithField("cla", agent).Info("MTCP server started")
	return nil
}

func (agent *Agent) acceptLoop(ln *net.TCPListener) {
	for {
		select {
		case <-agent.stopSyn:
			_ = ln.Close()
			close(agent.stopAck)
			return

		default:
			if err := ln.SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
				log.WithFields(log.Fields{
					"cla":   agent,
					"error": err,
				}).Warn("MTCP server failed to set deadline on TCP socket")
			} else if conn, err := ln.Accept(); err == nil {
				go agent.handleSender(conn)
			}
		}
	}
}

func (agent *Agent) handleSender(conn net.Conn) {
	defer func() {
		_ = conn.Close()

		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"cla":   agent,
				"conn":  conn.RemoteAddr(),
				"error": r,
			}).Warn("MTCP server's sender failed")
		}
	}()

	log.WithFields(log.Fields{
		"cla":  agent,
		"conn": conn.RemoteAddr(),
	}).Debug("MTCP server connection was established")

	connReader := bufio.NewReader(conn)
	for {
		n, err := cboring.ReadByteStringLen(connReader)
		if err == io.EOF {
			return
		} else if err != nil {
			log.WithFields(log.Fields{
				"cla":   agent,
				"conn":  conn.RemoteAddr(),
				"error": err,
			}).Warn("MTCP server connection failed to read byte string len")
			return
		} else if n == 0 {
			continue
		} else if n > maxBundleSize {
			log.WithFields(log.Fields{
				"cla":  agent,
				"conn": conn.RemoteAddr(),
				"size": n,
			}).Warn("MTCP server connection announced an oversized bundle")
			return
		}

		data := make([]byte, n)
		if _, err := io.ReadFull(connReader, data); err != nil {
			log.WithFields(log.Fields{
				"cla":   agent,
				"conn":  conn.RemoteAddr(),
				"error": err,
			}).Warn("MTCP server connection failed to read bundle")
			return
		}

		agent.handler(cla.ReceivedBundle{
			Agent: Name,
			Peer:  conn.RemoteAddr().String(),
			Data:  data,
		})
	}
}

// Close the MTCP server, if it was set up.
func (agent *Agent) Close() error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.listener == nil {
		return nil
	}

	close(agent.stopSyn)
	<-agent.stopAck
	agent.listener = nil

	return nil
}

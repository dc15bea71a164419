// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quicl

import (
	"context"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
	"github.com/dtn7/dtnd/pkg/cla/quicl/internal"
)

// Setup starts the QUICL listener on all interfaces.
func (agent *Agent) Setup(handler cla.BundleHandler) error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.listener != nil {
		return fmt.Errorf("%v is already set up", agent)
	}

	tlsConf, err := internal.ListenerTLSConfig()
	if err != nil {
		return err
	}

	lst, err := quic.ListenAddr(fmt.Sprintf(":%d", agent.port), tlsConf, internal.QUICConfig())
	if err != nil {
		return err
	}

	agent.listener = lst
	agent.handler = handler
	agent.ctx, agent.cancel = context.WithCancel(context.Background())

	agent.wg.Add(1)
	go agent.handle()

	log.WithField("cla", agent).Info("QUICL listener started")
	return nil
}

func (agent *Agent) handle() {
	defer agent.wg.Done()

	for {
		conn, err := agent.listener.Accept(agent.ctx)
		if err != nil {
			if agent.ctx.Err() == nil {
				log.WithFields(log.Fields{
					"cla":   agent,
					"error": err,
				}).Warn("QUICL listener failed to accept connection")
			}
			return
		}

		log.WithFields(log.Fields{
			"cla":  agent,
			"peer": conn.RemoteAddr(),
		}).Debug("QUICL listener accepted new connection")

		agent.wg.Add(1)
		go agent.handleConnection(conn)
	}
}

func (agent *Agent) handleConnection(conn quic.Connection) {
	defer agent.wg.Done()

	for {
		stream, err := conn.AcceptStream(agent.ctx)
		if err != nil {
			if agent.ctx.Err() != nil {
				_ = conn.CloseWithError(internal.ApplicationShutdown, "Daemon shutting down")
			}

			log.WithFields(log.Fields{
				"cla":   agent,
				"peer":  conn.RemoteAddr(),
				"error": err,
			}).Debug("QUICL connection terminated")
			return
		}

		go agent.handleStream(conn, stream)
	}
}

func (agent *Agent) handleStream(conn quic.Connection, stream quic.Stream) {
	data, err := io.ReadAll(io.LimitReader(stream, maxBundleSize+1))
	if err != nil {
		log.WithFields(log.Fields{
			"cla":   agent,
			"peer":  conn.RemoteAddr(),
			"error": err,
		}).Warn("QUICL failed to receive bundle")
		stream.CancelWrite(internal.StreamTransmissionError)
		return
	} else if int64(len(data)) > maxBundleSize {
		log.WithFields(log.Fields{
			"cla":  agent,
			"peer": conn.RemoteAddr(),
		}).Warn("QUICL stream exceeds the maximum bundle size")
		stream.CancelRead(internal.StreamOversized)
		stream.CancelWrite(internal.StreamOversized)
		return
	}

	agent.handler(cla.ReceivedBundle{
		Agent: Name,
		Peer:  conn.RemoteAddr().String(),
		Data:  data,
	})

	if _, err := stream.Write([]byte{internal.Ack}); err != nil {
		log.WithFields(log.Fields{
			"cla":   agent,
			"peer":  conn.RemoteAddr(),
			"error": err,
		}).Debug("QUICL failed to acknowledge bundle")
	}
	_ = stream.Close()
}

// Close the QUICL listener and all of its connections, if it was set up.
func (agent *Agent) Close() error {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()

	if agent.listener == nil {
		return nil
	}

	agent.cancel()
	err := agent.listener.Close()
	agent.wg.Wait()
	agent.listener = nil

	return err
}

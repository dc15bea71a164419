// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// dtnd is the DTN node daemon. It takes the path of its TOML configuration as the only argument.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
	_ "github.com/dtn7/dtnd/pkg/cla/all"
	"github.com/dtn7/dtnd/pkg/discovery"
	"github.com/dtn7/dtnd/pkg/httpd"
	"github.com/dtn7/dtnd/pkg/peers"
	"github.com/dtn7/dtnd/pkg/routing"
	"github.com/dtn7/dtnd/pkg/storage"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := parseConfig(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to parse config")
	}

	if conf.profile {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	store, err := storage.NewStore(conf.store)
	if err != nil {
		log.WithFields(log.Fields{
			"store": conf.store,
			"error": err,
		}).Fatal("Failed to open store")
	}

	table := peers.NewTable()
	for _, peer := range conf.peers {
		table.Add(peer)
	}

	claManager := cla.NewManager()
	for _, selector := range conf.listen {
		agent, err := cla.NewAgent(selector)
		if err != nil {
			log.WithFields(log.Fields{
				"cla":   selector,
				"error": err,
			}).Fatal("Failed to create CLA")
		}

		if err := claManager.Register(agent); err != nil {
			log.WithFields(log.Fields{
				"cla":   selector,
				"error": err,
			}).Fatal("Failed to start CLA")
		}
	}

	dispatcher := cla.NewDispatcher(conf.dispatcher)

	core, err := routing.NewCore(routing.CoreConfig{
		NodeId:      conf.nodeId,
		Store:       store,
		Peers:       table,
		ClaManager:  claManager,
		Dispatcher:  dispatcher,
		Lifetime:    conf.lifetime,
		PeerTimeout: conf.peerTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to start routing")
	}

	for _, peer := range conf.peers {
		core.Notify(routing.Notification{Type: routing.EncounteredPeer, Peer: peer.Eid})
	}

	ctx, cancel := context.WithCancel(context.Background())

	var discoveryManager *discovery.Manager
	if conf.discovery.IPv4 || conf.discovery.IPv6 {
		discoveryManager = discovery.NewManager(conf.discovery, claManager, table, core)
		if err := discoveryManager.Start(ctx); err != nil {
			log.WithError(err).Fatal("Failed to start discovery")
		}
	}

	var server *httpd.Server
	if conf.httpd != "" {
		server = httpd.NewServer(httpd.Config{
			NodeId: conf.nodeId,
			Sender: core,
			Peers:  table,
			Agents: claManager,
		})
		if err := server.Start(conf.httpd); err != nil {
			log.WithFields(log.Fields{
				"listen": conf.httpd,
				"error":  err,
			}).Fatal("Failed to start httpd")
		}
	}

	log.WithField("node", conf.nodeId).Info("dtnd is running")

	waitSigint()
	log.Info("Shutting down..")

	cancel()
	if discoveryManager != nil {
		discoveryManager.Close()
	}

	if server != nil {
		if err := server.Close(); err != nil {
			log.WithError(err).Warn("Closing httpd errored")
		}
	}

	core.Close()
	dispatcher.Close()

	if err := claManager.Close(); err != nil {
		log.WithError(err).Warn("Closing CLAs errored")
	}

	if err := store.Close(); err != nil {
		log.WithError(err).Warn("Closing store errored")
	}
}

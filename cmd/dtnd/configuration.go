// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
	"github.com/dtn7/dtnd/pkg/discovery"
	"github.com/dtn7/dtnd/pkg/peers"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core      coreConf
	Logging   logConf
	Discovery discoveryConf
	Routing   routingConf
	Listen    []listenConf
	Peer      []peerConf
	Httpd     httpdConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Store   string
	NodeId  string `toml:"node-id"`
	Profile bool
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval time.Duration
}

// routingConf describes the Routing-configuration block.
type routingConf struct {
	Workers     int
	PeerTimeout time.Duration `toml:"peer-timeout"`
	Lifetime    time.Duration
}

// listenConf describes a listening CLA by its selector, "name" or "name:port".
type listenConf struct {
	Cla string
}

// peerConf describes a static peer.
type peerConf struct {
	Node    string
	Address string
	Cla     string
}

// httpdConf describes the REST interface. An empty listen address disables it.
type httpdConf struct {
	Listen string
}

// nodeConf is the validated configuration, ready to start a node.
type nodeConf struct {
	nodeId  bpv7.EndpointID
	store   string
	profile bool

	discovery  discovery.Config
	dispatcher cla.DispatcherConfig

	peerTimeout time.Duration
	lifetime    time.Duration

	listen []string
	peers  []peers.DtnPeer

	httpd string
}

// configureLogging applies the Logging-configuration block to logrus' standard logger.
func configureLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.WithField("format", conf.Format).Warn("Unknown logging format")
	}
}

// parsePeer creates a static peer from its configuration block.
func parsePeer(conf peerConf) (peer peers.DtnPeer, err error) {
	eid, err := bpv7.NewEndpointID(conf.Node)
	if err != nil {
		return peer, fmt.Errorf("peer node %q: %w", conf.Node, err)
	}

	addr, err := netip.ParseAddr(conf.Address)
	if err != nil {
		return peer, fmt.Errorf("peer %v address: %w", eid, err)
	}

	name, port := cla.ParseSelector(conf.Cla)
	if !cla.IsKnown(name) {
		return peer, fmt.Errorf("peer %v: %w: %q", eid, cla.ErrUnknownAgent, name)
	}

	peer = peers.NewDtnPeer(eid, addr, peers.Static, []cla.Service{{Scheme: name, Port: port}})
	return
}

// validate checks the whole configuration and collects all errors.
func (conf tomlConfig) validate() (node nodeConf, err error) {
	var errs *multierror.Error

	if conf.Core.Store == "" {
		errs = multierror.Append(errs, fmt.Errorf("core.store is empty"))
	}
	node.store = conf.Core.Store
	node.profile = conf.Core.Profile

	if nodeId, nodeErr := bpv7.NewEndpointID(conf.Core.NodeId); nodeErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("core.node-id: %w", nodeErr))
	} else if !nodeId.IsSingleton() {
		errs = multierror.Append(errs, fmt.Errorf("core.node-id %v is not a singleton", nodeId))
	} else {
		node.nodeId = nodeId
	}

	if conf.Discovery.Interval < 0 {
		errs = multierror.Append(errs, fmt.Errorf("discovery.interval %v is negative", conf.Discovery.Interval))
	}
	node.discovery = discovery.Config{
		NodeId:   node.nodeId,
		Interval: conf.Discovery.Interval,
		IPv4:     conf.Discovery.IPv4,
		IPv6:     conf.Discovery.IPv6,
	}

	if conf.Routing.Workers < 0 {
		errs = multierror.Append(errs, fmt.Errorf("routing.workers %d is negative", conf.Routing.Workers))
	}
	if conf.Routing.PeerTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("routing.peer-timeout %v is negative", conf.Routing.PeerTimeout))
	}
	if conf.Routing.Lifetime < 0 {
		errs = multierror.Append(errs, fmt.Errorf("routing.lifetime %v is negative", conf.Routing.Lifetime))
	}
	node.dispatcher = cla.DispatcherConfig{Workers: conf.Routing.Workers}
	node.peerTimeout = conf.Routing.PeerTimeout
	node.lifetime = conf.Routing.Lifetime

	for _, listen := range conf.Listen {
		if name, _ := cla.ParseSelector(listen.Cla); !cla.IsKnown(name) {
			errs = multierror.Append(errs, fmt.Errorf("listen: %w: %q", cla.ErrUnknownAgent, name))
			continue
		}
		node.listen = append(node.listen, listen.Cla)
	}

	for _, peerConf := range conf.Peer {
		if peer, peerErr := parsePeer(peerConf); peerErr != nil {
			errs = multierror.Append(errs, peerErr)
		} else {
			node.peers = append(node.peers, peer)
		}
	}

	node.httpd = conf.Httpd.Listen

	err = errs.ErrorOrNil()
	return
}

// parseConfig reads a TOML configuration file, configures logging and validates the remaining blocks.
func parseConfig(filename string) (node nodeConf, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	configureLogging(conf.Logging)

	return conf.validate()
}

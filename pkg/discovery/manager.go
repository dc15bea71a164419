// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
	"github.com/dtn7/dtnd/pkg/peers"
	"github.com/dtn7/dtnd/pkg/routing"
)

// DefaultInterval between two announcements.
const DefaultInterval = 2 * time.Second

// Config of a discovery Manager.
type Config struct {
	NodeId   bpv7.EndpointID
	Interval time.Duration
	IPv4     bool
	IPv6     bool
}

// ServiceLister provides a snapshot of the node's active CLA services, e.g., a cla.Manager.
type ServiceLister interface {
	Services() []cla.Service
}

// PeerTable receives discovered peers, e.g., a peers.Table.
type PeerTable interface {
	Add(peer peers.DtnPeer) bool
}

// Manager publishes and receives Announcements. Each enabled IP family has its own socket, shared by a
// broadcaster and a receiver goroutine.
type Manager struct {
	config   Config
	services ServiceLister
	peers    PeerTable
	notifier routing.Notifier

	// listen opens a family's socket.
	listen func(family) (packetConn, error)

	// peerMutex serializes the peer table update and notification of one announcement.
	peerMutex sync.Mutex

	conns  []packetConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new, not yet started Manager.
func NewManager(config Config, services ServiceLister, table PeerTable, notifier routing.Notifier) *Manager {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &Manager{
		config:   config,
		services: services,
		peers:    table,
		notifier: notifier,
		listen:   listenMulticast,
	}
}

// Start the broadcaster and the receiver for each enabled IP family. Any socket failure aborts the start and
// is returned. The Manager runs until the context is done or Close is called.
func (manager *Manager) Start(ctx context.Context) error {
	if manager.cancel != nil {
		return fmt.Errorf("discovery Manager was already started")
	}

	var families []family
	if manager.config.IPv4 {
		families = append(families, ipv4Family)
	}
	if manager.config.IPv6 {
		families = append(families, ipv6Family)
	}

	conns := make([]packetConn, 0, len(families))
	for _, f := range families {
		conn, err := manager.listen(f)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return err
		}
		conns = append(conns, conn)
	}

	ctx, cancel := context.WithCancel(ctx)
	manager.cancel = cancel
	manager.conns = conns

	log.WithFields(log.Fields{
		"node":     manager.config.NodeId,
		"interval": manager.config.Interval,
		"IPv4":     manager.config.IPv4,
		"IPv6":     manager.config.IPv6,
	}).Info("Starting discovery Manager")

	for i, f := range families {
		manager.wg.Add(2)
		go manager.broadcaster(ctx, f, conns[i])
		go manager.receiver(ctx, f, conns[i])
	}

	// Closing the sockets releases the blocked receivers.
	manager.wg.Add(1)
	go func() {
		defer manager.wg.Done()

		<-ctx.Done()
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	return nil
}

// Close the Manager and wait for its goroutines.
func (manager *Manager) Close() {
	if manager.cancel == nil {
		return
	}

	manager.cancel()
	manager.wg.Wait()
}

func (manager *Manager) broadcaster(ctx context.Context, f family, conn packetConn) {
	defer manager.wg.Done()

	ticker := time.NewTicker(manager.config.Interval)
	defer ticker.Stop()

	for {
		manager.announce(f, conn)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// announce sends one Announcement of the current services to the family's group.
func (manager *Manager) announce(f family, conn packetConn) {
	announcement := Announcement{
		Endpoint: manager.config.NodeId,
		Services: manager.services.Services(),
	}

	data, err := MarshalAnnouncement(announcement)
	if err != nil {
		log.WithFields(log.Fields{
			"family":       f,
			"announcement": announcement,
			"error":        err,
		}).Warn("Failed to marshal Announcement")
		return
	}

	if _, err := conn.WriteTo(data, f.groupAddr()); err != nil {
		log.WithFields(log.Fields{
			"family": f,
			"error":  err,
		}).Warn("Failed to send Announcement")
		return
	}

	log.WithFields(log.Fields{
		"family":       f,
		"announcement": announcement,
	}).Debug("Sent Announcement")
}

func (manager *Manager) receiver(ctx context.Context, f family, conn packetConn) {
	defer manager.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			log.WithFields(log.Fields{
				"family": f,
				"error":  err,
			}).Warn("Failed to receive Announcement")

			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		manager.handlePacket(buf[:n], src)
	}
}

// handlePacket processes one received datagram.
func (manager *Manager) handlePacket(data []byte, src net.Addr) {
	announcement, err := UnmarshalAnnouncement(data)
	if err != nil {
		log.WithFields(log.Fields{
			"source": src,
			"error":  err,
		}).Warn("Failed to unmarshal Announcement")
		return
	}

	if announcement.Endpoint.SameNode(manager.config.NodeId) {
		log.WithField("announcement", announcement).Debug("Ignoring own Announcement")
		return
	} else if announcement.Endpoint.SameNode(bpv7.DtnNone()) {
		log.WithField("source", src).Warn("Ignoring Announcement of the null endpoint")
		return
	}

	addr, ok := sourceAddr(src)
	if !ok {
		log.WithField("source", src).Warn("Announcement has an unsupported source address")
		return
	}

	peer := peers.NewDtnPeer(announcement.Endpoint, addr, peers.Dynamic, announcement.Services)

	log.WithFields(log.Fields{
		"peer":     announcement.Endpoint,
		"address":  addr,
		"services": announcement.Services,
	}).Debug("Received Announcement")

	manager.peerMutex.Lock()
	defer manager.peerMutex.Unlock()

	manager.peers.Add(peer)
	manager.notifier.Notify(routing.Notification{Type: routing.EncounteredPeer, Peer: announcement.Endpoint})
}

// sourceAddr extracts the IP address of a datagram's source.
func sourceAddr(src net.Addr) (netip.Addr, bool) {
	switch a := src.(type) {
	case *net.UDPAddr:
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			return netip.Addr{}, false
		}
		addr = addr.Unmap()
		if a.Zone != "" && addr.Is6() {
			addr = addr.WithZone(a.Zone)
		}
		return addr, true

	default:
		addrPort, err := netip.ParseAddrPort(src.String())
		if err != nil {
			return netip.Addr{}, false
		}
		return addrPort.Addr().Unmap(), true
	}
}

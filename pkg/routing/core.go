// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2019, 2020 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

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
	"github.com/dtn7/dtnd/pkg/cla/dummy"
	"github.com/dtn7/dtnd/pkg/peers"
	"github.com/dtn7/dtnd/pkg/storage"
)

// CoreConfig wires a Core to the node's shared state.
type CoreConfig struct {
	NodeId bpv7.EndpointID

	Store      *storage.Store
	Peers      *peers.Table
	ClaManager *cla.Manager
	Dispatcher *cla.Dispatcher

	// Lifetime of stored bundles, defaults to a day.
	Lifetime time.Duration

	// PeerTimeout evicts dynamic peers without a recent announcement, defaults to 20 seconds.
	PeerTimeout time.Duration
}

// Core is the node's bundle forwarding. It floods each stored bundle to every encountered peer, which has not
// received it yet.
type Core struct {
	NodeId bpv7.EndpointID

	store      *storage.Store
	peers      *peers.Table
	claManager *cla.Manager
	dispatcher *cla.Dispatcher
	notifier   *ChannelNotifier
	cron       *Cron

	lifetime    time.Duration
	peerTimeout time.Duration

	// inflight holds the endpoint IDs of peers with an ongoing transfer.
	inflight      map[string]struct{}
	inflightMutex sync.Mutex
	transfers     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewCore creates and starts a new Core.
func NewCore(conf CoreConfig) (*Core, error) {
	if !conf.NodeId.IsSingleton() {
		return nil, fmt.Errorf("passed Node ID MUST be a singleton; %s is not", conf.NodeId)
	}
	if conf.Store == nil || conf.Peers == nil || conf.ClaManager == nil || conf.Dispatcher == nil {
		return nil, fmt.Errorf("incomplete CoreConfig")
	}

	if conf.Lifetime <= 0 {
		conf.Lifetime = 24 * time.Hour
	}
	if conf.PeerTimeout <= 0 {
		conf.PeerTimeout = 20 * time.Second
	}

	c := &Core{
		NodeId: conf.NodeId,

		store:      conf.Store,
		peers:      conf.Peers,
		claManager: conf.ClaManager,
		dispatcher: conf.Dispatcher,
		notifier:   NewChannelNotifier(256),
		cron:       NewCron(),

		lifetime:    conf.Lifetime,
		peerTimeout: conf.PeerTimeout,

		inflight: make(map[string]struct{}),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	jobs := []struct {
		name     string
		task     func()
		interval time.Duration
	}{
		{"pending_bundles", c.checkPendingBundles, 10 * time.Second},
		{"clean_store", func() { c.store.DeleteExpired() }, 10 * time.Minute},
		{"peer_janitor", c.evictPeers, time.Second},
	}
	for _, job := range jobs {
		if err := c.cron.Register(job.name, job.task, job.interval); err != nil {
			log.WithError(err).WithField("job", job.name).Warn("Failed to register job at cron")
		}
	}

	go c.handler()

	return c, nil
}

// Notify the Core about an encountered or dropped peer. This method does not block.
func (c *Core) Notify(n Notification) {
	c.notifier.Notify(n)
}

// handler does the Core's background tasks.
func (c *Core) handler() {
	for {
		select {
		case <-c.stopSyn:
			close(c.stopAck)
			return

		case rb := <-c.claManager.Channel():
			c.receive(rb)

		case n := <-c.notifier.Channel():
			switch n.Type {
			case EncounteredPeer:
				if peer, ok := c.peers.Get(n.Peer); ok {
					c.forwardTo(peer)
				}

			case DroppedPeer:
				log.WithField("peer", n.Peer).Info("Routing dropped peer")

			default:
				log.WithField("notification", n).Warn("Received Notification with unknown type")
			}
		}
	}
}

// receive stores a bundle from an agent. If its sender is a known peer, the bundle will not be sent back.
func (c *Core) receive(rb cla.ReceivedBundle) {
	known := c.store.KnowsBundle(storage.BundleId(rb.Data))

	bi, err := c.store.Push(rb.Data, c.lifetime)
	if err != nil {
		log.WithFields(log.Fields{
			"bundle": rb,
			"error":  err,
		}).Warn("Failed to store received bundle")
		return
	}

	log.WithFields(log.Fields{
		"bundle": bi.Id,
		"cla":    rb.Agent,
		"peer":   rb.Peer,
	}).Info("Routing received bundle")

	if peer, ok := c.peerByAddress(rb.Peer); ok {
		if err := c.store.MarkSent(bi.Id, peer.Eid.String()); err != nil {
			log.WithError(err).WithField("bundle", bi.Id).Warn("Failed to mark received bundle")
		}
	}

	if known {
		log.WithField("bundle", bi.Id).Debug("Received bundle was already known")
		return
	}

	c.forwardAll()
}

// peerByAddress looks up a peer by a transport's "host:port" or plain host address.
func (c *Core) peerByAddress(address string) (peers.DtnPeer, bool) {
	host := address
	if h, _, err := net.SplitHostPort(address); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return peers.DtnPeer{}, false
	}
	addr = addr.Unmap()

	for _, peer := range c.peers.Peers() {
		if peer.Addr.Unmap() == addr {
			return peer, true
		}
	}
	return peers.DtnPeer{}, false
}

// SendBundle stores a locally submitted bundle and forwards it to all current peers.
func (c *Core) SendBundle(data []byte) (string, error) {
	bi, err := c.store.Push(data, c.lifetime)
	if err != nil {
		return "", err
	}

	log.WithField("bundle", bi.Id).Info("Routing accepted local bundle")

	c.forwardAll()
	return bi.Id, nil
}

// forwardAll tries to forward all stored bundles to all known peers.
func (c *Core) forwardAll() {
	for _, peer := range c.peers.Peers() {
		c.forwardTo(peer)
	}
}

// checkPendingBundles retries the transmission of stored bundles.
func (c *Core) checkPendingBundles() {
	if bis, err := c.store.QueryPending(); err != nil {
		log.WithError(err).Warn("Failed to fetch pending bundles")
		return
	} else if len(bis) > 0 {
		log.WithField("bundles", len(bis)).Debug("Retrying pending bundles from store")
	}

	c.forwardAll()
}

// evictPeers removes stale dynamic peers and raises a DroppedPeer Notification for each.
func (c *Core) evictPeers() {
	for _, eid := range c.peers.EvictStale(c.peerTimeout) {
		c.Notify(Notification{Type: DroppedPeer, Peer: eid})
	}
}

// forwardTo dispatches all stored bundles, which were not sent to this peer yet. The peer's agents are tried one
// after another until one transfer succeeds. At most one transfer per peer is in flight.
func (c *Core) forwardTo(peer peers.DtnPeer) {
	if peer.Eid.SameNode(c.NodeId) {
		return
	}

	senders := preferredSenders(peer)
	if len(senders) == 0 {
		log.WithField("peer", peer).Debug("Peer offers no known CLA")
		return
	}
	peerEid := peer.Eid.String()

	bis, err := c.store.All()
	if err != nil {
		log.WithError(err).Warn("Failed to fetch stored bundles")
		return
	}

	var ids []string
	var ready [][]byte
	for _, bi := range bis {
		if bi.WasSentTo(peerEid) || bi.Expires.Before(time.Now()) {
			continue
		}

		data, err := bi.Load()
		if err != nil {
			log.WithError(err).WithField("bundle", bi.Id).Warn("Failed to load stored bundle")
			continue
		}

		ids = append(ids, bi.Id)
		ready = append(ready, data)
	}

	if len(ready) == 0 {
		return
	}

	c.inflightMutex.Lock()
	if _, busy := c.inflight[peerEid]; busy {
		c.inflightMutex.Unlock()
		return
	}
	c.inflight[peerEid] = struct{}{}
	c.inflightMutex.Unlock()

	log.WithFields(log.Fields{
		"peer":    peerEid,
		"senders": senders,
		"bundles": len(ready),
	}).Info("Routing forwards bundles to peer")

	c.transfers.Add(1)
	go func() {
		defer c.transfers.Done()
		defer func() {
			c.inflightMutex.Lock()
			delete(c.inflight, peerEid)
			c.inflightMutex.Unlock()
		}()

		delivered := false
		for _, sender := range senders {
			if <-c.dispatcher.Dispatch(c.ctx, sender, ready) {
				delivered = true
				break
			}

			log.WithFields(log.Fields{
				"peer":   peerEid,
				"sender": sender,
			}).Warn("Forwarding bundles to peer failed")

			if c.ctx.Err() != nil {
				return
			}
		}
		if !delivered {
			return
		}

		for _, id := range ids {
			if err := c.store.MarkSent(id, peerEid); err != nil {
				log.WithError(err).WithField("bundle", id).Warn("Failed to mark bundle as sent")
			}
		}
	}()
}

// preferredSenders returns the senders to try for a peer. The dummy agent never transmits, so it is only used for
// peers without any other agent.
func preferredSenders(peer peers.DtnPeer) []cla.ClaSender {
	senders := peer.Senders()

	transmitting := make([]cla.ClaSender, 0, len(senders))
	for _, sender := range senders {
		if sender.Agent != dummy.Name {
			transmitting = append(transmitting, sender)
		}
	}

	if len(transmitting) == 0 {
		return senders
	}
	return transmitting
}

// Close stops the Core. The Store, the peer table, the Manager and the Dispatcher remain open.
func (c *Core) Close() {
	c.cron.Stop()
	c.cancel()

	close(c.stopSyn)
	<-c.stopAck

	c.transfers.Wait()
}

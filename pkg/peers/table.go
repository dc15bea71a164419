// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peers

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
)

// Table of all known peers, keyed by their endpoint ID. A Table is safe for concurrent use.
type Table struct {
	mutex sync.RWMutex
	peers map[string]DtnPeer
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{peers: make(map[string]DtnPeer)}
}

// Add inserts a new peer or refreshes a known one. A refresh overwrites the address, the CLA list and the
// last contact; a static peer stays static. The return value indicates a new peer.
func (table *Table) Add(peer DtnPeer) (isNew bool) {
	if peer.LastContact.IsZero() {
		peer.LastContact = time.Now()
	}

	key := peer.Eid.String()

	table.mutex.Lock()
	defer table.mutex.Unlock()

	known, exists := table.peers[key]
	if exists && known.Type == Static {
		peer.Type = Static
	}
	table.peers[key] = peer

	if !exists {
		log.WithField("peer", peer).Info("Peer table added new peer")
	}
	return !exists
}

// Get a peer by its endpoint ID.
func (table *Table) Get(eid bpv7.EndpointID) (peer DtnPeer, ok bool) {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	peer, ok = table.peers[eid.String()]
	return
}

// Peers returns a snapshot of all peers, sorted by their endpoint ID.
func (table *Table) Peers() []DtnPeer {
	table.mutex.RLock()
	defer table.mutex.RUnlock()

	peers := make([]DtnPeer, 0, len(table.peers))
	for _, peer := range table.peers {
		peers = append(peers, peer)
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Eid.String() < peers[j].Eid.String()
	})
	return peers
}

// EvictStale removes all dynamic peers whose last contact is older than maxAge and returns their endpoint IDs.
func (table *Table) EvictStale(maxAge time.Duration) (evicted []bpv7.EndpointID) {
	deadline := time.Now().Add(-maxAge)

	table.mutex.Lock()
	defer table.mutex.Unlock()

	for key, peer := range table.peers {
		if peer.Type == Dynamic && peer.LastContact.Before(deadline) {
			delete(table.peers, key)
			evicted = append(evicted, peer.Eid)

			log.WithFields(log.Fields{
				"peer":         peer.Eid,
				"last_contact": peer.LastContact,
			}).Info("Peer table evicted stale peer")
		}
	}
	return
}

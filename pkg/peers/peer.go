// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package peers holds the node's knowledge about its neighbors: statically configured ones and those learned
// through discovery.
package peers

import (
	"fmt"
	"net/netip"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
)

// PeerType distinguishes configured from discovered peers.
type PeerType uint8

const (
	// Static peers are configured and never expire.
	Static PeerType = iota

	// Dynamic peers are learned from announcements.
	Dynamic
)

func (pt PeerType) String() string {
	switch pt {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(pt))
	}
}

// MarshalText encodes a PeerType as its name.
func (pt PeerType) MarshalText() ([]byte, error) {
	return []byte(pt.String()), nil
}

// DtnPeer is a neighboring node, reachable by the agents of its ClaList.
type DtnPeer struct {
	Eid  bpv7.EndpointID `json:"eid"`
	Addr netip.Addr      `json:"addr"`
	Type PeerType        `json:"type"`

	// ClaList maps each agent's scheme to the peer's port; zero for none.
	ClaList map[string]uint16 `json:"cla_list"`

	LastContact time.Time `json:"last_contact"`
}

// NewDtnPeer creates a DtnPeer from a list of announced services. A scheme listed multiple times keeps its
// last port.
func NewDtnPeer(eid bpv7.EndpointID, addr netip.Addr, peerType PeerType, services []cla.Service) DtnPeer {
	claList := make(map[string]uint16, len(services))
	for _, service := range services {
		claList[service.Scheme] = service.Port
	}

	return DtnPeer{
		Eid:         eid,
		Addr:        addr,
		Type:        peerType,
		ClaList:     claList,
		LastContact: time.Now(),
	}
}

// Senders creates a ClaSender for each of the peer's schemes known to the registry, sorted by scheme.
func (peer DtnPeer) Senders() []cla.ClaSender {
	schemes := make([]string, 0, len(peer.ClaList))
	for scheme := range peer.ClaList {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)

	senders := make([]cla.ClaSender, 0, len(schemes))
	for _, scheme := range schemes {
		sender, err := cla.NewClaSender(peer.Addr.Unmap(), peer.ClaList[scheme], scheme)
		if err != nil {
			log.WithFields(log.Fields{
				"peer":  peer.Eid,
				"error": err,
			}).Debug("Skipping peer's CLA")
			continue
		}
		senders = append(senders, sender)
	}
	return senders
}

func (peer DtnPeer) String() string {
	return fmt.Sprintf("DtnPeer(%v, %v, %v, %v)", peer.Eid, peer.Addr, peer.Type, peer.ClaList)
}

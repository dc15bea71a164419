// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/bpv7"
)

// NotificationType describes the event of a Notification.
type NotificationType uint8

const (
	// EncounteredPeer is raised for each received announcement of a peer.
	EncounteredPeer NotificationType = iota

	// DroppedPeer is raised after a peer was removed from the peer table.
	DroppedPeer
)

func (nt NotificationType) String() string {
	switch nt {
	case EncounteredPeer:
		return "EncounteredPeer"
	case DroppedPeer:
		return "DroppedPeer"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(nt))
	}
}

// Notification informs the routing about a change in the node's neighborhood.
type Notification struct {
	Type NotificationType
	Peer bpv7.EndpointID
}

func (n Notification) String() string {
	return fmt.Sprintf("%v(%v)", n.Type, n.Peer)
}

// Notifier accepts Notifications. Notify must not block.
type Notifier interface {
	Notify(Notification)
}

// ChannelNotifier queues Notifications in a buffered channel. A Notification for a full channel is dropped.
type ChannelNotifier struct {
	ch chan Notification
}

// NewChannelNotifier creates a ChannelNotifier buffering up to size Notifications.
func NewChannelNotifier(size int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan Notification, size)}
}

// Notify enqueues a Notification without blocking.
func (cn *ChannelNotifier) Notify(n Notification) {
	select {
	case cn.ch <- n:
	default:
		log.WithField("notification", n).Warn("Notification queue is full, dropping notification")
	}
}

// Channel of all queued Notifications.
func (cn *ChannelNotifier) Channel() <-chan Notification {
	return cn.ch
}

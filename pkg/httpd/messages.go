// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package httpd

import "github.com/dtn7/dtnd/pkg/peers"

// NodeIdResponse describes a JSON response for /status/nodeid.
type NodeIdResponse struct {
	NodeId string `json:"node_id"`
}

// PeersResponse describes a JSON response for /status/peers.
type PeersResponse struct {
	Peers []peers.DtnPeer `json:"peers"`
}

// ServiceResponse describes an active CLA.
type ServiceResponse struct {
	Agent  string `json:"agent"`
	Scheme string `json:"scheme"`
	Port   uint16 `json:"port"`
}

// ClasResponse describes a JSON response for /status/clas.
type ClasResponse struct {
	Known  []string          `json:"known"`
	Active []ServiceResponse `json:"active"`
}

// SendResponse describes a JSON response for /send.
type SendResponse struct {
	Error    string `json:"error"`
	BundleId string `json:"bundle_id"`
}

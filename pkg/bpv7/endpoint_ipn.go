// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dtn7/cboring"
)

const (
	ipnEndpointSchemeName string = "ipn"
	ipnEndpointSchemeNo   uint64 = 2
)

// IpnEndpoint is an "ipn:node.service" EndpointID, RFC 9171 section 4.2.5.1.2. Service number zero addresses the
// node's administrative endpoint.
type IpnEndpoint struct {
	Node    uint64
	Service uint64
}

// NewIpnEndpoint parses an URI with the ipn scheme.
func NewIpnEndpoint(uri string) (EndpointType, error) {
	ssp, ok := strings.CutPrefix(uri, ipnEndpointSchemeName+":")
	if !ok {
		return nil, fmt.Errorf("uri %q does not match an ipn endpoint", uri)
	}

	nodeStr, serviceStr, ok := strings.Cut(ssp, ".")
	if !ok || !isDecimal(nodeStr) || !isDecimal(serviceStr) {
		return nil, fmt.Errorf("uri %q does not match an ipn endpoint", uri)
	}

	node, err := strconv.ParseUint(nodeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ipn node number of %q: %w", uri, err)
	}
	service, err := strconv.ParseUint(serviceStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ipn service number of %q: %w", uri, err)
	}

	e := IpnEndpoint{Node: node, Service: service}
	if err := e.CheckValid(); err != nil {
		return nil, err
	}
	return e, nil
}

// isDecimal reports a non-empty string of ASCII digits.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (IpnEndpoint) SchemeName() string {
	return ipnEndpointSchemeName
}

func (IpnEndpoint) SchemeNo() uint64 {
	return ipnEndpointSchemeNo
}

// Authority is the node number, e.g., "23" for "ipn:23.42".
func (e IpnEndpoint) Authority() string {
	return strconv.FormatUint(e.Node, 10)
}

// Path is the service number, e.g., "42" for "ipn:23.42".
func (e IpnEndpoint) Path() string {
	return strconv.FormatUint(e.Service, 10)
}

// IsSingleton is always true, an ipn endpoint names exactly one node.
func (IpnEndpoint) IsSingleton() bool {
	return true
}

// CheckValid requires a node number of at least one.
func (e IpnEndpoint) CheckValid() error {
	if e.Node == 0 {
		return fmt.Errorf("ipn node number must not be zero")
	}
	return nil
}

func (e IpnEndpoint) String() string {
	return fmt.Sprintf("%s:%d.%d", ipnEndpointSchemeName, e.Node, e.Service)
}

// MarshalCbor writes the SSP as an array of the node and the service number.
func (e IpnEndpoint) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(e.Node, w); err != nil {
		return err
	}
	return cboring.WriteUInt(e.Service, w)
}

// UnmarshalCbor reads the SSP array written by MarshalCbor.
func (e *IpnEndpoint) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("IpnEndpoint: SSP array of %d elements instead of 2", l)
	}

	node, err := cboring.ReadUInt(r)
	if err != nil {
		return fmt.Errorf("IpnEndpoint: node number: %w", err)
	}
	service, err := cboring.ReadUInt(r)
	if err != nil {
		return fmt.Errorf("IpnEndpoint: service number: %w", err)
	}

	*e = IpnEndpoint{Node: node, Service: service}
	return e.CheckValid()
}

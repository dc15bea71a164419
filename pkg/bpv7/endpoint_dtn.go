// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dtn7/cboring"
)

const (
	dtnEndpointSchemeName string = "dtn"
	dtnEndpointSchemeNo   uint64 = 1
)

var dtnEndpointRegexp = regexp.MustCompile(`^dtn://([[:alnum:]\-._]+)/(.*)$`)

// DtnEndpoint describes the dtn URI for EndpointIDs, as defined in ietf-dtn-bpbis.
//
//	Format of a "normal" dtn URI: "dtn://" NodeName "/" Demux
//	Format of the null endpoint:  "dtn:none"
type DtnEndpoint struct {
	NodeName  string
	Demux     string
	IsDtnNone bool
}

// NewDtnEndpoint from an URI with the dtn scheme.
func NewDtnEndpoint(uri string) (e EndpointType, err error) {
	if uri == "dtn:none" {
		return DtnEndpoint{IsDtnNone: true}, nil
	}

	matches := dtnEndpointRegexp.FindStringSubmatch(uri)
	if len(matches) != 3 {
		err = fmt.Errorf("uri %q does not match a dtn endpoint", uri)
		return
	}

	e = DtnEndpoint{NodeName: matches[1], Demux: matches[2]}
	return
}

// SchemeName is "dtn" for DtnEndpoints.
func (_ DtnEndpoint) SchemeName() string {
	return dtnEndpointSchemeName
}

// SchemeNo is 1 for DtnEndpoints.
func (_ DtnEndpoint) SchemeNo() uint64 {
	return dtnEndpointSchemeNo
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (e DtnEndpoint) Authority() string {
	if e.IsDtnNone {
		return "none"
	}
	return e.NodeName
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (e DtnEndpoint) Path() string {
	return "/" + e.Demux
}

// IsSingleton checks if this Endpoint represents a singleton.
//
// A non-singleton dtn Endpoint's demux part starts with a "~".
func (e DtnEndpoint) IsSingleton() bool {
	return !e.IsDtnNone && !strings.HasPrefix(e.Demux, "~")
}

// CheckValid returns an error for incorrect data.
func (e DtnEndpoint) CheckValid() error {
	if e.IsDtnNone {
		return nil
	}
	if !dtnEndpointRegexp.MatchString(e.String()) {
		return fmt.Errorf("dtn URI %q is invalid", e.String())
	}
	return nil
}

func (e DtnEndpoint) String() string {
	if e.IsDtnNone {
		return "dtn:none"
	}
	return fmt.Sprintf("%s://%s/%s", dtnEndpointSchemeName, e.NodeName, e.Demux)
}

// MarshalCbor writes this DtnEndpoint's CBOR representation.
func (e DtnEndpoint) MarshalCbor(w io.Writer) error {
	if e.IsDtnNone {
		return cboring.WriteUInt(0, w)
	}
	return cboring.WriteTextString(fmt.Sprintf("//%s/%s", e.NodeName, e.Demux), w)
}

// UnmarshalCbor reads a CBOR representation.
func (e *DtnEndpoint) UnmarshalCbor(r io.Reader) error {
	m, n, err := cboring.ReadMajors(r)
	if err != nil {
		return err
	}

	switch m {
	case cboring.UInt:
		if n != 0 {
			return fmt.Errorf("DtnEndpoint: unsigned integer SSP must be 0, not %d", n)
		}
		*e = DtnEndpoint{IsDtnNone: true}

	case cboring.TextString:
		tmp, err := cboring.ReadRawBytes(n, r)
		if err != nil {
			return err
		}

		matches := dtnEndpointRegexp.FindStringSubmatch(dtnEndpointSchemeName + ":" + string(tmp))
		if len(matches) != 3 {
			return fmt.Errorf("DtnEndpoint: invalid SSP %q", string(tmp))
		}
		*e = DtnEndpoint{NodeName: matches[1], Demux: matches[2]}

	default:
		return fmt.Errorf("DtnEndpoint: wrong major type 0x%X for unmarshalling", m)
	}

	return nil
}

// DtnNone returns the null endpoint "dtn:none".
func DtnNone() EndpointID {
	return EndpointID{DtnEndpoint{IsDtnNone: true}}
}

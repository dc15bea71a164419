// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
)

// EndpointType describes a discrete EndpointID.
//
// Because of Go's type system, the MarshalCbor function from the cboring
// library must be implemented as a value receiver in this interface. The
// unmarshalling is performed by EndpointID based on the scheme number.
type EndpointType interface {
	// SchemeName must return the static URI scheme type for this endpoint, e.g., "dtn" or "ipn".
	SchemeName() string

	// SchemeNo must return the static URI scheme type number for this endpoint, e.g., 1 for "dtn".
	SchemeNo() uint64

	// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
	Authority() string

	// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
	Path() string

	// IsSingleton checks if this Endpoint represents a singleton.
	IsSingleton() bool

	// CheckValid returns an error for incorrect data.
	CheckValid() error

	// MarshalCbor writes the CBOR representation of the scheme-specific part.
	MarshalCbor(w io.Writer) error

	fmt.Stringer
}

// EndpointID represents an Endpoint ID as defined in section 4.1.5.1 of
// draft-ietf-dtn-bpbis. Its concrete scheme is wrapped as an EndpointType.
type EndpointID struct {
	EndpointType EndpointType
}

// NewEndpointID based on an URI, e.g., "dtn://node/" or "ipn:23.42".
func NewEndpointID(uri string) (e EndpointID, err error) {
	parts := strings.SplitN(uri, ":", 2)
	if len(parts) != 2 {
		err = fmt.Errorf("uri %q does not contain a scheme", uri)
		return
	}

	var et EndpointType
	switch parts[0] {
	case dtnEndpointSchemeName:
		et, err = NewDtnEndpoint(uri)
	case ipnEndpointSchemeName:
		et, err = NewIpnEndpoint(uri)
	default:
		err = fmt.Errorf("unknown scheme %q", parts[0])
	}

	if err == nil {
		e = EndpointID{et}
	}
	return
}

// MustNewEndpointID returns a new EndpointID like NewEndpointID, but panics
// in case of an error.
func MustNewEndpointID(uri string) EndpointID {
	ep, err := NewEndpointID(uri)
	if err != nil {
		panic(err)
	}

	return ep
}

// MarshalCbor writes this EndpointID's CBOR representation.
func (eid *EndpointID) MarshalCbor(w io.Writer) error {
	if eid.EndpointType == nil {
		return fmt.Errorf("EndpointID has no EndpointType")
	}

	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(eid.EndpointType.SchemeNo(), w); err != nil {
		return err
	}

	if err := eid.EndpointType.MarshalCbor(w); err != nil {
		return fmt.Errorf("marshalling %s endpoint failed: %v", eid.EndpointType.SchemeName(), err)
	}

	return nil
}

// UnmarshalCbor reads a CBOR representation of an EndpointID.
func (eid *EndpointID) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("wrong array length: %d instead of 2", l)
	}

	schemeNo, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	switch schemeNo {
	case dtnEndpointSchemeNo:
		var e DtnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	case ipnEndpointSchemeNo:
		var e IpnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	default:
		return fmt.Errorf("unknown scheme number %d", schemeNo)
	}

	return nil
}

// MarshalText returns the URI representation, which makes an EndpointID
// usable as JSON value and map key.
func (eid EndpointID) MarshalText() ([]byte, error) {
	if eid.EndpointType == nil {
		return nil, fmt.Errorf("EndpointID has no EndpointType")
	}
	return []byte(eid.String()), nil
}

// UnmarshalText parses an URI representation.
func (eid *EndpointID) UnmarshalText(text []byte) error {
	e, err := NewEndpointID(string(text))
	if err != nil {
		return err
	}
	*eid = e
	return nil
}

// CheckValid returns an error for incorrect data.
func (eid EndpointID) CheckValid() error {
	if eid.EndpointType == nil {
		return fmt.Errorf("EndpointID has no EndpointType")
	}
	return eid.EndpointType.CheckValid()
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (eid EndpointID) Authority() string {
	if eid.EndpointType == nil {
		return ""
	}
	return eid.EndpointType.Authority()
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (eid EndpointID) Path() string {
	if eid.EndpointType == nil {
		return ""
	}
	return eid.EndpointType.Path()
}

// IsSingleton checks if this Endpoint represents a singleton.
func (eid EndpointID) IsSingleton() bool {
	if eid.EndpointType == nil {
		return false
	}
	return eid.EndpointType.IsSingleton()
}

// SameNode checks if two Endpoints contain to the same Node, based on the scheme and authority part.
func (eid EndpointID) SameNode(other EndpointID) bool {
	if eid.EndpointType == nil || other.EndpointType == nil {
		return isNullEndpoint(eid) && isNullEndpoint(other)
	}

	return eid.EndpointType.SchemeNo() == other.EndpointType.SchemeNo() &&
		eid.EndpointType.Authority() == other.EndpointType.Authority()
}

// isNullEndpoint treats both an empty EndpointID and dtn:none as the null endpoint.
func isNullEndpoint(eid EndpointID) bool {
	if eid.EndpointType == nil {
		return true
	}
	dtn, ok := eid.EndpointType.(DtnEndpoint)
	return ok && dtn.IsDtnNone
}

func (eid EndpointID) String() string {
	if eid.EndpointType == nil {
		return "null"
	}
	return eid.EndpointType.String()
}

// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"bytes"
	"fmt"

	"github.com/dtn7/cboring"
	"github.com/fxamacker/cbor/v2"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
)

// Announcement of some node and its active CLA services. The order of the services is preserved.
type Announcement struct {
	Endpoint bpv7.EndpointID
	Services []cla.Service
}

// wireAnnouncement is an Announcement's serialization, a CBOR map of the node ID in its bundle protocol
// encoding, [scheme number, SSP], and a list of (scheme, port) pairs. Unknown map keys are ignored.
type wireAnnouncement struct {
	Eid cbor.RawMessage `cbor:"eid"`
	Cl  []wireService   `cbor:"cl"`
}

type wireService struct {
	_      struct{} `cbor:",toarray"`
	Scheme string
	Port   uint16
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{MaxArrayElements: maxPacketSize}).DecMode(); err != nil {
		panic(err)
	}
}

// MarshalAnnouncement serializes an Announcement. Serializations exceeding the maximum packet size of 1024
// bytes are refused.
func MarshalAnnouncement(announcement Announcement) ([]byte, error) {
	if announcement.Endpoint.EndpointType == nil {
		return nil, fmt.Errorf("announcement has no endpoint")
	}

	eidBuff := new(bytes.Buffer)
	if err := cboring.Marshal(&announcement.Endpoint, eidBuff); err != nil {
		return nil, fmt.Errorf("announcement's endpoint %v: %w", announcement.Endpoint, err)
	}

	wire := wireAnnouncement{
		Eid: eidBuff.Bytes(),
		Cl:  make([]wireService, len(announcement.Services)),
	}
	for i, service := range announcement.Services {
		wire.Cl[i] = wireService{Scheme: service.Scheme, Port: service.Port}
	}

	data, err := encMode.Marshal(wire)
	if err != nil {
		return nil, err
	} else if len(data) > maxPacketSize {
		return nil, fmt.Errorf("announcement of %d bytes exceeds %d bytes", len(data), maxPacketSize)
	}
	return data, nil
}

// UnmarshalAnnouncement parses a received Announcement.
func UnmarshalAnnouncement(data []byte) (announcement Announcement, err error) {
	if len(data) > maxPacketSize {
		err = fmt.Errorf("announcement of %d bytes exceeds %d bytes", len(data), maxPacketSize)
		return
	}

	var wire wireAnnouncement
	if err = decMode.Unmarshal(data, &wire); err != nil {
		return
	}

	if len(wire.Eid) == 0 {
		err = fmt.Errorf("announcement has no endpoint")
		return
	}
	if err = cboring.Unmarshal(&announcement.Endpoint, bytes.NewReader(wire.Eid)); err != nil {
		err = fmt.Errorf("announcement's endpoint %x is invalid: %w", []byte(wire.Eid), err)
		return
	}
	if err = announcement.Endpoint.CheckValid(); err != nil {
		err = fmt.Errorf("announcement's endpoint %v is invalid: %w", announcement.Endpoint, err)
		return
	}

	announcement.Services = make([]cla.Service, len(wire.Cl))
	for i, service := range wire.Cl {
		announcement.Services[i] = cla.Service{Scheme: service.Scheme, Port: service.Port}
	}
	return
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%v,%v)", announcement.Endpoint, announcement.Services)
}

// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/dtn7/cboring"
)

func TestNewEndpointID(t *testing.T) {
	tests := []struct {
		uri   string
		valid bool
	}{
		{"dtn:none", true},
		{"dtn://foo/", true},
		{"dtn://foo/bar/buz", true},
		{"dtn://a1-b2.c3_d4/", true},
		{"dtn:foo", false},
		{"dtn://foo", false},
		{"dtn:///bar", false},
		{"dtn://f^oo/", false},
		{"ipn:1.1", true},
		{"ipn:0.1", false},
		{"ipn:1.0", true},
		{"ipn:99999999999999999999.1", false},
		{"ipn:11", false},
		{"ipn:1.", false},
		{"ipn:+1.1", false},
		{"ipn:1.1.1", false},
		{"foo:bar", false},
		{"dtn", false},
		{"", false},
	}

	for _, test := range tests {
		eid, err := NewEndpointID(test.uri)
		if (err == nil) != test.valid {
			t.Fatalf("%q: expected valid = %t, got err: %v", test.uri, test.valid, err)
		} else if err == nil && eid.String() != test.uri {
			t.Fatalf("%q: String() returned %q", test.uri, eid.String())
		}
	}
}

func TestEndpointCheckValid(t *testing.T) {
	tests := []struct {
		ep    EndpointID
		valid bool
	}{
		{EndpointID{nil}, false},
		{EndpointID{DtnEndpoint{IsDtnNone: true}}, true},
		{EndpointID{DtnEndpoint{NodeName: "foo"}}, true},
		{EndpointID{DtnEndpoint{NodeName: ""}}, false},
		{EndpointID{IpnEndpoint{0, 1}}, false},
		{EndpointID{IpnEndpoint{1, 0}}, true},
		{EndpointID{IpnEndpoint{1, 1}}, true},
	}

	for _, test := range tests {
		if err := test.ep.CheckValid(); (err == nil) != test.valid {
			t.Fatalf("Endpoint ID %v resulted in error: %v", test.ep, err)
		}
	}
}

func TestEndpointCbor(t *testing.T) {
	tests := []struct {
		eid  string
		cbor []byte
	}{
		{"dtn:none", []byte{0x82, 0x01, 0x00}},
		{"dtn://foo/", []byte{0x82, 0x01, 0x66, 0x2F, 0x2F, 0x66, 0x6F, 0x6F, 0x2F}},
		{"dtn://foo/bar", []byte{0x82, 0x01, 0x69, 0x2F, 0x2F, 0x66, 0x6F, 0x6F, 0x2F, 0x62, 0x61, 0x72}},
		{"ipn:1.1", []byte{0x82, 0x02, 0x82, 0x01, 0x01}},
		{"ipn:23.42", []byte{0x82, 0x02, 0x82, 0x17, 0x18, 0x2A}},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("marshal-%s", test.eid), func(t *testing.T) {
			e := MustNewEndpointID(test.eid)

			buff := new(bytes.Buffer)
			if err := cboring.Marshal(&e, buff); err != nil {
				t.Fatalf("Marshaling %s failed: %v", test.eid, err)
			}

			if data := buff.Bytes(); !bytes.Equal(data, test.cbor) {
				t.Fatalf("CBOR differs: %x != %x", data, test.cbor)
			}
		})

		t.Run(fmt.Sprintf("unmarshal-%s", test.eid), func(t *testing.T) {
			e := EndpointID{}

			if err := cboring.Unmarshal(&e, bytes.NewBuffer(test.cbor)); err != nil {
				t.Fatalf("Unmarshaling %s failed: %v", test.eid, err)
			}

			if e.String() != test.eid {
				t.Fatalf("EID differs: %s != %s", e.String(), test.eid)
			}
		})
	}
}

func TestEndpointCborInvalid(t *testing.T) {
	tests := [][]byte{
		{0x83, 0x01, 0x00, 0x00},       // array of three
		{0x82, 0x03, 0x00},             // unknown scheme
		{0x82, 0x01, 0x01},             // dtn with a non-zero integer
		{0x82, 0x01, 0x63, 0x66, 0x6F}, // truncated text string
		{0x82, 0x02, 0x81, 0x01},       // ipn with a single number
		{0x82, 0x02, 0x82, 0x00, 0x01}, // ipn with node number zero
	}

	for _, data := range tests {
		var e EndpointID
		if err := cboring.Unmarshal(&e, bytes.NewBuffer(data)); err == nil {
			t.Fatalf("Unmarshaling %x resulted in %v", data, e)
		}
	}
}

func TestEndpointUri(t *testing.T) {
	tests := []struct {
		eid       string
		authority string
		path      string
		singleton bool
	}{
		{"dtn:none", "none", "/", false},
		{"dtn://foobar/", "foobar", "/", true},
		{"dtn://foo/bar", "foo", "/bar", true},
		{"dtn://foo/bar/", "foo", "/bar/", true},
		{"dtn://foo/~bar", "foo", "/~bar", false},
		{"ipn:1.1", "1", "1", true},
		{"ipn:23.42", "23", "42", true},
	}

	for _, test := range tests {
		ep := MustNewEndpointID(test.eid)

		if authority := ep.Authority(); test.authority != authority {
			t.Fatalf("%s: expected authority %s, got %s", test.eid, test.authority, authority)
		}
		if path := ep.Path(); test.path != path {
			t.Fatalf("%s: expected path %s, got %s", test.eid, test.path, path)
		}
		if singleton := ep.IsSingleton(); test.singleton != singleton {
			t.Fatalf("%s: expected singleton %t, got %t", test.eid, test.singleton, singleton)
		}
	}
}

func TestEndpointIDSameNode(t *testing.T) {
	tests := []struct {
		eid1     EndpointID
		eid2     EndpointID
		sameNode bool
		equals   bool
	}{
		{MustNewEndpointID("dtn://foo/"), MustNewEndpointID("dtn://foo/"), true, true},
		{MustNewEndpointID("dtn://foo/"), EndpointID{DtnEndpoint{NodeName: "foo"}}, true, true},
		{MustNewEndpointID("ipn:23.42"), EndpointID{IpnEndpoint{Node: 23, Service: 42}}, true, true},
		{MustNewEndpointID("dtn://foo/"), MustNewEndpointID("dtn://foo/bar"), true, false},
		{MustNewEndpointID("dtn://foo/bar"), MustNewEndpointID("dtn://bar/foo"), false, false},
		{MustNewEndpointID("ipn:23.42"), MustNewEndpointID("dtn://23/42"), false, false},
		{EndpointID{nil}, EndpointID{nil}, true, true},
		{EndpointID{nil}, DtnNone(), true, false},
		{DtnNone(), EndpointID{DtnEndpoint{IsDtnNone: true}}, true, true},
		{MustNewEndpointID("dtn://foo/bar"), EndpointID{nil}, false, false},
	}

	for _, test := range tests {
		if res := test.eid1.SameNode(test.eid2); res != test.sameNode {
			t.Fatalf("%v.SameNode(%v) := %t", test.eid1, test.eid2, res)
		}
		if res := test.eid2.SameNode(test.eid1); res != test.sameNode {
			t.Fatalf("%v.SameNode(%v) := %t", test.eid2, test.eid1, res)
		}
		if res := test.eid1 == test.eid2; res != test.equals {
			t.Fatalf("(%v == %v) := %t", test.eid1, test.eid2, res)
		}
	}
}

func TestEndpointJson(t *testing.T) {
	in := map[string]EndpointID{
		"dtn": MustNewEndpointID("dtn://foo/bar"),
		"ipn": MustNewEndpointID("ipn:23.42"),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out map[string]EndpointID
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(in, out) {
		t.Fatalf("JSON round trip differs: %v became %v", in, out)
	}
}

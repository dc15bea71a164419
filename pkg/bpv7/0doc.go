// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bpv7 provides the Endpoint IDs of the Bundle Protocol Version 7, as defined in section 4.2.5.1 of
// RFC 9171. Both the "dtn" and the "ipn" URI schemes are supported.
//
// An EndpointID can be created from its URI and serialized as CBOR, JSON or plain text.
//
//	eid, err := bpv7.NewEndpointID("dtn://alpha/")
//	buff := new(bytes.Buffer)
//	err = cboring.Marshal(&eid, buff)
//
// The null endpoint "dtn:none" is available as DtnNone.
package bpv7

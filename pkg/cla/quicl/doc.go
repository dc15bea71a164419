// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package quicl implements an experimental QUIC convergence layer.
Note that this convergence layer is not part of the Bundle Protocol or its associated specifications.

MTCP is simple but very limited in its functionality.
QUIC already brings encryption, multiplexing and connection liveness, so the convergence layer itself stays small.


Protocol

The listener accepts QUIC connections with a self-signed certificate; the dialer does not verify it.
Both sides negotiate the ALPN identifier "bpv7-quicl".

A single stream carries exactly one bundle.
The dialer opens a new stream per bundle, writes the bundle's serialization and closes its sending direction.
The listener reads until the end of the stream, passes the bundle on and answers with a single zero byte.
The dialer treats a bundle as sent only after this acknowledgement.
After all bundles are acknowledged, the dialer closes the connection with error code 6.
*/
package quicl

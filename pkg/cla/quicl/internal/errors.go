// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package internal

import "github.com/quic-go/quic-go"

const (
	// LocalError designates errors on this machine.
	LocalError quic.ApplicationErrorCode = 2
	// ApplicationShutdown is sent when the agent is closed and terminates its connections.
	ApplicationShutdown quic.ApplicationErrorCode = 5
	// SubmissionDone is sent by the dialer after all bundles were acknowledged.
	SubmissionDone quic.ApplicationErrorCode = 6

	// StreamTransmissionError cancels a stream whose bundle could not be transmitted or received.
	StreamTransmissionError quic.StreamErrorCode = 2
	// StreamOversized cancels a stream exceeding the maximum bundle size.
	StreamOversized quic.StreamErrorCode = 3
)

// Ack is written back by the listener after a bundle was completely received.
const Ack byte = 0x00

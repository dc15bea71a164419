// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quicl

import (
	"context"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnd/pkg/cla"
	"github.com/dtn7/dtnd/pkg/cla/quicl/internal"
)

// ScheduledSubmission dials a QUIC connection and sends each bundle on its own stream.
func (agent *Agent) ScheduledSubmission(dest string, ready [][]byte) bool {
	address := cla.HostPort(dest, DefaultPort)

	ctx, cancel := context.WithTimeout(context.Background(), submissionTimeout)
	defer cancel()

	conn, err := quic.DialAddr(ctx, address, internal.DialerTLSConfig(), internal.QUICConfig())
	if err != nil {
		log.WithFields(log.Fields{
			"cla":     Name,
			"address": address,
			"error":   err,
		}).Warn("QUICL failed to dial")
		return false
	}

	for i, data := range ready {
		if err := sendBundle(ctx, conn, data); err != nil {
			log.WithFields(log.Fields{
				"cla":     Name,
				"address": address,
				"bundle":  i,
				"error":   err,
			}).Warn("QUICL failed to send bundle")

			_ = conn.CloseWithError(internal.LocalError, "Submission failed")
			return false
		}
	}

	_ = conn.CloseWithError(internal.SubmissionDone, "")

	log.WithFields(log.Fields{
		"address": address,
		"bundles": len(ready),
	}).Debug("QUICL submitted bundles")
	return true
}

func sendBundle(ctx context.Context, conn quic.Connection, data []byte) error {
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if _, err := stream.Write(data); err != nil {
		stream.CancelWrite(internal.StreamTransmissionError)
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}

	ack := make([]byte, 1)
	if _, err := io.ReadFull(stream, ack); err != nil {
		return fmt.Errorf("awaiting acknowledgement: %w", err)
	} else if ack[0] != internal.Ack {
		return fmt.Errorf("unexpected acknowledgement %x", ack[0])
	}

	return nil
}

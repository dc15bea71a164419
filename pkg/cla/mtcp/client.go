// SPDX-FileCopyrightText: 2019 Markus Sommer
// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mtcp

import (
	"bufio"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cboring"

	"github.com/dtn7/dtnd/pkg/cla"
)

const (
	dialTimeout = time.Second

	// writeTimeout bounds a whole submission.
	writeTimeout = 10 * time.Second
)

// ScheduledSubmission dials the destination and writes all bundles over one connection. Empty bundles are
// refused, as the receiver would take them for keepalives.
func (agent *Agent) ScheduledSubmission(dest string, ready [][]byte) bool {
	address := cla.HostPort(dest, DefaultPort)

	for i, data := range ready {
		if len(data) == 0 {
			log.WithFields(log.Fields{
				"address": address,
				"bundle":  i,
			}).Warn("MTCP client refuses to submit an empty bundle")
			return false
		}
	}

	conn, err := dial(address)
	if err != nil {
		log.WithFields(log.Fields{
			"cla":     Name,
			"address": address,
			"error":   err,
		}).Warn("MTCP client failed to connect")
		return false
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		log.WithError(err).Warn("MTCP client failed to set write deadline")
		return false
	}

	connWriter := bufio.NewWriter(conn)
	for i, data := range ready {
		if err := cboring.WriteByteStringLen(uint64(len(data)), connWriter); err != nil {
			log.WithFields(log.Fields{
				"address": address,
				"bundle":  i,
				"error":   err,
			}).Warn("MTCP client failed to write byte string len")
			return false
		}

		if _, err := connWriter.Write(data); err != nil {
			log.WithFields(log.Fields{
				"address": address,
				"bundle":  i,
				"error":   err,
			}).Warn("MTCP client failed to write bundle")
			return false
		}
	}

	if err := connWriter.Flush(); err != nil {
		log.WithFields(log.Fields{
			"address": address,
			"error":   err,
		}).Warn("MTCP client failed to flush")
		return false
	}

	log.WithFields(log.Fields{
		"address": address,
		"bundles": len(ready),
	}).Debug("MTCP client submitted bundles")
	return true
}

// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ws

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/dtnd/internal/testutil"
	"github.com/dtn7/dtnd/pkg/cla"
)

func TestWebSocketServerClient(t *testing.T) {
	const clients = 5

	port := testutil.RandomTCPPort(t)

	recCh := make(chan cla.ReceivedBundle, clients*3)
	serv := NewAgent(port)
	if err := serv.Setup(func(rb cla.ReceivedBundle) { recCh <- rb }); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = serv.Close() }()

	ready := [][]byte{[]byte("a"), []byte("bb"), bytes.Repeat([]byte("c"), 4096)}

	var wg sync.WaitGroup
	errCh := make(chan error, clients)
	wg.Add(clients)
	for c := 0; c < clients; c++ {
		go func() {
			defer wg.Done()
			if !NewAgent(0).ScheduledSubmission(fmt.Sprintf("127.0.0.1:%d", port), ready) {
				errCh <- fmt.Errorf("submission failed")
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatal(err)
	}

	// All messages were read before the close replies, hence, all bundles are already present.
	if l := len(recCh); l != clients*len(ready) {
		t.Fatalf("received %d bundles, expected %d", l, clients*len(ready))
	}
}

func TestWebSocketSubmissionUnreachable(t *testing.T) {
	port := testutil.RandomTCPPort(t)

	start := time.Now()
	if NewAgent(0).ScheduledSubmission(fmt.Sprintf("127.0.0.1:%d", port), [][]byte{[]byte("x")}) {
		t.Fatal("submission to a closed port succeeded")
	}
	if time.Since(start) > submissionTimeout {
		t.Fatal("failing submission exceeded its timeout")
	}
}
